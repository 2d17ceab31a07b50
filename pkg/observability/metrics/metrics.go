package metrics

import (
	"fmt"
	"net/http"
	"sync/atomic"
)

var (
	sessionsStarted atomic.Int64
	rowsFetched     atomic.Int64
	commitsTotal    atomic.Int64
	rowsWritten     atomic.Int64
	rowsSkipped     atomic.Int64
	writeFailures   atomic.Int64
	candidatesAdded atomic.Int64
)

func Init() {}

func ObserveSessionStarted(fetched int) {
	sessionsStarted.Add(1)
	rowsFetched.Add(int64(fetched))
}

func ObserveCommit(written, skipped, failed int) {
	commitsTotal.Add(1)
	rowsWritten.Add(int64(written))
	rowsSkipped.Add(int64(skipped))
	writeFailures.Add(int64(failed))
}

func ObserveCandidate() {
	candidatesAdded.Add(1)
}

func WritePrometheus(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "text/plain; version=0.0.4")
	fmt.Fprintf(w, "# HELP matchgrid_review_sessions_started_total Number of review sessions opened.\n")
	fmt.Fprintf(w, "# TYPE matchgrid_review_sessions_started_total counter\n")
	fmt.Fprintf(w, "matchgrid_review_sessions_started_total %d\n", sessionsStarted.Load())

	fmt.Fprintf(w, "# HELP matchgrid_review_rows_fetched_total Number of rows loaded from the review table.\n")
	fmt.Fprintf(w, "# TYPE matchgrid_review_rows_fetched_total counter\n")
	fmt.Fprintf(w, "matchgrid_review_rows_fetched_total %d\n", rowsFetched.Load())

	fmt.Fprintf(w, "# HELP matchgrid_review_commits_total Number of commit attempts.\n")
	fmt.Fprintf(w, "# TYPE matchgrid_review_commits_total counter\n")
	fmt.Fprintf(w, "matchgrid_review_commits_total %d\n", commitsTotal.Load())

	fmt.Fprintf(w, "# HELP matchgrid_review_rows_written_total Number of rows persisted by commits.\n")
	fmt.Fprintf(w, "# TYPE matchgrid_review_rows_written_total counter\n")
	fmt.Fprintf(w, "matchgrid_review_rows_written_total %d\n", rowsWritten.Load())

	fmt.Fprintf(w, "# HELP matchgrid_review_rows_skipped_total Number of edits skipped by pre-write validation.\n")
	fmt.Fprintf(w, "# TYPE matchgrid_review_rows_skipped_total counter\n")
	fmt.Fprintf(w, "matchgrid_review_rows_skipped_total %d\n", rowsSkipped.Load())

	fmt.Fprintf(w, "# HELP matchgrid_review_write_failures_total Number of per-row UPDATE statements that failed.\n")
	fmt.Fprintf(w, "# TYPE matchgrid_review_write_failures_total counter\n")
	fmt.Fprintf(w, "matchgrid_review_write_failures_total %d\n", writeFailures.Load())

	fmt.Fprintf(w, "# HELP matchgrid_review_candidates_added_total Number of match candidates ingested from the event bus.\n")
	fmt.Fprintf(w, "# TYPE matchgrid_review_candidates_added_total counter\n")
	fmt.Fprintf(w, "matchgrid_review_candidates_added_total %d\n", candidatesAdded.Load())
}
