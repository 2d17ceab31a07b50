package review

import (
	"embed"
	"errors"
	"html/template"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"github.com/matchgrid-ai/platform/pkg/common/logger"
	"github.com/matchgrid-ai/platform/pkg/common/models"
)

//go:embed templates/page.html
var templateFS embed.FS

var pageTemplate = template.Must(template.ParseFS(templateFS, "templates/page.html"))

// PageHandler renders the single review page: a read-only overview of the
// projection-visible columns plus one editable control per row and a submit
// button. Submitting re-fetches and opens the next session.
type PageHandler struct {
	service    *Service
	projection Projection
}

func NewPageHandler(service *Service, projection Projection) *PageHandler {
	return &PageHandler{service: service, projection: projection}
}

func (h *PageHandler) Register(router *mux.Router) {
	router.HandleFunc("/", h.handlePage).Methods(http.MethodGet)
	router.HandleFunc("/submit", h.handleSubmit).Methods(http.MethodPost)
}

type pageRow struct {
	ID       int64
	Cells    []interface{}
	Status   Status
	Approved bool
	Comment  string
}

type pageData struct {
	SessionID       string
	Boolean         bool
	StatusEditable  bool
	CommentEditable bool
	Statuses        []Status
	Columns         []Column
	Rows            []pageRow
	Result          *CommitResult
	Error           string
}

func (h *PageHandler) handlePage(w http.ResponseWriter, r *http.Request) {
	snapshot, err := h.service.Begin(r.Context())
	if err != nil {
		logger.Log.WithError(err).Error("failed to load review page")
		h.render(w, h.pageData("", nil, nil, userMessage(err)))
		return
	}

	h.render(w, h.pageData(snapshot.SessionID, snapshot.Rows, nil, ""))
}

func (h *PageHandler) handleSubmit(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form submission", http.StatusBadRequest)
		return
	}

	sessionID := r.PostForm.Get("session_id")
	edits := h.collectEdits(r)

	result, err := h.service.Submit(r.Context(), sessionID, edits)
	if err != nil {
		logger.Log.WithError(err).Error("failed to commit review page edits")
		h.render(w, h.pageData("", nil, nil, userMessage(err)))
		return
	}

	// The committed session is spent; open the next one over fresh data.
	snapshot, err := h.service.Begin(r.Context())
	if err != nil {
		logger.Log.WithError(err).Error("failed to reload review page")
		h.render(w, h.pageData("", result.Rows, result, userMessage(err)))
		return
	}

	h.render(w, h.pageData(snapshot.SessionID, snapshot.Rows, result, ""))
}

// collectEdits turns the posted form back into row edits. Every rendered row
// reports its id; unchecked checkboxes are absent from the form, which in
// the boolean variant means Pending.
func (h *PageHandler) collectEdits(r *http.Request) []models.ReviewEdit {
	var edits []models.ReviewEdit

	for _, rawID := range r.PostForm["ids"] {
		id, err := strconv.ParseInt(rawID, 10, 64)
		if err != nil {
			continue
		}

		edit := models.ReviewEdit{ID: id}
		if h.projection.Editable.Status {
			status := r.PostForm.Get("status_" + rawID)
			if status == "" && h.service.Mode() == ModeBoolean {
				status = string(StatusPending)
			}
			edit.Status = status
		}
		if h.projection.Editable.Comment {
			if comments, ok := r.PostForm["comment_"+rawID]; ok && len(comments) > 0 {
				comment := comments[0]
				edit.Comment = &comment
			}
		}
		edits = append(edits, edit)
	}

	return edits
}

func (h *PageHandler) pageData(sessionID string, rows []MatchRow, result *CommitResult, errMsg string) pageData {
	mode := h.service.Mode()
	visible := h.projection.Visible()

	data := pageData{
		SessionID:       sessionID,
		Boolean:         mode == ModeBoolean,
		StatusEditable:  h.projection.Editable.Status,
		CommentEditable: h.projection.Editable.Comment,
		Statuses:        mode.Statuses(),
		Columns:         visible,
		Result:          result,
		Error:           errMsg,
	}

	for _, row := range rows {
		cells := make([]interface{}, 0, len(visible))
		for _, col := range visible {
			cells = append(cells, ColumnValue(row, col.Name))
		}
		data.Rows = append(data.Rows, pageRow{
			ID:       row.ID,
			Cells:    cells,
			Status:   row.AcceptReject,
			Approved: row.AcceptReject == StatusApproved,
			Comment:  baseComment(row),
		})
	}

	return data
}

func (h *PageHandler) render(w http.ResponseWriter, data pageData) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := pageTemplate.Execute(w, data); err != nil {
		logger.Log.WithError(err).Error("failed to render review page")
	}
}

func userMessage(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrSessionNotFound):
		return "This review session has expired. Reload the page and try again."
	case errors.Is(err, ErrStoreUnavailable):
		return "The review store is unreachable. Nothing was written."
	case errors.Is(err, ErrQueryFailed):
		return "The review query failed. Nothing was written."
	default:
		return "Something went wrong. Please try again."
	}
}
