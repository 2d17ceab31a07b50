package review

import (
	"errors"
	"fmt"
)

var (
	errMissingID      = errors.New("missing row id")
	errCommentTooLong = errors.New("comment too long")
)

type ValidationError struct {
	reason error
}

func (e ValidationError) Error() string {
	return e.reason.Error()
}

func (e ValidationError) Unwrap() error {
	return e.reason
}

func IsValidationError(err error) bool {
	var ve ValidationError
	return errors.As(err, &ve)
}

// Validator guards the write path. An edit that fails here is skipped and
// reported, never fatal to the rest of the batch.
type Validator struct {
	mode       Mode
	maxComment int
}

func NewValidator(mode Mode, maxComment int) *Validator {
	return &Validator{mode: mode, maxComment: maxComment}
}

func (v *Validator) Mode() Mode {
	return v.mode
}

// ValidateEdit accepts an edit iff the row id is present and the status
// parses to a member of the mode's domain. The parsed status is returned so
// callers write the canonical form.
func (v *Validator) ValidateEdit(id int64, status string, comment *string) (Status, error) {
	if v == nil {
		return "", ValidationError{reason: errors.New("validator not initialised")}
	}

	if id <= 0 {
		return "", ValidationError{reason: errMissingID}
	}

	parsed, err := v.mode.ParseStatus(status)
	if err != nil {
		return "", ValidationError{reason: fmt.Errorf("invalid status: %w", err)}
	}

	if comment != nil && v.maxComment > 0 && len(*comment) > v.maxComment {
		return "", ValidationError{reason: fmt.Errorf("comment exceeds %d characters: %w", v.maxComment, errCommentTooLong)}
	}

	return parsed, nil
}
