package polls

import (
	"errors"

	"github.com/sujalbistaa/polls/internal/models"
)

var (
	// ErrNotFound is returned for polls that do not exist and for polls that
	// are not yet published; callers cannot tell the two apart.
	ErrNotFound = errors.New("poll not found")

	// ErrMissingSelection means the vote request carried no choice.
	ErrMissingSelection = errors.New("no choice selected")

	// ErrInvalidChoice means the submitted choice is not one of the poll's choices.
	ErrInvalidChoice = errors.New("choice does not belong to poll")
)

// VoteError is a rejected vote. It carries the poll so the detail view can be
// rendered again next to the message. No counter was changed.
type VoteError struct {
	Kind error
	Poll *models.Poll
}

func (e *VoteError) Error() string { return e.Kind.Error() }

func (e *VoteError) Unwrap() error { return e.Kind }

// Message is the text shown to the voter.
func (e *VoteError) Message() string {
	if errors.Is(e.Kind, ErrInvalidChoice) {
		return "That choice is not part of this poll."
	}
	return "You didn't select a choice."
}

// Reason is a short label for the rejection, used in metrics and logs.
func (e *VoteError) Reason() string {
	if errors.Is(e.Kind, ErrInvalidChoice) {
		return "invalid_choice"
	}
	return "missing_selection"
}
