package plotmap

import (
	"context"
	"errors"
)

// ErrDialogCancelled is returned by a Dialog when the user dismissed it.
var ErrDialogCancelled = errors.New("dialog cancelled")

// Dialog asks the user a question and blocks until an answer arrives or ctx
// is done. A cancelled or blank answer makes the calling action a no-op.
type Dialog interface {
	Prompt(ctx context.Context, message string) (string, error)
}

// Answer is a Dialog whose answer is already known, such as a submitted form
// field. An empty Answer behaves as a cancelled dialog.
type Answer string

func (a Answer) Prompt(ctx context.Context, _ string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if a == "" {
		return "", ErrDialogCancelled
	}
	return string(a), nil
}
