package arena

import (
	"errors"
	"strings"

	"github.com/okian/mu3/internal/domain/validation"
)

// Sentinel errors.
var (
	ErrInvalidPrompt    = errors.New("invalid input")
	ErrBattleRunning    = errors.New("battle already running")
	ErrNoBattle         = errors.New("no battle to vote on")
	ErrAlreadyVoted     = errors.New("battle already voted")
	ErrInvalidOutcome   = errors.New("invalid vote outcome")
	ErrNoModel          = errors.New("no model selected")
	ErrUnknownModel     = errors.New("unknown model")
	ErrChatBusy         = errors.New("a message is already being answered")
	ErrImageURLRequired = errors.New("image url required")
	ErrInvalidImageURL  = errors.New("invalid image url")
	ErrStale            = errors.New("result discarded after reset")
)

// ValidationError carries the rule failures that rejected an input.
type ValidationError struct {
	Result validation.Result
}

func (e *ValidationError) Error() string {
	return ErrInvalidPrompt.Error() + ": " + strings.Join(e.Result.Errors, "; ")
}

func (e *ValidationError) Unwrap() error { return ErrInvalidPrompt }

func invalid(res validation.Result) error { return &ValidationError{Result: res} }
