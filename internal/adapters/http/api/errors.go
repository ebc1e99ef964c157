package api

import (
	"errors"
	"net/http"

	"github.com/okian/mu3/internal/adapters/storage"
	service "github.com/okian/mu3/internal/app"
	"github.com/okian/mu3/internal/arena"
	"github.com/okian/mu3/internal/domain/validation"
	"github.com/okian/mu3/internal/errreg"
)

// Sentinel kinds for API errors.
var (
	ErrBadRequest = errors.New("bad request")
	ErrNotFound   = errors.New("not found")
)

// Error codes returned in errorResponse.Code.
const (
	codeBadRequest      = "bad_request"
	codeValidation      = "validation_failed"
	codeNotFound        = "not_found"
	codeMethod          = "method_not_allowed"
	codeConflict        = "conflict"
	codeStale           = "stale_result"
	codeUnavailable     = "service_unavailable"
	codeInternal        = "internal_error"
	codeModelNotFound   = "model_not_found"
	codeUnknownRuleSet  = "unknown_rule_set"
	codeInvalidPrefs    = "invalid_preferences"
	codeInvalidOutcome  = "invalid_outcome"
	codeInvalidImageURL = "invalid_image_url"
)

// Recoverable actions offered with a top-level failure.
var recoveryActions = []string{"retry", "reload", "home"}

type errorResponse struct {
	Code     string   `json:"code"`
	Message  string   `json:"message"`
	Errors   []string `json:"errors,omitempty"`
	Warnings []string `json:"warnings,omitempty"`
}

type fatalResponse struct {
	Code    string   `json:"code"`
	Message string   `json:"message"`
	ErrorID string   `json:"errorId"`
	Actions []string `json:"actions"`
	Stack   string   `json:"stack,omitempty"`
}

// statusFor maps domain errors to an HTTP status and error code.
func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, arena.ErrInvalidPrompt):
		return http.StatusUnprocessableEntity, codeValidation
	case errors.Is(err, arena.ErrInvalidOutcome):
		return http.StatusBadRequest, codeInvalidOutcome
	case errors.Is(err, arena.ErrNoModel):
		return http.StatusBadRequest, codeBadRequest
	case errors.Is(err, arena.ErrUnknownModel):
		return http.StatusNotFound, codeModelNotFound
	case errors.Is(err, arena.ErrImageURLRequired), errors.Is(err, arena.ErrInvalidImageURL):
		return http.StatusBadRequest, codeInvalidImageURL
	case errors.Is(err, arena.ErrBattleRunning), errors.Is(err, arena.ErrChatBusy),
		errors.Is(err, arena.ErrAlreadyVoted), errors.Is(err, arena.ErrNoBattle):
		return http.StatusConflict, codeConflict
	case errors.Is(err, arena.ErrStale):
		return http.StatusConflict, codeStale
	case errors.Is(err, validation.ErrUnknownRuleSet):
		return http.StatusBadRequest, codeUnknownRuleSet
	case errors.Is(err, storage.ErrInvalidPreferences):
		return http.StatusBadRequest, codeInvalidPrefs
	case errors.Is(err, service.ErrUnknownHistory), errors.Is(err, ErrNotFound):
		return http.StatusNotFound, codeNotFound
	case errors.Is(err, service.ErrNotStarted):
		return http.StatusServiceUnavailable, codeUnavailable
	case errors.Is(err, ErrBadRequest):
		return http.StatusBadRequest, codeBadRequest
	default:
		return http.StatusInternalServerError, codeInternal
	}
}

// fail writes err as JSON. Validation failures carry their rule messages and
// are recorded in the error registry; unexpected errors are recorded as system errors.
func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	status, code := statusFor(err)

	var verr *arena.ValidationError
	if errors.As(err, &verr) {
		s.registry.Validation(r.Context(), err.Error(), map[string]any{"path": r.URL.Path})
		writeJSON(w, status, errorResponse{
			Code:     code,
			Message:  firstOr(verr.Result.Errors, err.Error()),
			Errors:   verr.Result.Errors,
			Warnings: verr.Result.Warnings,
		})
		return
	}
	if status == http.StatusInternalServerError {
		// Panics are recorded with their stack where they are recovered.
		if !errors.Is(err, errreg.ErrPanic) {
			s.registry.Record(r.Context(), err, errreg.CategorySystem, errreg.SeverityHigh, errreg.Options{
				Details:   map[string]any{"path": r.URL.Path, "method": r.Method},
				UserAgent: r.UserAgent(),
				URL:       r.URL.String(),
			})
		}
		writeError(w, status, code, errors.New(errreg.DefaultGuardMessage))
		return
	}
	writeError(w, status, code, err)
}

func firstOr(list []string, def string) string {
	if len(list) > 0 {
		return list[0]
	}
	return def
}
