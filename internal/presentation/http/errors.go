package httppresentation

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/Zhima-Mochi/minishop-checkout/internal/observability"
	"github.com/Zhima-Mochi/minishop-checkout/internal/observability/logctx"
	"github.com/Zhima-Mochi/minishop-checkout/internal/pkg/apperr"
)

type errorResponse struct {
	Error    string              `json:"error"`
	Kind     string              `json:"kind"`
	Fields   []apperr.FieldError `json:"fields,omitempty"`
	Upstream string              `json:"upstream,omitempty"`
}

var (
	errUnauthorized = errors.New("missing or invalid bearer token")
	errRateLimited  = errors.New("too many requests")
)

func statusFor(kind apperr.Kind) int {
	switch kind {
	case apperr.Validation:
		return http.StatusBadRequest
	case apperr.NotFound:
		return http.StatusNotFound
	case apperr.Conflict:
		return http.StatusConflict
	case apperr.Forbidden:
		return http.StatusForbidden
	case apperr.Upstream:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// writeAppError is the single place where error kinds become HTTP statuses.
// Internal errors are logged and hidden from the client.
func writeAppError(ctx context.Context, w http.ResponseWriter, err error) {
	kind := apperr.KindOf(err)
	body := errorResponse{Error: err.Error(), Kind: kind.String(), Fields: apperr.FieldsOf(err)}
	switch kind {
	case apperr.Internal:
		logctx.From(ctx).Error("http_internal_error", observability.F("error", err.Error()))
		body.Error = "internal error"
	case apperr.Upstream:
		body.Upstream = apperr.BodyOf(err)
	}
	writeJSON(w, statusFor(kind), body)
}

func writeError(w http.ResponseWriter, status int, kind string, err error) {
	writeJSON(w, status, errorResponse{Error: err.Error(), Kind: kind})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// decodeJSON rejects unknown fields; decoding failures are validation errors.
func decodeJSON(r *http.Request, dst any) error {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(dst); err != nil {
		return apperr.Wrap(apperr.Validation, err, "malformed request body")
	}
	return nil
}
