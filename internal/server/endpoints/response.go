package endpoints

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/jackzampolin/lumina/internal/auth"
	"github.com/jackzampolin/lumina/internal/chapters"
	"github.com/jackzampolin/lumina/internal/pdftext"
	"github.com/jackzampolin/lumina/internal/pipeline"
	"github.com/jackzampolin/lumina/internal/providers"
	"github.com/jackzampolin/lumina/internal/svcctx"
	"github.com/jackzampolin/lumina/internal/validation"
)

// maxJSONBody caps JSON request bodies.
const maxJSONBody = 1 << 20

// ErrorResponse is a standard error response.
type ErrorResponse struct {
	Error  string            `json:"error"`
	Fields map[string]string `json:"fields,omitempty"`
}

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, ErrorResponse{Error: msg})
}

// writeServiceError maps a pipeline, store or provider error to a status code.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		verr  *validation.Error
		perr  *pdftext.DocumentParseError
		serr  *chapters.SegmentationError
		terr  *chapters.TranslationError
		synth *providers.SynthesisError
		rl    *providers.RateLimitError
	)

	switch {
	case errors.As(err, &verr):
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: verr.Message, Fields: verr.Fields})
	case pipeline.IsNotFound(err):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, pipeline.ErrAlreadyProcessing):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, auth.ErrInvalidToken):
		writeError(w, http.StatusUnauthorized, err.Error())
	case errors.Is(err, auth.ErrGuestDisabled):
		writeError(w, http.StatusForbidden, err.Error())
	case errors.Is(err, pipeline.ErrNotPDF),
		errors.Is(err, pipeline.ErrInvalidPosition),
		errors.As(err, &perr):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.As(err, &rl):
		if rl.RetryAfter > 0 {
			w.Header().Set("Retry-After", fmt.Sprintf("%.0f", rl.RetryAfter.Seconds()))
		}
		writeError(w, http.StatusTooManyRequests, err.Error())
	case errors.As(err, &serr), errors.As(err, &terr), errors.As(err, &synth),
		errors.Is(err, auth.ErrIdentityProvider):
		writeError(w, http.StatusBadGateway, err.Error())
	case errors.Is(err, pipeline.ErrClosed):
		writeError(w, http.StatusServiceUnavailable, err.Error())
	default:
		svcctx.LoggerFrom(r.Context()).Error("request failed",
			"method", r.Method, "path", r.URL.Path, "error", err)
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}

// decodeJSON reads a JSON body into dst and validates it. An empty body
// leaves dst at its zero value before validation.
func decodeJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxJSONBody))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil && !errors.Is(err, io.EOF) {
		return &validation.Error{
			Message: "invalid request body",
			Fields:  map[string]string{"body": err.Error()},
		}
	}
	if v := svcctx.ValidatorFrom(r.Context()); v != nil {
		return v.Validate(dst)
	}
	return nil
}

// sessionOrReject returns the request's session or writes 401.
func sessionOrReject(w http.ResponseWriter, r *http.Request) *auth.Session {
	sess := auth.SessionFrom(r.Context())
	if sess == nil {
		writeError(w, http.StatusUnauthorized, "authentication required")
	}
	return sess
}

// orchestratorOrReject returns the pipeline or writes 503.
func orchestratorOrReject(w http.ResponseWriter, r *http.Request) *pipeline.Orchestrator {
	o := svcctx.OrchestratorFrom(r.Context())
	if o == nil {
		writeError(w, http.StatusServiceUnavailable, "pipeline not initialized")
	}
	return o
}
