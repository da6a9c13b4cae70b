package errors

import (
	"encoding/json"
	"log/slog"
	"net/http"
)

var statusCodes = map[ErrorCategory]int{
	CategoryValidation: http.StatusBadRequest,
	CategoryTimezone:   http.StatusBadRequest,
	CategoryConfig:     http.StatusBadRequest,
	CategoryNotFound:   http.StatusNotFound,
	CategoryStore:      http.StatusServiceUnavailable,
	CategoryEventStore: http.StatusServiceUnavailable,
	CategoryNotify:     http.StatusServiceUnavailable,
	CategoryDaemon:     http.StatusServiceUnavailable,
	CategoryRuntime:    http.StatusServiceUnavailable,
}

// HTTPErrorAdapter writes admin API errors as JSON.
type HTTPErrorAdapter struct {
	logger *slog.Logger
}

// NewHTTPErrorAdapter creates an adapter. A nil logger uses slog.Default.
func NewHTTPErrorAdapter(logger *slog.Logger) *HTTPErrorAdapter {
	if logger == nil {
		logger = slog.Default()
	}
	return &HTTPErrorAdapter{logger: logger}
}

// HTTPErrorResponse is the JSON error body.
type HTTPErrorResponse struct {
	Error     string         `json:"error"`
	Code      string         `json:"code,omitempty"`
	Details   map[string]any `json:"details,omitempty"`
	Retryable bool           `json:"retryable,omitempty"`
}

// StatusCodeFor maps err to a status; unclassified errors are 500.
func (a *HTTPErrorAdapter) StatusCodeFor(err error) int {
	if err == nil {
		return http.StatusOK
	}
	if c, ok := AsClassified(err); ok {
		if status, ok := statusCodes[c.Category()]; ok {
			return status
		}
	}
	return http.StatusInternalServerError
}

// WriteErrorResponse writes err as JSON with its status and logs it.
func (a *HTTPErrorAdapter) WriteErrorResponse(w http.ResponseWriter, r *http.Request, err error) {
	if err == nil {
		w.WriteHeader(http.StatusOK)
		return
	}

	status := a.StatusCodeFor(err)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if b, jerr := json.Marshal(a.FormatErrorResponse(err)); jerr == nil {
		_, _ = w.Write(b)
	} else {
		_, _ = w.Write([]byte(`{"error":"internal error"}`))
	}

	c, ok := AsClassified(err)
	if !ok {
		a.logger.Error(err.Error(), "path", r.URL.Path, "status", status)
		return
	}
	level := levelFor(c.Severity())
	if status < http.StatusInternalServerError {
		// The caller asked for something wrong; the server is fine.
		level = slog.LevelWarn
	}
	attrs := append(c.LogAttrs(), slog.String("path", r.URL.Path), slog.Int("status", status))
	a.logger.LogAttrs(r.Context(), level, c.Message(), attrs...)
}

// FormatErrorResponse builds the JSON body for err.
func (a *HTTPErrorAdapter) FormatErrorResponse(err error) HTTPErrorResponse {
	if err == nil {
		return HTTPErrorResponse{}
	}
	c, ok := AsClassified(err)
	if !ok {
		return HTTPErrorResponse{Error: err.Error()}
	}
	resp := HTTPErrorResponse{Error: c.Message(), Code: string(c.Category()), Retryable: c.CanRetry()}
	if len(c.Context()) > 0 {
		resp.Details = c.Context()
	}
	return resp
}
