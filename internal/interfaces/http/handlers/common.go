// Package handlers implements the SeqQuant HTTP endpoints.
package handlers

import (
	"encoding/json"
	stderrors "errors"
	"io"
	"net/http"

	"github.com/turtacn/SeqQuant/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/SeqQuant/pkg/errors"
)

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Detail  string `json:"detail,omitempty"`
}

func writeJSON(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if data != nil {
		_ = json.NewEncoder(w).Encode(data)
	}
}

// writeAppError maps err to its HTTP status. Errors without a code, and
// server-side codes, are masked as internal errors and logged.
func writeAppError(w http.ResponseWriter, logger logging.Logger, err error) {
	ae, ok := errors.AsAppError(err)
	if !ok {
		logger.Error("unclassified error", logging.Err(err))
		writeJSON(w, http.StatusInternalServerError, ErrorResponse{
			Code:    string(errors.ErrCodeInternal),
			Message: errors.DefaultMessageForCode(errors.ErrCodeInternal),
		})
		return
	}

	status := errors.HTTPStatusForCode(ae.Code)
	resp := ErrorResponse{Code: string(ae.Code), Message: ae.Message, Detail: ae.Detail}
	if status >= http.StatusInternalServerError {
		logger.Error("request failed", logging.String("code", string(ae.Code)), logging.Err(err))
		if ae.Code == errors.ErrCodeInternal {
			resp.Detail = ""
		}
	}
	writeJSON(w, status, resp)
}

// decodeOptionalJSON decodes r.Body into dst. An empty body leaves dst
// untouched.
func decodeOptionalJSON(r *http.Request, dst interface{}) error {
	if r.Body == nil || r.Body == http.NoBody {
		return nil
	}
	err := json.NewDecoder(r.Body).Decode(dst)
	if err == nil || stderrors.Is(err, io.EOF) {
		return nil
	}
	var tooLarge *http.MaxBytesError
	if stderrors.As(err, &tooLarge) {
		return errors.New(errors.ErrCodeValidation, "request body too large")
	}
	return errors.Wrap(err, errors.ErrCodeSerialization, "invalid JSON body")
}
