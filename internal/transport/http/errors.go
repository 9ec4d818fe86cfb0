package httptransport

import (
	"encoding/json"
	"net/http"

	dErrors "jobstream/pkg/domain-errors"
)

var statusByCode = map[dErrors.Code]int{
	dErrors.CodeNotFound:              http.StatusNotFound,
	dErrors.CodeBadRequest:            http.StatusBadRequest,
	dErrors.CodeValidation:            http.StatusBadRequest,
	dErrors.CodeInvalidEmail:          http.StatusBadRequest,
	dErrors.CodeTermsNotAccepted:      http.StatusBadRequest,
	dErrors.CodeTokenMismatch:         http.StatusBadRequest,
	dErrors.CodeTokenExpired:          http.StatusGone,
	dErrors.CodeDuplicateRegistration: http.StatusConflict,
	dErrors.CodeStepOutOfOrder:        http.StatusConflict,
	dErrors.CodeConflict:              http.StatusConflict,
	dErrors.CodeUnsupportedFileType:   http.StatusUnsupportedMediaType,
	dErrors.CodeFileTooLarge:          http.StatusRequestEntityTooLarge,
	dErrors.CodeUnavailable:           http.StatusServiceUnavailable,
	dErrors.CodeTimeout:               http.StatusGatewayTimeout,
	dErrors.CodeInternal:              http.StatusInternalServerError,
}

// writeError translates a domain error into the JSON error envelope.
func writeError(w http.ResponseWriter, err error) {
	code := dErrors.GetCode(err)
	status, ok := statusByCode[code]
	if !ok {
		status = http.StatusInternalServerError
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{
		"error":   string(code),
		"message": err.Error(),
	})
}

func writeJSON(w http.ResponseWriter, status int, response any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(response); err != nil {
		http.Error(w, "failed to encode response", http.StatusInternalServerError)
	}
}
