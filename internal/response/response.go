package response

import (
	"encoding/json"
	"net/http"
)

// Error keys are part of the client contract; handlers never leak raw
// error text or stack traces.
const (
	KeyMissingServices  = "missing_services"
	KeyInvalidData      = "invalid_data"
	KeyUnauthorized     = "unauthorized"
	KeyAccessDenied     = "access_denied"
	KeyMethodNotAllowed = "method_not_allowed"
	KeyProtectedRecord  = "protected_record"
	KeyNotFound         = "not_found"
	KeyInternal         = "internal_error"
)

func JSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// Success writes {"success":true, ...fields}.
func Success(w http.ResponseWriter, fields map[string]any) {
	body := map[string]any{"success": true}
	for k, v := range fields {
		body[k] = v
	}
	JSON(w, http.StatusOK, body)
}

// Error writes {"success":false,"error":key}.
func Error(w http.ResponseWriter, status int, key string) {
	JSON(w, status, map[string]any{
		"success": false,
		"error":   key,
	})
}
