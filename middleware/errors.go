package middleware

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	tenantAuth "github.com/MrEthical07/tenantAuth"
)

// ErrorBody is the JSON written by WriteError.
type ErrorBody struct {
	Status  int    `json:"status"`
	Kind    string `json:"kind,omitempty"`
	Message string `json:"message"`
}

// StatusFor maps an Engine error to an HTTP status code.
func StatusFor(err error) int {
	switch tenantAuth.KindOf(err) {
	case tenantAuth.KindNone:
		return http.StatusOK
	case tenantAuth.KindTenantNotFound, tenantAuth.KindUserNotFound:
		return http.StatusNotFound
	case tenantAuth.KindInvalidCredentials, tenantAuth.KindInvalidToken,
		tenantAuth.KindTokenExpired, tenantAuth.KindTokenRevoked:
		return http.StatusUnauthorized
	case tenantAuth.KindUserNotVerified, tenantAuth.KindUserDisabled, tenantAuth.KindTenantDisabled:
		return http.StatusForbidden
	case tenantAuth.KindUserExists, tenantAuth.KindTenantExists:
		return http.StatusConflict
	case tenantAuth.KindRateLimited:
		return http.StatusTooManyRequests
	case tenantAuth.KindInvalidRequest:
		return http.StatusBadRequest
	case tenantAuth.KindUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// WriteError writes err as JSON. Rate-limit errors also set Retry-After in
// whole seconds.
func WriteError(w http.ResponseWriter, err error) {
	var rl *tenantAuth.RateLimitError
	if errors.As(err, &rl) {
		secs := int64((rl.RetryAfter + time.Second - 1) / time.Second)
		w.Header().Set("Retry-After", strconv.FormatInt(secs, 10))
	}

	status := StatusFor(err)
	body := ErrorBody{
		Status:  status,
		Kind:    string(tenantAuth.KindOf(err)),
		Message: tenantAuth.PublicMessage(err),
	}
	writeJSON(w, status, body)
}

func writeJSONError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, ErrorBody{Status: status, Message: message})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
