// Package respond writes JSON responses and maps errors onto them.
package respond

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/stumpscore/stumpscore/internal/apperr"
)

func JSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

// Error writes err as an error body. Server errors are logged with their
// cause; the client only sees the user-safe message.
func Error(w http.ResponseWriter, r *http.Request, err error) {
	e := apperr.As(err)
	if e.Kind == apperr.KindServer {
		slog.Error("request failed", "method", r.Method, "path", r.URL.Path, "error", err)
	}
	JSON(w, e.Status(), e.Body())
}

// Decode reads a JSON request body into out.
func Decode(r *http.Request, out any) error {
	err := json.NewDecoder(r.Body).Decode(out)
	if err != nil {
		return apperr.Wrap(apperr.KindValidation, "Invalid request body", err)
	}
	return nil
}

// BearerToken extracts the token from an "Authorization: Bearer <token>" header.
func BearerToken(header string) string {
	if header == "" {
		return ""
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
		return ""
	}
	return strings.TrimSpace(parts[1])
}
