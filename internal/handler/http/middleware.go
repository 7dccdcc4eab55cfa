package http

import (
	"log/slog"
	"net/http"
	"strings"

	apperrors "github.com/s1037989/stripepayment/pkg/errors"
	"github.com/s1037989/stripepayment/pkg/httputil"
)

// RequireContentType rejects bodies whose Content-Type does not start with
// one of the accepted media types. Requests without a Content-Type pass.
func RequireContentType(accepted ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method == http.MethodPost || r.Method == http.MethodPut || r.Method == http.MethodPatch {
				ct := r.Header.Get("Content-Type")
				if ct != "" && !hasAnyPrefix(ct, accepted) {
					httputil.WriteError(w, r, apperrors.New(
						"UNSUPPORTED_MEDIA_TYPE",
						"Content-Type must be one of: "+strings.Join(accepted, ", "),
						http.StatusUnsupportedMediaType,
						apperrors.ErrInvalidInput,
					), slog.Default())
					return
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}

func hasAnyPrefix(s string, prefixes []string) bool {
	for _, p := range prefixes {
		if strings.HasPrefix(s, p) {
			return true
		}
	}
	return false
}
