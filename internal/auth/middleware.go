package auth

import (
	"encoding/json"
	"errors"
	"net/http"
)

// Skipper allows callers to bypass authentication for specific requests.
type Skipper func(r *http.Request) bool

// Middleware enforces bearer-token authentication on incoming requests.
//
// When Require is false a request without an Authorization header passes
// through unauthenticated; this is the legacy device write path. A header
// that is present but unusable is always rejected.
type Middleware struct {
	Config  Config
	Require bool
	Skipper Skipper
}

// NewMiddleware constructs a middleware with optional skipper.
func NewMiddleware(cfg Config, require bool, skipper Skipper) Middleware {
	return Middleware{Config: cfg, Require: require, Skipper: skipper}
}

// Wrap attaches authentication handling to an http.Handler.
func (m Middleware) Wrap(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if m.Skipper != nil && m.Skipper(r) {
			next.ServeHTTP(w, r)
			return
		}

		header := r.Header.Get("Authorization")
		if header == "" {
			if m.Require {
				writeUnauthorized(w, ErrMissingToken)
				return
			}
			next.ServeHTTP(w, r)
			return
		}

		token, err := ExtractToken(header)
		if err != nil {
			writeUnauthorized(w, err)
			return
		}

		claims, err := Verify(token, m.Config)
		if err != nil {
			writeUnauthorized(w, err)
			return
		}

		next.ServeHTTP(w, r.WithContext(WithClaims(r.Context(), claims)))
	})
}

func writeUnauthorized(w http.ResponseWriter, err error) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_ = json.NewEncoder(w).Encode(map[string]string{"message": authMessage(err)})
}

// authMessage maps auth errors to the client-facing messages devices already
// parse.
func authMessage(err error) string {
	switch {
	case errors.Is(err, ErrMissingToken):
		return "Token is missing"
	case errors.Is(err, ErrMalformedToken):
		return "Invalid token format"
	case errors.Is(err, ErrExpiredToken):
		return "Token has expired"
	default:
		return "Invalid token"
	}
}
