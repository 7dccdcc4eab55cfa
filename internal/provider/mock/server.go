// Package mock emulates the payment provider's charge endpoints in-process.
//
// The server keeps one charge fixture and folds every create and capture
// request into it, so a create → capture → retrieve sequence reads back the
// same object. It is not a per-charge store: later calls see earlier writes.
package mock

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"sync"

	"github.com/go-chi/chi/v5"

	"github.com/s1037989/stripepayment/pkg/httputil"
)

// PathPrefix is where the mock's endpoints live.
const PathPrefix = "/mocked/stripe-payment"

// failurePayload is the body of every deliberate failure.
var failurePayload = map[string]any{"error": map[string]any{}}

// Server is an http.Handler answering the charge endpoints from one fixture.
type Server struct {
	secret string
	logger *slog.Logger
	router chi.Router

	mu      sync.Mutex
	fixture Fixture
}

// NewServer creates a mock whose fail trigger fires for requests
// authenticated with secret.
func NewServer(secret string, logger *slog.Logger) *Server {
	s := &Server{
		secret:  secret,
		logger:  logger,
		fixture: newFixture(),
	}

	r := chi.NewRouter()
	r.Route(PathPrefix, func(r chi.Router) {
		r.Use(s.requireCredentials)
		r.Post("/charges", s.createCharge)
		r.Post("/charges/{id}/capture", s.captureCharge)
		r.Get("/charges/{id}", s.retrieveCharge)
		r.Get("/charges", s.retrieveWithoutID)
	})
	s.router = r

	return s
}

// ServeHTTP implements http.Handler. Routing state left by an enclosing
// chi router is dropped so the mock always matches on the full path.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if chi.RouteContext(r.Context()) != nil {
		r = r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, nil))
	}
	s.router.ServeHTTP(w, r)
}

// Fixture returns a copy of the current fixture.
func (s *Server) Fixture() Fixture {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.fixture.clone()
}

// Reset restores the fixture to its initial, mostly-null state.
func (s *Server) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fixture = newFixture()
}

func (s *Server) requireCredentials(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, _, ok := r.BasicAuth(); !ok {
			httputil.WriteJSON(w, http.StatusUnauthorized, map[string]any{
				"error": map[string]any{
					"type":    "invalid_request_error",
					"message": "You did not provide an API key.",
				},
			})
			return
		}
		if err := r.ParseForm(); err != nil {
			httputil.WriteJSON(w, http.StatusBadRequest, map[string]any{
				"error": map[string]any{
					"type":    "invalid_request_error",
					"message": "Invalid request body.",
				},
			})
			return
		}
		next.ServeHTTP(w, r)
	})
}

// failTrigger reports whether the request carries a token and authenticates
// with the configured secret.
func (s *Server) failTrigger(r *http.Request) bool {
	user, _, _ := r.BasicAuth()
	_, hasToken := r.Form["token"]
	return hasToken && user == s.secret
}

func (s *Server) fail(w http.ResponseWriter, r *http.Request, reason string) {
	s.logger.DebugContext(r.Context(), "mock charge request failed",
		slog.String("method", r.Method),
		slog.String("path", r.URL.Path),
		slog.String("reason", reason),
	)
	httputil.WriteJSON(w, http.StatusBadRequest, failurePayload)
}

func (s *Server) createCharge(w http.ResponseWriter, r *http.Request) {
	if s.failTrigger(r) {
		s.fail(w, r, "token with live credentials")
		return
	}

	s.mu.Lock()
	s.apply(r)
	setOnce(&s.fixture.Captured, parseCapture(r.PostForm.Get("capture")))
	out := s.fixture.clone()
	s.mu.Unlock()

	httputil.WriteJSON(w, http.StatusOK, out)
}

func (s *Server) captureCharge(w http.ResponseWriter, r *http.Request) {
	if s.failTrigger(r) {
		s.fail(w, r, "token with live credentials")
		return
	}

	s.mu.Lock()
	s.apply(r)
	captured := true
	s.fixture.Captured = &captured
	out := s.fixture.clone()
	s.mu.Unlock()

	httputil.WriteJSON(w, http.StatusOK, out)
}

func (s *Server) retrieveCharge(w http.ResponseWriter, r *http.Request) {
	if s.failTrigger(r) {
		s.fail(w, r, "token with live credentials")
		return
	}

	s.mu.Lock()
	s.fixture.ID = chi.URLParam(r, "id")
	out := s.fixture.clone()
	s.mu.Unlock()

	httputil.WriteJSON(w, http.StatusOK, out)
}

func (s *Server) retrieveWithoutID(w http.ResponseWriter, r *http.Request) {
	s.fail(w, r, "missing id")
}

// apply folds the request's fields into null fixture fields. Callers hold mu.
func (s *Server) apply(r *http.Request) {
	form := r.PostForm

	if v := form.Get("amount"); v != "" {
		if amount, err := strconv.ParseInt(v, 10, 64); err == nil {
			setOnce(&s.fixture.Amount, amount)
		}
	}
	if v := form.Get("currency"); v != "" {
		setOnce(&s.fixture.Currency, strings.ToLower(v))
	}
	setOnce(&s.fixture.Description, form.Get("description"))
	if v := form.Get("receipt_email"); v != "" {
		setOnce(&s.fixture.ReceiptEmail, v)
	}
	if v := form.Get("statement_descriptor"); v != "" {
		setOnce(&s.fixture.StatementDescriptor, v)
	}
	if v := form.Get("customer"); v != "" {
		setOnce(&s.fixture.Customer, v)
	}

	user, _, _ := r.BasicAuth()
	setOnce(&s.fixture.Livemode, !strings.Contains(user, "test"))

	for key, values := range form {
		if name, ok := metadataKey(key); ok && len(values) > 0 {
			if _, exists := s.fixture.Metadata[name]; !exists {
				s.fixture.Metadata[name] = values[0]
			}
		}
	}
}

// parseCapture reads the create request's capture flag. Anything but an
// explicit false means captured.
func parseCapture(v string) bool {
	if v == "" {
		return true
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return true
	}
	return b
}

func metadataKey(key string) (string, bool) {
	if !strings.HasPrefix(key, "metadata[") || !strings.HasSuffix(key, "]") {
		return "", false
	}
	return key[len("metadata[") : len(key)-1], true
}
