package mock

import (
	"net/http"
	"net/http/httptest"
)

// Transport is an http.RoundTripper that serves every request through a
// Server without touching the network.
type Transport struct {
	Server *Server
}

// NewTransport returns a Transport backed by s.
func NewTransport(s *Server) *Transport {
	return &Transport{Server: s}
}

// RoundTrip implements http.RoundTripper.
func (t *Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	if req.Body != nil {
		defer func() { _ = req.Body.Close() }()
	}
	if err := req.Context().Err(); err != nil {
		return nil, err
	}

	rec := httptest.NewRecorder()
	t.Server.ServeHTTP(rec, req)

	resp := rec.Result()
	resp.Request = req
	return resp, nil
}
