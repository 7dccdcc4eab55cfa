package http

import (
	"log/slog"
	"net/http"
	"net/url"
	"sort"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/s1037989/stripepayment/internal/charge"
	"github.com/s1037989/stripepayment/internal/provider"
	apperrors "github.com/s1037989/stripepayment/pkg/errors"
	"github.com/s1037989/stripepayment/pkg/httputil"
)

// ChargeHandler exposes the provider's charge operations over HTTP.
type ChargeHandler struct {
	provider provider.Provider
	logger   *slog.Logger
}

// NewChargeHandler creates a new charge HTTP handler.
func NewChargeHandler(p provider.Provider, logger *slog.Logger) *ChargeHandler {
	return &ChargeHandler{
		provider: p,
		logger:   logger,
	}
}

const maxFormBytes = 1 << 20

// PublicKeyResponse is the body of GET /api/v1/public-key.
type PublicKeyResponse struct {
	PublicKey string `json:"public_key"`
}

// CreateCharge handles POST /api/v1/charges. The submitted form is both the
// charge arguments and the defaults source, so a Checkout-style form posting
// stripeToken and stripeEmail works without renaming fields.
func (h *ChargeHandler) CreateCharge(w http.ResponseWriter, r *http.Request) {
	if !h.parseForm(w, r) {
		return
	}

	result := <-h.provider.CreateCharge(r.Context(), ArgsFromForm(r.PostForm), charge.FormLookup(r.PostForm))
	h.writeResult(w, r, result)
}

// CaptureCharge handles POST /api/v1/charges/{id}/capture.
func (h *ChargeHandler) CaptureCharge(w http.ResponseWriter, r *http.Request) {
	if !h.parseForm(w, r) {
		return
	}

	args := ArgsFromForm(r.PostForm)
	args["id"] = chi.URLParam(r, "id")

	result := <-h.provider.CaptureCharge(r.Context(), args)
	h.writeResult(w, r, result)
}

// RetrieveCharge handles GET /api/v1/charges/{id} and GET /api/v1/charges.
// Without an id the provider is asked for the "invalid" charge.
func (h *ChargeHandler) RetrieveCharge(w http.ResponseWriter, r *http.Request) {
	args := charge.Args{}
	if id := chi.URLParam(r, "id"); id != "" {
		args["id"] = id
	}

	result := <-h.provider.RetrieveCharge(r.Context(), args)
	h.writeResult(w, r, result)
}

// PublicKey handles GET /api/v1/public-key.
func (h *ChargeHandler) PublicKey(w http.ResponseWriter, r *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, httputil.Response{
		Data: PublicKeyResponse{PublicKey: h.provider.PublicKey()},
	})
}

func (h *ChargeHandler) parseForm(w http.ResponseWriter, r *http.Request) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxFormBytes)

	var err error
	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		err = r.ParseMultipartForm(maxFormBytes)
	} else {
		err = r.ParseForm()
	}
	if err != nil {
		httputil.WriteError(w, r, apperrors.InvalidInput("invalid form body: "+err.Error()), h.logger)
		return false
	}
	return true
}

// writeResult writes the provider payload on success and a 402
// PAYMENT_FAILED envelope carrying the payload otherwise.
func (h *ChargeHandler) writeResult(w http.ResponseWriter, r *http.Request, result provider.Result) {
	if err := result.Error(); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: result.Payload})
}

// ArgsFromForm converts submitted form values into charge arguments.
// Bracketed keys such as metadata[order_id] or shipping[address][city]
// become nested mappings. Empty values are left out, the way an untouched
// browser input should be treated. Keys are applied in sorted order, and a
// plain value wins over bracketed keys beneath it (metadata=x drops
// metadata[k]=v).
func ArgsFromForm(form url.Values) charge.Args {
	keys := make([]string, 0, len(form))
	for key := range form {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	args := charge.Args{}
	for _, key := range keys {
		values := form[key]
		if len(values) == 0 || values[0] == "" {
			continue
		}
		path := splitKey(key)
		if len(path) == 1 {
			args[key] = values[0]
			continue
		}
		setNested(args, path, values[0])
	}
	return args
}

// splitKey turns "shipping[address][city]" into [shipping address city].
// Malformed keys are returned whole.
func splitKey(key string) []string {
	open := strings.IndexByte(key, '[')
	if open <= 0 || !strings.HasSuffix(key, "]") {
		return []string{key}
	}

	path := []string{key[:open]}
	rest := key[open:]
	for rest != "" {
		if rest[0] != '[' {
			return []string{key}
		}
		end := strings.IndexByte(rest, ']')
		if end <= 1 {
			return []string{key}
		}
		path = append(path, rest[1:end])
		rest = rest[end+1:]
	}
	return path
}

func setNested(m map[string]any, path []string, value string) {
	for _, name := range path[:len(path)-1] {
		next, ok := m[name].(map[string]any)
		if !ok {
			if _, taken := m[name]; taken {
				return
			}
			next = map[string]any{}
			m[name] = next
		}
		m = next
	}
	m[path[len(path)-1]] = value
}
