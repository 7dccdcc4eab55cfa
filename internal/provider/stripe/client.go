// Package stripe is the asynchronous client for the provider's charge API.
//
// Each operation validates its arguments locally, then issues one HTTP
// request on its own goroutine and delivers exactly one provider.Result on
// the returned channel. Failed requests are reported, never retried.
package stripe

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"

	"github.com/s1037989/stripepayment/internal/charge"
	"github.com/s1037989/stripepayment/internal/config"
	"github.com/s1037989/stripepayment/internal/provider"
	"github.com/s1037989/stripepayment/internal/provider/mock"
	"github.com/s1037989/stripepayment/pkg/httpclient"
	"github.com/s1037989/stripepayment/pkg/logger"
	"github.com/s1037989/stripepayment/pkg/tracing"
)

// MockHost is the synthetic host requests are addressed to in mocked mode.
const MockHost = "http://stripe.mock"

// Operation names used in spans, metrics and logs.
const (
	OpCreateCharge   = "CreateCharge"
	OpCaptureCharge  = "CaptureCharge"
	OpRetrieveCharge = "RetrieveCharge"
)

// HTTPDoer executes HTTP requests. Both httpclient.Client and
// httpclient.CircuitBreakerClient satisfy it.
type HTTPDoer interface {
	Do(ctx context.Context, req *http.Request) (*http.Response, error)
}

// Option customizes a Client.
type Option func(*options)

type options struct {
	doer    HTTPDoer
	breaker httpclient.CircuitBreakerConfig
}

// WithHTTPClient replaces the pooled, breaker-guarded transport.
func WithHTTPClient(d HTTPDoer) Option {
	return func(o *options) { o.doer = d }
}

// WithCircuitBreaker overrides the breaker settings of the default transport.
func WithCircuitBreaker(cfg httpclient.CircuitBreakerConfig) Option {
	return func(o *options) { o.breaker = cfg }
}

// Client implements provider.Provider against the charge API. It is safe for
// concurrent use; its only state is the configuration captured by New.
type Client struct {
	cfg    config.Stripe
	http   HTTPDoer
	mock   *mock.Server
	logger *slog.Logger
	tracer trace.Tracer
}

var _ provider.Provider = (*Client)(nil)

// New creates a client. cfg is copied. When cfg.Mocked is set the client
// talks to an in-process mock.Server and BaseURL points at its prefix.
func New(cfg config.Stripe, log *slog.Logger, opts ...Option) *Client {
	o := options{breaker: httpclient.DefaultCircuitBreakerConfig("stripe")}
	for _, opt := range opts {
		opt(&o)
	}

	c := &Client{
		cfg:    cfg,
		logger: log,
		tracer: tracing.Tracer("stripepayment/stripe"),
	}
	c.cfg.BaseURL = strings.TrimRight(c.cfg.BaseURL, "/")
	if c.cfg.BaseURL == "" {
		c.cfg.BaseURL = config.DefaultBaseURL
	}

	httpCfg := httpclient.DefaultConfig()
	if cfg.Timeout > 0 {
		httpCfg.Timeout = cfg.Timeout
	}
	if cfg.Mocked {
		c.mock = mock.NewServer(cfg.Secret, log)
		httpCfg.Transport = mock.NewTransport(c.mock)
		c.cfg.BaseURL = MockHost + mock.PathPrefix
	}

	c.http = o.doer
	if c.http == nil {
		c.http = httpclient.NewCircuitBreakerClient(httpclient.New(httpCfg), o.breaker, log)
	}

	return c
}

// Config returns the client's configuration.
func (c *Client) Config() config.Stripe {
	return c.cfg
}

// Mock returns the in-process mock in mocked mode, nil otherwise.
func (c *Client) Mock() *mock.Server {
	return c.mock
}

// Ready reports whether the transport will accept requests. It fails only
// while the default transport's circuit breaker is open.
func (c *Client) Ready(ctx context.Context) error {
	if checker, ok := c.http.(interface{ Check(context.Context) error }); ok {
		return checker.Check(ctx)
	}
	return nil
}

// PublicKey returns the publishable key.
func (c *Client) PublicKey() string {
	return c.cfg.PubKey
}

// CreateCharge creates a charge from args, filling gaps from defaults.
func (c *Client) CreateCharge(ctx context.Context, args charge.Args, defaults charge.Lookup) <-chan provider.Result {
	form, err := charge.BuildCreate(args, defaults, charge.Settings{
		Currency:    c.cfg.CurrencyCode,
		AutoCapture: c.cfg.AutoCapture,
	})
	if err != nil {
		return c.reject(ctx, OpCreateCharge, err)
	}
	return c.send(ctx, OpCreateCharge, http.MethodPost, "/charges", form)
}

// CaptureCharge captures the charge identified by args["id"].
func (c *Client) CaptureCharge(ctx context.Context, args charge.Args) <-chan provider.Result {
	id, form, err := charge.BuildCapture(args)
	if err != nil {
		return c.reject(ctx, OpCaptureCharge, err)
	}
	return c.send(ctx, OpCaptureCharge, http.MethodPost, "/charges/"+url.PathEscape(id)+"/capture", form)
}

// RetrieveCharge fetches the charge identified by args["id"]. A missing id
// is sent as "invalid" and left for the API to reject.
func (c *Client) RetrieveCharge(ctx context.Context, args charge.Args) <-chan provider.Result {
	id := charge.RetrieveID(args)
	return c.send(ctx, OpRetrieveCharge, http.MethodGet, "/charges/"+url.PathEscape(id), nil)
}

func (c *Client) reject(ctx context.Context, op string, err error) <-chan provider.Result {
	_, span := c.tracer.Start(ctx, "stripe."+op, trace.WithSpanKind(trace.SpanKindClient))
	span.RecordError(err)
	span.SetStatus(codes.Error, "rejected locally")
	span.End()

	res := provider.Failed(err)
	clientRequestsTotal.WithLabelValues(op, outcomeRejected).Inc()
	logger.WithContext(ctx, c.logger).DebugContext(ctx, "charge request rejected",
		slog.String("operation", op),
		slog.String("error", res.Err),
	)
	return provider.Done(res)
}

func (c *Client) send(ctx context.Context, op, method, path string, form url.Values) <-chan provider.Result {
	ch := make(chan provider.Result, 1)
	go func() {
		defer close(ch)
		ch <- c.roundTrip(ctx, op, method, path, form)
	}()
	return ch
}

func (c *Client) roundTrip(ctx context.Context, op, method, path string, form url.Values) provider.Result {
	ctx, span := c.tracer.Start(ctx, "stripe."+op,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("http.method", method),
			attribute.String("stripe.path", path),
		),
	)
	defer span.End()

	log := logger.WithContext(ctx, c.logger).With(slog.String("operation", op))
	start := time.Now()

	res := c.do(ctx, log, method, path, form)

	clientRequestDuration.WithLabelValues(op).Observe(time.Since(start).Seconds())
	clientRequestsTotal.WithLabelValues(op, outcomeOf(res)).Inc()

	if res.StatusCode != 0 {
		span.SetAttributes(attribute.Int("http.status_code", res.StatusCode))
	}
	if !res.OK() {
		span.SetStatus(codes.Error, res.Err)
		log.WarnContext(ctx, "charge request failed",
			slog.Int("status", res.StatusCode),
			slog.String("error", res.Err),
		)
		return res
	}

	span.SetAttributes(attribute.String("stripe.charge_id", res.Charge.ID))
	log.DebugContext(ctx, "charge request completed",
		slog.Int("status", res.StatusCode),
		slog.String("charge_id", res.Charge.ID),
	)
	return res
}

func (c *Client) do(ctx context.Context, log *slog.Logger, method, path string, form url.Values) provider.Result {
	req, err := httpclient.NewFormRequest(ctx, method, c.cfg.BaseURL+path, form)
	if err != nil {
		return transportFailure(err)
	}
	req.SetBasicAuth(c.cfg.Secret, "")
	req.Header.Set("Accept", "application/json")
	if id := logger.CorrelationIDFromContext(ctx); id != "" {
		req.Header.Set("X-Correlation-ID", id)
	}
	otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(req.Header))

	log.DebugContext(ctx, "charge request", slog.String("method", method), slog.String("path", path))

	resp, err := c.http.Do(ctx, req)
	if err != nil {
		return transportFailure(err)
	}

	body, err := httpclient.ReadBody(resp)
	if err != nil {
		return transportFailure(err)
	}

	return normalize(resp.StatusCode, body)
}

func outcomeOf(res provider.Result) string {
	switch {
	case res.OK():
		return outcomeSuccess
	case res.StatusCode == 0:
		return outcomeTransport
	case httpclient.IsClientError(res.StatusCode):
		return outcomeDeclined
	case res.StatusCode >= http.StatusInternalServerError:
		return outcomeServerError
	default:
		return outcomeInvalid
	}
}

// normalize turns a response into a Result. Non-2xx responses carry the
// provider's message (or code, or the status text) and the decoded body.
func normalize(status int, body []byte) provider.Result {
	payload, decodeErr := httpclient.DecodeObject(body)
	res := provider.Result{Payload: payload, StatusCode: status}

	if !httpclient.IsSuccess(status) {
		res.Err = errorMessage(status, payload)
		return res
	}
	if decodeErr != nil {
		res.Err = decodeErr.Error()
		return res
	}
	if err := json.Unmarshal(body, &res.Charge); err != nil {
		res.Err = "decode charge: " + err.Error()
	}
	return res
}

func errorMessage(status int, payload map[string]any) string {
	if e, ok := payload["error"].(map[string]any); ok {
		if msg, ok := e["message"].(string); ok && msg != "" {
			return msg
		}
		if code, ok := e["code"].(string); ok && code != "" {
			return code
		}
	}
	if text := http.StatusText(status); text != "" {
		return text
	}
	return strconv.Itoa(status)
}

func transportFailure(err error) provider.Result {
	return provider.Result{Err: err.Error(), Payload: map[string]any{}}
}
