package provider

import (
	"context"
	"encoding/json"

	"github.com/s1037989/stripepayment/internal/charge"
	apperrors "github.com/s1037989/stripepayment/pkg/errors"
)

// Charge status values reported by the provider.
const (
	StatusSucceeded = "succeeded"
	StatusPending   = "pending"
	StatusFailed    = "failed"
)

// Charge is the provider's charge object. Source, FraudDetails and Refunds
// are passed through untouched.
type Charge struct {
	ID                  string            `json:"id"`
	Object              string            `json:"object"`
	Created             int64             `json:"created"`
	Paid                bool              `json:"paid"`
	Status              string            `json:"status"`
	Refunded            bool              `json:"refunded"`
	Captured            bool              `json:"captured"`
	Amount              int64             `json:"amount"`
	AmountRefunded      int64             `json:"amount_refunded"`
	Currency            string            `json:"currency"`
	Livemode            bool              `json:"livemode"`
	Description         string            `json:"description"`
	ReceiptEmail        string            `json:"receipt_email"`
	StatementDescriptor string            `json:"statement_descriptor"`
	Customer            string            `json:"customer"`
	FailureCode         string            `json:"failure_code"`
	FailureMessage      string            `json:"failure_message"`
	Metadata            map[string]string `json:"metadata"`
	Source              json.RawMessage   `json:"source,omitempty"`
	FraudDetails        json.RawMessage   `json:"fraud_details,omitempty"`
	Refunds             json.RawMessage   `json:"refunds,omitempty"`
}

// Result is the single completion of a provider operation. Err is empty on
// success; callers tell success from failure by Err alone. Payload is the
// decoded response body (an empty map when there was none or it was not
// JSON). Charge is decoded from Payload on success.
type Result struct {
	Err        string         `json:"error"`
	Charge     Charge         `json:"charge"`
	Payload    map[string]any `json:"payload"`
	StatusCode int            `json:"-"`
}

// OK reports whether the operation succeeded.
func (r Result) OK() bool {
	return r.Err == ""
}

// Error returns nil for a successful result, otherwise a PAYMENT_FAILED
// AppError carrying the payload.
func (r Result) Error() error {
	if r.OK() {
		return nil
	}
	return apperrors.PaymentFailed(r.Err, r.Payload)
}

// Failed builds a result for an error raised before or instead of a response.
func Failed(err error) Result {
	msg := err.Error()
	if appErr, ok := err.(*apperrors.AppError); ok {
		msg = appErr.Message
	}
	return Result{Err: msg, Payload: map[string]any{}}
}

// Provider is the asynchronous charge API. Every operation returns a channel
// that receives exactly one Result and is then closed. Operations may run
// concurrently; callers that need ordering wait for one result before
// issuing the next call.
type Provider interface {
	// CreateCharge creates a charge. defaults supplies caller-context values
	// for fields the args leave out and may be nil.
	CreateCharge(ctx context.Context, args charge.Args, defaults charge.Lookup) <-chan Result

	// CaptureCharge captures a previously created charge identified by args["id"].
	CaptureCharge(ctx context.Context, args charge.Args) <-chan Result

	// RetrieveCharge fetches the charge identified by args["id"].
	RetrieveCharge(ctx context.Context, args charge.Args) <-chan Result

	// PublicKey returns the publishable key. It does no I/O.
	PublicKey() string
}

// Done returns a channel already holding r.
func Done(r Result) <-chan Result {
	ch := make(chan Result, 1)
	ch <- r
	close(ch)
	return ch
}
