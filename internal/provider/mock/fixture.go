package mock

import "encoding/json"

// FixtureID is the id the mock answers with until a retrieve replaces it.
const FixtureID = "ch_mock_1AbCdEfGhIjKlMnO"

const fixtureCreated int64 = 1462827840

// Fixture is the single charge the mock serves. Pointer fields are null
// until the first request that supplies them.
type Fixture struct {
	ID                  string            `json:"id"`
	Object              string            `json:"object"`
	Created             int64             `json:"created"`
	Paid                bool              `json:"paid"`
	Status              string            `json:"status"`
	Refunded            bool              `json:"refunded"`
	AmountRefunded      int64             `json:"amount_refunded"`
	Amount              *int64            `json:"amount"`
	Captured            *bool             `json:"captured"`
	Currency            *string           `json:"currency"`
	Description         *string           `json:"description"`
	Livemode            *bool             `json:"livemode"`
	ReceiptEmail        *string           `json:"receipt_email"`
	StatementDescriptor *string           `json:"statement_descriptor"`
	Customer            *string           `json:"customer"`
	FailureCode         *string           `json:"failure_code"`
	FailureMessage      *string           `json:"failure_message"`
	Metadata            map[string]string `json:"metadata"`
	Source              json.RawMessage   `json:"source"`
	FraudDetails        json.RawMessage   `json:"fraud_details"`
	Refunds             json.RawMessage   `json:"refunds"`
}

func newFixture() Fixture {
	return Fixture{
		ID:       FixtureID,
		Object:   "charge",
		Created:  fixtureCreated,
		Paid:     true,
		Status:   "succeeded",
		Metadata: map[string]string{},
		Source: json.RawMessage(`{"id":"card_mock_4242","object":"card","brand":"Visa",` +
			`"country":"US","exp_month":8,"exp_year":2030,"funding":"credit","last4":"4242"}`),
		FraudDetails: json.RawMessage(`{}`),
		Refunds: json.RawMessage(`{"object":"list","data":[],"has_more":false,"total_count":0,` +
			`"url":"/v1/charges/` + FixtureID + `/refunds"}`),
	}
}

// clone copies f so the caller cannot reach the server's pointers.
func (f Fixture) clone() Fixture {
	out := f
	out.Amount = clonePtr(f.Amount)
	out.Captured = clonePtr(f.Captured)
	out.Currency = clonePtr(f.Currency)
	out.Description = clonePtr(f.Description)
	out.Livemode = clonePtr(f.Livemode)
	out.ReceiptEmail = clonePtr(f.ReceiptEmail)
	out.StatementDescriptor = clonePtr(f.StatementDescriptor)
	out.Customer = clonePtr(f.Customer)
	out.FailureCode = clonePtr(f.FailureCode)
	out.FailureMessage = clonePtr(f.FailureMessage)
	out.Metadata = make(map[string]string, len(f.Metadata))
	for k, v := range f.Metadata {
		out.Metadata[k] = v
	}
	return out
}

func clonePtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

// setOnce assigns v to *dst only while *dst is still null.
func setOnce[T any](dst **T, v T) {
	if *dst == nil {
		*dst = &v
	}
}
