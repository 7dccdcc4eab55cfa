package charge

import (
	"net/url"
	"strconv"
	"strings"
	"unicode/utf8"
)

// InvalidID is sent in place of a missing charge id on retrieve. The provider
// answers it; the client does not fail locally.
const InvalidID = "invalid"

// Settings are the configured defaults the validator falls back to.
type Settings struct {
	Currency    string
	AutoCapture bool
}

var createFields = map[string]bool{
	"amount":               true,
	"application_fee":      true,
	"receipt_email":        true,
	"statement_descriptor": true,
	"currency":             true,
	"customer":             true,
	"source":               true,
	"description":          true,
	"capture":              true,
	NamespaceMetadata:      true,
	NamespaceShipping:      true,
}

var captureFields = []string{
	"amount",
	"application_fee",
	"receipt_email",
	"statement_descriptor",
}

// BuildCreate validates args for a new charge and returns the form to send.
// defaults supplies caller-context values for amount, description,
// receipt_email and source when the arguments leave them out; it may be nil.
//
// The checks run in field-population order and the first failure wins:
// amount (with no default at all), source, statement descriptor length, then
// the final amount and currency emptiness checks. A metadata or shipping
// value that is not a mapping is sent as is.
func BuildCreate(args Args, defaults Lookup, s Settings) (url.Values, error) {
	if defaults == nil {
		defaults = NoDefaults
	}

	in := args.Clone()
	Flatten(in, NamespaceMetadata)
	Flatten(in, NamespaceShipping)

	form := url.Values{}
	for k, v := range in {
		if v == nil {
			continue
		}
		if createFields[k] || isNamespaced(k) {
			form.Set(k, toString(v))
		}
	}

	amount, ok := in.Get("amount")
	if !ok {
		if amount, ok = defaults.Lookup(DefaultAmount); !ok {
			return nil, ErrAmountRequired
		}
	}
	form.Set("amount", amount)

	currency, ok := in.Get("currency")
	if !ok {
		currency = s.Currency
	}
	form.Set("currency", currency)

	description, ok := in.Get("description")
	if !ok {
		description, _ = defaults.Lookup(DefaultDescription)
	}
	form.Set("description", description)

	email, ok := in.Get("receipt_email")
	if !ok {
		email, _ = defaults.Lookup(DefaultReceiptEmail)
	}
	if email != "" {
		form.Set("receipt_email", email)
	} else {
		form.Del("receipt_email")
	}

	source, _ := in.Get("source")
	token, hasToken := in.Get("token")
	if source == "" {
		source = token
	}
	if source == "" {
		source, _ = defaults.Lookup(DefaultSource)
	}
	if source == "" {
		return nil, ErrSourceRequired
	}
	form.Set("source", source)
	if hasToken {
		form.Set("token", token)
	}

	capture := s.AutoCapture
	if in.Has("capture") {
		if b, ok := toBool(in["capture"]); ok {
			capture = b
		}
	}
	form.Set("capture", strconv.FormatBool(capture))

	if err := checkStatementDescriptor(form); err != nil {
		return nil, err
	}

	if form.Get("amount") == "" {
		return nil, ErrAmountRequired
	}
	if form.Get("currency") == "" {
		return nil, ErrCurrencyRequired
	}

	return form, nil
}

// BuildCapture validates args for capturing an existing charge. Only the
// capture-scoped fields are copied into the returned form.
func BuildCapture(args Args) (string, url.Values, error) {
	id, _ := args.Get("id")
	if id == "" {
		return "", nil, ErrIDRequired
	}

	form := url.Values{}
	for _, k := range captureFields {
		if v, ok := args.Get(k); ok {
			form.Set(k, v)
		}
	}

	if err := checkStatementDescriptor(form); err != nil {
		return "", nil, err
	}

	return id, form, nil
}

// RetrieveID returns the charge id to fetch, or InvalidID when none was given.
func RetrieveID(args Args) string {
	if id, _ := args.Get("id"); id != "" {
		return id
	}
	return InvalidID
}

func checkStatementDescriptor(form url.Values) error {
	if utf8.RuneCountInString(form.Get("statement_descriptor")) > MaxStatementDescriptor {
		return ErrStatementDescriptorTooLong
	}
	return nil
}

func isNamespaced(key string) bool {
	return strings.HasPrefix(key, NamespaceMetadata+"[") || strings.HasPrefix(key, NamespaceShipping+"[")
}
