package charge

import "net/url"

// Default field names read from the caller context when an argument is absent.
const (
	DefaultAmount       = "amount"
	DefaultDescription  = "description"
	DefaultReceiptEmail = "stripeEmail"
	DefaultSource       = "stripeToken"
)

// Lookup is the narrow capability the validator needs from the caller's
// request context: a named value, or nothing.
type Lookup interface {
	Lookup(name string) (string, bool)
}

// LookupFunc adapts a function to Lookup.
type LookupFunc func(name string) (string, bool)

// Lookup implements Lookup.
func (f LookupFunc) Lookup(name string) (string, bool) {
	return f(name)
}

// FormLookup reads defaults from submitted form values. Empty values count as
// absent, matching how a browser submits untouched inputs.
type FormLookup url.Values

// Lookup implements Lookup.
func (f FormLookup) Lookup(name string) (string, bool) {
	v := url.Values(f).Get(name)
	if v == "" {
		return "", false
	}
	return v, true
}

// NoDefaults never supplies a value.
var NoDefaults Lookup = LookupFunc(func(string) (string, bool) { return "", false })
