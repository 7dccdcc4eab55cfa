package charge

import (
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var defaultSettings = Settings{Currency: "USD", AutoCapture: true}

func TestBuildCreate_Minimal(t *testing.T) {
	form, err := BuildCreate(Args{"amount": 100, "currency": "usd", "source": "tok_1"}, nil, defaultSettings)
	require.NoError(t, err)

	assert.Equal(t, "100", form.Get("amount"))
	assert.Equal(t, "usd", form.Get("currency"))
	assert.Equal(t, "tok_1", form.Get("source"))
	assert.Equal(t, "true", form.Get("capture"))
	assert.Contains(t, form, "description")
	assert.Equal(t, "", form.Get("description"))
	assert.NotContains(t, form, "receipt_email")
	assert.NotContains(t, form, "token")
}

func TestBuildCreate_Defaults(t *testing.T) {
	defaults := FormLookup(url.Values{
		"amount":      {"2500"},
		"description": {"T-shirt"},
		"stripeEmail": {"ada@example.com"},
		"stripeToken": {"tok_form"},
	})

	form, err := BuildCreate(Args{}, defaults, Settings{Currency: "NOK", AutoCapture: false})
	require.NoError(t, err)

	assert.Equal(t, "2500", form.Get("amount"))
	assert.Equal(t, "NOK", form.Get("currency"))
	assert.Equal(t, "T-shirt", form.Get("description"))
	assert.Equal(t, "ada@example.com", form.Get("receipt_email"))
	assert.Equal(t, "tok_form", form.Get("source"))
	assert.Equal(t, "false", form.Get("capture"))
}

func TestBuildCreate_ExplicitBeatsDefaults(t *testing.T) {
	defaults := FormLookup(url.Values{"amount": {"1"}, "stripeToken": {"tok_form"}, "description": {"form"}})

	form, err := BuildCreate(Args{"amount": "999", "source": "tok_arg", "description": ""}, defaults, defaultSettings)
	require.NoError(t, err)

	assert.Equal(t, "999", form.Get("amount"))
	assert.Equal(t, "tok_arg", form.Get("source"))
	assert.Equal(t, "", form.Get("description"))
}

func TestBuildCreate_TokenAlias(t *testing.T) {
	form, err := BuildCreate(Args{"amount": 100, "token": "tok_legacy"}, nil, defaultSettings)
	require.NoError(t, err)

	assert.Equal(t, "tok_legacy", form.Get("source"))
	assert.Equal(t, "tok_legacy", form.Get("token"))
}

func TestBuildCreate_CaptureFlag(t *testing.T) {
	tests := []struct {
		name    string
		capture any
		want    string
	}{
		{"bool false", false, "false"},
		{"bool true", true, "true"},
		{"string zero", "0", "false"},
		{"string true", "true", "true"},
		{"unparseable falls back to config", "maybe", "true"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			form, err := BuildCreate(Args{"amount": 1, "source": "tok", "capture": tt.capture}, nil, defaultSettings)
			require.NoError(t, err)
			assert.Equal(t, tt.want, form.Get("capture"))
		})
	}
}

func TestBuildCreate_FlattensAndFilters(t *testing.T) {
	args := Args{
		"amount":   100,
		"source":   "tok_1",
		"metadata": map[string]any{"city": "Oslo"},
		"shipping": map[string]any{"name": "Ada"},
		"customer": "cus_1",
		"bogus":    "dropped",
	}

	form, err := BuildCreate(args, nil, defaultSettings)
	require.NoError(t, err)

	assert.Equal(t, "Oslo", form.Get("metadata[city]"))
	assert.Equal(t, "Ada", form.Get("shipping[name]"))
	assert.Equal(t, "cus_1", form.Get("customer"))
	assert.NotContains(t, form, "metadata")
	assert.NotContains(t, form, "bogus")
	assert.Contains(t, args, "metadata", "caller's mapping must not be mutated")
}

func TestBuildCreate_ValidationErrors(t *testing.T) {
	longDescriptor := strings.Repeat("x", MaxStatementDescriptor+1)

	tests := []struct {
		name     string
		args     Args
		settings Settings
		want     error
	}{
		{"amount missing", Args{"source": "tok"}, defaultSettings, ErrAmountRequired},
		{"amount explicitly empty", Args{"amount": "", "source": "tok"}, defaultSettings, ErrAmountRequired},
		{"source missing", Args{"amount": 1}, defaultSettings, ErrSourceRequired},
		{"source empty", Args{"amount": 1, "source": "", "token": ""}, defaultSettings, ErrSourceRequired},
		{"currency empty", Args{"amount": 1, "source": "tok", "currency": ""}, defaultSettings, ErrCurrencyRequired},
		{"no configured currency", Args{"amount": 1, "source": "tok"}, Settings{}, ErrCurrencyRequired},
		{"descriptor too long", Args{"amount": 1, "source": "tok", "statement_descriptor": longDescriptor}, defaultSettings, ErrStatementDescriptorTooLong},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			form, err := BuildCreate(tt.args, nil, tt.settings)
			assert.Nil(t, form)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

// The check order is part of the contract: a missing amount with no default
// is reported first and an unresolvable source second, both ahead of the
// descriptor length. A too-long descriptor beats an explicitly empty amount
// or currency.
func TestBuildCreate_ErrorPrecedence(t *testing.T) {
	longDescriptor := strings.Repeat("x", MaxStatementDescriptor+1)

	_, err := BuildCreate(Args{"source": "tok", "statement_descriptor": longDescriptor}, nil, defaultSettings)
	assert.ErrorIs(t, err, ErrAmountRequired)

	_, err = BuildCreate(Args{"amount": 1, "statement_descriptor": longDescriptor}, nil, defaultSettings)
	assert.ErrorIs(t, err, ErrSourceRequired)

	_, err = BuildCreate(Args{"amount": "", "source": "tok", "statement_descriptor": longDescriptor}, nil, defaultSettings)
	assert.ErrorIs(t, err, ErrStatementDescriptorTooLong)

	_, err = BuildCreate(Args{"amount": 1, "currency": "", "source": "tok", "statement_descriptor": longDescriptor}, nil, defaultSettings)
	assert.ErrorIs(t, err, ErrStatementDescriptorTooLong)
}

func TestBuildCreate_ScalarNamespaceValuePassesThrough(t *testing.T) {
	form, err := BuildCreate(Args{
		"amount":   1,
		"source":   "tok",
		"metadata": "plain",
		"shipping": 7,
	}, nil, defaultSettings)
	require.NoError(t, err)

	assert.Equal(t, "plain", form.Get("metadata"))
	assert.Equal(t, "7", form.Get("shipping"))
}

func TestBuildCreate_DescriptorCountsCharacters(t *testing.T) {
	descriptor := strings.Repeat("ø", MaxStatementDescriptor)

	form, err := BuildCreate(Args{"amount": 1, "source": "tok", "statement_descriptor": descriptor}, nil, defaultSettings)
	require.NoError(t, err)
	assert.Equal(t, descriptor, form.Get("statement_descriptor"))
}

func TestBuildCapture(t *testing.T) {
	id, form, err := BuildCapture(Args{
		"id":                   "ch_1",
		"amount":               50,
		"receipt_email":        "ada@example.com",
		"statement_descriptor": "SHOP",
		"currency":             "usd",
		"source":               "tok",
	})
	require.NoError(t, err)

	assert.Equal(t, "ch_1", id)
	assert.Equal(t, url.Values{
		"amount":               {"50"},
		"receipt_email":        {"ada@example.com"},
		"statement_descriptor": {"SHOP"},
	}, form)
}

func TestBuildCapture_Errors(t *testing.T) {
	_, _, err := BuildCapture(Args{"amount": 50})
	assert.ErrorIs(t, err, ErrIDRequired)

	_, _, err = BuildCapture(Args{"id": "", "amount": 50})
	assert.ErrorIs(t, err, ErrIDRequired)

	_, _, err = BuildCapture(Args{"id": "ch_1", "statement_descriptor": strings.Repeat("y", 23)})
	assert.ErrorIs(t, err, ErrStatementDescriptorTooLong)
}

func TestRetrieveID(t *testing.T) {
	assert.Equal(t, "ch_1", RetrieveID(Args{"id": "ch_1"}))
	assert.Equal(t, InvalidID, RetrieveID(Args{}))
	assert.Equal(t, InvalidID, RetrieveID(Args{"id": ""}))
	assert.Equal(t, InvalidID, RetrieveID(nil))
}

func TestLookupAdapters(t *testing.T) {
	form := FormLookup(url.Values{"stripeToken": {"tok"}, "amount": {""}})
	v, ok := form.Lookup("stripeToken")
	assert.True(t, ok)
	assert.Equal(t, "tok", v)
	_, ok = form.Lookup("amount")
	assert.False(t, ok)

	_, ok = NoDefaults.Lookup("amount")
	assert.False(t, ok)

	fn := LookupFunc(func(name string) (string, bool) { return name + "!", true })
	v, _ = fn.Lookup("x")
	assert.Equal(t, "x!", v)
}

func TestArgs_Get(t *testing.T) {
	args := Args{"i": 100, "f": 12.5, "b": true, "nil": nil, "s": ""}

	v, ok := args.Get("i")
	assert.True(t, ok)
	assert.Equal(t, "100", v)

	v, _ = args.Get("f")
	assert.Equal(t, "12.5", v)

	v, _ = args.Get("b")
	assert.Equal(t, "true", v)

	_, ok = args.Get("nil")
	assert.False(t, ok)

	v, ok = args.Get("s")
	assert.True(t, ok)
	assert.Empty(t, v)
}
