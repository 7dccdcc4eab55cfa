package http

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/s1037989/stripepayment/internal/charge"
)

func TestArgsFromForm(t *testing.T) {
	form := url.Values{
		"amount":                  {"500"},
		"description":             {""},
		"metadata[order_id]":      {"ord_1"},
		"shipping[name]":          {"Ada"},
		"shipping[address][city]": {"London"},
		"broken[":                 {"x"},
		"weird[]":                 {"y"},
	}

	got := ArgsFromForm(form)

	assert.Equal(t, charge.Args{
		"amount":   "500",
		"metadata": map[string]any{"order_id": "ord_1"},
		"shipping": map[string]any{
			"name":    "Ada",
			"address": map[string]any{"city": "London"},
		},
		"broken[": "x",
		"weird[]": "y",
	}, got)
}

func TestArgsFromForm_PlainValueWinsOverBrackets(t *testing.T) {
	form := url.Values{
		"metadata":                {"x"},
		"metadata[k]":             {"v"},
		"shipping[address]":       {"flat"},
		"shipping[address][city]": {"London"},
		"shipping[name]":          {"Ada"},
	}

	want := charge.Args{
		"metadata": "x",
		"shipping": map[string]any{
			"address": "flat",
			"name":    "Ada",
		},
	}
	for i := 0; i < 20; i++ {
		assert.Equal(t, want, ArgsFromForm(form))
	}
}

func TestSplitKey(t *testing.T) {
	tests := []struct {
		key  string
		want []string
	}{
		{"amount", []string{"amount"}},
		{"metadata[k]", []string{"metadata", "k"}},
		{"a[b][c]", []string{"a", "b", "c"}},
		{"[x]", []string{"[x]"}},
		{"a[b]c]", []string{"a[b]c]"}},
	}

	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			assert.Equal(t, tt.want, splitKey(tt.key))
		})
	}
}

func TestSetNested_ScalarNotOverwritten(t *testing.T) {
	args := map[string]any{"shipping": "flat"}
	setNested(args, []string{"shipping", "name"}, "Ada")
	assert.Equal(t, "flat", args["shipping"])
}
