package cmd

import (
	"strings"
	"testing"
)

func TestSanitizeIdent(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{name: "already safe", input: "dim_customers", want: "dim_customers"},
		{name: "uppercase lowered", input: "My-Model_Name", want: "my_model_name"},
		{name: "git ref slashes", input: "feature/add-email", want: "feature_add_email"},
		{name: "runs collapse to one underscore", input: "a@@##b", want: "a_b"},
		{name: "empty stays empty", input: "", want: ""},
		{name: "truncated to limit", input: strings.Repeat("a", 100), want: strings.Repeat("a", 60)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := sanitizeIdent(tt.input); got != tt.want {
				t.Errorf("sanitizeIdent(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestSanitizeIdentDeterministic(t *testing.T) {
	a := sanitizeIdent("dim_customers_feature/x_main")
	b := sanitizeIdent("dim_customers_feature/x_main")
	if a != b {
		t.Errorf("sanitizeIdent not deterministic: %q vs %q", a, b)
	}
}
