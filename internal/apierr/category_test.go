package apierr

import "testing"

func TestCategorize_ExactStatuses(t *testing.T) {
	cases := []struct {
		status int
		want   Category
	}{
		{400, CategoryValidation},
		{401, CategoryAuthentication},
		{403, CategoryAuthorization},
		{404, CategoryNotFound},
		{422, CategoryBusinessLogic},
		{429, CategoryRateLimit},
	}
	for _, c := range cases {
		if got := Categorize(c.status, "anything at all"); got != c.want {
			t.Fatalf("Categorize(%d) = %s, want %s", c.status, got, c.want)
		}
	}
}

func TestCategorize_MessageHints(t *testing.T) {
	cases := []struct {
		status  int
		message string
		want    Category
	}{
		{500, "connection refused", CategoryDatabase},
		{500, "Postgres is down", CategoryDatabase},
		{500, "SQL syntax error", CategoryDatabase},
		{500, "request timeout to upstream", CategoryExternalService},
		{503, "third-party unavailable", CategoryExternalService},
		{500, "boom", CategoryInternal},
		{500, "", CategoryInternal},
	}
	for _, c := range cases {
		if got := Categorize(c.status, c.message); got != c.want {
			t.Fatalf("Categorize(%d, %q) = %s, want %s", c.status, c.message, got, c.want)
		}
	}
}

func TestCategorize_RangeFallbacks(t *testing.T) {
	if got := Categorize(418, ""); got != CategoryValidation {
		t.Fatalf("418 = %s, want VALIDATION", got)
	}
	if got := Categorize(599, ""); got != CategoryInternal {
		t.Fatalf("599 = %s, want INTERNAL", got)
	}
	if got := Categorize(302, ""); got != CategoryUnknown {
		t.Fatalf("302 = %s, want UNKNOWN", got)
	}
	if got := Categorize(0, ""); got != CategoryUnknown {
		t.Fatalf("0 = %s, want UNKNOWN", got)
	}
}

func TestError_Text(t *testing.T) {
	if got := New(400, "bad input").Text(); got != "bad input" {
		t.Fatalf("Text = %q", got)
	}
	if got := WithMessages(400, []string{"a", "b"}).Text(); got != "a, b" {
		t.Fatalf("joined Text = %q", got)
	}
	if got := New(404, "").Text(); got != "Not Found" {
		t.Fatalf("status-text fallback = %q", got)
	}
	if got := New(999, "").Text(); got != "Error" {
		t.Fatalf("literal fallback = %q", got)
	}
}

func TestError_Wrap(t *testing.T) {
	cause := New(0, "root")
	err := Internal("wrapped").Wrap(cause)
	if err.Unwrap() != cause {
		t.Fatal("Unwrap did not return cause")
	}
}
