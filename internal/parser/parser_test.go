package parser

import (
	"testing"
)

func TestParse_FrontmatterAndBody(t *testing.T) {
	input := []byte("---\ntitle: Hello\nimageNameKey: diagram\n---\n# Hello\nBody text.\n")
	r, err := Parse(input)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := r.String("imageNameKey"); got != "diagram" {
		t.Errorf("imageNameKey = %q, want %q", got, "diagram")
	}
	if r.Body != "# Hello\nBody text.\n" {
		t.Errorf("body = %q", r.Body)
	}
}

func TestParse_NoFrontmatter(t *testing.T) {
	input := []byte("# Just a heading\nSome text.\n")
	r, err := Parse(input)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if r.Frontmatter != nil {
		t.Errorf("expected nil frontmatter, got %v", r.Frontmatter)
	}
	if r.String("imageNameKey") != "" {
		t.Error("missing key should be empty")
	}
}

func TestParse_InvalidYAMLFallback(t *testing.T) {
	input := []byte("---\n: invalid: yaml: {{{\n---\nBody\n")
	r, err := Parse(input)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if r.Frontmatter != nil {
		t.Errorf("expected nil frontmatter on invalid YAML")
	}
	if r.Body != string(input) {
		t.Errorf("body = %q, want whole input", r.Body)
	}
}

func TestParse_UnclosedFrontmatter(t *testing.T) {
	input := []byte("---\nimageNameKey: x\nno closing fence\n")
	r, _ := Parse(input)
	if r.Frontmatter != nil {
		t.Errorf("unclosed frontmatter should be body, got %v", r.Frontmatter)
	}
}

func TestResult_StringScalars(t *testing.T) {
	r := &Result{Frontmatter: map[string]any{
		"n":    42,
		"b":    true,
		"list": []any{"a"},
		"nil":  nil,
	}}
	cases := map[string]string{"n": "42", "b": "true", "list": "", "nil": "", "missing": ""}
	for key, want := range cases {
		if got := r.String(key); got != want {
			t.Errorf("String(%q) = %q, want %q", key, got, want)
		}
	}
	var nilResult *Result
	if nilResult.String("x") != "" {
		t.Error("nil result should yield empty string")
	}
}
