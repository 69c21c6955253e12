package providers

import (
	"encoding/json"
	"testing"
)

func TestStripCodeFences(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"json fence", "```json\n[{\"id\":\"a\"}]\n```", `[{"id":"a"}]`},
		{"bare fence", "```\nhello\n```", "hello"},
		{"upper lang", "```JSON [1]```", "[1]"},
		{"no fence", "  plain text  ", "plain text"},
		{"leading only", "```text\nbody", "body"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := StripCodeFences(tt.in); got != tt.want {
				t.Errorf("StripCodeFences(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestParseStructuredJSON_StripsCodeFence(t *testing.T) {
	content := "```json\n{\"ok\":true}\n```"
	got, err := ParseStructuredJSON(content)
	if err != nil {
		t.Fatalf("ParseStructuredJSON() error = %v", err)
	}

	var parsed map[string]any
	if err := json.Unmarshal(got, &parsed); err != nil {
		t.Fatalf("failed to unmarshal parsed JSON: %v", err)
	}
	if ok, _ := parsed["ok"].(bool); !ok {
		t.Fatalf("expected ok=true, got %#v", parsed)
	}
}

func TestParseStructuredJSON_SurroundingProse(t *testing.T) {
	got, err := ParseStructuredJSON("Here you go: [{\"id\":\"x\"}] hope that helps")
	if err != nil {
		t.Fatalf("ParseStructuredJSON() error = %v", err)
	}
	if string(got) != `[{"id":"x"}]` {
		t.Fatalf("got %s", got)
	}
}

func TestParseStructuredJSON_Garbage(t *testing.T) {
	if _, err := ParseStructuredJSON("not json at all"); err == nil {
		t.Fatal("expected error")
	}
	if _, err := ParseStructuredJSON("   "); err == nil {
		t.Fatal("expected error for empty output")
	}
}

func TestValidateJSON(t *testing.T) {
	schema, err := CompileSchema("level.json", []byte(`{
		"type":"object",
		"properties":{"level":{"type":"integer","minimum":1,"maximum":3}},
		"required":["level"],
		"additionalProperties":false
	}`))
	if err != nil {
		t.Fatalf("CompileSchema() error = %v", err)
	}

	if err := ValidateJSON(schema, json.RawMessage(`{"level":2}`)); err != nil {
		t.Fatalf("ValidateJSON(valid) error = %v", err)
	}
	if err := ValidateJSON(schema, json.RawMessage(`{"level":5}`)); err == nil {
		t.Fatal("ValidateJSON(invalid) expected error, got nil")
	}
}
