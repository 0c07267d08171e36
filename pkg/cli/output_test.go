package cli

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/fatih/color"
)

func init() {
	color.NoColor = true
}

func TestParseFormat(t *testing.T) {
	tests := []struct {
		in      string
		want    OutputFormat
		wantErr bool
	}{
		{"", FormatText, false},
		{"text", FormatText, false},
		{"json", FormatJSON, false},
		{"csv", FormatCSV, false},
		{"xml", "", true},
	}

	for _, tt := range tests {
		got, err := ParseFormat(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseFormat(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
		}
		if got != tt.want {
			t.Errorf("ParseFormat(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestPrinter_Result(t *testing.T) {
	type row struct {
		Model  string `json:"model"`
		Recipe string `json:"recipe"`
	}
	data := []row{{"openai/gpt-4o", "pangea_prompt_guard"}}
	headers := []string{"MODEL", "RECIPE"}
	rows := [][]string{{"openai/gpt-4o", "pangea_prompt_guard"}}

	t.Run("text", func(t *testing.T) {
		var out bytes.Buffer
		if err := NewPrinter(&out, &out, FormatText).Result(data, headers, rows); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		lines := strings.Split(strings.TrimSpace(out.String()), "\n")
		if len(lines) != 2 {
			t.Fatalf("expected header and one row, got %q", out.String())
		}
		if !strings.HasPrefix(lines[0], "MODEL") || !strings.Contains(lines[1], "pangea_prompt_guard") {
			t.Errorf("unexpected table %q", out.String())
		}
	})

	t.Run("json", func(t *testing.T) {
		var out bytes.Buffer
		if err := NewPrinter(&out, &out, FormatJSON).Result(data, headers, rows); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		var decoded []row
		if err := json.Unmarshal(out.Bytes(), &decoded); err != nil {
			t.Fatalf("invalid JSON output: %v", err)
		}
		if len(decoded) != 1 || decoded[0].Model != "openai/gpt-4o" {
			t.Errorf("unexpected JSON %s", out.String())
		}
	})

	t.Run("csv", func(t *testing.T) {
		var out bytes.Buffer
		if err := NewPrinter(&out, &out, FormatCSV).Result(data, headers, rows); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if out.String() != "MODEL,RECIPE\nopenai/gpt-4o,pangea_prompt_guard\n" {
			t.Errorf("unexpected CSV %q", out.String())
		}
	})
}

func TestPrinter_StatusLines(t *testing.T) {
	var out, errOut bytes.Buffer
	p := NewPrinter(&out, &errOut, FormatText)

	p.Success("loaded %d rules", 3)
	p.Warning("rule %d ignored", 2)
	p.Error("failed")

	if out.String() != "✓ loaded 3 rules\n" {
		t.Errorf("unexpected success output %q", out.String())
	}
	if errOut.String() != "Warning: rule 2 ignored\nError: failed\n" {
		t.Errorf("unexpected error output %q", errOut.String())
	}
}
