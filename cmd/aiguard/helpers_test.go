package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

func init() {
	color.NoColor = true
}

const testConfig = `
pangea_domain: aws.us.pangea.cloud
headers:
  x-team:
    red: recipe_red
rules:
  - model: openai/gpt-4o
    ai_guard:
      request:
        parameters:
          recipe: chat_recipe
  - model: anthropic/claude-3
    allow_on_error: true
    ai_guard:
      request:
        parameters: {}
      response:
        parameters:
          recipe: pangea_llm_response_guard
  - model: openai/gpt-4o
    ai_guard:
      request:
        parameters: {}
`

// writeConfig writes doc to a temporary file and points --config at it.
func writeConfig(t *testing.T, doc string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "pangea_config.yaml")
	if err := os.WriteFile(path, []byte(doc), 0o600); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}

	prevCfg, prevFormat := cfgFile, outputFormat
	cfgFile, outputFormat = path, "text"
	t.Cleanup(func() { cfgFile, outputFormat = prevCfg, prevFormat })
	return path
}

// newTestCommand returns a command whose output is captured.
func newTestCommand() (*cobra.Command, *bytes.Buffer, *bytes.Buffer) {
	cmd := &cobra.Command{}
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	return cmd, &out, &errOut
}
