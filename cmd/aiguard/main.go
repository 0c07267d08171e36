// aiguard is an inline policy-enforcement proxy for LLM traffic.
//
// It sits in front of an OpenAI-compatible API, matches every chat and text
// completion against an ordered rule list keyed by model, and asks the
// Pangea AI Guard service to allow, redact or block the prompt before it is
// forwarded.
//
// Usage:
//
//	# Start the proxy with pangea_config.json from the working directory
//	aiguard run
//
//	# Start with a custom configuration file
//	aiguard run --config /etc/aiguard/config.yaml
//
//	# Validate a configuration and print its rules
//	aiguard validate --config config.yaml
//
//	# Show which rule and recipe a request would use
//	aiguard explain --model openai/gpt-4o --header x-team=red
//
//	# Inspect the decision audit trail
//	aiguard audit list --verdict blocked --since 24h
package main

func main() {
	Execute()
}
