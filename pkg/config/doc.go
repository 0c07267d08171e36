// Package config loads and validates the AI Guard proxy configuration.
//
// A configuration document is YAML or JSON (JSON is accepted as YAML). Its
// top-level keys pangea_domain, insecure, log_level, headers and rules form
// the policy document; proxy, upstream, guard, telemetry and audit configure
// the process that hosts it.
//
// # Configuration Loading
//
//  1. From a file only:
//     cfg, err := config.LoadConfig("pangea_config.json")
//
//  2. From a file with environment variable overrides:
//     cfg, err := config.LoadConfigWithEnvOverrides("pangea_config.json")
//
//  3. With the default-configuration fallback used by the proxy:
//     cfg, usedDefault, err := config.Load(config.ResolvePath(flagValue))
//
// The file path comes from the --config flag, then PANGEA_LL_CONFIG_FILE,
// then pangea_config.json in the working directory.
//
// # Environment Variable Overrides
//
// Environment variables follow the naming convention AIGUARD_SECTION_FIELD,
// for example AIGUARD_PROXY_LISTEN_ADDRESS or AIGUARD_AUDIT_BACKEND. The
// guard token is read from PANGEA_AI_GUARD_TOKEN and the fallback log level
// from PANGEA_LOG_LEVEL.
//
// # Rules
//
// Each rule names a model and any number of service blocks. A service block
// is any mapping key holding a "request" or "response" phase:
//
//	rules:
//	  - model: openai/gpt-4o
//	    allow_on_error: false
//	    ai_guard:
//	      request:
//	        parameters:
//	          recipe: pangea_prompt_guard
//
// Validate rejects malformed documents. Lint reports rules that load but can
// never take effect.
package config
