// Package proxy is the OpenAI-compatible front end that feeds the
// interception engine.
//
// It parses inbound completion bodies into interceptor requests, writes
// rejections in OpenAI error format, applies guard rewrites to the raw
// request body and forwards it to the upstream provider.
//
// # Request Flow
//
//	Client Request
//	    ↓
//	Recovery, Request ID, Logging, Tracing middleware
//	    ↓
//	handlers.CompletionHandler
//	    ↓
//	ParseCompletionRequest → interceptor.Engine.Intercept
//	    ↓                         ↓
//	ApplyMessages (rewrite)   WriteRejection (400)
//	    ↓
//	Upstream.Forward → CopyResponse (streamed) or response-phase inspection
//
// Bodies are kept as raw JSON; only "messages" or "prompt" are replaced on
// rewrite, so fields this package does not model reach the upstream as sent.
package proxy
