// Package types defines the OpenAI-compatible wire types the proxy reads and
// writes.
//
// Only the fields the interception flow needs are modelled. Request bodies
// are forwarded from their raw JSON so fields unknown to this package reach
// the upstream unchanged.
//
// Request types:
//   - CompletionRequest: body of /v1/chat/completions and /v1/completions
//   - Message: one chat message; Content is a string or a content-part array
//
// Response types:
//   - CompletionResponse: non-streaming response, read for response-phase
//     inspection
//
// Error types:
//   - ErrorResponse: OpenAI-compatible error envelope, with the rejection
//     detail when the guard refused the request
package types
