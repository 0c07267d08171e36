// Package interceptor decides, per request, whether to call the guard and
// enforces what it answers.
//
// The flow for one request phase is:
//
//	match rule -> resolve operation -> resolve recipe -> call guard -> verdict
//
// Evaluate runs that flow and returns a Decision tagged Allowed, Rewritten,
// Blocked or Failed. Enforce turns a Decision into what the host sees: the
// request (with replaced messages when Rewritten) or a *RejectionError.
// A Failed decision is enforced according to the matched rule's
// allow_on_error flag; a Blocked decision is always a rejection.
//
// Intercept is Evaluate followed by Enforce and is the hook the proxy calls.
// The Engine holds no per-request state and is safe for concurrent use.
package interceptor
