// Package guard is a thin client for the AI Guard text inspection service.
//
// The Guard interface is what the interception engine depends on; Client is
// its HTTP implementation. Client posts to /v1/text/guard on
// https://{service}.{domain} for hosted domains and on https://{domain} for
// anything else, authenticating with a bearer token. It never retries and
// bounds every call with its configured timeout.
package guard
