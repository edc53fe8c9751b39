// Package middleware provides HTTP middleware for cross-cutting concerns.
//
// The server wraps every route in the same chain:
//
//	handler = RequestID(Logging(Recovery(Metrics(CORS(Timeout(handler))))))
//
// Order (innermost to outermost):
//  1. Timeout: attach the per-request budget as a context deadline
//  2. CORS: add CORS headers and answer preflight with 200
//  3. Metrics: record status and latency per route
//  4. Recovery: turn panics into the standard internal error body
//  5. Logging: log request completion with status-based level, plus fields
//     handlers add with AnnotateAccessLog
//  6. RequestID: assign or accept X-Request-ID before anything logs
//
// Timeout never writes a response. A compile that outlives the budget
// fails its upstream call, and the convert handler reports that as a
// compilation failure. Detach lets the handler keep the deadline while
// ignoring client disconnects.
//
// CORS runs before authentication so browser preflights succeed without a
// key. Preflight replies carry no body.
//
// Request IDs are UUIDv7 so they sort by creation time in logs. A client
// X-Request-ID is kept when it is at most 128 printable ASCII characters.
package middleware
