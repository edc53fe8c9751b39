// Package logging builds the process-wide slog logger.
//
// Output is JSON by default, or text for local development. Two layers sit
// in front of the slog handler:
//
//   - ContextHandler adds request_id and trace_id from the context passed to
//     the *Context logging calls.
//   - Redactor masks attributes named like credentials and strips bearer
//     tokens or key headers embedded in string values. An attribute keyed
//     "latex" is also masked so a document never reaches the logs by
//     accident.
package logging
