package middleware

// contextKey is a custom type for context keys to avoid collisions.
type contextKey string

// StartTimeKey stores the request start time for latency calculation.
// The request ID lives under logging.RequestIDKey so the log handler can
// read it.
const StartTimeKey contextKey = "start_time"

const accessFieldsKey contextKey = "access_fields"
