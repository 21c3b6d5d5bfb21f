// Package httpmw provides HTTP middleware for the API server.
//
// Middleware is composed in a specific order in httpserver.NewHandler:
// security headers, correlation IDs, client address resolution, panic
// recovery, rate limiting, OTEL tracing, metrics, request-scoped logging,
// body capture, locale resolution, and finally the chi router.
//
// Correlation must run before any handler: the response path computes
// request duration from the start time it stamps, and the error translator
// reads its identifiers. Each middleware is an independent function that can
// be tested, reordered, or removed individually.
package httpmw
