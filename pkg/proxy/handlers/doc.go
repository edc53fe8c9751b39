// Package handlers provides the HTTP handlers of the compile endpoint.
//
// # Request Flow
//
// ConvertHandler runs each POST through a fixed pipeline:
//
//  1. Authenticate the API key header (auth.KeyChecker)
//  2. Parse and validate the JSON body (proxy.ParseCompileRequest)
//  3. Compile once through the configured compiler
//  4. Write exactly one response, PDF or JSON
//
// The first failing step decides the response; later steps do not run. In
// particular the compiler is never called for a rejected key or an invalid
// body.
//
// # Errors
//
// Every error body has the same shape:
//
//	{"error": "LaTeX compilation failed. Please check your LaTeX syntax.", "details": "! LaTeX Error: ..."}
//
// Status codes come from proxy.HandleError: 401 for a wrong or missing key,
// 400 for an invalid body or a document the compiler rejected, 500 for
// anything else.
//
// # Methods
//
// OPTIONS answers 200 with an empty body, even when the CORS middleware is
// disabled. Methods other than POST and OPTIONS get 405.
package handlers
