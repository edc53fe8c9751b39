// Package proxy holds the request and response plumbing of the compile
// endpoint: body parsing and validation, format negotiation, error
// classification and the single response-writing step.
//
// # Architecture
//
//   - handlers: ConvertHandler, the compile pipeline
//   - middleware: CORS, request ID, logging, recovery, request budget, metrics
//   - types: wire types shared with clients
//
// # Response Rendering
//
// Handlers never write to the ResponseWriter directly. They produce exactly
// one Response value, either a PDF (BinaryResponse) or a JSON body
// (JSONResponse), and hand it to Write:
//
//	resp := proxy.NewSuccessResponse(pdf, wantsBinary)
//	proxy.Write(w, resp)
//
// Errors are classified once by HandleError, which maps typed errors from the
// auth and compiler packages to the status codes and bodies clients expect.
package proxy
