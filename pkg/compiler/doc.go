// Package compiler is the client for the external LaTeX compilation service.
//
// One HTTPCompiler is built at startup from config.CompilerConfig. The
// upstream strategy is fixed for the life of the process:
//
//   - multipart: POST multipart/form-data with filecontents[], filename[],
//     engine and return=pdf (texlive.net latexcgi)
//   - query: GET <url>?text=<source>&command=<engine> (latexonline.cc)
//
// Every call is made exactly once. Redirects are followed, the response is
// required to be a PDF (sniffed, not trusted from Content-Type), and failures
// are returned as typed errors:
//
//	*RejectedError   the compiler answered but produced no PDF
//	*TimeoutError    the call did not finish within its budget
//	*TransportError  the compiler could not be reached
//	*ResponseTooLargeError  the PDF exceeded max_response_bytes
package compiler
