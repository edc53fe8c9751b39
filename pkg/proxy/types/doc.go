// Package types defines the wire types of the /latex-convert endpoint.
//
// # Core Types
//
//   - CompileRequest: request body, {"latex": "..."}
//   - CompileResult: JSON success body carrying the PDF as a data URI
//   - ErrorResult: every error body, {"error": "...", "details": "..."}
//
// The JSON field names and messages are part of the public contract relied
// on by browser clients and must not change.
//
// # Example
//
//	{"latex": "\\documentclass{article}\\begin{document}Hello World\\end{document}"}
//
//	{"success": true, "pdfUrl": "data:application/pdf;base64,JVBERi0x...", "message": "PDF compiled successfully"}
//
//	{"error": "LaTeX compilation failed. Please check your LaTeX syntax.", "details": "! LaTeX Error: ..."}
package types
