package types

import "unicode/utf16"

// CompileRequest is the body of a compile request.
type CompileRequest struct {
	// Latex is the complete document source.
	Latex string `json:"latex"`
}

// Length returns the document length in UTF-16 code units, the unit browser
// clients use for string length. Characters outside the Basic Multilingual
// Plane count as two.
func (r *CompileRequest) Length() int {
	n := 0
	for _, c := range r.Latex {
		n += utf16.RuneLen(c)
	}
	return n
}
