package types

import (
	"encoding/base64"
	"encoding/json"
	"strings"
	"testing"
)

func TestCompileRequest_Length(t *testing.T) {
	tests := []struct {
		name  string
		latex string
		want  int
	}{
		{"empty", "", 0},
		{"ascii", "Hello", 5},
		{"latin accents", "café", 4},
		{"cjk", "日本語", 3},
		{"astral plane counts twice", "𝔸x", 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := &CompileRequest{Latex: tt.latex}
			if got := req.Length(); got != tt.want {
				t.Errorf("Length() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestNewCompileResult(t *testing.T) {
	pdf := []byte("%PDF-1.4 test")
	result := NewCompileResult(pdf)

	if !result.Success || result.Message != MessageCompiled {
		t.Errorf("unexpected result: %+v", result)
	}
	if !strings.HasPrefix(result.PDFURL, PDFDataURIPrefix) {
		t.Fatalf("pdfUrl = %q", result.PDFURL)
	}

	decoded, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(result.PDFURL, PDFDataURIPrefix))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if string(decoded) != string(pdf) {
		t.Errorf("decoded = %q", decoded)
	}

	data, _ := json.Marshal(result)
	for _, key := range []string{`"success":true`, `"pdfUrl":`, `"message":"PDF compiled successfully"`} {
		if !strings.Contains(string(data), key) {
			t.Errorf("JSON %s missing %s", data, key)
		}
	}
}

func TestErrorResult_JSON(t *testing.T) {
	tests := []struct {
		name   string
		result *ErrorResult
		want   string
	}{
		{
			name:   "without details",
			result: NewErrorResult(MessageLatexRequired, ""),
			want:   `{"error":"Invalid request: latex field is required"}`,
		},
		{
			name:   "with details",
			result: NewErrorResult(MessageInternalError, "boom"),
			want:   `{"error":"Internal server error","details":"boom"}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := json.Marshal(tt.result)
			if err != nil {
				t.Fatal(err)
			}
			if string(data) != tt.want {
				t.Errorf("got %s, want %s", data, tt.want)
			}
		})
	}
}
