package extract

import (
	"bytes"
	"fmt"
	"io"

	"github.com/ledongthuc/pdf"
)

// FromPDF pulls the plain text out of a PDF job posting so it can be fed
// through Tasks. Layout information is discarded; line structure survives
// well enough for the section and bullet heuristics.
func FromPDF(r io.ReaderAt, size int64) (string, error) {
	reader, err := pdf.NewReader(r, size)
	if err != nil {
		return "", fmt.Errorf("opening pdf: %w", err)
	}

	content, err := reader.GetPlainText()
	if err != nil {
		return "", fmt.Errorf("extracting pdf text: %w", err)
	}

	var buf bytes.Buffer
	if _, err := io.Copy(&buf, content); err != nil {
		return "", fmt.Errorf("reading pdf text: %w", err)
	}
	return buf.String(), nil
}

// FromPDFBytes is a convenience wrapper for in-memory PDF payloads
// (e.g. base64-decoded upload bodies).
func FromPDFBytes(data []byte) (string, error) {
	return FromPDF(bytes.NewReader(data), int64(len(data)))
}
