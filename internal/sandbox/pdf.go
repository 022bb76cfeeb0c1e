package sandbox

import (
	"fmt"
	"io"
	"strings"

	"github.com/ledongthuc/pdf"
)

// extractPDFText pulls the plain text out of a PDF file, capped at maxBytes.
// Referenced PDFs are treated as text sources; rendering and OCR are out of
// scope.
func extractPDFText(path string, maxBytes int64) (string, error) {
	f, r, err := pdf.Open(path)
	if err != nil {
		return "", fmt.Errorf("opening pdf: %w", err)
	}
	defer f.Close()

	plain, err := r.GetPlainText()
	if err != nil {
		return "", fmt.Errorf("extracting text: %w", err)
	}

	data, err := io.ReadAll(io.LimitReader(plain, maxBytes))
	if err != nil {
		return "", fmt.Errorf("reading extracted text: %w", err)
	}
	return strings.TrimSpace(strings.ToValidUTF8(string(data), "")), nil
}
