// Package extract turns uploaded files into plain text.
package extract

import (
	"bytes"
	"fmt"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/ledongthuc/pdf"

	"github.com/lorekeep/novelrag/internal/domain"
)

// Text extracts the textual content of an uploaded file. PDF files are
// decoded page by page; everything else must be valid UTF-8 and is taken
// as-is.
func Text(filename string, data []byte) (string, error) {
	if len(data) == 0 {
		return "", fmt.Errorf("empty file %q: %w", filename, domain.ErrUnsupportedInput)
	}

	if strings.EqualFold(filepath.Ext(filename), ".pdf") {
		return pdfText(filename, data)
	}

	if !utf8.Valid(data) {
		return "", fmt.Errorf("file %q is not valid UTF-8 text: %w", filename, domain.ErrUnsupportedInput)
	}
	return string(data), nil
}

func pdfText(filename string, data []byte) (string, error) {
	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("read pdf %q: %w: %w", filename, domain.ErrUnsupportedInput, err)
	}

	var b strings.Builder
	for i := 1; i <= r.NumPage(); i++ {
		page := r.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			// A single unreadable page does not void the document.
			continue
		}
		b.WriteString(text)
		b.WriteString("\n")
	}

	if b.Len() == 0 {
		return "", fmt.Errorf("pdf %q contains no extractable text: %w", filename, domain.ErrUnsupportedInput)
	}
	return b.String(), nil
}
