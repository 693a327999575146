package pdfext

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"

	"github.com/vkrasnov/gemini-telegram-bot/pkg/domain"
)

// ExtractText concatenates the plain text of every page of an in-memory
// PDF. Returns domain.ErrNoExtractableText when the document yields only
// whitespace (scanned pages, images).
func ExtractText(data []byte) (string, error) {
	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("opening pdf: %w", err)
	}

	var sb strings.Builder
	for i := 1; i <= reader.NumPage(); i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}

		text, err := page.GetPlainText(nil)
		if err != nil {
			// Skip undecodable pages; the document may still carry text
			// elsewhere.
			continue
		}
		sb.WriteString(text)
	}

	extracted := sb.String()
	if strings.TrimSpace(extracted) == "" {
		return "", domain.ErrNoExtractableText
	}
	return extracted, nil
}

// Truncate caps extracted text at limit runes for prompt building.
func Truncate(text string, limit int) string {
	runes := []rune(text)
	if len(runes) <= limit {
		return text
	}
	return string(runes[:limit])
}
