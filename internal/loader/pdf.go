package loader

import (
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"

	"rag-agent/internal/domain"
)

// parsePDF extracts plain text from a PDF, one Document per page so
// provenance survives chunking.
func parsePDF(path string) ([]domain.Document, error) {
	f, r, err := pdf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open pdf: %w", err)
	}
	defer f.Close()

	var docs []domain.Document
	for pageNum := 1; pageNum <= r.NumPage(); pageNum++ {
		page := r.Page(pageNum)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			return nil, fmt.Errorf("extract page %d: %w", pageNum, err)
		}
		text = strings.TrimSpace(text)
		if text == "" {
			continue
		}
		docs = append(docs, domain.Document{
			Text:       text,
			SourcePath: path,
			Kind:       domain.LoaderPDF,
			Page:       pageNum,
		})
	}
	if len(docs) == 0 {
		return nil, fmt.Errorf("no extractable text in %s", path)
	}
	return docs, nil
}
