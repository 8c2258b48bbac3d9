package loader

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"rag-agent/internal/domain"
)

// ParseFunc reads one file and returns one or more Documents.
// PDF parsing yields one Document per page.
type ParseFunc func(path string) ([]domain.Document, error)

// Loader reads raw files into Documents, dispatching on file
// extension through a registered parser table. A file that fails to
// parse is skipped and the rest of the batch continues; an extension
// with no registered parser aborts the whole call.
type Loader struct {
	parsers map[string]ParseFunc
	log     *slog.Logger
}

// New returns a Loader with the default parsers for .txt, .md and
// .pdf registered.
func New(log *slog.Logger) *Loader {
	if log == nil {
		log = slog.Default()
	}
	l := &Loader{parsers: make(map[string]ParseFunc), log: log}
	l.Register(".txt", parseText)
	l.Register(".md", parseMarkdown)
	l.Register(".pdf", parsePDF)
	return l
}

// Register installs a parser for the given extension (with leading
// dot), replacing any existing one.
func (l *Loader) Register(ext string, parse ParseFunc) {
	l.parsers[strings.ToLower(ext)] = parse
}

// Load reads every path into Documents. Unreadable or undecodable
// files are logged and skipped; unsupported extensions are a caller
// mistake and fail the entire call.
func (l *Loader) Load(paths []string) ([]domain.Document, error) {
	var docs []domain.Document
	loaded := 0
	for _, path := range paths {
		ext := strings.ToLower(filepath.Ext(path))
		parse, ok := l.parsers[ext]
		if !ok {
			return nil, domain.NewConfigError("file type", fmt.Sprintf("unsupported file type: %s", path))
		}
		parsed, err := parse(path)
		if err != nil {
			l.log.Warn("skipping file", "path", path, "error", err)
			continue
		}
		docs = append(docs, parsed...)
		loaded++
	}
	l.log.Info("loaded documents", "documents", len(docs), "files", loaded, "requested", len(paths))
	return docs, nil
}

// parseText reads a plain-text file. UTF-8 is tried first; invalid
// UTF-8 falls back to Latin-1, which maps every byte to a rune and so
// cannot fail.
func parseText(path string) ([]domain.Document, error) {
	text, err := readTextFile(path)
	if err != nil {
		return nil, err
	}
	return []domain.Document{{Text: text, SourcePath: path, Kind: domain.LoaderPlainText}}, nil
}

func readTextFile(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	if utf8.Valid(data) {
		return string(data), nil
	}
	return decodeLatin1(data), nil
}

func decodeLatin1(data []byte) string {
	runes := make([]rune, len(data))
	for i, b := range data {
		runes[i] = rune(b)
	}
	return string(runes)
}
