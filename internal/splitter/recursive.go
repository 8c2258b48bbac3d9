package splitter

import (
	"strings"
	"unicode/utf8"

	"rag-agent/internal/domain"
)

// DefaultSeparators is the boundary preference order: paragraph,
// line, sentence, word, then arbitrary character positions.
var DefaultSeparators = []string{"\n\n", "\n", ". ", " ", ""}

const (
	DefaultChunkSize    = 500
	DefaultChunkOverlap = 100
)

// Recursive splits document text into overlapping chunks, preferring
// paragraph and sentence boundaries but always respecting the hard
// chunkSize ceiling. Chunks are verbatim substrings of the source
// document, so StartIndex arithmetic is exact.
type Recursive struct {
	chunkSize    int
	chunkOverlap int
	separators   []string
}

// NewRecursive builds a splitter. Non-positive sizes fall back to the
// defaults; an overlap not smaller than the chunk size is clamped to
// a fifth of it.
func NewRecursive(chunkSize, chunkOverlap int) *Recursive {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	if chunkOverlap < 0 {
		chunkOverlap = 0
	}
	if chunkOverlap >= chunkSize {
		chunkOverlap = chunkSize / 5
	}
	return &Recursive{
		chunkSize:    chunkSize,
		chunkOverlap: chunkOverlap,
		separators:   DefaultSeparators,
	}
}

// Split produces chunks for every document, preserving input order.
func (s *Recursive) Split(docs []domain.Document) []domain.Chunk {
	var chunks []domain.Chunk
	for _, d := range docs {
		for _, sp := range s.splitText(d.Text) {
			chunks = append(chunks, domain.Chunk{
				Text:       sp.text,
				SourcePath: d.SourcePath,
				StartIndex: sp.start,
				Page:       d.Page,
			})
		}
	}
	return chunks
}

// span is a substring of the source document plus its byte offset.
type span struct {
	text  string
	start int
}

func (s *Recursive) splitText(text string) []span {
	if strings.TrimSpace(text) == "" {
		return nil
	}
	atoms := s.splitRecursive(span{text: text, start: 0}, s.separators)
	return s.merge(atoms)
}

// splitRecursive reduces a span to atomic pieces no longer than
// chunkSize, trying coarser separators before finer ones. Separators
// stay attached to the preceding piece so pieces remain contiguous.
func (s *Recursive) splitRecursive(sp span, seps []string) []span {
	if len(sp.text) <= s.chunkSize {
		return []span{sp}
	}
	sep, rest := pickSeparator(sp.text, seps)
	if sep == "" {
		// No boundary left: hard windows at the size ceiling, backed
		// off to the nearest rune start so multibyte text is never
		// sliced mid-rune.
		var out []span
		for i := 0; i < len(sp.text); {
			end := i + s.chunkSize
			if end >= len(sp.text) {
				end = len(sp.text)
			} else {
				for end > i && !utf8.RuneStart(sp.text[end]) {
					end--
				}
				if end == i {
					// A single rune wider than the ceiling; keep it whole.
					_, size := utf8.DecodeRuneInString(sp.text[i:])
					end = i + size
				}
			}
			out = append(out, span{text: sp.text[i:end], start: sp.start + i})
			i = end
		}
		return out
	}
	var out []span
	off := 0
	for off < len(sp.text) {
		var pieceEnd int
		if idx := strings.Index(sp.text[off:], sep); idx < 0 {
			pieceEnd = len(sp.text)
		} else {
			pieceEnd = off + idx + len(sep)
		}
		piece := span{text: sp.text[off:pieceEnd], start: sp.start + off}
		if len(piece.text) > s.chunkSize {
			out = append(out, s.splitRecursive(piece, rest)...)
		} else {
			out = append(out, piece)
		}
		off = pieceEnd
	}
	return out
}

// pickSeparator returns the first separator present in text and the
// finer separators after it. The empty separator always matches.
func pickSeparator(text string, seps []string) (string, []string) {
	for i, cand := range seps {
		if cand == "" {
			return "", nil
		}
		if strings.Contains(text, cand) {
			return cand, seps[i+1:]
		}
	}
	return "", nil
}

// merge packs contiguous atomic pieces into chunks up to chunkSize,
// carrying roughly chunkOverlap characters of trailing pieces into
// the next chunk. Overlap is piece-granular, so the realized overlap
// is the largest piece-aligned amount not exceeding chunkOverlap.
func (s *Recursive) merge(atoms []span) []span {
	var out []span
	var cur []span
	curLen := 0

	flush := func() {
		if len(cur) == 0 {
			return
		}
		var b strings.Builder
		for _, p := range cur {
			b.WriteString(p.text)
		}
		out = append(out, span{text: b.String(), start: cur[0].start})
	}

	for _, p := range atoms {
		if curLen+len(p.text) > s.chunkSize && len(cur) > 0 {
			flush()
			for len(cur) > 0 && (curLen > s.chunkOverlap || curLen+len(p.text) > s.chunkSize) {
				curLen -= len(cur[0].text)
				cur = cur[1:]
			}
		}
		cur = append(cur, p)
		curLen += len(p.text)
	}
	flush()
	return out
}
