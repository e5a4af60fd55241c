// Package document holds the in-memory shapes a PDF passes through while its
// text is acquired: the decoded upload and the per-page line sequences.
package document

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"strings"
	"unicode"

	"github.com/joseph-ayodele/regatta-tracker/constants"
	"github.com/joseph-ayodele/regatta-tracker/internal/common"
)

// RawDocument is one uploaded PDF. It is created per call and never persisted.
type RawDocument struct {
	Payload   []byte
	PageCount int // 0 until a reader has opened the payload
}

// ExtractedPage is the ordered text lines of one page.
type ExtractedPage struct {
	Number int
	Lines  []string
	Method constants.AcquisitionMethod
}

// Document is the acquired text of a RawDocument.
type Document struct {
	Pages []ExtractedPage
}

var pdfMagic = []byte("%PDF-")

// DecodeBase64 decodes an uploaded payload. A data: URL prefix is tolerated.
// Anything that does not decode, or does not start with a PDF header, is
// reported as ErrDocumentUnreadable.
func DecodeBase64(s string) (RawDocument, error) {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "data:") {
		if i := strings.Index(s, ","); i >= 0 {
			s = s[i+1:]
		}
	}
	s = strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, s)
	if s == "" {
		return RawDocument{}, fmt.Errorf("empty payload: %w", common.ErrDocumentUnreadable)
	}

	var (
		b   []byte
		err error
	)
	for _, enc := range []*base64.Encoding{base64.StdEncoding, base64.RawStdEncoding, base64.URLEncoding, base64.RawURLEncoding} {
		if b, err = enc.DecodeString(s); err == nil {
			break
		}
	}
	if err != nil {
		return RawDocument{}, fmt.Errorf("decode base64: %v: %w", err, common.ErrDocumentUnreadable)
	}
	return NewRawDocument(b)
}

// NewRawDocument wraps already-decoded bytes.
func NewRawDocument(b []byte) (RawDocument, error) {
	if len(b) > constants.MaxDocumentBytes {
		return RawDocument{}, fmt.Errorf("payload of %d bytes exceeds limit: %w", len(b), common.ErrDocumentUnreadable)
	}
	if !bytes.HasPrefix(bytes.TrimLeft(b, "\x00\t\r\n "), pdfMagic) {
		return RawDocument{}, fmt.Errorf("missing %%PDF- header: %w", common.ErrDocumentUnreadable)
	}
	return RawDocument{Payload: b}, nil
}

// PageMarker is appended after every page in Text.
func PageMarker(n int) string {
	return fmt.Sprintf("--- end of page %d ---", n)
}

// IsPageMarker reports whether line is a marker produced by PageMarker.
func IsPageMarker(line string) bool {
	var n int
	_, err := fmt.Sscanf(strings.TrimSpace(line), "--- end of page %d ---", &n)
	return err == nil
}

// Text concatenates all pages, each followed by its page-end marker.
func (d Document) Text() string {
	var b strings.Builder
	for _, p := range d.Pages {
		for _, ln := range p.Lines {
			b.WriteString(ln)
			b.WriteByte('\n')
		}
		b.WriteString(PageMarker(p.Number))
		b.WriteByte('\n')
	}
	return b.String()
}

// Lines returns every line of Text, page markers included.
func (d Document) Lines() []string {
	t := strings.TrimRight(d.Text(), "\n")
	if t == "" {
		return nil
	}
	return strings.Split(t, "\n")
}

// Method reports how the first page was acquired; all pages of a Document
// share one method.
func (d Document) Method() constants.AcquisitionMethod {
	if len(d.Pages) == 0 {
		return constants.MethodNone
	}
	return d.Pages[0].Method
}

// CharCount counts non-space characters outside page markers.
func (d Document) CharCount() int {
	n := 0
	for _, p := range d.Pages {
		for _, ln := range p.Lines {
			for _, r := range ln {
				if !unicode.IsSpace(r) {
					n++
				}
			}
		}
	}
	return n
}

// Empty reports whether the document carries no usable text.
func (d Document) Empty() bool {
	return d.CharCount() == 0
}

// FromText builds a single-method Document from plain text. Form feeds or
// page markers split pages.
func FromText(text string, method constants.AcquisitionMethod) Document {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	var (
		doc  Document
		cur  []string
		page = 1
	)
	flush := func() {
		doc.Pages = append(doc.Pages, ExtractedPage{Number: page, Lines: cur, Method: method})
		page++
		cur = nil
	}
	for _, ln := range strings.Split(text, "\n") {
		if IsPageMarker(ln) {
			flush()
			continue
		}
		parts := strings.Split(ln, "\f")
		for i, part := range parts {
			if i > 0 {
				flush()
			}
			if strings.TrimSpace(part) != "" {
				cur = append(cur, part)
			}
		}
	}
	if len(cur) > 0 || len(doc.Pages) == 0 {
		flush()
	}
	return doc
}
