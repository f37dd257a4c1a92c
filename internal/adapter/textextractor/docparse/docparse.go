// Package docparse extracts text from PDF, DOCX and plain-text uploads in process.
package docparse

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/gabriel-vasile/mimetype"
	"github.com/ledongthuc/pdf"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/fairyhunter13/skills-warrior/internal/domain"
	"github.com/fairyhunter13/skills-warrior/pkg/textx"
)

// MIME types recognised by the local parser.
const (
	MIMEPDF  = "application/pdf"
	MIMEDOCX = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	MIMEZip  = "application/zip"
	MIMEText = "text/plain"
)

// maxPartBytes bounds how much of a single OOXML part is decompressed.
const maxPartBytes = 32 << 20

type kind int

const (
	kindUnknown kind = iota
	kindPDF
	kindDOCX
	kindText
)

// Parser is a domain.TextExtractor for the formats Go can read without a server.
type Parser struct{}

// New returns a local document parser.
func New() *Parser { return &Parser{} }

// Supports reports whether the parser can read a file with this name and content.
func (p *Parser) Supports(fileName string, data []byte) bool {
	return detect(fileName, data) != kindUnknown
}

// Extract returns the text of data. The extension picks the parser and the
// sniffed content type must agree with it; without a known extension the
// sniffed type decides.
func (p *Parser) Extract(ctx context.Context, fileName string, data []byte) (string, error) {
	_, span := otel.Tracer("skills-warrior/docparse").Start(ctx, "docparse.Extract")
	defer span.End()
	span.SetAttributes(attribute.String("file.ext", strings.ToLower(filepath.Ext(fileName))), attribute.Int("file.size", len(data)))

	if len(data) == 0 {
		return "", fmt.Errorf("op=docparse.Extract: %w: empty document", domain.ErrInvalidArgument)
	}
	var (
		text string
		err  error
	)
	switch detect(fileName, data) {
	case kindPDF:
		text, err = ParsePDF(data)
	case kindDOCX:
		text, err = ParseDOCX(data)
	case kindText:
		if !utf8.Valid(data) {
			data = bytes.ToValidUTF8(data, []byte(" "))
		}
		text = string(data)
	default:
		return "", fmt.Errorf("op=docparse.Extract: %w: %s (%s)", domain.ErrUnsupportedMedia, fileName, mimetype.Detect(data).String())
	}
	if err != nil {
		span.RecordError(err)
		return "", fmt.Errorf("op=docparse.Extract: %w", err)
	}
	return textx.SanitizeText(text), nil
}

func detect(fileName string, data []byte) kind {
	mt := mimetype.Detect(data)
	switch strings.ToLower(filepath.Ext(fileName)) {
	case ".pdf":
		if mt.Is(MIMEPDF) {
			return kindPDF
		}
		return kindUnknown
	case ".docx", ".doc":
		// a .doc name carrying OOXML content is still readable here
		if mt.Is(MIMEDOCX) || mt.Is(MIMEZip) {
			return kindDOCX
		}
		return kindUnknown
	case ".txt":
		if isText(mt) {
			return kindText
		}
		return kindUnknown
	}
	switch {
	case mt.Is(MIMEPDF):
		return kindPDF
	case mt.Is(MIMEDOCX):
		return kindDOCX
	case isText(mt):
		return kindText
	}
	return kindUnknown
}

func isText(mt *mimetype.MIME) bool {
	for m := mt; m != nil; m = m.Parent() {
		if m.Is(MIMEText) {
			return true
		}
	}
	return false
}

// ParsePDF returns the plain text of every page joined with a single space.
// Malformed files that make the reader panic are reported as unsupported media.
func ParsePDF(data []byte) (text string, err error) {
	defer func() {
		if r := recover(); r != nil {
			text, err = "", fmt.Errorf("%w: malformed pdf: %v", domain.ErrUnsupportedMedia, r)
		}
	}()
	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("%w: pdf: %v", domain.ErrUnsupportedMedia, err)
	}
	pages := make([]string, 0, r.NumPage())
	for i := 1; i <= r.NumPage(); i++ {
		page := r.Page(i)
		if page.V.IsNull() {
			continue
		}
		t, err := page.GetPlainText(nil)
		if err != nil {
			return "", fmt.Errorf("%w: pdf page %d: %v", domain.ErrUnsupportedMedia, i, err)
		}
		if t = strings.TrimSpace(t); t != "" {
			pages = append(pages, t)
		}
	}
	return strings.Join(pages, " "), nil
}

// ParseDOCX reads the headers, body and footers of an OOXML word document.
// Paragraphs and breaks become newlines, tabs are preserved.
func ParseDOCX(data []byte) (string, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("%w: docx: %v", domain.ErrUnsupportedMedia, err)
	}
	var headers, body, footers []*zip.File
	for _, f := range zr.File {
		switch name := f.Name; {
		case name == "word/document.xml":
			body = append(body, f)
		case strings.HasPrefix(name, "word/header") && strings.HasSuffix(name, ".xml"):
			headers = append(headers, f)
		case strings.HasPrefix(name, "word/footer") && strings.HasSuffix(name, ".xml"):
			footers = append(footers, f)
		}
	}
	if len(body) == 0 {
		return "", fmt.Errorf("%w: docx: word/document.xml not found", domain.ErrUnsupportedMedia)
	}
	byName := func(fs []*zip.File) {
		sort.Slice(fs, func(i, j int) bool { return fs[i].Name < fs[j].Name })
	}
	byName(headers)
	byName(footers)

	var sb strings.Builder
	for _, f := range append(append(headers, body...), footers...) {
		if err := writePart(&sb, f); err != nil {
			return "", fmt.Errorf("%w: docx %s: %v", domain.ErrUnsupportedMedia, f.Name, err)
		}
	}
	return sb.String(), nil
}

func writePart(sb *strings.Builder, f *zip.File) error {
	rc, err := f.Open()
	if err != nil {
		return err
	}
	defer func() { _ = rc.Close() }()

	dec := xml.NewDecoder(io.LimitReader(rc, maxPartBytes))
	inText := false
	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "t":
				inText = true
			case "tab":
				sb.WriteByte('\t')
			case "br", "cr":
				sb.WriteByte('\n')
			}
		case xml.EndElement:
			switch t.Name.Local {
			case "t":
				inText = false
			case "p":
				sb.WriteByte('\n')
			}
		case xml.CharData:
			if inText {
				sb.Write(t)
			}
		}
	}
}
