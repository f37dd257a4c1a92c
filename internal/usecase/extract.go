// Package usecase contains application business logic services.
package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/fairyhunter13/skills-warrior/internal/domain"
	"github.com/fairyhunter13/skills-warrior/internal/observability"
	"github.com/fairyhunter13/skills-warrior/pkg/textx"
)

// previewRunes bounds the text excerpt written to debug logs.
const previewRunes = 80

// Extracted is the text read from one uploaded document.
type Extracted struct {
	Filename string `json:"filename"`
	Text     string `json:"text"`
	Chars    int    `json:"chars"`
}

// ExtractService turns uploads into sanitized text.
type ExtractService struct {
	Extractor domain.TextExtractor
}

// NewExtractService constructs an ExtractService with the given extractor.
func NewExtractService(x domain.TextExtractor) ExtractService { return ExtractService{Extractor: x} }

// FromUpload extracts the text of a named document.
func (s ExtractService) FromUpload(ctx context.Context, filename string, data []byte) (Extracted, error) {
	name := filepath.Base(strings.TrimSpace(filename))
	if name == "" || name == "." || name == string(filepath.Separator) {
		return Extracted{}, fmt.Errorf("op=extract.upload: %w: filename required", domain.ErrInvalidArgument)
	}
	if len(data) == 0 {
		return Extracted{}, fmt.Errorf("op=extract.upload: %w: empty file", domain.ErrInvalidArgument)
	}
	text, err := s.Extractor.Extract(ctx, name, data)
	if err != nil {
		return Extracted{}, fmt.Errorf("op=extract.upload: %w", err)
	}
	text = textx.SanitizeText(text)
	if text == "" {
		return Extracted{}, fmt.Errorf("op=extract.upload: %w: no text found in %s", domain.ErrInvalidArgument, name)
	}
	out := Extracted{Filename: name, Text: text, Chars: len([]rune(text))}
	observability.LoggerFromContext(ctx).Debug("document extracted",
		slog.String("filename", name),
		slog.Int("chars", out.Chars),
		slog.String("preview", textx.Truncate(textx.CollapseSpaces(text), previewRunes)))
	return out, nil
}

// FromDataURI accepts the browser upload format `data:<mime>;base64,<payload>`.
func (s ExtractService) FromDataURI(ctx context.Context, filename, contents string) (Extracted, error) {
	d, err := domain.DecodeDataURI(contents)
	if err != nil {
		return Extracted{}, err
	}
	return s.FromUpload(ctx, filename, d.Data)
}
