// Package textextractor routes uploaded documents to the local parser or to
// Apache Tika.
package textextractor

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	obsmetrics "github.com/fairyhunter13/skills-warrior/internal/adapter/observability"
	"github.com/fairyhunter13/skills-warrior/internal/domain"
	"github.com/fairyhunter13/skills-warrior/internal/observability"
)

// LocalParser is an in-process extractor that can tell which inputs it reads.
type LocalParser interface {
	domain.TextExtractor
	Supports(fileName string, data []byte) bool
}

var (
	localExts  = []string{".pdf", ".docx", ".doc", ".txt"}
	remoteExts = []string{".doc", ".odt", ".rtf"}
)

// Chain tries the local parser first and falls back to the remote extractor
// for the formats only it understands.
type Chain struct {
	Local  LocalParser
	Remote domain.TextExtractor // nil when Tika is not configured
}

// NewChain wires the local parser with an optional remote extractor.
func NewChain(local LocalParser, remote domain.TextExtractor) *Chain {
	return &Chain{Local: local, Remote: remote}
}

// Extract implements domain.TextExtractor.
func (c *Chain) Extract(ctx context.Context, fileName string, data []byte) (string, error) {
	text, err := c.extract(ctx, fileName, data)
	obsmetrics.ObserveExtraction(string(domain.SourceDocument), err)
	if err != nil {
		observability.LoggerFromContext(ctx).Warn("document extraction failed",
			"file", fileName, "size", len(data), "error", err.Error())
	}
	return text, err
}

func (c *Chain) extract(ctx context.Context, fileName string, data []byte) (string, error) {
	if !c.AllowedExt(fileName) {
		return "", fmt.Errorf("op=textextractor.Extract: %w: extension %q not allowed", domain.ErrUnsupportedMedia, filepath.Ext(fileName))
	}
	if c.Local != nil && c.Local.Supports(fileName, data) {
		return c.Local.Extract(ctx, fileName, data)
	}
	if c.Remote != nil && hasExt(remoteExts, fileName) {
		return c.Remote.Extract(ctx, fileName, data)
	}
	return "", fmt.Errorf("op=textextractor.Extract: %w: content of %q is not a readable document", domain.ErrUnsupportedMedia, fileName)
}

// AllowedExt reports whether uploads named like fileName are accepted.
func (c *Chain) AllowedExt(fileName string) bool {
	return AllowedExt(fileName, c.Remote != nil)
}

// AllowedExt is the upload allowlist: .pdf, .docx, .doc and .txt, plus .odt
// and .rtf when a remote extractor is available.
func AllowedExt(fileName string, remote bool) bool {
	if hasExt(localExts, fileName) {
		return true
	}
	return remote && hasExt(remoteExts, fileName)
}

// AcceptAttr renders the allowlist for an HTML file input.
func AcceptAttr(remote bool) string {
	exts := append([]string(nil), localExts...)
	if remote {
		for _, e := range remoteExts {
			if !AllowedExt(e, false) {
				exts = append(exts, e)
			}
		}
	}
	return strings.Join(exts, ",")
}

func hasExt(list []string, fileName string) bool {
	ext := strings.ToLower(filepath.Ext(fileName))
	for _, e := range list {
		if e == ext {
			return true
		}
	}
	return false
}
