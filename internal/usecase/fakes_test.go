package usecase_test

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/fairyhunter13/skills-warrior/internal/domain"
)

type fakeExtractor struct {
	text string
	err  error
	got  string
}

func (f *fakeExtractor) Extract(_ context.Context, fileName string, _ []byte) (string, error) {
	f.got = fileName
	return f.text, f.err
}

type fakePages struct {
	pages map[string]string
	err   error
}

func (f *fakePages) IsURL(text string) bool { return strings.HasPrefix(text, "https://") }

func (f *fakePages) FetchText(_ context.Context, rawURL string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	return f.pages[rawURL], nil
}

type fakeClouds struct {
	mu       sync.Mutex
	palettes []domain.Palette
	err      error
}

func (f *fakeClouds) Render(_ context.Context, kw domain.Keywords, p domain.Palette) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.palettes = append(f.palettes, p)
	if f.err != nil {
		return nil, f.err
	}
	return []byte(fmt.Sprintf("%s:%d", p, kw.Len())), nil
}

type fakeCharts struct{ err error }

func (f fakeCharts) RenderHTML(w io.Writer, c domain.RadarChart) error {
	if f.err != nil {
		return f.err
	}
	_, err := fmt.Fprintf(w, "<radar axes=%d>", len(c.Axes()))
	return err
}
