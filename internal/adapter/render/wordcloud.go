// Package render draws keyword word clouds and radar charts.
package render

import (
	"bytes"
	"context"
	"fmt"
	"math"
	"time"

	"github.com/fogleman/gg"
	"github.com/golang/freetype/truetype"
	colorful "github.com/lucasb-eyer/go-colorful"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/goregular"

	obsmetrics "github.com/fairyhunter13/skills-warrior/internal/adapter/observability"
	"github.com/fairyhunter13/skills-warrior/internal/domain"
)

// WordcloudOptions sizes the canvas and the fonts.
type WordcloudOptions struct {
	Width    int
	Height   int
	MinFont  float64
	MaxFont  float64 // 0 derives it from the canvas height
	MaxWords int
}

// ramp is a light-to-dark palette; frequent words get the darker end.
type ramp struct{ light, dark colorful.Color }

var palettes = map[domain.Palette]ramp{
	domain.PaletteGreens: {light: mustHex("#a1d99b"), dark: mustHex("#00441b")},
	domain.PaletteBlues:  {light: mustHex("#9ecae1"), dark: mustHex("#08306b")},
}

func mustHex(s string) colorful.Color {
	c, err := colorful.Hex(s)
	if err != nil {
		panic(err)
	}
	return c
}

const (
	wordPadding = 2.0
	spiralStep  = 4.0 // pixels between candidate spots along the spiral
	fontShrink  = 0.85
	maxMisses   = 5 // consecutive words that found no room
)

// Wordcloud implements domain.WordcloudRenderer.
type Wordcloud struct {
	opts WordcloudOptions
	font *truetype.Font
}

// NewWordcloud parses the embedded Go font and normalizes opts.
func NewWordcloud(opts WordcloudOptions) (*Wordcloud, error) {
	if opts.Width <= 0 {
		opts.Width = 800
	}
	if opts.Height <= 0 {
		opts.Height = 400
	}
	if opts.MinFont <= 0 {
		opts.MinFont = 10
	}
	if opts.MaxFont <= 0 {
		opts.MaxFont = math.Round(float64(opts.Height) * 0.3)
	}
	if opts.MaxFont < opts.MinFont {
		opts.MaxFont = opts.MinFont
	}
	if opts.MaxWords <= 0 {
		opts.MaxWords = 200
	}
	f, err := truetype.Parse(goregular.TTF)
	if err != nil {
		return nil, fmt.Errorf("op=render.NewWordcloud: %w", err)
	}
	return &Wordcloud{opts: opts, font: f}, nil
}

type rect struct{ x, y, w, h float64 }

func (a rect) overlaps(b rect) bool {
	return a.x < b.x+b.w && b.x < a.x+a.w && a.y < b.y+b.h && b.y < a.y+a.h
}

// Render draws the most frequent keywords on a white canvas and returns PNG bytes.
// Words are placed largest first along an Archimedean spiral from the centre.
// A word that collides everywhere is retried at smaller sizes down to the
// minimum font and skipped after that.
func (w *Wordcloud) Render(ctx context.Context, kw domain.Keywords, palette domain.Palette) ([]byte, error) {
	if kw.Len() == 0 {
		return nil, fmt.Errorf("op=render.Wordcloud: %w: no keywords to draw", domain.ErrInvalidArgument)
	}
	pal, ok := palettes[palette]
	if !ok {
		return nil, fmt.Errorf("op=render.Wordcloud: %w: unknown palette %q", domain.ErrInvalidArgument, palette)
	}
	start := time.Now()

	words := kw.Top(w.opts.MaxWords)
	hi, lo := words[0].Count, words[len(words)-1].Count

	dc := gg.NewContext(w.opts.Width, w.opts.Height)
	dc.SetRGB(1, 1, 1)
	dc.Clear()

	faces := map[int]font.Face{}
	defer func() {
		for _, f := range faces {
			_ = f.Close()
		}
	}()
	faceFor := func(size float64) font.Face {
		k := int(math.Round(size))
		if f, ok := faces[k]; ok {
			return f
		}
		f := truetype.NewFace(w.font, &truetype.Options{Size: float64(k), Hinting: font.HintingFull})
		faces[k] = f
		return f
	}

	var placed []rect
	misses := 0
	for _, wc := range words {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("op=render.Wordcloud: %w", err)
		}
		ratio := 1.0
		if hi > lo {
			ratio = float64(wc.Count-lo) / float64(hi-lo)
		}
		size := w.opts.MinFont + (w.opts.MaxFont-w.opts.MinFont)*ratio
		r, ok := w.fit(dc, faceFor, wc.Term, size, placed)
		if !ok {
			if misses++; misses >= maxMisses {
				break // canvas is full
			}
			continue
		}
		misses = 0
		placed = append(placed, r)
		dc.SetColor(pal.light.BlendLab(pal.dark, 0.25+0.75*ratio).Clamped())
		dc.DrawStringAnchored(wc.Term, r.x+r.w/2, r.y+r.h/2, 0.5, 0.35)
	}

	var buf bytes.Buffer
	if err := dc.EncodePNG(&buf); err != nil {
		return nil, fmt.Errorf("op=render.Wordcloud: %w", err)
	}
	obsmetrics.ObserveWordcloud(string(palette), time.Since(start))
	return buf.Bytes(), nil
}

// fit shrinks the font from size down to the minimum until term finds a spot.
// The matching face is left selected on dc.
func (w *Wordcloud) fit(dc *gg.Context, faceFor func(float64) font.Face, term string, size float64, placed []rect) (rect, bool) {
	for {
		dc.SetFontFace(faceFor(size))
		tw, th := dc.MeasureString(term)
		if r, ok := w.place(tw+2*wordPadding, th+2*wordPadding, placed); ok {
			return r, true
		}
		if size <= w.opts.MinFont {
			return rect{}, false
		}
		size = math.Max(w.opts.MinFont, size*fontShrink)
	}
}

// place walks the spiral until a w x h box fits inside the canvas without
// touching a placed box.
func (w *Wordcloud) place(bw, bh float64, placed []rect) (rect, bool) {
	W, H := float64(w.opts.Width), float64(w.opts.Height)
	if bw > W || bh > H {
		return rect{}, false
	}
	cx, cy := W/2, H/2
	aspect := H / W
	maxR := math.Hypot(W, H) / 2
	const a = 3.0 // spiral growth per radian

	last := -1
	for t := 0.0; ; {
		radius := a * t
		if radius > maxR {
			return rect{}, false
		}
		r := rect{
			x: cx + radius*math.Cos(t) - bw/2,
			y: cy + radius*math.Sin(t)*aspect - bh/2,
			w: bw, h: bh,
		}
		if r.x >= 0 && r.y >= 0 && r.x+bw <= W && r.y+bh <= H && (last < 0 || !r.overlaps(placed[last])) {
			last = collision(r, placed)
			if last < 0 {
				return r, true
			}
		}
		if radius < spiralStep {
			t += 0.5
		} else {
			t += spiralStep / radius
		}
	}
}

// collision returns the index of the first placed box overlapping r, or -1.
func collision(r rect, placed []rect) int {
	for i, p := range placed {
		if r.overlaps(p) {
			return i
		}
	}
	return -1
}
