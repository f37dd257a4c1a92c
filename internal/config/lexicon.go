package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Lexicon holds user-supplied vocabulary tweaks loaded from YAML:
//
//	stopwords:
//	  - experience
//	  - team
type Lexicon struct {
	Stopwords []string `yaml:"stopwords"`
}

// LoadLexicon reads the lexicon file at path. An empty path yields an empty lexicon.
func LoadLexicon(path string) (Lexicon, error) {
	if strings.TrimSpace(path) == "" {
		return Lexicon{}, nil
	}
	absPath, err := filepath.Abs(path)
	if err != nil {
		return Lexicon{}, fmt.Errorf("op=config.LoadLexicon: %w", err)
	}
	// #nosec G304 -- operator-provided configuration file
	content, err := os.ReadFile(absPath)
	if err != nil {
		return Lexicon{}, fmt.Errorf("op=config.LoadLexicon: %w", err)
	}
	var lx Lexicon
	if err := yaml.Unmarshal(content, &lx); err != nil {
		return Lexicon{}, fmt.Errorf("op=config.LoadLexicon: parse %s: %w", absPath, err)
	}
	out := lx.Stopwords[:0]
	for _, w := range lx.Stopwords {
		if w = strings.ToLower(strings.TrimSpace(w)); w != "" {
			out = append(out, w)
		}
	}
	lx.Stopwords = out
	return lx, nil
}
