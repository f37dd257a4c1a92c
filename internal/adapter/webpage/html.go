package webpage

import (
	"fmt"
	"io"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/fairyhunter13/skills-warrior/internal/domain"
	"github.com/fairyhunter13/skills-warrior/pkg/textx"
)

var (
	noiseSelectors  = "script, style, noscript, template, iframe, svg"
	chromeSelectors = "header, footer, nav, aside, [role=navigation], [role=banner], [role=contentinfo]"
)

// ExtractHTMLText joins the text of every <p> with a single space. When
// selector is set only paragraphs inside the first match count, and the whole
// match is used when it holds no paragraph. Pages without paragraph text fall
// back to the text of article, main or body with the navigation chrome removed.
func ExtractHTMLText(r io.Reader, selector string) (string, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return "", fmt.Errorf("%w: parse html: %v", domain.ErrUnsupportedMedia, err)
	}
	doc.Find(noiseSelectors).Remove()

	scope := doc.Selection
	if selector = strings.TrimSpace(selector); selector != "" {
		if m := doc.Find(selector).First(); m.Length() > 0 {
			scope = m
		}
	}

	var parts []string
	scope.Find("p").Each(func(_ int, s *goquery.Selection) {
		if t := textx.CollapseSpaces(s.Text()); t != "" {
			parts = append(parts, t)
		}
	})
	if len(parts) > 0 {
		return strings.Join(parts, " "), nil
	}

	if scope != doc.Selection {
		return textx.CollapseSpaces(scope.Text()), nil
	}
	doc.Find(chromeSelectors).Remove()
	content := doc.Find("article, main").First()
	if content.Length() == 0 {
		content = doc.Find("body")
	}
	return textx.CollapseSpaces(content.Text()), nil
}
