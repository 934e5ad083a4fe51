package usecase

import (
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/user/a11y-auditor/internal/entity"
)

const outerHTMLScript = `document.documentElement ? document.documentElement.outerHTML : ""`

const landmarkSelector = `main, nav, header, footer, aside, form[aria-label], form[aria-labelledby], section[aria-label], section[aria-labelledby],` +
	` [role="main"], [role="navigation"], [role="banner"], [role="contentinfo"], [role="complementary"], [role="search"], [role="region"], [role="form"]`

// ExtractPageInfo parses the rendered document and records descriptive metadata.
func ExtractPageInfo(htmlContent string) (*entity.PageInfo, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(htmlContent))
	if err != nil {
		return nil, err
	}

	lang, _ := doc.Find("html").First().Attr("lang")
	info := &entity.PageInfo{
		Title:     strings.Join(strings.Fields(doc.Find("title").First().Text()), " "),
		Lang:      strings.TrimSpace(lang),
		Landmarks: doc.Find(landmarkSelector).Length(),
		Headings:  doc.Find("h1, h2, h3, h4, h5, h6, [role=heading]").Length(),
		Images:    doc.Find("img").Length(),
	}
	return info, nil
}
