// Package importer reads website cards out of a static navigation page.
//
// The page groups cards under category headings:
//
//	<h4 class="text-gray" id="AI">AI</h4>
//	<div class="col-sm-3">
//	  <div class="xe-widget xe-conversations" onclick="window.open('https://claude.ai', '_blank')">
//	    <img data-src="//claude.ai/favicon.ico">
//	    <strong>Claude</strong>
//	    <p class="overflowClip_2">Assistant</p>
//	  </div>
//	</div>
//
// Every card belongs to the nearest heading above it. Cards before the
// first heading are ignored.
package importer

import (
	"fmt"
	"io"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

const (
	headingSelector = "h4.text-gray"
	cardSelector    = ".xe-widget.xe-conversations"
)

// Site is one card.
type Site struct {
	Title       string
	URL         string
	Description string
	Icon        string
}

// Section is a category heading and the cards under it.
type Section struct {
	Category string
	Sites    []Site
}

var windowOpen = regexp.MustCompile(`window\.open\(\s*['"]?([^'"\s,)]+)`)

// Parse reads an HTML page and returns its sections in page order. Headings
// that repeat are merged into the first one. Cards without a title or a
// link are dropped.
func Parse(r io.Reader) ([]Section, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("parsing html: %w", err)
	}

	var (
		sections []Section
		index    = make(map[string]int)
		current  = -1
	)

	doc.Find(headingSelector + ", " + cardSelector).Each(func(_ int, sel *goquery.Selection) {
		if sel.Is(headingSelector) {
			name := collapseSpace(sel.Text())
			if name == "" {
				current = -1
				return
			}
			i, ok := index[name]
			if !ok {
				i = len(sections)
				index[name] = i
				sections = append(sections, Section{Category: name})
			}
			current = i
			return
		}

		if current < 0 {
			return
		}
		if site, ok := parseCard(sel); ok {
			sections[current].Sites = append(sections[current].Sites, site)
		}
	})

	return sections, nil
}

func parseCard(card *goquery.Selection) (Site, bool) {
	onclick, _ := card.Attr("onclick")
	m := windowOpen.FindStringSubmatch(onclick)
	if m == nil {
		return Site{}, false
	}

	title := collapseSpace(card.Find("strong").First().Text())
	if title == "" {
		return Site{}, false
	}

	site := Site{
		Title:       title,
		URL:         NormalizeURL(m[1]),
		Description: collapseSpace(card.Find(".overflowClip_2").First().Text()),
	}

	img := card.Find("img").First()
	if src, ok := img.Attr("data-src"); ok && strings.TrimSpace(src) != "" {
		site.Icon = NormalizeIcon(src)
	} else if src, ok := img.Attr("src"); ok {
		site.Icon = NormalizeIcon(src)
	}

	return site, true
}

// NormalizeURL gives protocol-relative and bare links an https scheme.
func NormalizeURL(raw string) string {
	raw = strings.TrimSpace(raw)
	switch {
	case raw == "":
		return ""
	case strings.HasPrefix(raw, "//"):
		return "https:" + raw
	case strings.HasPrefix(raw, "http://"), strings.HasPrefix(raw, "https://"):
		return raw
	default:
		return "https://" + raw
	}
}

// NormalizeIcon is NormalizeURL, except that site-relative paths are kept.
func NormalizeIcon(raw string) string {
	raw = strings.TrimSpace(raw)
	if strings.HasPrefix(raw, "/") && !strings.HasPrefix(raw, "//") {
		return raw
	}
	return NormalizeURL(raw)
}

func collapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
