package gmaps

import (
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"shower-scraper/scraper"
)

const origin = "https://www.google.com"

// selector locates one intent in the rendered page.
type selector struct {
	css string
	// attr reads an attribute instead of the element text.
	attr string
	// trimPrefix is removed from every value ("Address: ").
	trimPrefix string
	// scope, when present in the page, makes zero matches an empty result
	// rather than missing structure.
	scope string
}

// selectors is the single place that knows the source's markup. When the UI
// changes, extraction fails with *scraper.ExtractionError and this table is
// what needs updating.
var selectors = map[scraper.Intent]selector{
	scraper.IntentResultsFeed:   {css: `div[role="feed"]`},
	scraper.IntentResultLinks:   {css: `div[role="feed"] a.hfpxzc`, attr: "href", scope: `div[role="feed"]`},
	scraper.IntentResultsEnd:    {css: `div[role="feed"] span.HlvSq`},
	scraper.IntentPlaceName:     {css: `h1.DUwDvf`},
	scraper.IntentPlaceAddress:  {css: `button[data-item-id="address"]`, attr: "aria-label", trimPrefix: "Address:"},
	scraper.IntentPlaceCategory: {css: `button.DkEaL`},

	scraper.IntentReviewsTab:      {css: `button[role="tab"][aria-label^="Reviews"]`},
	scraper.IntentReviewsSortMenu: {css: `button[aria-label="Sort reviews"], button[data-value="Sort"]`},
	scraper.IntentReviewsNewest:   {css: `div[role="menuitemradio"][data-index="1"]`},
	scraper.IntentReviewsPanel:    {css: `div.m6QErb.DxyBCb.kA9KIf.dS8AEf`},
	scraper.IntentReviewExpanders: {css: `div.jftiEf button.w8nwRe`},
	scraper.IntentReviewTexts:     {css: `div.jftiEf span.wiI7pd`},
}

func lookup(intent scraper.Intent) (selector, error) {
	sel, ok := selectors[intent]
	if !ok {
		return selector{}, &scraper.ExtractionError{Intent: intent, Err: fmt.Errorf("no selector for %s", intent)}
	}
	return sel, nil
}

// extractFromHTML evaluates intent against a rendered document.
func extractFromHTML(html string, intent scraper.Intent) ([]string, error) {
	sel, err := lookup(intent)
	if err != nil {
		return nil, err
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, &scraper.ExtractionError{Intent: intent, Err: err}
	}

	nodes := doc.Find(sel.css)
	if nodes.Length() == 0 {
		if sel.scope != "" && doc.Find(sel.scope).Length() > 0 {
			return []string{}, nil
		}
		return nil, &scraper.ExtractionError{Intent: intent}
	}

	values := make([]string, 0, nodes.Length())
	nodes.Each(func(_ int, n *goquery.Selection) {
		var v string
		if sel.attr != "" {
			attr, ok := n.Attr(sel.attr)
			if !ok {
				return
			}
			v = attr
		} else {
			v = n.Text()
		}
		v = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(v), sel.trimPrefix))
		if sel.attr == "href" && strings.HasPrefix(v, "/") {
			v = origin + v
		}
		values = append(values, v)
	})
	return values, nil
}
