package providers

import (
	"bytes"
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"ChainPulse/pkg/cache"
)

const defaultHeadlineSelector = "article h1, article h2, article h3, h2 a, h3 a, .news-title"

var (
	positiveWords = []string{"surge", "rally", "gain", "bullish", "soar", "record", "adoption", "upgrade", "partnership", "approval", "growth", "breakout", "inflow"}
	negativeWords = []string{"crash", "plunge", "drop", "bearish", "hack", "exploit", "lawsuit", "ban", "selloff", "sell-off", "decline", "outflow", "fraud"}
)

// NewsScraper scores a token's coverage on one news page by counting
// lexicon words in the headlines that mention it. Parsed headlines are
// kept in the documents cache so every token analyzed within the TTL reads
// the same page once.
type NewsScraper struct {
	*HTTPServiceBase
	name      string
	pageURL   string
	selector  string
	documents *cache.Cache[string, []string]
}

func NewNewsScraper(pageURL string, s ClientSettings, documents *cache.Cache[string, []string]) *NewsScraper {
	if documents == nil {
		documents = cache.New[string, []string](cache.WithTTL(cache.DocumentsTTL))
	}
	name := "news"
	if u, err := url.Parse(pageURL); err == nil && u.Host != "" {
		name = "news:" + u.Host
	}
	return &NewsScraper{
		HTTPServiceBase: NewHTTPServiceBase(pageURL, s, map[string]string{"Accept": "text/html"}),
		name:            name,
		pageURL:         pageURL,
		selector:        defaultHeadlineSelector,
		documents:       documents,
	}
}

// NewNewsScrapers builds one scraper per page sharing a documents cache.
func NewNewsScrapers(pages []string, s ClientSettings, documents *cache.Cache[string, []string]) []*NewsScraper {
	out := make([]*NewsScraper, 0, len(pages))
	for _, p := range pages {
		out = append(out, NewNewsScraper(p, s, documents))
	}
	return out
}

func (n *NewsScraper) Name() string { return n.name }

// NewsSentiment is 0.5 + 0.5*(p-n)/(p+n) over lexicon hits in matching
// headlines, and 0.5 when nothing matched.
func (n *NewsScraper) NewsSentiment(ctx context.Context, token string) (float64, error) {
	headlines, _, err := n.documents.GetOrLoad(ctx, n.pageURL, n.headlines)
	if err != nil {
		return 0, err
	}
	return ScoreHeadlines(headlines, token), nil
}

func (n *NewsScraper) headlines(ctx context.Context) ([]string, error) {
	var body []byte
	if err := n.GetJSON(ctx, "", nil, &body); err != nil {
		return nil, err
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", n.pageURL, err)
	}
	return ExtractHeadlines(doc, n.selector), nil
}

// ExtractHeadlines returns the de-duplicated, trimmed text of every node
// matching selector.
func ExtractHeadlines(doc *goquery.Document, selector string) []string {
	seen := map[string]bool{}
	var out []string
	doc.Find(selector).Each(func(_ int, s *goquery.Selection) {
		title := strings.Join(strings.Fields(s.Text()), " ")
		if title == "" || seen[title] {
			return
		}
		seen[title] = true
		out = append(out, title)
	})
	return out
}

// ScoreHeadlines scores the headlines that mention token as a whole word,
// case-insensitively.
func ScoreHeadlines(headlines []string, token string) float64 {
	token = strings.ToLower(token)
	var pos, neg int
	for _, h := range headlines {
		lower := strings.ToLower(h)
		if !mentions(lower, token) {
			continue
		}
		pos += countWords(lower, positiveWords)
		neg += countWords(lower, negativeWords)
	}
	if pos+neg == 0 {
		return 0.5
	}
	return 0.5 + 0.5*float64(pos-neg)/float64(pos+neg)
}

func mentions(text, token string) bool {
	for _, f := range strings.FieldsFunc(text, func(r rune) bool {
		return !(r >= 'a' && r <= 'z' || r >= '0' && r <= '9' || r == '$')
	}) {
		if strings.TrimPrefix(f, "$") == token {
			return true
		}
	}
	return false
}

func countWords(text string, words []string) int {
	n := 0
	for _, w := range words {
		if strings.Contains(text, w) {
			n++
		}
	}
	return n
}
