// Package news fetches market news whose HTML bodies get annotated with
// ticker markers: Alpaca news plus Google News and GlobeNewswire RSS.
package news

import (
	"context"
	"encoding/xml"
	"fmt"
	"html"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/alpacahq/alpaca-trade-api-go/v3/marketdata"

	"tickermark/internal/domain"
)

// --- HTTP client ---

var httpClient = &http.Client{Timeout: 10 * time.Second}

// --- Alpaca ---

// FetchAlpacaNews fetches news for symbols from the Alpaca marketdata API.
// Article content is kept as raw HTML; contentless items fall back to the
// summary.
func FetchAlpacaNews(mdc *marketdata.Client, symbols []string, start, end time.Time, limit int) ([]domain.Article, error) {
	if limit <= 0 {
		limit = 50
	}
	alpacaNews, err := mdc.GetNews(marketdata.GetNewsRequest{
		Symbols:        symbols,
		Start:          start,
		End:            end,
		TotalLimit:     limit,
		IncludeContent: true,
		Sort:           marketdata.SortAsc,
	})
	if err != nil {
		return nil, err
	}

	articles := make([]domain.Article, 0, len(alpacaNews))
	for _, a := range alpacaNews {
		articles = append(articles, domain.Article{
			ID:       fmt.Sprint(a.ID),
			Time:     a.CreatedAt.UTC(),
			Source:   "alpaca",
			Symbols:  a.Symbols,
			Headline: a.Headline,
			Summary:  a.Summary,
			Content:  a.Content,
			URL:      a.URL,
		})
	}
	return articles, nil
}

// --- RSS ---

type rssResponse struct {
	Channel struct {
		Items []rssItem `xml:"item"`
	} `xml:"channel"`
}

type rssItem struct {
	Title   string `xml:"title"`
	Link    string `xml:"link"`
	GUID    string `xml:"guid"`
	PubDate string `xml:"pubDate"`
	Desc    string `xml:"description"`
}

// GoogleNewsURL is the Google News RSS search feed for symbol.
func GoogleNewsURL(symbol string) string {
	q := url.QueryEscape(symbol + " stock")
	return "https://news.google.com/rss/search?q=" + q + "&hl=en-US&gl=US&ceid=US:en"
}

// GlobeNewswireURL is the GlobeNewswire keyword feed for symbol.
func GlobeNewswireURL(symbol string) string {
	return "https://www.globenewswire.com/RssFeed/keyword/" + url.PathEscape(symbol) + "/feedTitle/GlobeNewswire.xml"
}

// StatusError is a non-200 feed response.
type StatusError struct {
	Source string
	Code   int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s feed: status %d", e.Source, e.Code)
}

// Transient reports whether retrying the request may succeed.
func (e *StatusError) Transient() bool {
	return e.Code >= 500 || e.Code == http.StatusTooManyRequests
}

var rssTimeLayouts = []string{
	time.RFC1123Z,
	time.RFC1123,
	"Mon, 02 Jan 2006 15:04 MST",
}

// FetchRSS reads an RSS feed and returns the items published in
// [start, end]. Descriptions are kept as HTML.
func FetchRSS(ctx context.Context, feedURL, source, symbol string, start, end time.Time) ([]domain.Article, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, feedURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", "Mozilla/5.0")

	resp, err := httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, &StatusError{Source: source, Code: resp.StatusCode}
	}

	var rss rssResponse
	if err := xml.NewDecoder(resp.Body).Decode(&rss); err != nil {
		return nil, fmt.Errorf("decoding %s feed: %w", source, err)
	}

	var articles []domain.Article
	for _, item := range rss.Channel.Items {
		t, ok := parseRSSTime(item.PubDate)
		if !ok || t.Before(start) || t.After(end) {
			continue
		}
		headline := item.Title
		if source == "google" {
			// Google appends " - Publisher".
			if idx := strings.LastIndex(headline, " - "); idx > 0 {
				headline = headline[:idx]
			}
		}
		id := item.GUID
		if id == "" {
			id = item.Link
		}
		a := domain.Article{
			ID:       id,
			Time:     t.UTC(),
			Source:   source,
			Headline: headline,
			Summary:  StripHTML(item.Desc),
			Content:  item.Desc,
			URL:      item.Link,
		}
		if symbol != "" {
			a.Symbols = []string{strings.ToUpper(symbol)}
		}
		articles = append(articles, a)
	}
	return articles, nil
}

func parseRSSTime(s string) (time.Time, bool) {
	for _, layout := range rssTimeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// --- HTML helpers ---

var htmlTagRe = regexp.MustCompile(`<[^>]*>`)

// StripHTML removes HTML tags and normalizes whitespace.
func StripHTML(s string) string {
	s = htmlTagRe.ReplaceAllString(s, " ")
	s = html.UnescapeString(s)
	fields := strings.Fields(s)
	return strings.Join(fields, " ")
}
