package scholar

import (
	"context"
	"fmt"
	"io"
	"math/rand/v2"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/time/rate"

	"github.com/mkoval/scholarcsv/internal/model"
)

const (
	// DefaultBaseURL is the Google Scholar endpoint.
	DefaultBaseURL = "https://scholar.google.com"

	// DefaultUserAgent identifies fetches from this tool.
	DefaultUserAgent = "Mozilla/5.0 (compatible; scholarcsv/1.0)"

	// DefaultTimeout is the per-request HTTP timeout.
	DefaultTimeout = 30 * time.Second

	// Post-fetch pacing window: a uniformly random delay in
	// [DefaultDelayMin, DefaultDelayMax] follows every successful fetch.
	DefaultDelayMin = 600 * time.Millisecond
	DefaultDelayMax = 1400 * time.Millisecond

	// requestsPerSecond caps the steady-state fetch rate independently
	// of the jittered delay.
	requestsPerSecond = 2.0

	// pageSize is the profile publication-list page size.
	pageSize = 100
)

// Client is a rate-limited scraping client for Google Scholar profiles.
type Client struct {
	httpClient     *http.Client
	limiter        *rate.Limiter
	cache          *PageCache
	baseURL        string
	userAgent      string
	delayMin       time.Duration
	delayMax       time.Duration
	useBrowser     bool
	browserTimeout time.Duration
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) { c.httpClient = hc }
}

// WithBaseURL overrides the Scholar endpoint (for testing).
func WithBaseURL(base string) ClientOption {
	return func(c *Client) { c.baseURL = strings.TrimSuffix(base, "/") }
}

// WithCache attaches a page cache consulted before every fetch.
func WithCache(cache *PageCache) ClientOption {
	return func(c *Client) { c.cache = cache }
}

// WithDelayWindow sets the jittered post-fetch delay bounds.
func WithDelayWindow(min, max time.Duration) ClientOption {
	return func(c *Client) {
		if min > 0 && max >= min {
			c.delayMin, c.delayMax = min, max
		}
	}
}

// WithBrowserFallback enables headless-browser rendering when a plain
// fetch hits a bot wall. Requires Chrome/Chromium on the host.
func WithBrowserFallback(timeout time.Duration) ClientOption {
	return func(c *Client) {
		c.useBrowser = true
		c.browserTimeout = timeout
	}
}

// NewClient creates a Scholar client.
func NewClient(opts ...ClientOption) *Client {
	c := &Client{
		httpClient:     &http.Client{Timeout: DefaultTimeout},
		limiter:        rate.NewLimiter(rate.Limit(requestsPerSecond), 1),
		baseURL:        DefaultBaseURL,
		userAgent:      DefaultUserAgent,
		delayMin:       DefaultDelayMin,
		delayMax:       DefaultDelayMax,
		browserTimeout: 60 * time.Second,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// SearchAuthor fetches an author's profile page and returns the raw
// profile record, including the passed-through summary indices.
func (c *Client) SearchAuthor(ctx context.Context, authorID string) (model.RawAuthor, error) {
	pageURL := fmt.Sprintf("%s/citations?hl=en&user=%s", c.baseURL, url.QueryEscape(authorID))
	doc, err := c.fetchDocument(ctx, pageURL)
	if err != nil {
		return nil, err
	}

	name := strings.TrimSpace(doc.Find("#gsc_prf_in").First().Text())
	if name == "" {
		return nil, fmt.Errorf("%w: %s", ErrAuthorNotFound, authorID)
	}

	author := model.RawAuthor{
		"scholar_id":  authorID,
		"name":        name,
		"affiliation": strings.TrimSpace(doc.Find(".gsc_prf_il").First().Text()),
	}

	// Stats table rows: citations / h-index / i10-index, each with an
	// all-time and a recent column; the all-time column is the first.
	stats := doc.Find("td.gsc_rsb_std")
	for i, key := range []string{"citedby", "", "hindex", "", "i10index", ""} {
		if key == "" {
			continue
		}
		if v, err := strconv.Atoi(strings.TrimSpace(stats.Eq(i).Text())); err == nil {
			author[key] = v
		}
	}
	return author, nil
}

// AuthorPublications pages through the profile's publication table and
// returns shallow raw records.
func (c *Client) AuthorPublications(ctx context.Context, author model.RawAuthor) ([]model.RawPublication, error) {
	authorID, _ := author["scholar_id"].(string)
	if authorID == "" {
		return nil, fmt.Errorf("raw author record has no scholar_id")
	}

	var pubs []model.RawPublication
	for start := 0; ; start += pageSize {
		pageURL := fmt.Sprintf("%s/citations?hl=en&user=%s&cstart=%d&pagesize=%d",
			c.baseURL, url.QueryEscape(authorID), start, pageSize)
		doc, err := c.fetchDocument(ctx, pageURL)
		if err != nil {
			return nil, err
		}

		rows := doc.Find("tr.gsc_a_tr")
		rows.Each(func(_ int, row *goquery.Selection) {
			link := row.Find("a.gsc_a_at").First()
			title := strings.TrimSpace(link.Text())
			if title == "" {
				return
			}

			bib := map[string]any{"title": title}
			gray := row.Find(".gs_gray")
			if authors := strings.TrimSpace(gray.Eq(0).Text()); authors != "" {
				bib["author"] = authors
			}
			if venue := strings.TrimSpace(gray.Eq(1).Text()); venue != "" {
				bib["journal"] = venue
			}
			if year := strings.TrimSpace(row.Find(".gsc_a_y span").First().Text()); year != "" {
				bib["pub_year"] = year
			}

			pub := model.RawPublication{"bib": bib}
			if href, ok := link.Attr("href"); ok {
				pub["detail_url"] = href
			}
			if cited := strings.TrimSpace(row.Find(".gsc_a_c a").First().Text()); cited != "" {
				if n, err := strconv.Atoi(cited); err == nil {
					pub["num_citations"] = n
				}
			}
			pubs = append(pubs, pub)
		})

		if rows.Length() < pageSize {
			break
		}
	}
	return pubs, nil
}

// FillPublication fetches the publication detail page and returns an
// enriched copy of the record with bibliographic fields and per-year
// citation counts. The input record is not mutated.
func (c *Client) FillPublication(ctx context.Context, pub model.RawPublication) (model.RawPublication, error) {
	detail, _ := pub["detail_url"].(string)
	if detail == "" {
		return nil, fmt.Errorf("raw publication record has no detail_url")
	}
	pageURL := detail
	if !strings.Contains(pageURL, "://") {
		pageURL = c.baseURL + detail
	}

	doc, err := c.fetchDocument(ctx, pageURL)
	if err != nil {
		return nil, err
	}

	filled := clonePublication(pub)
	bib, _ := filled["bib"].(map[string]any)
	if bib == nil {
		bib = map[string]any{}
		filled["bib"] = bib
	}

	doc.Find("#gsc_oci_table div.gs_scl").Each(func(_ int, field *goquery.Selection) {
		name := strings.ToLower(strings.TrimSpace(field.Find(".gsc_oci_field").Text()))
		value := strings.TrimSpace(field.Find(".gsc_oci_value").Text())
		if value == "" {
			return
		}
		switch name {
		case "authors", "inventors":
			bib["author"] = value
		case "journal", "conference", "source", "book", "publisher":
			if _, exists := bib["journal"]; !exists || name == "journal" {
				bib["journal"] = value
			}
		case "publication date":
			if year, _, found := strings.Cut(value, "/"); found || len(value) == 4 {
				bib["pub_year"] = year
			}
		case "pages":
			bib["pages"] = value
		case "total citations":
			// Value reads "Cited by N"; the link text is the count.
			cited := strings.TrimSpace(field.Find(".gsc_oci_value a").First().Text())
			if n, err := strconv.Atoi(strings.TrimPrefix(cited, "Cited by ")); err == nil {
				filled["num_citations"] = n
			}
		}
	})

	cites := map[int]int{}
	doc.Find("a.gsc_oci_g_a").Each(func(_ int, bar *goquery.Selection) {
		href, _ := bar.Attr("href")
		year, ok := yearFromGraphHref(href)
		if !ok {
			return
		}
		count, err := strconv.Atoi(strings.TrimSpace(bar.Find(".gsc_oci_g_al").Text()))
		if err != nil {
			return
		}
		cites[year] = count
	})
	if len(cites) > 0 {
		filled["cites_per_year"] = cites
	}
	return filled, nil
}

// fetchDocument retrieves a page (via cache when possible) and parses it.
func (c *Client) fetchDocument(ctx context.Context, pageURL string) (*goquery.Document, error) {
	html, err := c.fetchPage(ctx, pageURL)
	if err != nil {
		return nil, err
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, &Error{URL: pageURL, Message: "failed to parse HTML", Cause: err}
	}
	return doc, nil
}

func (c *Client) fetchPage(ctx context.Context, pageURL string) (string, error) {
	if c.cache != nil {
		if html, ok, err := c.cache.Get(pageURL); err == nil && ok {
			return html, nil
		}
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return "", &Error{URL: pageURL, Message: "rate limiter interrupted", Cause: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return "", &Error{URL: pageURL, Message: "failed to create request", Cause: err}
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept-Language", "en")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", &Error{URL: pageURL, Message: "HTTP request failed", Cause: err, Retryable: true}
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return "", &Error{
			URL:       pageURL,
			Message:   fmt.Sprintf("unexpected status %d", resp.StatusCode),
			Retryable: resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500,
		}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", &Error{URL: pageURL, Message: "failed to read response body", Cause: err, Retryable: true}
	}
	html := string(body)

	if looksLikeBotWall(html) {
		if c.useBrowser {
			html, err = fetchWithBrowser(ctx, pageURL, c.browserTimeout)
			if err != nil {
				return "", &Error{URL: pageURL, Message: "browser fallback failed", Cause: err, Retryable: true}
			}
		} else {
			return "", &Error{URL: pageURL, Message: "bot wall detected", Retryable: true}
		}
	}

	if c.cache != nil {
		_ = c.cache.Put(pageURL, html)
	}

	// Voluntary pacing after every successful fetch.
	sleepJitter(ctx, c.delayMin, c.delayMax)
	return html, nil
}

// looksLikeBotWall reports whether the response is a captcha/abuse page
// rather than profile content.
func looksLikeBotWall(html string) bool {
	return strings.Contains(html, "gs_captcha") ||
		strings.Contains(html, "unusual traffic from your computer network")
}

// yearFromGraphHref extracts the year from a citation-graph bar link,
// which carries it in the as_ylo query parameter.
func yearFromGraphHref(href string) (int, bool) {
	u, err := url.Parse(href)
	if err != nil {
		return 0, false
	}
	year, err := strconv.Atoi(u.Query().Get("as_ylo"))
	if err != nil {
		return 0, false
	}
	return year, true
}

func clonePublication(pub model.RawPublication) model.RawPublication {
	out := make(model.RawPublication, len(pub)+2)
	for k, v := range pub {
		if k == "bib" {
			continue
		}
		out[k] = v
	}
	if bib, ok := pub["bib"].(map[string]any); ok {
		copied := make(map[string]any, len(bib))
		for k, v := range bib {
			copied[k] = v
		}
		out["bib"] = copied
	}
	return out
}

// sleepJitter blocks for a uniformly random duration in [min, max],
// returning early if the context is cancelled.
func sleepJitter(ctx context.Context, min, max time.Duration) {
	d := min
	if max > min {
		d += rand.N(max - min)
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}
