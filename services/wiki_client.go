package services

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/time/rate"

	"github.com/benson/survivor/logging"
)

// WikiClient fetches season pages from the show's fan wiki. Requests are
// rate limited to one every couple of seconds; the wiki is a shared
// resource and roster syncs are in no hurry.
type WikiClient struct {
	client  *http.Client
	baseURL string
	limiter *rate.Limiter
	logger  *logging.Logger
}

func NewWikiClient(baseURL string) *WikiClient {
	return &WikiClient{
		client:  &http.Client{Timeout: 15 * time.Second},
		baseURL: strings.TrimRight(baseURL, "/"),
		limiter: rate.NewLimiter(rate.Every(2*time.Second), 1),
		logger:  logging.WithPrefix("WikiClient"),
	}
}

// FetchPage downloads one wiki page and returns the parsed document.
func (w *WikiClient) FetchPage(ctx context.Context, page string) (*goquery.Document, error) {
	if err := w.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	pageURL := fmt.Sprintf("%s/wiki/%s", w.baseURL, url.PathEscape(page))
	w.logger.Debugf("Fetching %s", pageURL)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build wiki request: %w", err)
	}
	req.Header.Set("User-Agent", "survivor-pool/1.0 (roster sync)")

	resp, err := w.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch wiki page %s: %w", page, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("wiki returned status %d for page %s", resp.StatusCode, page)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to parse wiki page %s: %w", page, err)
	}
	return doc, nil
}

// HealthCheck verifies the wiki is reachable.
func (w *WikiClient) HealthCheck() bool {
	req, err := http.NewRequest(http.MethodHead, w.baseURL, nil)
	if err != nil {
		return false
	}

	resp, err := w.client.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()

	return resp.StatusCode < http.StatusInternalServerError
}
