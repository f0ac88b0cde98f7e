package rasp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/passbi/passbi_itinerary/internal/models"
	"github.com/passbi/passbi_itinerary/internal/provider"
	"golang.org/x/sync/singleflight"
)

const (
	DefaultBaseURL = "https://api.rasp.yandex.net/v3.0"
	DefaultLang    = "ru_RU"

	pageSize = 100
)

// Config holds Yandex Rasp client settings
type Config struct {
	BaseURL string
	APIKey  string
	Lang    string
	Timeout time.Duration
}

// Client resolves places and fetches legs from the Yandex Rasp API.
// The settlement directory is downloaded once per client.
type Client struct {
	baseURL     string
	apiKey      string
	lang        string
	session     *http.Client
	timeout     time.Duration
	observer    provider.FetchObserver
	maxAttempts int
	backoff     time.Duration

	group     singleflight.Group
	mu        sync.RWMutex
	directory []models.Place
}

// Option customizes a Client
type Option func(*Client)

// WithHTTPClient replaces the default HTTP client
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.session = h }
}

// WithObserver reports call outcomes, typically to metrics
func WithObserver(o provider.FetchObserver) Option {
	return func(c *Client) { c.observer = o }
}

// WithRetry overrides the attempt count and initial backoff
func WithRetry(attempts int, backoff time.Duration) Option {
	return func(c *Client) {
		c.maxAttempts = attempts
		c.backoff = backoff
	}
}

// New creates a client
func New(cfg Config, opts ...Option) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Lang == "" {
		cfg.Lang = DefaultLang
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}

	c := &Client{
		baseURL:     strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:      cfg.APIKey,
		lang:        cfg.Lang,
		session:     &http.Client{Timeout: cfg.Timeout},
		timeout:     cfg.Timeout,
		maxAttempts: 4,
		backoff:     200 * time.Millisecond,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Resolve returns the settlement whose title equals name exactly
func (c *Client) Resolve(ctx context.Context, name string) (models.Place, error) {
	name = strings.TrimSpace(name)

	places, err := c.places(ctx)
	if err != nil {
		return models.Place{}, err
	}

	for _, p := range places {
		if p.Name == name {
			return p, nil
		}
	}
	return models.Place{}, models.NotFoundError{Resource: "place", Name: name}
}

// SearchPlaces lists settlements whose title starts with query, ignoring case
func (c *Client) SearchPlaces(ctx context.Context, query string, limit int) ([]models.Place, error) {
	if limit <= 0 {
		limit = 10
	}
	prefix := strings.ToLower(strings.TrimSpace(query))

	places, err := c.places(ctx)
	if err != nil {
		return nil, err
	}

	out := []models.Place{}
	for _, p := range places {
		if strings.HasPrefix(strings.ToLower(p.Name), prefix) {
			out = append(out, p)
			if len(out) == limit {
				break
			}
		}
	}
	return out, nil
}

// places returns the settlement directory, sharing one download between
// concurrent callers. The download outlives any single caller: a caller whose
// ctx ends stops waiting, the others still get the directory.
func (c *Client) places(ctx context.Context) ([]models.Place, error) {
	c.mu.RLock()
	dir := c.directory
	c.mu.RUnlock()
	if dir != nil {
		return dir, nil
	}

	ch := c.group.DoChan("stations_list", func() (interface{}, error) {
		dctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.timeout*time.Duration(max(c.maxAttempts, 1)))
		defer cancel()

		dir, err := c.loadDirectory(dctx)
		if err != nil {
			return nil, err
		}
		c.mu.Lock()
		c.directory = dir
		c.mu.Unlock()
		return dir, nil
	})

	select {
	case <-ctx.Done():
		return nil, models.FetchError{Err: fmt.Errorf("stations list: %w", ctx.Err())}
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.([]models.Place), nil
	}
}

func (c *Client) loadDirectory(ctx context.Context) (_ []models.Place, err error) {
	start := time.Now()
	defer func() { c.observe("stations_list", start, err) }()

	resp, err := c.doWithRetry(ctx, func() (*http.Request, error) {
		return c.newRequest(ctx, "/stations_list/", url.Values{"lang": {c.lang}})
	})
	if err != nil {
		return nil, models.FetchError{Err: fmt.Errorf("stations list: %w", err)}
	}
	defer resp.Body.Close()

	var decoded stationsListResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, models.FetchError{Err: fmt.Errorf("decode stations list: %w", err)}
	}

	places := []models.Place{}
	for _, country := range decoded.Countries {
		for _, region := range country.Regions {
			for _, s := range region.Settlements {
				if s.Codes.YandexCode == "" {
					continue
				}
				places = append(places, models.Place{Code: s.Codes.YandexCode, Name: s.Title})
			}
		}
	}

	log.Printf("Loaded %d settlements from stations list", len(places))
	return places, nil
}

// FetchLegs returns every segment from -> to on the UTC day of notBefore,
// following pagination. A 404 from the provider means there is no service.
func (c *Client) FetchLegs(ctx context.Context, from, to string, notBefore time.Time) (_ []models.LegCandidate, err error) {
	start := time.Now()
	defer func() { c.observe("search", start, err) }()

	date := notBefore.UTC().Format("2006-01-02")
	legs := []models.LegCandidate{}

	for offset := 0; ; {
		page, pageErr := c.searchPage(ctx, from, to, date, offset)
		if pageErr != nil {
			var he *httpStatusError
			if errors.As(pageErr, &he) && he.Code == http.StatusNotFound {
				return legs, nil
			}
			return nil, models.FetchError{From: from, To: to, Err: pageErr}
		}

		for _, seg := range page.Segments {
			leg, convErr := seg.toLeg(from, to)
			if convErr != nil {
				log.Printf("Warning: skipping segment %s->%s: %v", from, to, convErr)
				continue
			}
			legs = append(legs, leg)
		}

		offset += len(page.Segments)
		if len(page.Segments) == 0 || offset >= page.Pagination.Total {
			break
		}
	}

	return legs, nil
}

func (c *Client) searchPage(ctx context.Context, from, to, date string, offset int) (*searchResponse, error) {
	resp, err := c.doWithRetry(ctx, func() (*http.Request, error) {
		return c.newRequest(ctx, "/search/", url.Values{
			"from":   {from},
			"to":     {to},
			"date":   {date},
			"lang":   {c.lang},
			"limit":  {strconv.Itoa(pageSize)},
			"offset": {strconv.Itoa(offset)},
		})
	})
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var decoded searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, fmt.Errorf("decode search response: %w", err)
	}
	return &decoded, nil
}

func (c *Client) observe(operation string, start time.Time, err error) {
	if c.observer != nil {
		c.observer.ObserveFetch(operation, time.Since(start), err)
	}
}
