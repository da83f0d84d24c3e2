// internal/adapters/places/client.go
package places

import (
	"context"
	crand "crypto/rand"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"access_places/internal/adapters/observability"
	"access_places/internal/domain"
)

// Client talks to the place-lookup service (a Google-Places-style API):
// free text in, ranked candidates out; candidate id in, canonical metadata
// out. It is only ever consulted when a place is first created.
type Client struct {
	base string
	hc   *http.Client
	key  string
	rl   *rate.Limiter
}

func New(base, key string, rps int) (*Client, error) {
	if key == "" {
		return nil, fmt.Errorf("API key is required")
	}
	if rps <= 0 {
		rps = 5
	}
	return &Client{
		base: strings.TrimRight(base, "/"),
		hc:   &http.Client{Timeout: 20 * time.Second},
		key:  key,
		rl:   rate.NewLimiter(rate.Limit(rps), rps),
	}, nil
}

var (
	ErrNotFound     = errors.New("places: not found")
	ErrUnauthorized = errors.New("places: unauthorized")
	ErrForbidden    = errors.New("places: forbidden")
)

func (c *Client) Autocomplete(ctx context.Context, input string) ([]domain.Suggestion, error) {
	if strings.TrimSpace(input) == "" {
		return nil, nil
	}
	q := url.Values{}
	q.Set("input", input)
	q.Set("key", c.key)

	var out struct {
		Predictions []struct {
			PlaceID     string `json:"place_id"`
			Description string `json:"description"`
		} `json:"predictions"`
	}
	if err := c.get(ctx, c.base+"/autocomplete/json?"+q.Encode(), "autocomplete", &out); err != nil {
		return nil, err
	}

	sugg := make([]domain.Suggestion, 0, len(out.Predictions))
	for _, p := range out.Predictions {
		sugg = append(sugg, domain.Suggestion{PlaceID: p.PlaceID, Description: p.Description})
	}
	return sugg, nil
}

func (c *Client) Details(ctx context.Context, placeID string) (domain.PlaceDetails, error) {
	q := url.Values{}
	q.Set("place_id", placeID)
	q.Set("fields", "name,formatted_address,types,photos,editorial_summary")
	q.Set("key", c.key)

	var out struct {
		Result struct {
			Name             string   `json:"name"`
			FormattedAddress string   `json:"formatted_address"`
			Types            []string `json:"types"`
			Photos           []struct {
				PhotoReference string `json:"photo_reference"`
			} `json:"photos"`
			EditorialSummary *struct {
				Overview string `json:"overview"`
			} `json:"editorial_summary"`
		} `json:"result"`
		Status string `json:"status"`
	}
	if err := c.get(ctx, c.base+"/details/json?"+q.Encode(), "details", &out); err != nil {
		return domain.PlaceDetails{}, err
	}
	if out.Result.Name == "" {
		return domain.PlaceDetails{}, ErrNotFound
	}

	d := domain.PlaceDetails{
		Name:    out.Result.Name,
		Address: out.Result.FormattedAddress,
		Types:   out.Result.Types,
	}
	if len(out.Result.Photos) > 0 && out.Result.Photos[0].PhotoReference != "" {
		u := c.photoURL(out.Result.Photos[0].PhotoReference)
		d.Image = &u
	}
	if es := out.Result.EditorialSummary; es != nil && es.Overview != "" {
		s := es.Overview
		d.Description = &s
	}
	return d, nil
}

// photoURL builds a stable representative-image URL from a photo reference.
func (c *Client) photoURL(ref string) string {
	q := url.Values{}
	q.Set("maxwidth", "1000")
	q.Set("photoreference", ref)
	q.Set("key", c.key)
	return c.base + "/photo?" + q.Encode()
}

// get performs a GET with client-side rate limiting, retries on 429 and
// transient 5xx (honoring Retry-After), and a JSON decode into out.
func (c *Client) get(ctx context.Context, u, endpoint string, out any) error {
	if err := c.rl.Wait(ctx); err != nil {
		return err
	}

	var lastErr error
	for i := 0; i < 4; i++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
		if err != nil {
			return err
		}
		req.Header.Set("Accept", "application/json")
		req.Header.Set("User-Agent", "access-places/1.0")

		start := time.Now()
		resp, err := c.hc.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			lastErr = err
			if i < 3 && sleepCtx(ctx, backoff(i)) {
				continue
			}
			return lastErr
		}
		observability.ObserveExternal("places", endpoint, resp.StatusCode, time.Since(start))

		switch resp.StatusCode {
		case http.StatusOK:
			err := json.NewDecoder(resp.Body).Decode(out)
			resp.Body.Close()
			return err

		case http.StatusNotFound:
			resp.Body.Close()
			return ErrNotFound

		case http.StatusUnauthorized:
			resp.Body.Close()
			return ErrUnauthorized

		case http.StatusForbidden:
			resp.Body.Close()
			return ErrForbidden

		case http.StatusTooManyRequests, http.StatusInternalServerError,
			http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
			wait := retryAfter(resp)
			resp.Body.Close()
			if wait == 0 {
				wait = backoff(i)
			}
			lastErr = fmt.Errorf("remote %d", resp.StatusCode)
			if i < 3 && sleepCtx(ctx, wait) {
				continue
			}
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return lastErr

		default:
			b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
			resp.Body.Close()
			return fmt.Errorf("bad status %d: %s", resp.StatusCode, strings.TrimSpace(string(b)))
		}
	}

	return lastErr
}

// sleepCtx waits for d or returns early if ctx is done.
func sleepCtx(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return true
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

// retryAfter parses Retry-After (seconds or HTTP-date). 0 if absent/invalid.
func retryAfter(resp *http.Response) time.Duration {
	h := resp.Header.Get("Retry-After")
	if h == "" {
		return 0
	}
	if secs, err := strconv.Atoi(strings.TrimSpace(h)); err == nil && secs >= 0 {
		return time.Duration(secs) * time.Second
	}
	if t, err := http.ParseTime(h); err == nil {
		if d := time.Until(t); d > 0 {
			return d
		}
	}
	return 0
}

// backoff doubles per attempt (200ms, 400ms, 800ms...) with up to +50%
// jitter so retrying workers don't align.
func backoff(i int) time.Duration {
	base := time.Duration(1<<i) * 200 * time.Millisecond
	var b [1]byte
	if _, err := crand.Read(b[:]); err != nil {
		return base
	}
	f := float64(b[0]) / 255.0
	j := time.Duration(0.5 * f * float64(base))
	return base + j
}
