package moderation

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"access_places/internal/adapters/observability"
	"access_places/internal/domain"
)

// Client calls the content-moderation service before a review comment is
// accepted for ingestion. Only the boolean verdict is ours; the classifier
// behind it is not.
type Client struct {
	base string
	hc   *http.Client
	rl   *rate.Limiter
}

func New(base string, rps int) *Client {
	if rps <= 0 {
		rps = 10
	}
	return &Client{
		base: strings.TrimRight(base, "/"),
		hc:   &http.Client{Timeout: 10 * time.Second},
		rl:   rate.NewLimiter(rate.Limit(rps), rps),
	}
}

type checkRequest struct {
	Text string `json:"text"`
}

type checkResponse struct {
	IsClean bool `json:"isClean"`
}

func (c *Client) Check(ctx context.Context, text string) (domain.Verdict, error) {
	if err := c.rl.Wait(ctx); err != nil {
		return domain.Verdict{}, err
	}

	body, err := json.Marshal(checkRequest{Text: text})
	if err != nil {
		return domain.Verdict{}, err
	}

	var lastErr error
	for i := 0; i < 3; i++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.base+"/v1/validate", bytes.NewReader(body))
		if err != nil {
			return domain.Verdict{}, err
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Accept", "application/json")

		start := time.Now()
		resp, err := c.hc.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return domain.Verdict{}, ctx.Err()
			}
			lastErr = err
			if i < 2 && sleepCtx(ctx, backoff(i)) {
				continue
			}
			return domain.Verdict{}, lastErr
		}
		observability.ObserveExternal("moderation", "validate", resp.StatusCode, time.Since(start))

		switch resp.StatusCode {
		case http.StatusOK:
			var out checkResponse
			err := json.NewDecoder(resp.Body).Decode(&out)
			resp.Body.Close()
			if err != nil {
				return domain.Verdict{}, err
			}
			return domain.Verdict{IsClean: out.IsClean}, nil

		case http.StatusTooManyRequests, http.StatusInternalServerError,
			http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
			resp.Body.Close()
			lastErr = fmt.Errorf("moderation remote %d", resp.StatusCode)
			if i < 2 && sleepCtx(ctx, backoff(i)) {
				continue
			}
			return domain.Verdict{}, lastErr

		default:
			b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
			resp.Body.Close()
			return domain.Verdict{}, fmt.Errorf("moderation bad status %d: %s", resp.StatusCode, strings.TrimSpace(string(b)))
		}
	}

	return domain.Verdict{}, lastErr
}

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

func backoff(i int) time.Duration {
	return time.Duration(1<<i) * 150 * time.Millisecond
}

// AllowAll passes every text. Wired in when no moderation endpoint is
// configured, so local development doesn't require the classifier service.
type AllowAll struct{}

func (AllowAll) Check(ctx context.Context, text string) (domain.Verdict, error) {
	return domain.Verdict{IsClean: true}, nil
}
