package betsapi

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"math"
	"net/http"
	"net/url"
	"time"

	"github.com/adelgado/qlines/internal/domain"
	"golang.org/x/time/rate"
)

const (
	defaultBase = "https://api.b365api.com"

	// BetsAPI cobra por request y limita ~3600/h por token. El limiter del
	// feed inplay manda: es el que se consulta hasta 1/s cerca de ventanas.
	inplayRatePerSec = 1
	slowRatePerSec   = 0.5 // upcoming / result: endpoints de baja frecuencia

	maxRetries    = 3
	baseRetryWait = 500 * time.Millisecond
)

// Client es el HTTP client de BetsAPI con rate limiting y retries.
type Client struct {
	http          *http.Client
	base          string
	token         string
	inplayLimiter *rate.Limiter
	slowLimiter   *rate.Limiter

	targetLeagues  []string
	blockedLeagues []string
}

// NewClient crea un Client para el base URL dado. Si base está vacío usa el
// URL de producción. El token nunca se loggea.
func NewClient(base, token string, targetLeagues, blockedLeagues []string) *Client {
	if base == "" {
		base = defaultBase
	}
	return &Client{
		http:           &http.Client{Timeout: 10 * time.Second},
		base:           base,
		token:          token,
		inplayLimiter:  rate.NewLimiter(inplayRatePerSec, 2),
		slowLimiter:    rate.NewLimiter(slowRatePerSec, 1),
		targetLeagues:  lower(targetLeagues),
		blockedLeagues: lower(blockedLeagues),
	}
}

// envelope es la respuesta estándar de BetsAPI.
type envelope struct {
	Success int             `json:"success"`
	Results json.RawMessage `json:"results"`
}

// get hace un GET con rate limiting y retries, y devuelve el campo results.
func (c *Client) get(ctx context.Context, limiter *rate.Limiter, path string, params url.Values) (json.RawMessage, error) {
	if params == nil {
		params = url.Values{}
	}
	params.Set("token", c.token)
	reqURL := c.base + path + "?" + params.Encode()

	var env envelope
	if err := c.doWithRetry(ctx, limiter, reqURL, &env); err != nil {
		return nil, err
	}
	if env.Success != 1 {
		return nil, fmt.Errorf("betsapi: %s returned success=%d", path, env.Success)
	}
	return env.Results, nil
}

// doWithRetry ejecuta el request con backoff exponencial y jitter.
func (c *Client) doWithRetry(ctx context.Context, limiter *rate.Limiter, reqURL string, out any) error {
	for attempt := 0; attempt <= maxRetries; attempt++ {
		if err := limiter.Wait(ctx); err != nil {
			return fmt.Errorf("rate limiter: %w", err)
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
		if err != nil {
			return err
		}
		req.Header.Set("Accept", "application/json")

		resp, err := c.http.Do(req)
		if err != nil {
			if attempt == maxRetries {
				return fmt.Errorf("request failed after %d retries: %w", maxRetries, err)
			}
			c.sleep(ctx, attempt)
			continue
		}

		if resp.StatusCode == http.StatusTooManyRequests {
			resp.Body.Close()
			slog.Warn("rate limited by API", "attempt", attempt+1)
			c.sleep(ctx, attempt)
			continue
		}

		if resp.StatusCode >= 500 {
			resp.Body.Close()
			if attempt == maxRetries {
				return fmt.Errorf("server error %d after %d retries", resp.StatusCode, maxRetries)
			}
			c.sleep(ctx, attempt)
			continue
		}

		if resp.StatusCode >= 400 {
			body, _ := io.ReadAll(resp.Body)
			resp.Body.Close()
			return fmt.Errorf("client error %d: %s", resp.StatusCode, string(body))
		}

		err = json.NewDecoder(resp.Body).Decode(out)
		resp.Body.Close()
		if err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
		return nil
	}
	return fmt.Errorf("exhausted %d retries", maxRetries)
}

// sleep espera con backoff exponencial, respetando el contexto.
func (c *Client) sleep(ctx context.Context, attempt int) {
	wait := time.Duration(math.Pow(2, float64(attempt))) * baseRetryWait
	select {
	case <-time.After(wait):
	case <-ctx.Done():
	}
}

// sourceErr envuelve cualquier fallo de transporte en la taxonomía del loop:
// un poll fallido es "sin transiciones este ciclo", nunca fatal.
func sourceErr(op string, err error) error {
	return fmt.Errorf("betsapi.%s: %w: %w", op, domain.ErrSourceUnavailable, err)
}

func lower(ss []string) []string {
	out := make([]string, 0, len(ss))
	for _, s := range ss {
		out = append(out, toLowerTrim(s))
	}
	return out
}
