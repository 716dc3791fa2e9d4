package source

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/sony/gobreaker"

	"github.com/ParminderSinghGithub/WeatherScope-CloudCommanders/internal/metrics"
)

var (
	errRateLimited = errors.New("rate limited")
	errServerError = errors.New("server error")
	errCircuitOpen = errors.New("circuit breaker open")
)

// Doer executes upstream HTTP requests with a circuit breaker and bounded
// exponential retry. Non-retryable statuses (4xx other than 429) fail
// immediately.
type Doer struct {
	name       string
	client     *http.Client
	circuit    *gobreaker.CircuitBreaker
	maxElapsed time.Duration
}

// NewDoer creates a Doer named after the upstream it guards.
func NewDoer(client *http.Client, name string, maxElapsed time.Duration) *Doer {
	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        name,
		MaxRequests: 5,
		Interval:    1 * time.Minute,
		Timeout:     2 * time.Minute,
	})
	return &Doer{
		name:       name,
		client:     client,
		circuit:    cb,
		maxElapsed: maxElapsed,
	}
}

// Do builds and executes the request, retrying transient failures until
// maxElapsed. The response body is the caller's to close.
func (d *Doer) Do(ctx context.Context, buildRequest func() (*http.Request, error)) (*http.Response, error) {
	var resp *http.Response
	start := time.Now()

	operation := func() error {
		req, err := buildRequest()
		if err != nil {
			return backoff.Permanent(err)
		}
		req = req.WithContext(ctx)

		result, err := d.circuit.Execute(func() (interface{}, error) {
			r, execErr := d.client.Do(req)
			if execErr != nil {
				return nil, execErr
			}
			switch {
			case r.StatusCode == http.StatusTooManyRequests:
				drain(r)
				return nil, errRateLimited
			case r.StatusCode >= 500:
				drain(r)
				return nil, errServerError
			case r.StatusCode < 200 || r.StatusCode >= 300:
				drain(r)
				return nil, backoff.Permanent(fmt.Errorf("unexpected status %d from %s", r.StatusCode, d.name))
			}
			return r, nil
		})
		if err != nil {
			if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
				return backoff.Permanent(fmt.Errorf("%w: %v", errCircuitOpen, err))
			}
			return err
		}

		resp = result.(*http.Response)
		return nil
	}

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = 500 * time.Millisecond
	bo.MaxInterval = 5 * time.Second
	bo.MaxElapsedTime = d.maxElapsed

	err := backoff.Retry(operation, backoff.WithContext(bo, ctx))

	metrics.UpstreamLatency.WithLabelValues(d.name).Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.UpstreamCallsTotal.WithLabelValues(d.name, "error").Inc()
		return nil, err
	}
	metrics.UpstreamCallsTotal.WithLabelValues(d.name, "ok").Inc()
	return resp, nil
}

func drain(r *http.Response) {
	io.Copy(io.Discard, io.LimitReader(r.Body, 4096))
	r.Body.Close()
}
