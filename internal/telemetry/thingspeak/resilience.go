package thingspeak

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/http"
	"time"

	"github.com/sony/gobreaker"
)

// BackoffConfig controls exponential backoff behaviour.
type BackoffConfig struct {
	MaxRetries      int
	InitialInterval time.Duration
	MaxInterval     time.Duration
}

// DefaultBackoff is used when the caller leaves Options.Backoff empty.
var DefaultBackoff = BackoffConfig{
	MaxRetries:      2,
	InitialInterval: 300 * time.Millisecond,
	MaxInterval:     3 * time.Second,
}

var (
	// ErrUnavailable covers transport failures and an open circuit.
	ErrUnavailable = errors.New("upstream unavailable")
	// ErrUnexpectedStatus is returned for any non-2xx answer.
	ErrUnexpectedStatus = errors.New("unexpected upstream status")
	// ErrMalformedPayload is returned when the body is not a channel feed.
	ErrMalformedPayload = errors.New("malformed upstream payload")

	errNoHTTPClient  = errors.New("http client not configured")
	errInvalidConfig = errors.New("invalid backoff configuration")
)

// statusError keeps the code around so callers can log it.
type statusError struct {
	code int
}

func (e *statusError) Error() string {
	return fmt.Sprintf("%s: %d", ErrUnexpectedStatus, e.code)
}

func (e *statusError) Unwrap() error {
	return ErrUnexpectedStatus
}

// retryable reports whether another attempt could succeed.
func retryable(err error) bool {
	var se *statusError
	if errors.As(err, &se) {
		return se.code == http.StatusTooManyRequests || se.code >= 500
	}
	return true
}

// doRequest executes the request with retries, exponential backoff and a
// circuit breaker. Client-side status errors are not retried.
func doRequest(
	ctx context.Context,
	client *http.Client,
	backoff BackoffConfig,
	cb *gobreaker.CircuitBreaker,
	buildRequest func(ctx context.Context) (*http.Request, error),
) (*http.Response, error) {
	if client == nil {
		return nil, errNoHTTPClient
	}
	if backoff.MaxRetries < 0 || backoff.InitialInterval <= 0 {
		return nil, errInvalidConfig
	}

	for attempt := 0; ; attempt++ {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}

		req, err := buildRequest(ctx)
		if err != nil {
			return nil, err
		}

		result, err := cb.Execute(func() (interface{}, error) {
			resp, execErr := client.Do(req)
			if execErr != nil {
				return nil, fmt.Errorf("%w: %v", ErrUnavailable, execErr)
			}
			if resp.StatusCode < 200 || resp.StatusCode >= 300 {
				resp.Body.Close()
				return nil, &statusError{code: resp.StatusCode}
			}
			return resp, nil
		})
		if err == nil {
			resp, ok := result.(*http.Response)
			if !ok {
				return nil, fmt.Errorf("unexpected result type from circuit breaker")
			}
			return resp, nil
		}

		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, fmt.Errorf("%w: circuit %s: %v", ErrUnavailable, cb.Name(), err)
		}
		if attempt >= backoff.MaxRetries || !retryable(err) {
			return nil, err
		}

		delay := backoff.InitialInterval * time.Duration(math.Pow(2, float64(attempt)))
		if backoff.MaxInterval > 0 && delay > backoff.MaxInterval {
			delay = backoff.MaxInterval
		}

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}
	}
}
