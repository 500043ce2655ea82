package host

import (
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"github.com/edgeopslabs/appkit/pkg/config"
)

// rateLimitedTransport holds every outbound request until the limiter
// admits it or the request context ends.
type rateLimitedTransport struct {
	limiter *rate.Limiter
	next    http.RoundTripper
}

func (t *rateLimitedTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if err := t.limiter.Wait(req.Context()); err != nil {
		return nil, err
	}
	return t.next.RoundTrip(req)
}

func newHTTPClient(cfg config.HTTPConfig) *http.Client {
	var transport http.RoundTripper = http.DefaultTransport
	if cfg.RequestsPerSecond > 0 {
		burst := cfg.Burst
		if burst <= 0 {
			burst = 1
		}
		transport = &rateLimitedTransport{
			limiter: rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), burst),
			next:    transport,
		}
	}
	return &http.Client{
		Timeout:   time.Duration(cfg.TimeoutSeconds) * time.Second,
		Transport: transport,
	}
}
