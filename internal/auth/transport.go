package auth

import (
	"net/http"
	"path"
	"strconv"
	"time"

	"github.com/okian/seasonpoints/pkg/metrics"
)

// instrumentedTransport records latency and status of every upstream call.
type instrumentedTransport struct {
	base http.RoundTripper
}

func (t *instrumentedTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	start := time.Now()
	resp, err := t.base.RoundTrip(req)
	status := "error"
	if err == nil {
		status = strconv.Itoa(resp.StatusCode)
	}
	metrics.RecordUpstreamRequest(path.Base(req.URL.Path), status, float64(time.Since(start).Milliseconds()))
	return resp, err
}

// instrument returns a shallow copy of c whose transport records metrics.
func instrument(c *http.Client) *http.Client {
	if _, ok := c.Transport.(*instrumentedTransport); ok {
		return c
	}
	base := c.Transport
	if base == nil {
		base = http.DefaultTransport
	}
	out := *c
	out.Transport = &instrumentedTransport{base: base}
	return &out
}
