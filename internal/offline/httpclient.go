package offline

import (
	"context"
	"io"
	"net/http"
	"time"
)

// maxBufferedBody caps how much of an upstream response the gateway will
// buffer. Static assets for this app are small; anything bigger is a
// misconfigured origin.
const maxBufferedBody = 8 << 20

// HTTPClient adapts net/http to the NetworkClient capability.
type HTTPClient struct {
	Client *http.Client
}

func NewHTTPClient(timeout time.Duration) *HTTPClient {
	return &HTTPClient{Client: &http.Client{Timeout: timeout}}
}

func (c *HTTPClient) Do(ctx context.Context, req *Request) (*Response, error) {
	hr, err := http.NewRequestWithContext(ctx, req.Method, req.URL, nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.Client.Do(hr)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBufferedBody))
	if err != nil {
		return nil, err
	}
	return &Response{Status: resp.StatusCode, Header: resp.Header.Clone(), Body: body}, nil
}

// WriteTo copies a buffered response onto a ResponseWriter.
func (r *Response) WriteTo(w http.ResponseWriter) {
	for k, vs := range r.Header {
		for _, v := range vs {
			w.Header().Add(k, v)
		}
	}
	w.WriteHeader(r.Status)
	_, _ = w.Write(r.Body)
}
