package gateway

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// hopByHopHeaders are connection-specific and invalid to replay; they are
// stripped from both the outbound request and the relayed response.
var hopByHopHeaders = map[string]struct{}{
	"connection":          {},
	"keep-alive":          {},
	"proxy-authenticate":  {},
	"proxy-authorization": {},
	"te":                  {},
	"trailers":            {},
	"transfer-encoding":   {},
	"upgrade":             {},
	"host":                {},
}

func isHopByHopHeader(name string) bool {
	_, ok := hopByHopHeaders[strings.ToLower(name)]
	return ok
}

// ProxyRequest carries everything the Forwarder needs from the inbound
// request. Header has already been credential-injected by the pipeline.
type ProxyRequest struct {
	Method string
	Header http.Header
	Query  string
	Body   []byte
}

// ProxyResponse is the completed upstream exchange. Non-2xx statuses are
// still successful exchanges; only transport failures are errors.
type ProxyResponse struct {
	Status int
	Header http.Header
	Body   []byte
}

// Forwarder issues outbound requests to upstream services.
type Forwarder struct {
	client *http.Client
}

// NewForwarder creates a Forwarder with a connect timeout and a separate,
// longer per-exchange timeout. Redirects are not followed: the upstream's
// redirect response is relayed to the caller as-is.
func NewForwarder(connectTimeout, exchangeTimeout time.Duration) *Forwarder {
	return &Forwarder{
		client: &http.Client{
			Timeout: exchangeTimeout,
			Transport: &http.Transport{
				DialContext: (&net.Dialer{
					Timeout:   connectTimeout,
					KeepAlive: 30 * time.Second,
				}).DialContext,
				TLSHandshakeTimeout:   connectTimeout,
				ResponseHeaderTimeout: exchangeTimeout,
				MaxIdleConns:          100,
				MaxIdleConnsPerHost:   10,
				IdleConnTimeout:       90 * time.Second,
				DisableCompression:    true,
			},
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
	}
}

// Forward sends the request to baseURL with the original method, headers,
// query string, and body, and returns the raw upstream response. Transport
// failures are classified as KindTimeout or KindUnreachable.
func (f *Forwarder) Forward(ctx context.Context, req ProxyRequest, baseURL string) (*ProxyResponse, error) {
	target := buildTargetURL(baseURL, req.Query)

	var body io.Reader
	if len(req.Body) > 0 {
		body = bytes.NewReader(req.Body)
	}

	outbound, err := http.NewRequestWithContext(ctx, req.Method, target, body)
	if err != nil {
		return nil, wrapError(KindInternal, "build outbound request", err)
	}
	copyHeaders(outbound.Header, req.Header)
	outbound.ContentLength = int64(len(req.Body))

	resp, err := f.client.Do(outbound)
	if err != nil {
		return nil, classifyTransportError(err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, classifyTransportError(err)
	}

	relayed := make(http.Header, len(resp.Header))
	copyHeaders(relayed, resp.Header)

	return &ProxyResponse{
		Status: resp.StatusCode,
		Header: relayed,
		Body:   respBody,
	}, nil
}

// buildTargetURL appends the original query string to the base address,
// joining with "&" when the base already carries a query.
func buildTargetURL(baseURL, query string) string {
	if strings.TrimSpace(query) == "" {
		return baseURL
	}

	separator := "?"
	if strings.Contains(baseURL, "?") {
		separator = "&"
	}
	return baseURL + separator + query
}

// copyHeaders copies all headers except hop-by-hop ones, preserving the
// order and multiplicity of values per header name.
func copyHeaders(dst, src http.Header) {
	for name, values := range src {
		if isHopByHopHeader(name) {
			continue
		}
		for _, value := range values {
			dst.Add(name, value)
		}
	}
}

// classifyTransportError distinguishes deadline expiry from
// connection-level failures for error mapping.
func classifyTransportError(err error) *Error {
	if errors.Is(err, context.DeadlineExceeded) {
		return wrapError(KindTimeout, "Service timeout", err)
	}

	var urlErr *url.Error
	if errors.As(err, &urlErr) && urlErr.Timeout() {
		return wrapError(KindTimeout, "Service timeout", err)
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return wrapError(KindTimeout, "Service timeout", err)
	}

	return &Error{
		Kind:    KindUnreachable,
		Message: "Service unavailable",
		Details: "target service is currently unavailable",
		Err:     err,
	}
}
