package httpsig

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"net/url"
)

// Request is the read-only projection of an HTTP request that the composer
// and the verification tasks consume.
type Request struct {
	// Method is the HTTP method, e.g. "POST".
	Method string

	// URL is the absolute or relative request URI.
	URL *url.URL

	// Host is the authority used to resolve a relative URL. It may be empty
	// when URL is absolute.
	Host string

	// Header holds the request headers.
	Header http.Header

	// Body is the buffered request body. Nil means the request has no body.
	Body []byte
}

// NewRequest builds a Request from r. The body is read in full and replaced
// so downstream handlers can consume it again. The Host header is populated
// from r.Host, because net/http keeps it outside the header map.
func NewRequest(r *http.Request) (*Request, error) {
	if r == nil {
		return nil, ErrNilArgument
	}

	body, err := readAndRestoreBody(r)
	if err != nil {
		return nil, fmt.Errorf("%w: reading body: %w", ErrInvalidRequest, err)
	}

	header := r.Header.Clone()
	if header == nil {
		header = make(http.Header)
	}

	if header.Get("Host") == "" && r.Host != "" {
		header.Set("Host", r.Host)
	}

	host := r.Host
	if host == "" && r.URL != nil {
		host = r.URL.Host
	}

	return &Request{
		Method: r.Method,
		URL:    r.URL,
		Host:   host,
		Header: header,
		Body:   body,
	}, nil
}

// absoluteURL returns the request URL resolved against Host when relative.
func (r *Request) absoluteURL() (*url.URL, error) {
	if r.URL == nil {
		return nil, fmt.Errorf("%w: request URL is nil", ErrInvalidRequest)
	}

	if r.URL.IsAbs() {
		return r.URL, nil
	}

	if r.Host == "" {
		return nil, fmt.Errorf("%w: relative request URL %q without host", ErrInvalidRequest, r.URL.String())
	}

	base := &url.URL{Scheme: "https", Host: r.Host}

	return base.ResolveReference(r.URL), nil
}

// readAndRestoreBody reads the entire request body and replaces it with a
// new reader so the body can be consumed again by downstream handlers.
func readAndRestoreBody(r *http.Request) ([]byte, error) {
	if r.Body == nil || r.Body == http.NoBody {
		return nil, nil
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		return nil, err
	}

	r.Body.Close()
	r.Body = io.NopCloser(bytes.NewReader(body))

	return body, nil
}
