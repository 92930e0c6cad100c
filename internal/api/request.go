package api

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/url"
	"strings"
)

// Encoding describes how a request body is serialised.
type Encoding int

const (
	// EncodingNone sends no body; parameters travel in the query string.
	EncodingNone Encoding = iota
	// EncodingURL sends the parameters as an application/x-www-form-urlencoded body.
	EncodingURL
	// EncodingJSON sends Body as application/json.
	EncodingJSON
	// EncodingXML sends Body as a literal XML document.
	EncodingXML
)

// ContentType returns the Content-Type header value for the encoding.
func (e Encoding) ContentType() string {
	switch e {
	case EncodingURL:
		return "application/x-www-form-urlencoded"
	case EncodingJSON:
		return "application/json"
	case EncodingXML:
		return "text/xml; charset=utf-8"
	default:
		return ""
	}
}

// Request describes one logical API call.
type Request struct {
	// Path identifies the remote operation, relative to the base URL.
	Path string
	// Params are the call parameters. The pipeline copies them per attempt
	// and never modifies the caller's map.
	Params map[string]string
	// Method is the HTTP method. When empty, PUT is used for requests with
	// a body and GET otherwise.
	Method string
	// Body is a pre-serialised payload for EncodingJSON and EncodingXML.
	Body []byte
	// Encoding selects how Body (or Params, for EncodingURL) is sent.
	Encoding Encoding
}

func (r *Request) method() string {
	if r.Method != "" {
		return strings.ToUpper(r.Method)
	}
	if r.hasBody() {
		return http.MethodPut
	}
	return http.MethodGet
}

func (r *Request) hasBody() bool {
	switch r.Encoding {
	case EncodingURL:
		return true
	case EncodingJSON, EncodingXML:
		return r.Body != nil
	default:
		return false
	}
}

// payload returns the raw body sent for JSON and XML requests, or nil.
// Form-encoded requests carry their parameters instead.
func (r *Request) payload() []byte {
	if r.Encoding == EncodingURL || !r.hasBody() {
		return nil
	}
	return r.Body
}

// joinURL joins a base URL and a call path with exactly one slash.
func joinURL(base, path string) string {
	return strings.TrimRight(base, "/") + "/" + strings.TrimLeft(path, "/")
}

// newHTTPRequest builds the wire request for one attempt. params already
// carries credentials and signature.
func newHTTPRequest(ctx context.Context, baseURL string, r *Request, params map[string]string, header http.Header) (*http.Request, error) {
	values := make(url.Values, len(params))
	for k, v := range params {
		values.Set(k, v)
	}

	target := joinURL(baseURL, r.Path)
	var body io.Reader

	switch {
	case r.Encoding == EncodingURL:
		body = strings.NewReader(values.Encode())
	case r.hasBody():
		body = bytes.NewReader(r.Body)
		if len(values) > 0 {
			target += "?" + values.Encode()
		}
	default:
		if len(values) > 0 {
			target += "?" + values.Encode()
		}
	}

	req, err := http.NewRequestWithContext(ctx, r.method(), target, body)
	if err != nil {
		return nil, err
	}
	for k, vs := range header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	if ct := r.Encoding.ContentType(); ct != "" && r.hasBody() {
		req.Header.Set("Content-Type", ct)
	}
	return req, nil
}
