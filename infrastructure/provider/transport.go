package provider

import (
	"bytes"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"io"
	"net/http"
	"os"
	"path/filepath"
)

// CachingTransport replays identical provider requests from a disk cache
// instead of re-hitting the API. Entries are keyed by a SHA-256 over method,
// URL and request body, and only 2xx responses are stored. Any cache I/O
// problem falls through to the wrapped transport, so a broken cache degrades
// to normal HTTP.
type CachingTransport struct {
	next http.RoundTripper
	dir  string
}

// NewCachingTransport wraps next (http.DefaultTransport when nil) with a
// disk cache rooted at dir.
func NewCachingTransport(dir string, next http.RoundTripper) *CachingTransport {
	if next == nil {
		next = http.DefaultTransport
	}
	_ = os.MkdirAll(dir, 0o755)
	return &CachingTransport{next: next, dir: dir}
}

// cacheEntry is the on-disk form of a cached response. The body is base64
// so binary payloads survive the JSON round trip.
type cacheEntry struct {
	StatusCode int                 `json:"status_code"`
	Header     map[string][]string `json:"header"`
	Body       string              `json:"body"`
}

// RoundTrip implements http.RoundTripper.
func (t *CachingTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	var reqBody []byte
	if req.Body != nil {
		var err error
		reqBody, err = io.ReadAll(req.Body)
		if err != nil {
			return nil, err
		}
		req.Body = io.NopCloser(bytes.NewReader(reqBody))
	}

	entryPath := filepath.Join(t.dir, t.cacheKey(req.Method, req.URL.String(), reqBody)+".json")
	if resp, ok := t.load(entryPath, req); ok {
		return resp, nil
	}

	resp, err := t.next.RoundTrip(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return resp, nil
	}

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	_ = resp.Body.Close()

	t.store(entryPath, resp.StatusCode, resp.Header, respBody)

	resp.Body = io.NopCloser(bytes.NewReader(respBody))
	return resp, nil
}

func (t *CachingTransport) cacheKey(method, url string, body []byte) string {
	h := sha256.New()
	for _, part := range [][]byte{[]byte(method), []byte(url), body} {
		h.Write(part)
		h.Write([]byte{'\n'})
	}
	return hex.EncodeToString(h.Sum(nil))
}

func (t *CachingTransport) load(path string, req *http.Request) (*http.Response, bool) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, false
	}

	var entry cacheEntry
	if err := json.Unmarshal(data, &entry); err != nil {
		return nil, false
	}
	body, err := base64.StdEncoding.DecodeString(entry.Body)
	if err != nil {
		return nil, false
	}

	return &http.Response{
		StatusCode: entry.StatusCode,
		Header:     entry.Header,
		Body:       io.NopCloser(bytes.NewReader(body)),
		Request:    req,
	}, true
}

func (t *CachingTransport) store(path string, statusCode int, header http.Header, body []byte) {
	data, err := json.Marshal(cacheEntry{
		StatusCode: statusCode,
		Header:     header,
		Body:       base64.StdEncoding.EncodeToString(body),
	})
	if err != nil {
		return
	}
	_ = os.WriteFile(path, data, 0o644)
}
