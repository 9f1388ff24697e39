package httpclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const (
	DefaultTimeout = 10 * time.Second

	maxBody = 1 << 20
)

var ErrNoBaseURL = errors.New("httpclient: base url not set")

// Client habla JSON con un único upstream. Los headers fijos (p.ej. la API key
// del servicio) se mandan en cada llamada.
type Client struct {
	hc      *http.Client
	baseURL string
	headers http.Header
}

type Option func(*Client)

// WithHeader agrega un header fijo. Valores vacíos se ignoran para no mandar
// credenciales en blanco.
func WithHeader(key, value string) Option {
	return func(c *Client) {
		key, value = strings.TrimSpace(key), strings.TrimSpace(value)
		if key == "" || value == "" {
			return
		}
		c.headers.Set(key, value)
	}
}

// New crea un Client. baseURL vacío es válido: el client queda sin destino y
// Do devuelve ErrNoBaseURL.
func New(baseURL string, timeout time.Duration, opts ...Option) (*Client, error) {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	c := &Client{
		hc:      &http.Client{Timeout: timeout},
		headers: http.Header{},
	}

	baseURL = strings.TrimSpace(baseURL)
	if baseURL != "" {
		if _, err := url.ParseRequestURI(baseURL); err != nil {
			return nil, fmt.Errorf("invalid base url: %w", err)
		}
		c.baseURL = strings.TrimRight(baseURL, "/")
	}

	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

func (c *Client) BaseURL() string {
	if c == nil {
		return ""
	}
	return c.baseURL
}

// HasHeader indica si el header fijo quedó seteado.
func (c *Client) HasHeader(key string) bool {
	return c != nil && c.headers.Get(key) != ""
}

// Call es una llamada JSON relativa a BaseURL.
type Call struct {
	Method string
	Path   string
	// Bearer, si no está vacío, va como "Authorization: Bearer <token>".
	Bearer string
	Body   any
}

// HTTPError representa una respuesta no-2xx.
type HTTPError struct {
	StatusCode int
	Body       string
}

func (e *HTTPError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("http error: status=%d", e.StatusCode)
	}
	return fmt.Sprintf("http error: status=%d body=%s", e.StatusCode, e.Body)
}

// Do ejecuta la llamada y decodifica la respuesta en out (si no es nil).
// Un status fuera de 2xx devuelve *HTTPError.
func (c *Client) Do(ctx context.Context, call Call, out any) error {
	if c == nil || c.hc == nil {
		return errors.New("httpclient: nil client")
	}
	if c.baseURL == "" {
		return ErrNoBaseURL
	}

	path := strings.TrimSpace(call.Path)
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}

	var body io.Reader
	if call.Body != nil {
		b, err := json.Marshal(call.Body)
		if err != nil {
			return fmt.Errorf("httpclient: marshal json: %w", err)
		}
		body = bytes.NewReader(b)
	}

	method := call.Method
	if method == "" {
		method = http.MethodGet
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("httpclient: new request: %w", err)
	}

	for k, vs := range c.headers {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	req.Header.Set("Accept", "application/json")
	if call.Body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if bearer := strings.TrimSpace(call.Bearer); bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}

	resp, err := c.hc.Do(req)
	if err != nil {
		return fmt.Errorf("httpclient: do request: %w", err)
	}
	defer resp.Body.Close()

	raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxBody))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &HTTPError{
			StatusCode: resp.StatusCode,
			Body:       strings.TrimSpace(string(raw)),
		}
	}

	if out == nil || len(raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("httpclient: unmarshal json: %w", err)
	}
	return nil
}
