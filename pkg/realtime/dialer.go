package realtime

import (
	"crypto/tls"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gorilla/websocket"
)

// DefaultOpenTimeout bounds the opening handshake.
const DefaultOpenTimeout = 30 * time.Second

// BetaHeader opts in to the beta realtime protocol.
const BetaHeader = "realtime=v1"

// ErrMissingAPIKey is returned when a dial is attempted without a key.
var ErrMissingAPIKey = errors.New("missing API key")

// Options configures a realtime connection.
type Options struct {
	// URL is the websocket endpoint without the model query parameter.
	URL string

	// Model is sent as the "model" query parameter.
	Model string

	// APIKey is sent as a bearer token.
	APIKey string

	// Proxy is an explicit proxy URL. Empty means a direct connection;
	// environment fallbacks are resolved by the caller with ProxyFromEnv.
	Proxy string

	// Insecure disables TLS certificate verification.
	Insecure bool

	// OpenTimeout bounds the opening handshake. Zero means DefaultOpenTimeout.
	OpenTimeout time.Duration
}

// Endpoint returns the dial URL for o.
func (o Options) Endpoint() (string, error) {
	return URL(o.URL, o.Model)
}

// Header returns the handshake headers for o.
func (o Options) Header() http.Header {
	return Headers(o.APIKey)
}

// URL adds the model query parameter to base. Query parameters already
// present on base are kept.
func URL(base, model string) (string, error) {
	u, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("parsing realtime url: %w", err)
	}

	switch u.Scheme {
	case "ws", "wss":
	default:
		return "", fmt.Errorf("realtime url must use ws or wss, got %q", base)
	}

	if u.Host == "" {
		return "", fmt.Errorf("realtime url has no host: %q", base)
	}

	if model != "" {
		q := u.Query()
		q.Set("model", model)
		u.RawQuery = q.Encode()
	}

	return u.String(), nil
}

// Headers returns the opening handshake headers.
func Headers(apiKey string) http.Header {
	h := http.Header{}
	h.Set("Authorization", "Bearer "+apiKey)
	h.Set("OpenAI-Beta", BetaHeader)
	return h
}

// ParseProxy parses a proxy URL. A bare host:port is treated as an HTTP
// proxy.
func ParseProxy(raw string) (*url.URL, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}

	if !strings.Contains(raw, "://") {
		raw = "http://" + raw
	}

	u, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("parsing proxy url: %w", err)
	}

	switch u.Scheme {
	case "http", "https", "socks5":
	default:
		return nil, fmt.Errorf("unsupported proxy scheme %q", u.Scheme)
	}

	if u.Host == "" {
		return nil, fmt.Errorf("proxy url has no host: %q", raw)
	}

	return u, nil
}

// ProxyFromEnv returns the first non-empty of HTTPS_PROXY and ALL_PROXY.
func ProxyFromEnv(getenv func(string) string) string {
	for _, key := range []string{"HTTPS_PROXY", "ALL_PROXY"} {
		if v := strings.TrimSpace(getenv(key)); v != "" {
			return v
		}
	}
	return ""
}

// TLSConfig returns the client TLS configuration. Verification uses the
// system roots unless insecure is set.
func TLSConfig(insecure bool) *tls.Config {
	return &tls.Config{
		MinVersion:         tls.VersionTLS12,
		InsecureSkipVerify: insecure, //nolint:gosec // opt-in debug flag
	}
}

// NewDialer builds a websocket dialer for opts. The dialer never sends
// keepalive pings.
func NewDialer(opts Options) (*websocket.Dialer, error) {
	timeout := opts.OpenTimeout
	if timeout <= 0 {
		timeout = DefaultOpenTimeout
	}

	d := &websocket.Dialer{
		HandshakeTimeout: timeout,
		TLSClientConfig:  TLSConfig(opts.Insecure),
	}

	proxyURL, err := ParseProxy(opts.Proxy)
	if err != nil {
		return nil, err
	}
	if proxyURL != nil {
		d.Proxy = http.ProxyURL(proxyURL)
	}

	return d, nil
}
