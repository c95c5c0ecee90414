// Package sharepoint reads the document inventory of a SharePoint Online site
// over its REST API.
package sharepoint

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/ppiankov/docspectre/internal/collector"
	"github.com/rs/zerolog"
	"gitlab.com/tozd/go/errors"
	"golang.org/x/net/proxy"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
)

const (
	// DefaultTimeout bounds a single REST request
	DefaultTimeout = 2 * time.Minute

	tokenURLFormat = "https://login.microsoftonline.com/%s/oauth2/v2.0/token"
	acceptHeader   = "application/json;odata=nometadata"
	maxErrorBody   = 512
)

// Options configures the SharePoint session
type Options struct {
	SiteURL string

	// App-only client credentials
	TenantID     string
	ClientID     string
	ClientSecret string

	// AccessToken is a pre-issued bearer token; it wins over client credentials
	AccessToken string

	// Proxy is an http://, https:// or socks5:// URL
	Proxy string

	Timeout           time.Duration
	RequestsPerSecond int
	UserCacheTTL      time.Duration

	// HTTPClient replaces the default transport, mostly for tests
	HTTPClient *http.Client
}

// Client implements search, metadata lookup and version listing
type Client struct {
	site     *url.URL
	http     *http.Client
	throttle *collector.Throttle
	users    *userCache
	logger   zerolog.Logger
	now      func() time.Time
}

// NewClient builds an authenticated client. No request is made until Connect.
func NewClient(ctx context.Context, opts Options, logger zerolog.Logger) (*Client, error) {
	site, err := url.Parse(strings.TrimRight(strings.TrimSpace(opts.SiteURL), "/"))
	if err != nil || !site.IsAbs() || site.Host == "" {
		return nil, errors.Errorf("invalid site URL %q", opts.SiteURL)
	}

	base := opts.HTTPClient
	if base == nil {
		base, err = newHTTPClient(opts.Timeout, opts.Proxy)
		if err != nil {
			return nil, err
		}
	}

	source, err := tokenSource(ctx, opts, site, base)
	if err != nil {
		return nil, err
	}

	baseTransport := base.Transport
	if baseTransport == nil {
		baseTransport = http.DefaultTransport
	}

	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	return &Client{
		site: site,
		http: &http.Client{
			Timeout: timeout,
			Transport: &oauth2.Transport{
				Source: source,
				Base:   baseTransport,
			},
		},
		throttle: collector.NewThrottle(opts.RequestsPerSecond),
		users:    newUserCache(opts.UserCacheTTL),
		logger:   logger.With().Str("component", "sharepoint").Logger(),
		now:      time.Now,
	}, nil
}

func tokenSource(ctx context.Context, opts Options, site *url.URL, base *http.Client) (oauth2.TokenSource, error) {
	if token := strings.TrimSpace(opts.AccessToken); token != "" {
		return oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token, TokenType: "Bearer"}), nil
	}

	if opts.TenantID == "" || opts.ClientID == "" || opts.ClientSecret == "" {
		return nil, errors.New("sharepoint credentials missing: provide an access token or tenant id, client id and client secret")
	}

	cfg := clientcredentials.Config{
		ClientID:     opts.ClientID,
		ClientSecret: opts.ClientSecret,
		TokenURL:     fmt.Sprintf(tokenURLFormat, url.PathEscape(opts.TenantID)),
		Scopes:       []string{site.Scheme + "://" + site.Host + "/.default"},
	}

	// Token requests go through the same proxy as API calls
	tokenCtx := context.WithValue(ctx, oauth2.HTTPClient, base)
	return oauth2.ReuseTokenSource(nil, cfg.TokenSource(tokenCtx)), nil
}

func newHTTPClient(timeout time.Duration, proxyURL string) (*http.Client, error) {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	transport := &http.Transport{
		DialContext: (&net.Dialer{
			Timeout:   30 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		MaxIdleConns:          100,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
	}

	if proxyURL != "" {
		if err := configureProxy(transport, proxyURL); err != nil {
			return nil, errors.Errorf("configure proxy: %w", err)
		}
	}

	return &http.Client{
		Timeout:   timeout,
		Transport: transport,
	}, nil
}

func configureProxy(transport *http.Transport, raw string) error {
	proxyURL, err := url.Parse(raw)
	if err != nil {
		return errors.Errorf("parse proxy URL: %w", err)
	}

	switch proxyURL.Scheme {
	case "socks5", "socks5h":
		var auth *proxy.Auth
		if proxyURL.User != nil {
			password, _ := proxyURL.User.Password()
			auth = &proxy.Auth{
				User:     proxyURL.User.Username(),
				Password: password,
			}
		}

		dialer, err := proxy.SOCKS5("tcp", proxyURL.Host, auth, proxy.Direct)
		if err != nil {
			return errors.Errorf("create SOCKS5 dialer: %w", err)
		}
		if contextDialer, ok := dialer.(proxy.ContextDialer); ok {
			transport.DialContext = contextDialer.DialContext
		} else {
			transport.DialContext = func(_ context.Context, network, addr string) (net.Conn, error) {
				return dialer.Dial(network, addr)
			}
		}
	case "http", "https":
		transport.Proxy = http.ProxyURL(proxyURL)
	default:
		return errors.Errorf("unsupported proxy scheme %q", proxyURL.Scheme)
	}
	return nil
}

// Connect verifies the session by reading the web title.
// A failure here is fatal for the run.
func (c *Client) Connect(ctx context.Context) error {
	var web struct {
		Title string `json:"Title"`
	}
	if err := c.getJSON(ctx, c.site, "/_api/web", url.Values{"$select": {"Title"}}, &web); err != nil {
		return errors.Errorf("failed to establish SharePoint session: %w", err)
	}
	c.logger.Info().Str("site", c.site.String()).Str("title", web.Title).Msg("connected to SharePoint")
	return nil
}

// Close releases idle connections
func (c *Client) Close() error {
	c.http.CloseIdleConnections()
	return nil
}

// SiteURL returns the root site the client is bound to
func (c *Client) SiteURL() string {
	return c.site.String()
}

func (c *Client) getJSON(ctx context.Context, web *url.URL, endpoint string, query url.Values, out any) error {
	if err := c.throttle.Wait(ctx); err != nil {
		return err
	}

	u := *web
	u.Path = strings.TrimRight(u.Path, "/") + endpoint
	u.RawPath = ""
	u.RawQuery = query.Encode()
	target := u.String()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return errors.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", acceptHeader)

	resp, err := c.http.Do(req)
	if err != nil {
		return errors.Errorf("making request: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode == http.StatusServiceUnavailable:
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxErrorBody))
		return &RateLimitError{
			StatusCode: resp.StatusCode,
			RetryAfter: parseRetryAfter(resp.Header.Get("Retry-After"), c.now()),
			URL:        target,
		}
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return &StatusError{
			StatusCode: resp.StatusCode,
			URL:        target,
			Body:       strings.TrimSpace(string(body)),
		}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return errors.Errorf("decoding response from %s: %w", target, err)
	}
	return nil
}

// webFor returns the web a document lives in, falling back to the root site
func (c *Client) webFor(siteURL string) *url.URL {
	if siteURL == "" {
		return c.site
	}
	u, err := url.Parse(siteURL)
	if err != nil || !u.IsAbs() {
		return c.site
	}
	return u
}

// fileEndpoint addresses a document by its server-relative path
func fileEndpoint(serverRelativePath, suffix string) string {
	escaped := strings.ReplaceAll(serverRelativePath, "'", "''")
	return "/_api/web/GetFileByServerRelativePath(decodedurl='" + escaped + "')" + suffix
}
