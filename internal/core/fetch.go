package core

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net"
	"net/http"
	"net/netip"
	"net/url"
	"slices"
	"strings"
	"syscall"
	"time"

	"github.com/hashicorp/go-retryablehttp"
)

// FetchConfig holds the remote-source settings.
type FetchConfig struct {
	Timeout  time.Duration // whole request including retries; default 120s
	RetryMax int           // retries for transient failures
	MaxBytes int64         // response size cap; 0 disables

	// AllowPrivate permits connections to loopback, private and link-local
	// addresses. Off for the server.
	AllowPrivate bool

	// AllowedHosts restricts fetches to these hostnames when non-empty. An
	// entry starting with "." also matches any subdomain.
	AllowedHosts []string
}

var (
	// ErrBlockedAddress is returned when a URL resolves to an address that
	// is not publicly routable.
	ErrBlockedAddress = errors.New("address not allowed")

	// ErrHostNotAllowed is returned when a URL host is outside FetchConfig.AllowedHosts.
	ErrHostNotAllowed = errors.New("host not allowed")
)

// sharedAddressSpace is the carrier-grade NAT range (RFC 6598).
var sharedAddressSpace = netip.MustParsePrefix("100.64.0.0/10")

// Fetcher retrieves remote sources over HTTP.
type Fetcher struct {
	client *retryablehttp.Client
	cfg    FetchConfig
}

// NewFetcher creates a Fetcher. A nil httpClient uses a pooled default client.
// Unless cfg.AllowPrivate is set, the client's transport is cloned and its
// dialer checks every resolved address, redirects included.
func NewFetcher(cfg FetchConfig, httpClient *http.Client) *Fetcher {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 120 * time.Second
	}
	if cfg.RetryMax < 0 {
		cfg.RetryMax = 0
	}

	rc := retryablehttp.NewClient()
	rc.Logger = log.New(io.Discard, "", 0)
	rc.RetryMax = cfg.RetryMax
	rc.RetryWaitMin = 250 * time.Millisecond
	rc.RetryWaitMax = 2 * time.Second
	rc.ErrorHandler = retryablehttp.PassthroughErrorHandler
	rc.CheckRetry = func(ctx context.Context, resp *http.Response, err error) (bool, error) {
		if errors.Is(err, ErrBlockedAddress) || errors.Is(err, ErrHostNotAllowed) {
			return false, nil
		}
		return retryablehttp.DefaultRetryPolicy(ctx, resp, err)
	}
	if httpClient != nil {
		rc.HTTPClient = httpClient
	}
	rc.HTTPClient = guardClient(rc.HTTPClient, cfg)

	return &Fetcher{client: rc, cfg: cfg}
}

// guardClient returns a copy of hc that enforces the host allowlist on
// redirects and, unless private addresses are allowed, dials through
// checkDialAddress.
func guardClient(hc *http.Client, cfg FetchConfig) *http.Client {
	guarded := *hc
	if len(cfg.AllowedHosts) > 0 {
		next := hc.CheckRedirect
		guarded.CheckRedirect = func(req *http.Request, via []*http.Request) error {
			if !hostAllowed(req.URL.Hostname(), cfg.AllowedHosts) {
				return fmt.Errorf("redirect to %s: %w", req.URL.Hostname(), ErrHostNotAllowed)
			}
			if next != nil {
				return next(req, via)
			}
			if len(via) >= 10 {
				return errors.New("stopped after 10 redirects")
			}
			return nil
		}
	}
	if cfg.AllowPrivate {
		return &guarded
	}

	base, ok := hc.Transport.(*http.Transport)
	if !ok || base == nil {
		base = http.DefaultTransport.(*http.Transport)
	}
	tr := base.Clone()
	dialer := &net.Dialer{
		Timeout:   30 * time.Second,
		KeepAlive: 30 * time.Second,
		Control:   checkDialAddress,
	}
	tr.DialContext = dialer.DialContext
	guarded.Transport = tr
	return &guarded
}

// checkDialAddress runs after DNS resolution and rejects addresses that are
// not publicly routable.
func checkDialAddress(network, address string, _ syscall.RawConn) error {
	ap, err := netip.ParseAddrPort(address)
	if err != nil {
		return fmt.Errorf("%w: %s", ErrBlockedAddress, address)
	}
	if !publicAddr(ap.Addr()) {
		return fmt.Errorf("%w: %s", ErrBlockedAddress, ap.Addr())
	}
	return nil
}

func publicAddr(ip netip.Addr) bool {
	ip = ip.Unmap()
	switch {
	case !ip.IsValid(),
		ip.IsUnspecified(),
		ip.IsLoopback(),
		ip.IsPrivate(),
		ip.IsLinkLocalUnicast(),
		ip.IsLinkLocalMulticast(),
		ip.IsInterfaceLocalMulticast(),
		ip.IsMulticast(),
		sharedAddressSpace.Contains(ip):
		return false
	}
	return true
}

func hostAllowed(host string, allowed []string) bool {
	host = strings.ToLower(strings.TrimSuffix(host, "."))
	return slices.ContainsFunc(allowed, func(entry string) bool {
		entry = strings.ToLower(strings.TrimSpace(entry))
		if suffix, ok := strings.CutPrefix(entry, "."); ok {
			return host == suffix || strings.HasSuffix(host, entry)
		}
		return host == entry
	})
}

// Fetch downloads rawURL and returns it as an Input named after the URL, so
// Decode can pick gzip handling from the URL path. Non-2xx responses and
// network failures (including the timeout) are reported as *FetchError.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) (Input, error) {
	u, err := url.Parse(rawURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return Input{}, &FetchError{URL: rawURL, Err: errors.New("only absolute http(s) URLs are supported")}
	}
	if len(f.cfg.AllowedHosts) > 0 && !hostAllowed(u.Hostname(), f.cfg.AllowedHosts) {
		return Input{}, &FetchError{URL: rawURL, Err: fmt.Errorf("%s: %w", u.Hostname(), ErrHostNotAllowed)}
	}

	ctx, cancel := context.WithTimeout(ctx, f.cfg.Timeout)
	defer cancel()

	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return Input{}, &FetchError{URL: rawURL, Err: err}
	}
	req.Header.Set("Accept", "application/json, application/gzip, */*")

	resp, err := f.client.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			err = fmt.Errorf("%w: %v", ctxErr, err)
		}
		return Input{}, &FetchError{URL: rawURL, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return Input{}, &FetchError{URL: rawURL, StatusCode: resp.StatusCode}
	}

	body := io.Reader(resp.Body)
	if f.cfg.MaxBytes > 0 {
		body = &CappedReader{R: resp.Body, Limit: f.cfg.MaxBytes, Name: rawURL}
	}
	data, err := io.ReadAll(body)
	if err != nil {
		if errors.Is(err, ErrFileTooLarge) {
			return Input{}, err
		}
		return Input{}, &FetchError{URL: rawURL, Err: err}
	}

	return Input{Name: rawURL, Data: data}, nil
}
