package resolver

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"
)

type RedirectResolver interface {
	// FollowRedirects returns the ordered chain of hops the url resolves
	// through, not including the url itself.
	FollowRedirects(ctx context.Context, link string) ([]string, error)
}

// HTTPRedirectResolver walks a redirect chain hop by hop so intermediate
// URLs can be classified individually. Hosts in SafeDomains terminate the
// walk early; link shorteners pointing at known-good destinations don't
// need full resolution.
type HTTPRedirectResolver struct {
	Client      *http.Client
	MaxHops     int
	SafeDomains map[string]bool
	// per-chain deadline; zero disables the bound
	Timeout time.Duration
}

const defaultMaxHops = 8

func NewHTTPRedirectResolver(timeout time.Duration) *HTTPRedirectResolver {
	rc := retryablehttp.NewClient()
	rc.RetryMax = 2
	rc.Logger = nil
	client := rc.StandardClient()
	client.CheckRedirect = func(req *http.Request, via []*http.Request) error {
		return http.ErrUseLastResponse
	}
	return &HTTPRedirectResolver{
		Client:      client,
		MaxHops:     defaultMaxHops,
		SafeDomains: make(map[string]bool),
		Timeout:     timeout,
	}
}

// LoadSafeDomains replaces the safe-domain set.
func (r *HTTPRedirectResolver) LoadSafeDomains(domains []string) {
	safe := make(map[string]bool, len(domains))
	for _, d := range domains {
		safe[strings.ToLower(d)] = true
	}
	r.SafeDomains = safe
}

func (r *HTTPRedirectResolver) isSafe(link string) bool {
	u, err := url.Parse(link)
	if err != nil {
		return false
	}
	host := strings.ToLower(u.Hostname())
	for host != "" {
		if r.SafeDomains[host] {
			return true
		}
		i := strings.Index(host, ".")
		if i < 0 {
			break
		}
		host = host[i+1:]
	}
	return false
}

func (r *HTTPRedirectResolver) FollowRedirects(ctx context.Context, link string) ([]string, error) {
	if r.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.Timeout)
		defer cancel()
	}

	maxHops := r.MaxHops
	if maxHops <= 0 {
		maxHops = defaultMaxHops
	}

	var hops []string
	cur := link
	for i := 0; i < maxHops; i++ {
		if r.isSafe(cur) {
			break
		}
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, cur, nil)
		if err != nil {
			return hops, fmt.Errorf("building redirect request: %w", err)
		}
		resp, err := r.Client.Do(req)
		if err != nil {
			return hops, fmt.Errorf("following redirect: %w", err)
		}
		resp.Body.Close()

		if resp.StatusCode < 300 || resp.StatusCode > 399 {
			break
		}
		loc := resp.Header.Get("Location")
		if loc == "" {
			break
		}
		next, err := resp.Request.URL.Parse(loc)
		if err != nil {
			return hops, fmt.Errorf("parsing redirect location: %w", err)
		}
		cur = next.String()
		hops = append(hops, cur)
	}
	return hops, nil
}
