package resolver

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingFetcher struct {
	guilds map[string]string
	calls  int
}

func (f *countingFetcher) FetchInvite(ctx context.Context, code string) (string, error) {
	f.calls++
	g, ok := f.guilds[code]
	if !ok {
		return "", ErrForbidden
	}
	return g, nil
}

func TestCachedInviteResolver(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()

	fetcher := &countingFetcher{guilds: map[string]string{"abc123": "guild9"}}
	r := NewCachedInviteResolver(fetcher, 10, time.Hour)

	g, err := r.Resolve(ctx, "abc123")
	assert.NoError(err)
	assert.Equal("guild9", g)
	g, err = r.Resolve(ctx, "abc123")
	assert.NoError(err)
	assert.Equal("guild9", g)
	assert.Equal(1, fetcher.calls)

	// failures are not cached
	_, err = r.Resolve(ctx, "nope")
	assert.ErrorIs(err, ErrForbidden)
	_, err = r.Resolve(ctx, "nope")
	assert.ErrorIs(err, ErrForbidden)
	assert.Equal(3, fetcher.calls)
}

func TestFollowRedirects(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()

	var srv *httptest.Server
	mux := http.NewServeMux()
	mux.HandleFunc("/a", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, srv.URL+"/b", http.StatusFound)
	})
	mux.HandleFunc("/b", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, srv.URL+"/final", http.StatusMovedPermanently)
	})
	mux.HandleFunc("/final", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "done")
	})
	srv = httptest.NewServer(mux)
	defer srv.Close()

	r := NewHTTPRedirectResolver(10 * time.Second)
	hops, err := r.FollowRedirects(ctx, srv.URL+"/a")
	require.NoError(t, err)
	assert.Equal([]string{srv.URL + "/b", srv.URL + "/final"}, hops)

	// non-redirecting url yields an empty chain
	hops, err = r.FollowRedirects(ctx, srv.URL+"/final")
	require.NoError(t, err)
	assert.Empty(hops)
}

func TestFollowRedirectsHopLimit(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()

	var srv *httptest.Server
	mux := http.NewServeMux()
	mux.HandleFunc("/loop", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, srv.URL+"/loop", http.StatusFound)
	})
	srv = httptest.NewServer(mux)
	defer srv.Close()

	r := NewHTTPRedirectResolver(10 * time.Second)
	r.MaxHops = 3
	hops, err := r.FollowRedirects(ctx, srv.URL+"/loop")
	assert.NoError(err)
	assert.Len(hops, 3)
}

func TestFollowRedirectsSafeDomain(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()

	r := NewHTTPRedirectResolver(10 * time.Second)
	r.LoadSafeDomains([]string{"example.com"})

	// never touches the network for safe hosts, subdomains included
	hops, err := r.FollowRedirects(ctx, "https://www.example.com/some/path")
	assert.NoError(err)
	assert.Empty(hops)
}

func TestCopypastaMatch(t *testing.T) {
	assert := assert.New(t)

	c := NewCopypastas()
	c.Add("Navy Seal", "I'll have you know I graduated top of my class in the Navy Seals")

	assert.Equal("Navy Seal", c.Match("listen here.  i'll have you know i graduated top of   my class in the navy seals, buddy"))
	assert.Equal("", c.Match("a perfectly normal message"))
	assert.Equal("", c.Match(""))
}
