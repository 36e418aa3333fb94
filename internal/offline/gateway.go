package offline

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/codewithtanvir/find-your-ride-partner/internal/observability"
)

// apiSegment marks API traffic, which is network-first and never answered
// from cache while the upstream is reachable.
const apiSegment = "/api/"

// Gateway routes intercepted requests with a three-tier policy:
//
//  1. cross-origin requests pass through untouched;
//  2. API-path requests go network-first, keeping only a last-known-good
//     copy of successful GETs so a later failure can replay it;
//  3. all other same-origin requests go network-first, successful GET 200
//     responses are stored in the current versioned cache, and failures are
//     answered from cache; a failed navigation with no cached entry gets
//     the precached root document.
//
// Handle returning (nil, nil) means "no response": the request failed and
// nothing cached could stand in for it.
type Gateway struct {
	client   NetworkClient
	cache    ResponseCache
	origin   *url.URL
	version  string
	precache []string
	log      *slog.Logger

	// Watch, when set, tracks connectivity from same-origin fetch outcomes.
	Watch *Watcher
}

func NewGateway(client NetworkClient, cache ResponseCache, origin *url.URL, version string, precache []string, log *slog.Logger) *Gateway {
	if log == nil {
		log = slog.Default()
	}
	return &Gateway{client: client, cache: cache, origin: origin, version: version, precache: precache, log: log}
}

// CacheName is the single cache this gateway version reads and writes.
func (g *Gateway) CacheName() string { return "static-" + g.version }

// Install pre-populates the versioned cache with the static manifest.
// Any manifest entry that cannot be fetched fails the install.
func (g *Gateway) Install(ctx context.Context) error {
	for _, p := range g.precache {
		u := g.origin.ResolveReference(&url.URL{Path: p})
		req := &Request{Method: http.MethodGet, URL: u.String()}
		resp, err := g.client.Do(ctx, req)
		if err != nil {
			return fmt.Errorf("precache %s: %w", p, err)
		}
		if resp.Status != http.StatusOK {
			return fmt.Errorf("precache %s: status %d", p, resp.Status)
		}
		if err := g.cache.Put(ctx, g.CacheName(), req.URL, resp); err != nil {
			return fmt.Errorf("precache %s: %w", p, err)
		}
	}
	g.log.Info("gateway installed", "cache", g.CacheName(), "precached", len(g.precache))
	return nil
}

// Activate drops every cache that is not the current version. The gateway
// serves from the new cache immediately; there is no waiting generation.
func (g *Gateway) Activate(ctx context.Context) {
	for _, name := range g.cache.Names(ctx) {
		if name == g.CacheName() {
			continue
		}
		if err := g.cache.Drop(ctx, name); err != nil {
			g.log.Warn("stale cache not dropped", "cache", name, "error", err)
		}
	}
	g.log.Info("gateway activated", "cache", g.CacheName())
}

func (g *Gateway) Handle(ctx context.Context, req *Request) (*Response, error) {
	u, err := url.Parse(req.URL)
	if err != nil || !g.sameOrigin(u) {
		return g.client.Do(ctx, req)
	}
	// relative and absolute forms of the same request share a cache entry
	key := g.origin.ResolveReference(u).String()
	if strings.Contains(u.Path, apiSegment) {
		return g.handleAPI(ctx, req, key)
	}
	return g.handleStatic(ctx, req, key)
}

func (g *Gateway) handleAPI(ctx context.Context, req *Request, key string) (*Response, error) {
	resp, err := g.client.Do(ctx, req)
	g.noteConnectivity(err == nil)
	if err == nil {
		if req.Method == http.MethodGet && resp.Status == http.StatusOK {
			// last-known-good copy for offline replay only; live traffic
			// is always answered by the network
			g.put(ctx, key, resp)
		}
		return resp, nil
	}
	observability.GatewayNetFailures.Inc()
	if cached, ok := g.cache.Match(ctx, g.CacheName(), key); ok {
		observability.GatewayCacheServes.Inc()
		return cached, nil
	}
	return nil, err
}

func (g *Gateway) handleStatic(ctx context.Context, req *Request, key string) (*Response, error) {
	resp, err := g.client.Do(ctx, req)
	g.noteConnectivity(err == nil)
	if err == nil {
		if req.Method == http.MethodGet && resp.Status == http.StatusOK {
			g.put(ctx, key, resp)
		}
		return resp, nil
	}
	observability.GatewayNetFailures.Inc()
	if cached, ok := g.cache.Match(ctx, g.CacheName(), key); ok {
		observability.GatewayCacheServes.Inc()
		return cached, nil
	}
	if req.Navigate {
		if root, ok := g.cache.Match(ctx, g.CacheName(), g.rootKey()); ok {
			observability.GatewayCacheServes.Inc()
			return root, nil
		}
	}
	return nil, nil
}

// put stores an independent copy so the caller keeps sole ownership of the
// response it was handed.
func (g *Gateway) put(ctx context.Context, key string, resp *Response) {
	if err := g.cache.Put(ctx, g.CacheName(), key, resp); err != nil {
		g.log.Warn("response not cached", "key", key, "error", err)
	}
}

func (g *Gateway) noteConnectivity(online bool) {
	if g.Watch != nil {
		g.Watch.SetOnline(online)
	}
}

func (g *Gateway) rootKey() string {
	return g.origin.ResolveReference(&url.URL{Path: "/"}).String()
}

func (g *Gateway) sameOrigin(u *url.URL) bool {
	if u.Host == "" {
		return true // relative request, by definition same-origin
	}
	return u.Scheme == g.origin.Scheme && u.Host == g.origin.Host
}
