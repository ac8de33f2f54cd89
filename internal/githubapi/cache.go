package githubapi

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/lucasilverentand/repo-agents/internal/model"
)

// DefaultMembershipTTL bounds how long a cached membership or permission
// answer is reused in watch mode.
const DefaultMembershipTTL = 5 * time.Minute

type cacheEntry struct {
	value     any
	expiresAt time.Time
}

// CachedClient memoizes the membership and permission lookups of an underlying
// Client. Watch mode revalidates the same actors repeatedly; collapsing
// concurrent duplicate lookups behind singleflight keeps the pipeline to one
// API call per (subject, user) per TTL. All other calls pass straight through.
type CachedClient struct {
	Client

	ttl   time.Duration
	group singleflight.Group

	mu      sync.Mutex
	entries map[string]cacheEntry
}

// NewCachedClient wraps inner with a membership cache. ttl <= 0 selects
// DefaultMembershipTTL.
func NewCachedClient(inner Client, ttl time.Duration) *CachedClient {
	if ttl <= 0 {
		ttl = DefaultMembershipTTL
	}
	return &CachedClient{
		Client:  inner,
		ttl:     ttl,
		entries: make(map[string]cacheEntry),
	}
}

func (c *CachedClient) RepositoryPermission(ctx context.Context, repo model.RepositoryRef, user string) (Permission, error) {
	key := fmt.Sprintf("perm:%s:%s", repo, user)
	v, err := c.lookup(key, func() (any, error) {
		return c.Client.RepositoryPermission(ctx, repo, user)
	})
	if err != nil {
		return PermissionNone, err
	}
	return v.(Permission), nil
}

func (c *CachedClient) IsOrgMember(ctx context.Context, org, user string) (bool, error) {
	key := fmt.Sprintf("org:%s:%s", org, user)
	v, err := c.lookup(key, func() (any, error) {
		return c.Client.IsOrgMember(ctx, org, user)
	})
	if err != nil {
		return false, err
	}
	return v.(bool), nil
}

func (c *CachedClient) IsTeamMember(ctx context.Context, org, team, user string) (bool, error) {
	key := fmt.Sprintf("team:%s:%s:%s", org, team, user)
	v, err := c.lookup(key, func() (any, error) {
		return c.Client.IsTeamMember(ctx, org, team, user)
	})
	if err != nil {
		return false, err
	}
	return v.(bool), nil
}

// lookup serves from cache when fresh, otherwise runs fn once per key across
// concurrent callers. Errors are never cached.
func (c *CachedClient) lookup(key string, fn func() (any, error)) (any, error) {
	c.mu.Lock()
	if e, ok := c.entries[key]; ok && time.Now().Before(e.expiresAt) {
		c.mu.Unlock()
		return e.value, nil
	}
	c.mu.Unlock()

	v, err, _ := c.group.Do(key, func() (any, error) {
		value, err := fn()
		if err != nil {
			return nil, err
		}
		c.mu.Lock()
		c.entries[key] = cacheEntry{value: value, expiresAt: time.Now().Add(c.ttl)}
		c.mu.Unlock()
		return value, nil
	})
	return v, err
}

// Invalidate drops every cached entry, forcing fresh lookups.
func (c *CachedClient) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]cacheEntry)
}
