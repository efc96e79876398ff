// Package client is the catalog's caching HTTP client. Reads are served from
// a keyed cache; successful writes mark the affected keys stale.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"dog-catalog/internal/core/auth"
	"dog-catalog/internal/core/cache"
	"dog-catalog/internal/domain"
)

// 缓存 key
const (
	KeyListings = "listings"
	KeyFeatured = "listings:featured@"
	KeyBreeds   = "breeds"
	keyListing  = "listing:"

	featuredMax = 3
)

func ListingsKey(breed string) string {
	if domain.IsAllBreeds(breed) {
		return KeyListings
	}
	return KeyListings + ":" + strings.TrimSpace(breed)
}

func ListingKey(id string) string { return keyListing + id }

// APIError is a non-2xx answer from the server.
type APIError struct {
	Status  int
	Message string
	Fields  map[string]string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("catalog api: %d %s", e.Status, e.Message)
}

// Unwrap maps the status onto the matching domain error.
func (e *APIError) Unwrap() error {
	switch e.Status {
	case http.StatusBadRequest:
		return domain.ErrValidation
	case http.StatusUnauthorized:
		if e.Message == "invalid credentials" {
			return domain.ErrInvalidCredentials
		}
		return domain.ErrUnauthorized
	case http.StatusForbidden:
		return domain.ErrForbidden
	case http.StatusNotFound:
		return domain.ErrNotFound
	case http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return domain.ErrUnavailable
	}
	return nil
}

// Session mirrors the server's login/session body.
type Session struct {
	User      auth.Identity `json:"user"`
	ExpiresAt time.Time     `json:"expires_at"`
}

type Client struct {
	base  *url.URL
	hc    *http.Client
	cache *cache.Cache
	log   *zap.Logger
}

type Option func(*Client)

// WithHTTPClient replaces the default client. Its Jar carries the session cookie.
func WithHTTPClient(hc *http.Client) Option { return func(c *Client) { c.hc = hc } }

func WithCache(cc *cache.Cache) Option { return func(c *Client) { c.cache = cc } }

func WithLogger(l *zap.Logger) Option { return func(c *Client) { c.log = l } }

func New(baseURL string, opts ...Option) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("client: base url: %w", err)
	}
	c := &Client{base: u, log: zap.NewNop()}
	for _, o := range opts {
		o(c)
	}
	if c.hc == nil {
		jar, err := cookiejar.New(nil)
		if err != nil {
			return nil, err
		}
		c.hc = &http.Client{Jar: jar, Timeout: 30 * time.Second}
	}
	if c.cache == nil {
		c.cache = cache.New(cache.NewMemory(), c.log)
	}
	return c, nil
}

// ---------- 读 ----------

// Listings returns the listings of breed ("" or "all" for every breed).
func (c *Client) Listings(ctx context.Context, breed string) ([]domain.Listing, error) {
	return cache.GetOrLoadJSON(c.cache, ctx, ListingsKey(breed), func(ctx context.Context) ([]domain.Listing, error) {
		q := url.Values{}
		if !domain.IsAllBreeds(breed) {
			q.Set("breed", strings.TrimSpace(breed))
		}
		var out []domain.Listing
		err := c.do(ctx, http.MethodGet, "/listings", q, nil, &out)
		return out, err
	})
}

func (c *Client) Listing(ctx context.Context, id string) (*domain.Listing, error) {
	return cache.GetOrLoadJSON(c.cache, ctx, ListingKey(id), func(ctx context.Context) (*domain.Listing, error) {
		var out domain.Listing
		if err := c.do(ctx, http.MethodGet, "/listings/"+url.PathEscape(id), nil, nil, &out); err != nil {
			return nil, err
		}
		return &out, nil
	})
}

// Featured returns up to three featured listings that are still available,
// newest first.
func (c *Client) Featured(ctx context.Context) ([]domain.Listing, error) {
	return cache.GetOrLoadJSON(c.cache, ctx, KeyFeatured, func(ctx context.Context) ([]domain.Listing, error) {
		all, err := c.Listings(ctx, "")
		if err != nil {
			return nil, err
		}
		out := make([]domain.Listing, 0, featuredMax)
		for _, l := range all {
			if l.IsFeatured && l.Status == domain.StatusAvailable {
				out = append(out, l)
				if len(out) == featuredMax {
					break
				}
			}
		}
		return out, nil
	})
}

// Breeds returns the distinct breeds present in the catalog, sorted.
func (c *Client) Breeds(ctx context.Context) ([]string, error) {
	return cache.GetOrLoadJSON(c.cache, ctx, KeyBreeds, func(ctx context.Context) ([]string, error) {
		all, err := c.Listings(ctx, "")
		if err != nil {
			return nil, err
		}
		seen := make(map[string]struct{}, len(all))
		out := make([]string, 0, len(all))
		for _, l := range all {
			if _, ok := seen[l.Breed]; !ok {
				seen[l.Breed] = struct{}{}
				out = append(out, l.Breed)
			}
		}
		sort.Strings(out)
		return out, nil
	})
}

// ---------- 写（成功后失效相关 key） ----------

func (c *Client) Create(ctx context.Context, in domain.CreateListing) (*domain.Listing, error) {
	var out domain.Listing
	if err := c.do(ctx, http.MethodPost, "/listings", nil, in, &out); err != nil {
		return nil, err
	}
	c.invalidate(ctx, out.ID)
	return &out, nil
}

func (c *Client) Update(ctx context.Context, id string, in domain.UpdateListing) (*domain.Listing, error) {
	var out domain.Listing
	if err := c.do(ctx, http.MethodPut, "/listings/"+url.PathEscape(id), nil, in, &out); err != nil {
		return nil, err
	}
	c.invalidate(ctx, id)
	return &out, nil
}

func (c *Client) Delete(ctx context.Context, id string) error {
	if err := c.do(ctx, http.MethodDelete, "/listings/"+url.PathEscape(id), nil, nil, nil); err != nil {
		return err
	}
	c.invalidate(ctx, id)
	// 已删除的记录不能再作为旧值兜底
	_ = c.cache.Forget(context.WithoutCancel(ctx), ListingKey(id))
	return nil
}

// invalidate 失败只记日志：写已经成功，缓存最坏情况是读到旧值
func (c *Client) invalidate(ctx context.Context, id string) {
	_ = c.cache.Invalidate(context.WithoutCancel(ctx), KeyListings, KeyBreeds, ListingKey(id))
}

// ---------- 会话 ----------

func (c *Client) Login(ctx context.Context, email, password string) (*Session, error) {
	var out Session
	body := map[string]string{"email": email, "password": password}
	if err := c.do(ctx, http.MethodPost, "/auth/login", nil, body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) Logout(ctx context.Context) error {
	return c.do(ctx, http.MethodPost, "/auth/logout", nil, nil, nil)
}

func (c *Client) Session(ctx context.Context) (*Session, error) {
	var out Session
	if err := c.do(ctx, http.MethodGet, "/auth/session", nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) do(ctx context.Context, method, path string, q url.Values, in, out any) error {
	u := c.base.JoinPath(path)
	if len(q) > 0 {
		u.RawQuery = q.Encode()
	}
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, u.String(), body)
	if err != nil {
		return err
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	res, err := c.hc.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w: %w", method, path, domain.ErrUnavailable, err)
	}
	defer res.Body.Close()

	if res.StatusCode >= 300 {
		ae := &APIError{Status: res.StatusCode}
		var eb struct {
			Message string            `json:"message"`
			Fields  map[string]string `json:"fields"`
		}
		if json.NewDecoder(res.Body).Decode(&eb) == nil {
			ae.Message, ae.Fields = eb.Message, eb.Fields
		}
		c.log.Debug("catalog api error", zap.String("method", method), zap.String("path", path), zap.Int("status", res.StatusCode))
		return ae
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, res.Body)
		return nil
	}
	if err := json.NewDecoder(res.Body).Decode(out); err != nil {
		return fmt.Errorf("%s %s: decode: %w", method, path, err)
	}
	return nil
}

// IsStale reports whether err came with a usable cached value.
func IsStale(err error) bool { return errors.Is(err, cache.ErrStale) }
