package middlewares

import (
	"bytes"
	"context"
	"crypto/md5"
	"encoding/hex"
	"errors"
	"log/slog"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/klauspost/compress/gzip"

	"github.com/dmitrymomot/subframe/internal"
	"github.com/dmitrymomot/subframe/pkg/cache"
	"github.com/dmitrymomot/subframe/pkg/logger"
)

// DefaultCacheTTL is how long a rendered page stays cached.
const DefaultCacheTTL = 24 * time.Hour

// CachedPage is a response as kept in the page cache.
// The body is stored already compressed for gzip variants.
// Stored is the write time; it versions entries that never expire.
type CachedPage struct {
	Stored time.Time         `json:"stored"`
	Header map[string]string `json:"header,omitempty"`
	Body   []byte            `json:"body"`
	Status int               `json:"status"`
}

// Size reports the approximate memory held by the page, so that an in-memory
// store created with cache.WithMaxBytes can bound the cache.
func (p CachedPage) Size() int {
	n := len(p.Body)
	for k, v := range p.Header {
		n += len(k) + len(v)
	}
	return n
}

// CacheConfig configures the page cache middleware.
type CacheConfig struct {
	Include      *regexp.Regexp // Only URIs matching are cached (nil: all)
	Exclude      *regexp.Regexp // URIs matching are never cached (nil: none)
	ContentTypes []string       // Cachable content type prefixes (default: text/html)
	TTL          time.Duration  // Entry lifetime (default: 24h, negative: never expires)
	DisableGzip  bool           // Store and serve a single uncompressed variant
}

// CacheOption configures CacheConfig.
type CacheOption func(*CacheConfig)

// WithCacheTTL sets the lifetime of cached pages.
func WithCacheTTL(d time.Duration) CacheOption {
	return func(cfg *CacheConfig) {
		cfg.TTL = d
	}
}

// WithCacheInclude restricts caching to URIs matching pattern.
// The pattern is unanchored and matched against the normalized path.
func WithCacheInclude(pattern string) CacheOption {
	return func(cfg *CacheConfig) {
		cfg.Include = regexp.MustCompile(pattern)
	}
}

// WithCacheExclude prevents caching of URIs matching pattern.
func WithCacheExclude(pattern string) CacheOption {
	return func(cfg *CacheConfig) {
		cfg.Exclude = regexp.MustCompile(pattern)
	}
}

// WithCacheContentTypes sets the content types that may be cached.
func WithCacheContentTypes(types ...string) CacheOption {
	return func(cfg *CacheConfig) {
		cfg.ContentTypes = types
	}
}

// WithCacheDisableGzip stores pages uncompressed regardless of Accept-Encoding.
func WithCacheDisableGzip() CacheOption {
	return func(cfg *CacheConfig) {
		cfg.DisableGzip = true
	}
}

// Cache returns middleware that caches rendered pages and answers
// conditional GET requests.
//
// For a cachable GET it first validates the client's copy: a matching
// If-None-Match, or an If-Modified-Since not older than the stored page,
// yields a bare 304. A live entry is served without calling next. Otherwise
// the request is dispatched and a 200 response with a cachable content type
// and a non-empty body is stored, stamped with ETag, Last-Modified and Vary.
//
// Other methods and URIs rejected by Include/Exclude bypass the cache.
// Cache failures are logged and treated as misses.
func Cache(store cache.Cache[CachedPage], opts ...CacheOption) internal.Middleware {
	cfg := &CacheConfig{
		TTL:          DefaultCacheTTL,
		ContentTypes: []string{"text/html"},
	}

	for _, opt := range opts {
		opt(cfg)
	}

	if cfg.TTL == 0 {
		cfg.TTL = DefaultCacheTTL
	}

	return internal.MiddlewareFunc(func(ctx context.Context, req *internal.Request, next internal.Handler) (*internal.Response, error) {
		if !cfg.cachable(req) {
			return next.Handle(ctx, req)
		}

		gz := !cfg.DisableGzip && acceptsGzip(req)
		key := CacheKey(req, gz)

		if resp, ok := cfg.lookup(ctx, store, req, key, gz); ok {
			return resp, nil
		}

		resp, err := next.Handle(ctx, req)
		if err != nil || resp == nil || !cfg.storable(resp) {
			return resp, err
		}

		return cfg.save(ctx, store, key, gz, resp), nil
	})
}

// CacheKey derives the cache key of a request: the URI with its query, with
// '/', '?', '&' and '.' replaced by '-', prefixed with "response".
// Gzip variants get a ".gz" suffix.
func CacheKey(req *internal.Request, gz bool) string {
	uri := req.URI()
	if q := req.RawQuery(); q != "" {
		uri += "?" + q
	}
	key := "response" + keyReplacer.Replace(uri)
	if gz {
		key += ".gz"
	}
	return key
}

var keyReplacer = strings.NewReplacer("/", "-", "?", "-", "&", "-", ".", "-")

// ETag returns the quoted entity tag of a cache entry.
// version is the entry's expiry, or its write time when it never expires,
// so the tag changes whenever the entry is stored again.
func ETag(key string, version time.Time) string {
	var ts int64
	if !version.IsZero() {
		ts = version.UnixNano()
	}
	sum := md5.Sum([]byte(key + strconv.FormatInt(ts, 10)))
	return `"` + hex.EncodeToString(sum[:]) + `"`
}

func (cfg *CacheConfig) cachable(req *internal.Request) bool {
	if req.Method() != http.MethodGet {
		return false
	}
	uri := req.URI()
	if cfg.Include != nil && !cfg.Include.MatchString(uri) {
		return false
	}
	if cfg.Exclude != nil && cfg.Exclude.MatchString(uri) {
		return false
	}
	return true
}

func (cfg *CacheConfig) storable(resp *internal.Response) bool {
	if resp.StatusCode() != http.StatusOK || resp.BodyLen() == 0 || resp.HasHeader("Content-Encoding") {
		return false
	}

	ct := strings.ToLower(resp.Header("Content-Type"))
	if ct == "" {
		return true
	}
	for _, t := range cfg.ContentTypes {
		if strings.HasPrefix(ct, strings.ToLower(t)) {
			return true
		}
	}
	return false
}

// lookup answers from the cache. It reports false on a miss.
func (cfg *CacheConfig) lookup(ctx context.Context, store cache.Cache[CachedPage], req *internal.Request, key string, gz bool) (*internal.Response, bool) {
	log := logger.FromContext(ctx)

	expiry, err := store.ExpiryTime(ctx, key)
	if err != nil {
		if !errors.Is(err, cache.ErrNotFound) {
			log.WarnContext(ctx, "page cache lookup failed", slog.String("key", key), slog.String("error", err.Error()))
		}
		return nil, false
	}
	if !expiry.IsZero() && !expiry.After(time.Now()) {
		return nil, false
	}

	var page CachedPage
	loaded := cfg.versionedByStamp(expiry)
	if loaded {
		if page, err = cfg.read(ctx, store, key); err != nil {
			return nil, false
		}
	}

	version, storedAt := cfg.validators(expiry, page.Stored)
	etag := ETag(key, version)

	if inm := req.Header("If-None-Match"); inm != "" && etagMatches(inm, etag) {
		return notModified(etag, time.Time{}), true
	}

	if ims := req.Header("If-Modified-Since"); ims != "" && !storedAt.IsZero() {
		if t, err := http.ParseTime(ims); err == nil && !storedAt.Truncate(time.Second).After(t) {
			return notModified(etag, storedAt), true
		}
	}

	if !loaded {
		if page, err = cfg.read(ctx, store, key); err != nil {
			return nil, false
		}
	}

	resp := internal.NewResponseBytes(page.Body, page.Status, page.Header)
	if gz {
		resp = resp.WithHeader("Content-Encoding", "gzip")
	}
	return stamp(resp, etag, storedAt), true
}

// save stores resp and returns it stamped with validators.
// A gzip variant is returned compressed, as it will be served from the cache.
func (cfg *CacheConfig) save(ctx context.Context, store cache.Cache[CachedPage], key string, gz bool, resp *internal.Response) *internal.Response {
	log := logger.FromContext(ctx)

	body := resp.Body()
	if gz {
		compressed, err := gzipBytes(body)
		if err != nil {
			log.WarnContext(ctx, "page cache compression failed", slog.String("key", key), slog.String("error", err.Error()))
			return resp
		}
		body = compressed
	}

	page := CachedPage{Stored: time.Now(), Status: resp.StatusCode(), Body: body}
	if ct := resp.Header("Content-Type"); ct != "" {
		page.Header = map[string]string{"Content-Type": ct}
	}

	if err := store.Set(ctx, key, page, cfg.TTL); err != nil {
		log.WarnContext(ctx, "page cache write failed", slog.String("key", key), slog.String("error", err.Error()))
		return resp
	}

	expiry, err := store.ExpiryTime(ctx, key)
	if err != nil {
		log.WarnContext(ctx, "page cache expiry lookup failed", slog.String("key", key), slog.String("error", err.Error()))
		return resp
	}

	if gz {
		resp = resp.WithBody(body).WithHeader("Content-Encoding", "gzip")
	}
	version, storedAt := cfg.validators(expiry, page.Stored)
	return stamp(resp, ETag(key, version), storedAt)
}

func (cfg *CacheConfig) read(ctx context.Context, store cache.Cache[CachedPage], key string) (CachedPage, error) {
	page, err := store.Get(ctx, key)
	if err != nil && !errors.Is(err, cache.ErrNotFound) {
		logger.FromContext(ctx).WarnContext(ctx, "page cache read failed", slog.String("key", key), slog.String("error", err.Error()))
	}
	return page, err
}

// versionedByStamp reports whether validators come from the page's write
// stamp instead of its expiry.
func (cfg *CacheConfig) versionedByStamp(expiry time.Time) bool {
	return expiry.IsZero() || cfg.TTL < 0
}

// validators returns the time that versions an entry and the time it was
// written. With a known TTL both derive from the expiry; otherwise both are
// the page's write stamp.
func (cfg *CacheConfig) validators(expiry, stored time.Time) (version, modified time.Time) {
	if cfg.versionedByStamp(expiry) {
		return stored, stored
	}
	return expiry, expiry.Add(-cfg.TTL)
}

func stamp(resp *internal.Response, etag string, modified time.Time) *internal.Response {
	resp = resp.WithHeader("ETag", etag).WithHeader("Vary", "Accept-Encoding")
	if !modified.IsZero() {
		resp = resp.WithHeader("Last-Modified", modified.UTC().Format(http.TimeFormat))
	}
	return resp
}

func notModified(etag string, modified time.Time) *internal.Response {
	return stamp(internal.NewResponse("", http.StatusNotModified, nil), etag, modified)
}

// etagMatches compares an If-None-Match value against etag using the weak
// comparison function. The value may be a list or "*".
func etagMatches(header, etag string) bool {
	for candidate := range strings.SplitSeq(header, ",") {
		candidate = strings.TrimSpace(candidate)
		if candidate == "*" {
			return true
		}
		candidate = strings.TrimPrefix(candidate, "W/")
		if candidate == etag || `"`+candidate+`"` == etag {
			return true
		}
	}
	return false
}

func acceptsGzip(req *internal.Request) bool {
	for enc := range strings.SplitSeq(req.Header("Accept-Encoding"), ",") {
		name, params, _ := strings.Cut(strings.TrimSpace(enc), ";")
		if !strings.EqualFold(strings.TrimSpace(name), "gzip") {
			continue
		}
		q := strings.ReplaceAll(params, " ", "")
		return q != "q=0" && q != "q=0.0" && q != "q=0.00" && q != "q=0.000"
	}
	return false
}

func gzipBytes(b []byte) ([]byte, error) {
	var buf bytes.Buffer
	zw, err := gzip.NewWriterLevel(&buf, gzip.BestCompression)
	if err != nil {
		return nil, err
	}
	if _, err := zw.Write(b); err != nil {
		return nil, err
	}
	if err := zw.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
