package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	gocache "github.com/patrickmn/go-cache"

	appErrors "github.com/noah-isme/timetable-api/pkg/errors"
)

// MemoryCacheRepository keeps cached views in process memory. It serves the
// same contract as CacheRepository when Redis is disabled.
type MemoryCacheRepository struct {
	store *gocache.Cache
}

// NewMemoryCacheRepository constructs a MemoryCacheRepository.
func NewMemoryCacheRepository(defaultTTL, cleanupInterval time.Duration) *MemoryCacheRepository {
	return &MemoryCacheRepository{store: gocache.New(defaultTTL, cleanupInterval)}
}

// Get retrieves and unmarshals the cached value into the provided destination.
func (r *MemoryCacheRepository) Get(_ context.Context, key string, dest interface{}) error {
	raw, found := r.store.Get(key)
	if !found {
		return appErrors.ErrCacheMiss
	}
	payload, ok := raw.([]byte)
	if !ok {
		return fmt.Errorf("unexpected cache value type %T for %s", raw, key)
	}
	if err := json.Unmarshal(payload, dest); err != nil {
		return fmt.Errorf("unmarshal cache value for %s: %w", key, err)
	}
	return nil
}

// Set marshals the provided value and stores it with the given TTL.
func (r *MemoryCacheRepository) Set(_ context.Context, key string, value interface{}, ttl time.Duration) error {
	payload, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("marshal cache value for %s: %w", key, err)
	}
	r.store.Set(key, payload, ttl)
	return nil
}

// DeleteByPattern removes keys matching a Redis glob pattern such as "timetable:*".
func (r *MemoryCacheRepository) DeleteByPattern(_ context.Context, pattern string) error {
	matcher, err := compileGlob(pattern)
	if err != nil {
		return fmt.Errorf("match cache pattern %s: %w", pattern, err)
	}
	for key := range r.store.Items() {
		if matcher.MatchString(key) {
			r.store.Delete(key)
		}
	}
	return nil
}

// compileGlob translates a Redis MATCH pattern. As in Redis, * and ? match
// any character including "/".
func compileGlob(pattern string) (*regexp.Regexp, error) {
	var b strings.Builder
	b.WriteString("^")
	for i := 0; i < len(pattern); i++ {
		switch ch := pattern[i]; ch {
		case '*':
			b.WriteString("(?s:.*)")
		case '?':
			b.WriteString("(?s:.)")
		case '\\':
			if i+1 < len(pattern) {
				i++
			}
			b.WriteString(regexp.QuoteMeta(pattern[i : i+1]))
		case '[':
			end := strings.IndexByte(pattern[i+1:], ']')
			if end < 0 {
				return nil, errors.New("unterminated character class")
			}
			class := pattern[i+1 : i+1+end]
			b.WriteString("[")
			if strings.HasPrefix(class, "^") {
				b.WriteString("^")
				class = class[1:]
			}
			b.WriteString(strings.NewReplacer(`\`, `\\`, `[`, `\[`).Replace(class))
			b.WriteString("]")
			i += end + 1
		default:
			b.WriteString(regexp.QuoteMeta(pattern[i : i+1]))
		}
	}
	b.WriteString("$")
	return regexp.Compile(b.String())
}
