package password

import (
	"bufio"
	"context"
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"
	"golang.org/x/time/rate"
)

const prefixLength = 5

// BreachConfig tunes the range-query client.
type BreachConfig struct {
	Enabled           bool          `mapstructure:"enabled"`
	Endpoint          string        `mapstructure:"endpoint"`
	Timeout           time.Duration `mapstructure:"timeout"`
	CacheSize         int           `mapstructure:"cache_size"`
	CacheTTL          time.Duration `mapstructure:"cache_ttl"`
	RequestsPerSecond float64       `mapstructure:"requests_per_second"`
	Burst             int           `mapstructure:"burst"`
}

// DefaultBreachConfig targets the public Pwned Passwords range API.
func DefaultBreachConfig() BreachConfig {
	return BreachConfig{
		Enabled:           true,
		Endpoint:          "https://api.pwnedpasswords.com",
		Timeout:           5 * time.Second,
		CacheSize:         2048,
		CacheTTL:          time.Hour,
		RequestsPerSecond: 20,
		Burst:             40,
	}
}

// BreachChecker queries a breach corpus with SHA-1 prefixes only.
type BreachChecker struct {
	cfg     BreachConfig
	client  *http.Client
	cache   *expirable.LRU[string, map[string]struct{}]
	group   singleflight.Group
	limiter *rate.Limiter
	log     logrus.FieldLogger
}

// NewBreachChecker returns a checker. client may be nil.
func NewBreachChecker(cfg BreachConfig, client *http.Client, log logrus.FieldLogger) *BreachChecker {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 5 * time.Second
	}
	if cfg.CacheSize <= 0 {
		cfg.CacheSize = 1
	}
	if cfg.Burst <= 0 {
		cfg.Burst = 1
	}
	if client == nil {
		client = &http.Client{Timeout: cfg.Timeout}
	}
	if log == nil {
		log = logrus.StandardLogger()
	}

	limit := rate.Inf
	if cfg.RequestsPerSecond > 0 {
		limit = rate.Limit(cfg.RequestsPerSecond)
	}

	return &BreachChecker{
		cfg:     cfg,
		client:  client,
		cache:   expirable.NewLRU[string, map[string]struct{}](cfg.CacheSize, nil, cfg.CacheTTL),
		limiter: rate.NewLimiter(limit, cfg.Burst),
		log:     log,
	}
}

// IsCompromised reports a corpus hit. Any failure reports false.
func (c *BreachChecker) IsCompromised(ctx context.Context, plaintext string) bool {
	if c == nil || !c.cfg.Enabled || plaintext == "" {
		return false
	}

	sum := sha1.Sum([]byte(plaintext))
	digest := strings.ToUpper(hex.EncodeToString(sum[:]))
	prefix, suffix := digest[:prefixLength], digest[prefixLength:]

	if suffixes, ok := c.cache.Get(prefix); ok {
		_, hit := suffixes[suffix]
		return hit
	}

	if !c.limiter.Allow() {
		c.log.WithField("component", "breach").Warn("breach lookup throttled, skipping")
		return false
	}

	// The shared fetch outlives any one caller; fetch bounds it with its own
	// timeout. Each caller still stops waiting when its ctx ends.
	detached := context.WithoutCancel(ctx)
	results := c.group.DoChan(prefix, func() (any, error) {
		suffixes, err := c.fetch(detached, prefix)
		if err != nil {
			return nil, err
		}
		c.cache.Add(prefix, suffixes)
		return suffixes, nil
	})

	select {
	case <-ctx.Done():
		c.log.WithError(ctx.Err()).WithField("component", "breach").Warn("breach lookup abandoned, skipping")
		return false
	case res := <-results:
		if res.Err != nil {
			c.log.WithError(res.Err).WithField("component", "breach").Warn("breach lookup failed, skipping")
			return false
		}
		_, hit := res.Val.(map[string]struct{})[suffix]
		return hit
	}
}

func (c *BreachChecker) fetch(ctx context.Context, prefix string) (map[string]struct{}, error) {
	ctx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	url := strings.TrimRight(c.cfg.Endpoint, "/") + "/range/" + prefix
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Add-Padding", "true")
	req.Header.Set("User-Agent", "goAccount-breach-check")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("breach range status %d", resp.StatusCode)
	}

	suffixes := make(map[string]struct{})
	scanner := bufio.NewScanner(resp.Body)
	for scanner.Scan() {
		hash, count, ok := strings.Cut(strings.TrimSpace(scanner.Text()), ":")
		if !ok {
			continue
		}
		// Padding entries carry a zero count.
		if n, err := strconv.Atoi(strings.TrimSpace(count)); err != nil || n == 0 {
			continue
		}
		suffixes[strings.ToUpper(hash)] = struct{}{}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}

	return suffixes, nil
}
