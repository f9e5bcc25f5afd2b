package cache

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/andresuchdata/stockfloat/internal/config"
	"github.com/andresuchdata/stockfloat/internal/domain"
)

func TestFilterHashIgnoresOrderAndCase(t *testing.T) {
	t.Parallel()

	a := domain.Filters{Market: "AU", Varieties: []string{"SAB", "pin"}, Distributors: []string{"NSW", "vic"}}
	b := domain.Filters{Market: "au", Varieties: []string{"PIN", "sab"}, Distributors: []string{"VIC", "nsw"}, Horizon: domain.DefaultForwardHorizon}
	if FilterHash(a) != FilterHash(b) {
		t.Errorf("equivalent filters hashed differently")
	}

	c := a
	c.Threshold = 250
	if FilterHash(a) == FilterHash(c) {
		t.Errorf("threshold must change the hash")
	}
	d := a
	d.Market = "all"
	if FilterHash(d) != FilterHash(domain.Filters{Varieties: a.Varieties, Distributors: a.Distributors}) {
		t.Errorf("market=all should equal no market")
	}
}

func TestProjectionKeyIncludesVersion(t *testing.T) {
	t.Parallel()

	f := domain.Filters{Market: "usa"}
	k1 := buildProjectionKey("v1", f)
	k2 := buildProjectionKey("v2", f)
	if k1 == k2 || !strings.HasPrefix(k1, projectionKeyPrefix+":v1:") {
		t.Errorf("keys = %q / %q", k1, k2)
	}
}

func TestDisabledCacheIsNoop(t *testing.T) {
	t.Parallel()

	c, err := NewProjectionCache(config.CacheConfig{Enabled: false})
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()
	if err := c.Set(ctx, "v", domain.Filters{}, domain.ProjectionResult{}); err != nil {
		t.Fatal(err)
	}
	if _, ok, err := c.Get(ctx, "v", domain.Filters{}); ok || err != nil {
		t.Errorf("noop cache returned a hit (%v, %v)", ok, err)
	}
}

func TestBuildRedisOptions(t *testing.T) {
	t.Parallel()

	opts, err := buildRedisOptions(config.CacheConfig{RedisHost: "cache", RedisPort: "6380", RedisDB: 2})
	if err != nil {
		t.Fatal(err)
	}
	if opts.Addr != "cache:6380" || opts.DB != 2 {
		t.Errorf("options = %+v", opts)
	}
	if _, err := buildRedisOptions(config.CacheConfig{RedisURL: "::not a url"}); err == nil {
		t.Errorf("invalid url should fail")
	}
}

func TestIsOutOfMemory(t *testing.T) {
	t.Parallel()

	if !isOutOfMemory(errors.New("OOM command not allowed when used memory > 'maxmemory'.")) {
		t.Errorf("OOM reply not recognised")
	}
	if isOutOfMemory(errors.New("connection refused")) {
		t.Errorf("network error treated as OOM")
	}
}
