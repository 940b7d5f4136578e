package password

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sha1Upper(s string) string {
	sum := sha1.Sum([]byte(s))
	return strings.ToUpper(hex.EncodeToString(sum[:]))
}

func testBreachConfig(endpoint string) BreachConfig {
	cfg := DefaultBreachConfig()
	cfg.Endpoint = endpoint
	cfg.Timeout = time.Second
	return cfg
}

func TestBreachCheckerSendsOnlyPrefix(t *testing.T) {
	digest := sha1Upper("password123")
	var gotPath atomic.Value

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath.Store(r.URL.Path)
		assert.Equal(t, "true", r.Header.Get("Add-Padding"))
		fmt.Fprintf(w, "0000000000000000000000000000000000A:0\r\n%s:42\r\n", digest[5:])
	}))
	defer srv.Close()

	checker := NewBreachChecker(testBreachConfig(srv.URL), srv.Client(), nil)
	assert.True(t, checker.IsCompromised(context.Background(), "password123"))

	path, _ := gotPath.Load().(string)
	require.Equal(t, "/range/"+digest[:5], path)
	assert.NotContains(t, path, digest[5:])
}

func TestBreachCheckerMissAndPadding(t *testing.T) {
	digest := sha1Upper("not-in-corpus")

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// The suffix is present only as a padding line.
		fmt.Fprintf(w, "%s:0\n", digest[5:])
	}))
	defer srv.Close()

	checker := NewBreachChecker(testBreachConfig(srv.URL), srv.Client(), nil)
	assert.False(t, checker.IsCompromised(context.Background(), "not-in-corpus"))
}

func TestBreachCheckerFailsOpen(t *testing.T) {
	for _, status := range []int{http.StatusTooManyRequests, http.StatusInternalServerError} {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(status)
		}))
		checker := NewBreachChecker(testBreachConfig(srv.URL), srv.Client(), nil)
		assert.False(t, checker.IsCompromised(context.Background(), "anything"), "status %d", status)
		srv.Close()
	}
}

func TestBreachCheckerFailsOpenOnTimeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	cfg := testBreachConfig(srv.URL)
	cfg.Timeout = 50 * time.Millisecond
	checker := NewBreachChecker(cfg, srv.Client(), nil)

	start := time.Now()
	assert.False(t, checker.IsCompromised(context.Background(), "slow"))
	assert.Less(t, time.Since(start), 2*time.Second)
}

func TestBreachCheckerFailsOpenOnUnreachableHost(t *testing.T) {
	checker := NewBreachChecker(testBreachConfig("http://127.0.0.1:1"), nil, nil)
	assert.False(t, checker.IsCompromised(context.Background(), "anything"))
}

func TestBreachCheckerCachesPrefix(t *testing.T) {
	digest := sha1Upper("cached-pw")
	var hits atomic.Int32

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		fmt.Fprintf(w, "%s:3\n", digest[5:])
	}))
	defer srv.Close()

	checker := NewBreachChecker(testBreachConfig(srv.URL), srv.Client(), nil)
	for i := 0; i < 3; i++ {
		assert.True(t, checker.IsCompromised(context.Background(), "cached-pw"))
	}
	assert.Equal(t, int32(1), hits.Load())
}

func TestBreachCheckerDisabled(t *testing.T) {
	cfg := testBreachConfig("http://127.0.0.1:1")
	cfg.Enabled = false
	assert.False(t, NewBreachChecker(cfg, nil, nil).IsCompromised(context.Background(), "x"))
}

func TestBreachCheckerSharedLookupSurvivesCancelledCaller(t *testing.T) {
	digest := sha1Upper("shared-pw")
	var hits atomic.Int32
	started := make(chan struct{})
	release := make(chan struct{})

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits.Add(1) == 1 {
			close(started)
		}
		<-release
		fmt.Fprintf(w, "%s:7\n", digest[5:])
	}))
	defer srv.Close()

	checker := NewBreachChecker(testBreachConfig(srv.URL), srv.Client(), nil)

	leaderCtx, cancelLeader := context.WithCancel(context.Background())
	leader := make(chan bool, 1)
	go func() { leader <- checker.IsCompromised(leaderCtx, "shared-pw") }()
	<-started

	follower := make(chan bool, 1)
	go func() { follower <- checker.IsCompromised(context.Background(), "shared-pw") }()

	cancelLeader()
	select {
	case hit := <-leader:
		assert.False(t, hit, "a cancelled caller fails open")
	case <-time.After(time.Second):
		t.Fatal("cancelled caller kept waiting")
	}

	close(release)
	select {
	case hit := <-follower:
		assert.True(t, hit)
	case <-time.After(2 * time.Second):
		t.Fatal("follower never completed")
	}
	assert.Equal(t, int32(1), hits.Load())
	assert.True(t, checker.IsCompromised(context.Background(), "shared-pw"), "result cached")
	assert.Equal(t, int32(1), hits.Load())
}
