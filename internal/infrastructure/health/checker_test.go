package health

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/Ishswami-Tech/HealthCareBackend-sub004/internal/core/domain"

	"go.uber.org/zap/zaptest"
)

func testOptions() Options {
	opts := DefaultOptions()
	opts.RetryDelay = time.Millisecond
	opts.AttemptTimeout = time.Second
	opts.ProbesPerMinute = 0 // unlimited in tests
	return opts
}

func newTestChecker(t *testing.T, url string, opts Options) *Checker {
	t.Helper()
	return NewChecker(url, opts, zaptest.NewLogger(t).Sugar())
}

func TestCheckHealth_OKIsHealthy(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	checker := newTestChecker(t, srv.URL, testOptions())
	health := checker.CheckHealth(context.Background(), "openvidu")

	if !health.IsUp {
		t.Fatalf("expected healthy, got %+v", health)
	}
	if health.Provider != "openvidu" {
		t.Fatalf("expected provider name carried through, got %q", health.Provider)
	}
}

func TestCheckHealth_AuthRejectionIsHealthy(t *testing.T) {
	for _, status := range []int{http.StatusUnauthorized, http.StatusForbidden} {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(status)
		}))

		checker := newTestChecker(t, srv.URL, testOptions())
		health := checker.CheckHealth(context.Background(), "openvidu")
		srv.Close()

		if !health.IsUp {
			t.Fatalf("expected %d to count as healthy, got %+v", status, health)
		}
	}
}

func TestCheckHealth_ServiceUnavailableNotRetried(t *testing.T) {
	var attempts int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&attempts, 1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	opts := testOptions()
	opts.FallbackPath = ""
	checker := newTestChecker(t, srv.URL, opts)
	health := checker.CheckHealth(context.Background(), "openvidu")

	if health.IsUp {
		t.Fatal("expected unhealthy on 503")
	}
	if health.LastError != domain.ErrorKindServer {
		t.Fatalf("expected server error kind, got %q", health.LastError)
	}
	if got := atomic.LoadInt32(&attempts); got != 1 {
		t.Fatalf("503 should short-circuit retries, got %d attempts", got)
	}
}

func TestCheckHealth_ConnectionFailureRetriedAndClassified(t *testing.T) {
	// Reserve a port and close the listener so connections are refused.
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	opts := testOptions()
	opts.Attempts = 3
	checker := newTestChecker(t, url, opts)

	start := time.Now()
	health := checker.CheckHealth(context.Background(), "openvidu")

	if health.IsUp {
		t.Fatal("expected unhealthy when connections are refused")
	}
	if health.LastError != domain.ErrorKindConnection {
		t.Fatalf("expected connection error kind, got %q", health.LastError)
	}
	// Two retry delays between three attempts.
	if elapsed := time.Since(start); elapsed < 2*time.Millisecond {
		t.Fatalf("expected retries to take at least two delays, took %v", elapsed)
	}
}

func TestCheckHealth_FallbackPathRescuesUnexpectedStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/openvidu/api/config" {
			w.WriteHeader(http.StatusOK)
			return
		}
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	checker := newTestChecker(t, srv.URL, testOptions())
	health := checker.CheckHealth(context.Background(), "openvidu")

	if !health.IsUp {
		t.Fatalf("expected fallback path to rescue the probe, got %+v", health)
	}
}

func TestCheckHealth_FallbackServiceUnavailableShortCircuits(t *testing.T) {
	var attempts int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/" {
			atomic.AddInt32(&attempts, 1)
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	checker := newTestChecker(t, srv.URL, testOptions())
	health := checker.CheckHealth(context.Background(), "openvidu")

	if health.IsUp {
		t.Fatal("expected unhealthy when fallback reports 503")
	}
	if got := atomic.LoadInt32(&attempts); got != 1 {
		t.Fatalf("fallback 503 should short-circuit retries, got %d primary attempts", got)
	}
}

func TestCheckHealth_ServerErrorSkipsFallback(t *testing.T) {
	var fallbackHits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			atomic.AddInt32(&fallbackHits, 1)
		}
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	checker := newTestChecker(t, srv.URL, testOptions())
	health := checker.CheckHealth(context.Background(), "openvidu")

	if health.IsUp {
		t.Fatal("expected unhealthy on persistent 500")
	}
	// The fallback probes reachability on unexpected 4xx; a 5xx already
	// proves the platform reachable and failing.
	if got := atomic.LoadInt32(&fallbackHits); got != 0 {
		t.Fatalf("expected the fallback path to stay untouched, got %d probes", got)
	}
}

func TestCheckHealth_ServerErrorRetriedToExhaustion(t *testing.T) {
	var attempts int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&attempts, 1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	opts := testOptions()
	opts.Attempts = 3
	opts.FallbackPath = ""
	checker := newTestChecker(t, srv.URL, opts)
	health := checker.CheckHealth(context.Background(), "openvidu")

	if health.IsUp {
		t.Fatal("expected unhealthy on persistent 500")
	}
	if health.LastError != domain.ErrorKindServer {
		t.Fatalf("expected server error kind, got %q", health.LastError)
	}
	if got := atomic.LoadInt32(&attempts); got != 3 {
		t.Fatalf("expected 3 attempts, got %d", got)
	}
}
