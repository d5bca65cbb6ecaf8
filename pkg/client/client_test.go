package client

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/api/running", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"apps":["testgame.exe"]}`))
	})
	mux.HandleFunc("/api/running-set", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"apps":["a.exe","b.exe"]}`))
	})
	mux.HandleFunc("/api/stats", func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Query().Get("name") {
		case "":
			_, _ = w.Write([]byte(`{"testgame.exe":{"playtime":3,"launches":1,"cpu":2.5,"memory":1}}`))
		case "testgame.exe":
			_, _ = w.Write([]byte(`{"playtime":3,"launches":1,"cpu":2.5,"memory":1}`))
		default:
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"error":"not found"}`))
		}
	})
	mux.HandleFunc("/api/catalog", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[{"name":"Test Game","id":"42"}]`))
	})
	mux.HandleFunc("/api/catalog/rescan", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			w.WriteHeader(http.StatusMethodNotAllowed)
			_, _ = w.Write([]byte(`{"error":"method not allowed"}`))
			return
		}
		_, _ = w.Write([]byte(`[]`))
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestClientEndpoints(t *testing.T) {
	srv := newTestServer(t)
	c := New(Config{BaseURL: srv.URL + "/api", Timeout: 2 * time.Second})
	ctx := context.Background()

	if !c.IsReachable(ctx) {
		t.Fatalf("expected reachable")
	}
	apps, err := c.Running(ctx)
	if err != nil || len(apps) != 1 || apps[0] != "testgame.exe" {
		t.Fatalf("running: %v %v", apps, err)
	}
	set, err := c.RunningSet(ctx)
	if err != nil || len(set) != 2 {
		t.Fatalf("running set: %v %v", set, err)
	}
	all, err := c.Stats(ctx)
	if err != nil || all["testgame.exe"].Launches != 1 {
		t.Fatalf("stats: %v %v", all, err)
	}
	one, err := c.AppStats(ctx, "testgame.exe")
	if err != nil || one.CPUPercent != 2.5 {
		t.Fatalf("app stats: %+v %v", one, err)
	}
	cat, err := c.Catalog(ctx)
	if err != nil || len(cat) != 1 || cat[0].ID != "42" {
		t.Fatalf("catalog: %v %v", cat, err)
	}
	if _, err := c.Rescan(ctx); err != nil {
		t.Fatalf("rescan: %v", err)
	}
}

func TestClientAppStatsNotFound(t *testing.T) {
	srv := newTestServer(t)
	c := New(Config{BaseURL: srv.URL + "/api"})
	_, err := c.AppStats(context.Background(), "missing.exe")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestClientUnreachable(t *testing.T) {
	c := New(Config{BaseURL: "http://127.0.0.1:1/api", Timeout: 200 * time.Millisecond})
	if c.IsReachable(context.Background()) {
		t.Fatalf("expected unreachable")
	}
	if _, err := c.Running(context.Background()); err == nil {
		t.Fatalf("expected error")
	}
}

func TestDefaults(t *testing.T) {
	c := New(Config{})
	if c.baseURL != DefaultConfig().BaseURL || c.client.Timeout != 10*time.Second {
		t.Fatalf("unexpected defaults: %s %v", c.baseURL, c.client.Timeout)
	}
}
