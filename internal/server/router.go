package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/loykin/playtrack/internal/catalog"
	"github.com/loykin/playtrack/internal/store"
)

// Reader is the read side of the tracker exposed over HTTP.
type Reader interface {
	RunningApplications(ctx context.Context) ([]string, error)
	Running() []string
	Snapshot() store.Stats
	Stats(name string) (store.AppStats, bool)
	Catalog() []catalog.Entry
	RescanCatalog() []catalog.Entry
}

// Router provides embeddable HTTP handlers for reading tracker state.
// Endpoints:
//
//	GET  {basePath}/running          live processes matching the catalog
//	GET  {basePath}/running-set      names in the tracker running set
//	GET  {basePath}/stats            full stats map; ?name=... for one entry
//	GET  {basePath}/catalog          last catalog scan
//	POST {basePath}/catalog/rescan   rescan and return the new catalog
//
// basePath may be empty or start with '/'; no trailing slash.
type Router struct {
	r        Reader
	basePath string
}

// NewRouter constructs a new Router with configurable basePath.
// Example basePath: "/api" results in /api/running, /api/stats, ...
func NewRouter(r Reader, basePath string) *Router {
	return &Router{r: r, basePath: sanitizeBase(basePath)}
}

// Handler returns an http.Handler powered by gin that can be mounted in any server/mux.
func (r *Router) Handler() http.Handler {
	g := gin.New()
	g.Use(gin.Recovery())
	group := g.Group(r.basePath)
	group.GET("/running", r.handleRunning)
	group.GET("/running-set", r.handleRunningSet)
	group.GET("/stats", r.handleStats)
	group.GET("/catalog", r.handleCatalog)
	group.POST("/catalog/rescan", r.handleRescan)
	return g
}

// NewServer starts a standalone HTTP server on addr using this router.
// Shut it down with the returned server's Shutdown or Close.
func NewServer(addr, basePath string, rd Reader) (*http.Server, error) {
	r := NewRouter(rd, basePath)
	server := &http.Server{
		Addr:              addr,
		Handler:           r.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	go func() { _ = server.ListenAndServe() }()
	return server, nil
}

// --- Handlers ---

type errorResp struct {
	Error string `json:"error"`
}

// AppsResp is the body of the running endpoints.
type AppsResp struct {
	Apps []string `json:"apps"`
}

func (r *Router) handleRunning(c *gin.Context) {
	apps, err := r.r.RunningApplications(c.Request.Context())
	if err != nil {
		writeJSON(c, http.StatusInternalServerError, errorResp{Error: err.Error()})
		return
	}
	writeJSON(c, http.StatusOK, AppsResp{Apps: nonNil(apps)})
}

func (r *Router) handleRunningSet(c *gin.Context) {
	writeJSON(c, http.StatusOK, AppsResp{Apps: nonNil(r.r.Running())})
}

func (r *Router) handleStats(c *gin.Context) {
	name := c.Query("name")
	if name == "" {
		writeJSON(c, http.StatusOK, r.r.Snapshot())
		return
	}
	a, ok := r.r.Stats(name)
	if !ok {
		writeJSON(c, http.StatusNotFound, errorResp{Error: store.ErrNotFound.Error() + ": " + name})
		return
	}
	writeJSON(c, http.StatusOK, a)
}

func (r *Router) handleCatalog(c *gin.Context) {
	writeJSON(c, http.StatusOK, nonNilEntries(r.r.Catalog()))
}

func (r *Router) handleRescan(c *gin.Context) {
	writeJSON(c, http.StatusOK, nonNilEntries(r.r.RescanCatalog()))
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

func nonNilEntries(e []catalog.Entry) []catalog.Entry {
	if e == nil {
		return []catalog.Entry{}
	}
	return e
}
