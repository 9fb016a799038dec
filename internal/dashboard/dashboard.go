// Package dashboard serves the browser console: a chat page wired to the
// chat WebSocket plus dispatch statistics from the audit trail.
package dashboard

import (
	_ "embed"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/ziadkadry99/cf-pulse/internal/audit"
	"github.com/ziadkadry99/cf-pulse/internal/catalog"
	"github.com/ziadkadry99/cf-pulse/internal/memory"
)

//go:embed index.html
var indexHTML []byte

// Dashboard provides the console page and its JSON endpoints. Audit and
// Memory may be nil.
type Dashboard struct {
	catalog *catalog.Catalog
	audit   *audit.Store
	memory  memory.Store
}

// New creates a new Dashboard.
func New(cat *catalog.Catalog, auditStore *audit.Store, mem memory.Store) *Dashboard {
	return &Dashboard{catalog: cat, audit: auditStore, memory: mem}
}

// RegisterRoutes mounts all dashboard routes onto the given router.
func (d *Dashboard) RegisterRoutes(r chi.Router) {
	r.Get("/", d.ServeIndex)
	r.Get("/api/dashboard/stats", d.handleStats)
	r.Get("/api/dashboard/recent", d.handleRecent)
}

// ServeIndex serves the embedded HTML console.
func (d *Dashboard) ServeIndex(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write(indexHTML)
}
