package core

// Read-only status API. While a run is in flight the engines publish
// snapshots; this server exposes them over HTTP for operators watching a
// batch. It is advisory plumbing only and plays no part in the protocol.

import (
	"encoding/json"
	"net/http"
	"sort"
	"strings"

	"github.com/go-chi/chi/v5"
	log "github.com/sirupsen/logrus"
)

// StatusServer serves per-site progress snapshots.
type StatusServer struct {
	sites map[SiteID]*Site
}

// NewStatusServer creates a server over the given site set. The set is not
// copied; it must be sealed before engines start.
func NewStatusServer(sites map[SiteID]*Site) *StatusServer {
	return &StatusServer{sites: sites}
}

// Router builds the chi routing tree:
//
//	GET /healthz          liveness probe
//	GET /sites            all snapshots, ordered by identity
//	GET /sites/{id}       one snapshot; id is the full or short hex form
func (sv *StatusServer) Router() http.Handler {
	r := chi.NewRouter()
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Get("/sites", func(w http.ResponseWriter, _ *http.Request) {
		snaps := make([]SiteSnapshot, 0, len(sv.sites))
		for _, site := range sv.sites {
			snaps = append(snaps, site.Snapshot())
		}
		sort.Slice(snaps, func(i, j int) bool { return snaps[i].Site < snaps[j].Site })
		writeJSON(w, http.StatusOK, snaps)
	})
	r.Get("/sites/{id}", func(w http.ResponseWriter, req *http.Request) {
		wanted := strings.ToLower(chi.URLParam(req, "id"))
		for id, site := range sv.sites {
			if id.Hex() == wanted || strings.HasPrefix(id.Hex(), wanted) {
				writeJSON(w, http.StatusOK, site.Snapshot())
				return
			}
		}
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "unknown site"})
	})
	return r
}

// ListenAndServe runs the API on addr until the listener fails.
func (sv *StatusServer) ListenAndServe(addr string) error {
	log.Infof("status api listening on %s", addr)
	return http.ListenAndServe(addr, sv.Router())
}

func writeJSON(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Warnf("status api encode: %v", err)
	}
}
