package gateway

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"sort"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/ziadkadry99/cf-pulse/internal/catalog"
	"github.com/ziadkadry99/cf-pulse/internal/platform"
	"github.com/ziadkadry99/cf-pulse/internal/scope"
)

// RegisterRoutes mounts the direct query surface.
func RegisterRoutes(r chi.Router, d *Dispatcher) {
	r.Route("/api/commands", func(r chi.Router) {
		r.Get("/", handleListCommands(d))
		r.Get("/{name}", handleGetCommand(d))
		r.Post("/{name}", handleDispatch(d))
	})
	r.Get("/orgs", handleOrgs(d))
	r.Get("/spaces", handleSpaces(d))
}

func handleListCommands(d *Dispatcher) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, d.Catalog().Commands())
	}
}

func handleGetCommand(d *Dispatcher) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		spec, ok := d.Catalog().Lookup(chi.URLParam(r, "name"))
		if !ok {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "unknown command", "kind": string(KindUnknownCommand)})
			return
		}
		writeJSON(w, http.StatusOK, spec)
	}
}

type dispatchRequest struct {
	Org   string       `json:"org"`
	Space string       `json:"space"`
	Args  catalog.Args `json:"args"`
}

func handleDispatch(d *Dispatcher) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req dispatchRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
			return
		}
		// Query parameters fill in a scope the body left empty.
		q := r.URL.Query()
		if req.Org == "" {
			req.Org = q.Get("org")
		}
		if req.Space == "" {
			req.Space = q.Get("space")
		}

		ctx := WithOrigin(r.Context(), Origin{Source: SourceQuery})
		res := d.Dispatch(ctx, chi.URLParam(r, "name"), scope.Resolve(req.Org, req.Space), req.Args)
		writeJSON(w, StatusFor(res), res)
	}
}

type namedEntry struct {
	Name string `json:"name"`
}

func handleOrgs(d *Dispatcher) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := WithOrigin(r.Context(), Origin{Source: SourceQuery})
		res := d.Dispatch(ctx, catalog.OrganizationsList, scope.Scope{}, nil)
		if !res.OK() {
			writeJSON(w, StatusFor(res), res)
			return
		}
		orgs, _ := res.Payload.([]platform.Organization)
		names := make([]namedEntry, 0, len(orgs))
		for _, o := range orgs {
			names = append(names, namedEntry{Name: o.Name})
		}
		sortByName(names)
		writeJSON(w, http.StatusOK, names)
	}
}

func handleSpaces(d *Dispatcher) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		org := r.URL.Query().Get("org")
		if org == "" {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "org parameter is required"})
			return
		}
		ctx := WithOrigin(r.Context(), Origin{Source: SourceQuery})
		res := d.Dispatch(ctx, catalog.SpacesList, scope.Resolve(org, ""), nil)
		if !res.OK() {
			writeJSON(w, StatusFor(res), res)
			return
		}
		spaces, _ := res.Payload.([]platform.Space)
		names := make([]namedEntry, 0, len(spaces))
		for _, s := range spaces {
			names = append(names, namedEntry{Name: s.Name})
		}
		sortByName(names)
		writeJSON(w, http.StatusOK, names)
	}
}

func sortByName(entries []namedEntry) {
	sort.SliceStable(entries, func(i, j int) bool {
		return strings.ToLower(entries[i].Name) < strings.ToLower(entries[j].Name)
	})
}

// StatusFor maps a result onto an HTTP status code.
func StatusFor(res Result) int {
	if res.OK() {
		return http.StatusOK
	}
	switch res.Failure.Kind {
	case KindUnknownCommand, KindNotFound, KindScopeNotFound:
		return http.StatusNotFound
	case KindMissingParameter, KindInvalidParameter:
		return http.StatusBadRequest
	case KindUnauthorized:
		return http.StatusForbidden
	case KindConflict:
		return http.StatusConflict
	case KindTransport, KindPartialSequence:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
