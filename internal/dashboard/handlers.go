package dashboard

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/ziadkadry99/cf-pulse/internal/audit"
)

const defaultRecent = 10

type conversationLister interface {
	Conversations(ctx context.Context) ([]string, error)
}

// statsResponse is the JSON response for the stats endpoint.
type statsResponse struct {
	Commands      int            `json:"commands"`
	ChatEnabled   bool           `json:"chat_enabled"`
	Conversations int            `json:"conversations"`
	Dispatches    int            `json:"dispatches"`
	Failures      int            `json:"failures"`
	ByOutcome     map[string]int `json:"by_outcome"`
}

func (d *Dashboard) handleStats(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	resp := statsResponse{
		Commands:    len(d.catalog.Commands()),
		ChatEnabled: d.memory != nil,
		ByOutcome:   map[string]int{},
	}

	if d.audit != nil {
		byOutcome, err := d.audit.Stats(ctx)
		if err != nil {
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
			return
		}
		for outcome, n := range byOutcome {
			resp.Dispatches += n
			if outcome != audit.OutcomeOK {
				resp.Failures += n
			}
		}
		resp.ByOutcome = byOutcome
	}

	if lister, ok := d.memory.(conversationLister); ok {
		ids, err := lister.Conversations(ctx)
		if err != nil {
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
			return
		}
		resp.Conversations = len(ids)
	}

	writeJSON(w, http.StatusOK, resp)
}

func (d *Dashboard) handleRecent(w http.ResponseWriter, r *http.Request) {
	limit := defaultRecent
	if v, err := strconv.Atoi(r.URL.Query().Get("limit")); err == nil && v > 0 {
		limit = v
	}

	entries := []audit.Entry{}
	if d.audit != nil {
		found, err := d.audit.Query(r.Context(), audit.QueryFilter{
			FailedOnly: r.URL.Query().Get("failed") == "true",
			Limit:      limit,
		})
		if err != nil {
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
			return
		}
		if found != nil {
			entries = found
		}
	}

	writeJSON(w, http.StatusOK, entries)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
