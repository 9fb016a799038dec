package chat

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/ziadkadry99/cf-pulse/internal/memory"
	"github.com/ziadkadry99/cf-pulse/internal/scope"
)

// conversationLister is implemented by stores that can enumerate identities.
type conversationLister interface {
	Conversations(ctx context.Context) ([]string, error)
}

// RegisterRoutes mounts the chat surface and conversation history endpoints.
func RegisterRoutes(r chi.Router, o *Orchestrator) {
	r.Get("/chat", handleQuickChat(o))
	r.Post("/api/chat", handleChat(o))
	r.Get("/api/chat/ws", handleWebSocket(o))

	r.Route("/api/conversations", func(r chi.Router) {
		r.Get("/", handleListConversations(o))
		r.Get("/{id}/turns", handleTurns(o, false))
		r.Get("/{id}/window", handleTurns(o, true))
	})
}

type quickChatResponse struct {
	Message string `json:"message"`
}

// handleQuickChat serves GET /chat?chat=&org=&space=[&conversation=].
func handleQuickChat(o *Orchestrator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		input := q.Get("chat")
		if input == "" {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "chat parameter is required"})
			return
		}
		answer, err := o.Converse(r.Context(), q.Get("conversation"), input, scope.Resolve(q.Get("org"), q.Get("space")))
		if err != nil {
			writeJSON(w, statusForError(err), map[string]string{"error": err.Error()})
			return
		}
		writeJSON(w, http.StatusOK, quickChatResponse{Message: answer})
	}
}

type chatRequest struct {
	ConversationID string `json:"conversation_id"`
	Input          string `json:"input"`
	Org            string `json:"org"`
	Space          string `json:"space"`
}

type chatResponse struct {
	ConversationID string `json:"conversation_id"`
	Message        string `json:"message"`
	HTML           string `json:"html"`
}

// handleChat serves POST /api/chat. A request with no conversation_id starts
// a new conversation and the response carries its id.
func handleChat(o *Orchestrator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req chatRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
			return
		}
		if req.ConversationID == "" {
			req.ConversationID = uuid.New().String()
		}

		answer, err := o.Converse(r.Context(), req.ConversationID, req.Input, scope.Resolve(req.Org, req.Space))
		if err != nil {
			writeJSON(w, statusForError(err), map[string]string{"error": err.Error(), "conversation_id": req.ConversationID})
			return
		}
		html, err := RenderHTML(answer)
		if err != nil {
			html = ""
		}
		writeJSON(w, http.StatusOK, chatResponse{ConversationID: req.ConversationID, Message: answer, HTML: html})
	}
}

func handleListConversations(o *Orchestrator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		lister, ok := o.Store().(conversationLister)
		if !ok {
			writeJSON(w, http.StatusNotImplemented, map[string]string{"error": "conversation store cannot list conversations"})
			return
		}
		ids, err := lister.Conversations(r.Context())
		if err != nil {
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
			return
		}
		writeJSON(w, http.StatusOK, ids)
	}
}

func handleTurns(o *Orchestrator, windowOnly bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		var (
			turns []memory.Turn
			err   error
		)
		if windowOnly {
			turns, err = o.Store().RecentWindow(r.Context(), id)
		} else {
			turns, err = o.Store().History(r.Context(), id)
		}
		if err != nil {
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
			return
		}
		writeJSON(w, http.StatusOK, turns)
	}
}

func statusForError(err error) int {
	switch {
	case errors.Is(err, ErrEmptyInput):
		return http.StatusBadRequest
	case errors.Is(err, ErrToolRoundsExceeded):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusBadGateway
	}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
