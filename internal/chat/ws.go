package chat

import (
	"encoding/json"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/ziadkadry99/cf-pulse/internal/scope"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// wsRequest is the incoming WebSocket message format. Org and space may
// change between messages on the same socket.
type wsRequest struct {
	ConversationID string `json:"conversation_id"`
	Content        string `json:"content"`
	Org            string `json:"org"`
	Space          string `json:"space"`
}

// wsResponse is the outgoing WebSocket message format.
type wsResponse struct {
	Type           string `json:"type"` // "response" or "error"
	ConversationID string `json:"conversation_id"`
	Content        string `json:"content"`
	HTML           string `json:"html,omitempty"`
}

func handleWebSocket(o *Orchestrator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			o.logger.Warn("websocket upgrade failed", zap.Error(err))
			return
		}
		defer conn.Close()

		// One socket is one conversation unless the client names another.
		conversation := uuid.New().String()

		for {
			_, msg, err := conn.ReadMessage()
			if err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
					o.logger.Warn("websocket read failed", zap.Error(err))
				}
				return
			}

			var req wsRequest
			if err := json.Unmarshal(msg, &req); err != nil {
				o.send(conn, wsResponse{Type: "error", ConversationID: conversation, Content: "invalid message format"})
				continue
			}
			if req.ConversationID != "" {
				conversation = req.ConversationID
			}
			if req.Content == "" {
				o.send(conn, wsResponse{Type: "error", ConversationID: conversation, Content: "content is required"})
				continue
			}

			answer, err := o.Converse(r.Context(), conversation, req.Content, scope.Resolve(req.Org, req.Space))
			if err != nil {
				o.send(conn, wsResponse{Type: "error", ConversationID: conversation, Content: err.Error()})
				continue
			}
			html, _ := RenderHTML(answer)
			o.send(conn, wsResponse{Type: "response", ConversationID: conversation, Content: answer, HTML: html})
		}
	}
}

func (o *Orchestrator) send(conn *websocket.Conn, resp wsResponse) {
	if err := conn.WriteJSON(resp); err != nil {
		o.logger.Warn("websocket write failed", zap.Error(err))
	}
}
