package controllers

import (
	"net/http"

	"masivo-tech/chat"
	"masivo-tech/metrics"

	"github.com/google/uuid"
)

const chatSessionKey = "chat_session_id"

// ChatController serves the Masibot assistant
type ChatController struct {
	Assistant *chat.Assistant
	Sessions  *Sessions
	Metrics   *metrics.Metrics
}

// NewChatController creates a new ChatController
func NewChatController(assistant *chat.Assistant, sessions *Sessions, m *metrics.Metrics) *ChatController {
	return &ChatController{Assistant: assistant, Sessions: sessions, Metrics: m}
}

// ChatSession issues the chat session id held by the storefront session
func (cc *ChatController) ChatSession(w http.ResponseWriter, r *http.Request) {
	sess := cc.Sessions.Get(r)
	id, _ := sess.Values[chatSessionKey].(string)
	if id == "" {
		id = uuid.NewString()
		sess.Values[chatSessionKey] = id
		cc.Sessions.Save(w, r, sess)
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"chat_session_id":  id,
		"gemini_available": cc.Assistant.ModelAvailable(),
	})
}

type chatRequest struct {
	Message   string `json:"message"`
	SessionID string `json:"session_id"`
}

// ChatAPI answers one message. A malformed request is answered with the
// greeting rather than an error.
func (cc *ChatController) ChatAPI(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		respondError(w, http.StatusMethodNotAllowed, "Método no permitido")
		return
	}

	var req chatRequest
	if err := decodeJSON(w, r, &req); err != nil {
		cc.Metrics.RecordChatReply("")
		respondJSON(w, http.StatusOK, chat.Reply{Response: chat.ErrorGreeting})
		return
	}

	reply := cc.Assistant.Reply(r.Context(), req.Message, req.SessionID)
	cc.Metrics.RecordChatReply(reply.Source)
	respondJSON(w, http.StatusOK, reply)
}
