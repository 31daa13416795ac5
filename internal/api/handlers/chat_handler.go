package handlers

import (
	"context"
	"net/http"

	"github.com/markdave123-py/aspiro/internal/models"
	"github.com/markdave123-py/aspiro/internal/pkg/response"
	"github.com/markdave123-py/aspiro/internal/services"
)

type Replier interface {
	Reply(ctx context.Context, user *models.User, in services.ChatInput) (string, error)
}

type ChatHandler struct {
	chat Replier
}

func NewChatHandler(chat Replier) *ChatHandler {
	return &ChatHandler{chat: chat}
}

type chatRequest struct {
	Message string `json:"message"`
}

type chatResponse struct {
	Response string `json:"response"`
}

// Chat answers one message. History is written in the background and never
// affects this response.
func (h *ChatHandler) Chat(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}

	var req chatRequest
	if err := decodeJSON(w, r, &req); err != nil {
		response.Error(w, err)
		return
	}

	answer, err := h.chat.Reply(r.Context(), user, services.ChatInput{Message: req.Message})
	if err != nil {
		response.Error(w, err)
		return
	}
	response.OK(w, chatResponse{Response: answer})
}
