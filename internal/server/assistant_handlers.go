package server

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rapmendoza/ai-side-panel/internal/model"
)

// MessageRequest is the request body for POST /api/v1/assistant/message.
type MessageRequest struct {
	Message        string `json:"message"`
	ConversationID string `json:"conversationId"`
}

// ClarifyRequest is the request body for POST /api/v1/assistant/clarify.
type ClarifyRequest struct {
	Answer         string `json:"answer"`
	ConversationID string `json:"conversationId"`
}

func (s *Server) handleAssistantMessage(c echo.Context) error {
	var req MessageRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body", Code: CodeInvalidRequest})
	}

	result, err := s.assistant.ProcessMessage(c.Request().Context(), owner(c), req.ConversationID, req.Message)
	if err != nil {
		return s.writeError(c, err)
	}

	return c.JSON(http.StatusOK, result)
}

func (s *Server) handleAssistantClarify(c echo.Context) error {
	var req ClarifyRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body", Code: CodeInvalidRequest})
	}

	result, err := s.assistant.ProcessClarification(c.Request().Context(), owner(c), req.ConversationID, req.Answer)
	if err != nil {
		return s.writeError(c, err)
	}

	return c.JSON(http.StatusOK, result)
}

// ConversationResponse is the response body for GET conversations/:id.
type ConversationResponse struct {
	ID       string              `json:"id"`
	Messages []model.ChatMessage `json:"messages"`
}

func (s *Server) handleGetConversation(c echo.Context) error {
	conv, ok := s.assistant.Conversation(c.Param("id"))
	if !ok {
		return c.JSON(http.StatusNotFound, ErrorResponse{Error: "conversation not found", Code: CodeNotFound})
	}

	return c.JSON(http.StatusOK, ConversationResponse{ID: conv.ID, Messages: conv.Messages})
}

func (s *Server) handleClearConversation(c echo.Context) error {
	if !s.assistant.ClearConversation(c.Param("id")) {
		return c.JSON(http.StatusNotFound, ErrorResponse{Error: "conversation not found", Code: CodeNotFound})
	}

	return c.NoContent(http.StatusNoContent)
}
