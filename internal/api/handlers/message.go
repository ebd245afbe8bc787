package handlers

import (
	"net/http"

	"messaging-service/internal/api/middleware"
	"messaging-service/internal/models"
	"messaging-service/internal/services"
	"messaging-service/pkg/response"

	"github.com/gin-gonic/gin"
)

// MessageHandler serves direct messages and the conversation views.
type MessageHandler struct {
	messages      *services.DirectMessageService
	conversations *services.ConversationService
}

func NewMessageHandler(messages *services.DirectMessageService, conversations *services.ConversationService) *MessageHandler {
	return &MessageHandler{messages: messages, conversations: conversations}
}

// ListConversations godoc
// @Summary List conversations
// @Description One entry per counterpart with the last message and the caller's unread count, most recent first.
// @Tags conversations
// @Produce json
// @Security BearerAuth
// @Success 200 {array} models.ConversationSummary
// @Router /conversations [get]
func (h *MessageHandler) ListConversations(c *gin.Context) {
	convs, err := h.conversations.ListConversations(c.Request.Context(), middleware.CurrentUserID(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, convs)
}

// GetThread godoc
// @Summary Get a conversation thread
// @Description One page of the thread, oldest first. Marks every unread message from the other user as read.
// @Tags conversations
// @Produce json
// @Security BearerAuth
// @Param otherUserId path string true "Counterpart user ID"
// @Param page query int false "Page number, 1-based"
// @Param pageSize query int false "Page size (default 50, max 100)"
// @Success 200 {array} models.MessageResponse
// @Router /conversations/{otherUserId} [get]
func (h *MessageHandler) GetThread(c *gin.Context) {
	msgs, err := h.conversations.GetThread(
		c.Request.Context(),
		middleware.CurrentUserID(c),
		c.Param("otherUserId"),
		pageQuery(c, models.DefaultThreadPageSize),
	)
	if err != nil {
		response.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, msgs)
}

// SendMessage godoc
// @Summary Send a direct message
// @Tags messages
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body models.SendMessageRequest true "Message"
// @Success 201 {object} models.MessageResponse
// @Failure 400 {object} response.ErrorResponse "Invalid body or inactive receiver"
// @Router /messages [post]
func (h *MessageHandler) SendMessage(c *gin.Context) {
	var req models.SendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	msg, err := h.messages.Send(c.Request.Context(), middleware.CurrentUserID(c), &req)
	if err != nil {
		response.Error(c, err)
		return
	}
	c.JSON(http.StatusCreated, msg)
}

// GetMessage godoc
// @Summary Get a direct message
// @Tags messages
// @Produce json
// @Security BearerAuth
// @Param id path int true "Message ID"
// @Success 200 {object} models.MessageResponse
// @Failure 404 {object} response.ErrorResponse "Message not found"
// @Router /messages/{id} [get]
func (h *MessageHandler) GetMessage(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		response.Error(c, err)
		return
	}
	msg, err := h.messages.GetMessage(c.Request.Context(), middleware.CurrentUserID(c), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, msg)
}

// DeleteMessage godoc
// @Summary Delete a direct message
// @Description Soft delete; only the sender may delete.
// @Tags messages
// @Security BearerAuth
// @Param id path int true "Message ID"
// @Success 204 "Deleted"
// @Failure 404 {object} response.ErrorResponse "Message not found"
// @Router /messages/{id} [delete]
func (h *MessageHandler) DeleteMessage(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		response.Error(c, err)
		return
	}
	if err := h.messages.SoftDelete(c.Request.Context(), middleware.CurrentUserID(c), id); err != nil {
		response.Error(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
