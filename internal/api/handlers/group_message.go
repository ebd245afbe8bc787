package handlers

import (
	"net/http"

	"messaging-service/internal/api/middleware"
	"messaging-service/internal/models"
	"messaging-service/internal/services"
	"messaging-service/pkg/response"

	"github.com/gin-gonic/gin"
)

type GroupMessageHandler struct {
	groupMessages *services.GroupMessageService
}

func NewGroupMessageHandler(groupMessages *services.GroupMessageService) *GroupMessageHandler {
	return &GroupMessageHandler{groupMessages: groupMessages}
}

// SendGroupMessage godoc
// @Summary Send a group message
// @Tags group-messages
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Group ID"
// @Param request body models.SendGroupMessageRequest true "Message"
// @Success 201 {object} models.GroupMessageResponse
// @Failure 403 {object} response.ErrorResponse "Not a member"
// @Failure 404 {object} response.ErrorResponse "Group inactive or missing"
// @Router /groups/{id}/messages [post]
func (h *GroupMessageHandler) SendGroupMessage(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		response.Error(c, err)
		return
	}
	var req models.SendGroupMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	msg, err := h.groupMessages.SendGroupMessage(c.Request.Context(), id, middleware.CurrentUserID(c), &req)
	if err != nil {
		response.Error(c, err)
		return
	}
	c.JSON(http.StatusCreated, msg)
}

// ListGroupMessages godoc
// @Summary List group messages
// @Description Newest first.
// @Tags group-messages
// @Produce json
// @Security BearerAuth
// @Param id path int true "Group ID"
// @Param page query int false "Page number, 1-based"
// @Param pageSize query int false "Page size (default 50, max 100)"
// @Success 200 {array} models.GroupMessageResponse
// @Failure 403 {object} response.ErrorResponse "Not a member"
// @Router /groups/{id}/messages [get]
func (h *GroupMessageHandler) ListGroupMessages(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		response.Error(c, err)
		return
	}
	msgs, err := h.groupMessages.ListGroupMessages(c.Request.Context(), id, middleware.CurrentUserID(c), pageQuery(c, models.DefaultGroupMessagePageSize))
	if err != nil {
		response.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, msgs)
}
