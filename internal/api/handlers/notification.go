package handlers

import (
	"net/http"

	"messaging-service/internal/api/middleware"
	"messaging-service/internal/models"
	"messaging-service/internal/services"
	"messaging-service/pkg/response"

	"github.com/gin-gonic/gin"
)

type NotificationHandler struct {
	notifications *services.NotificationService
}

func NewNotificationHandler(notifications *services.NotificationService) *NotificationHandler {
	return &NotificationHandler{notifications: notifications}
}

// ListNotifications godoc
// @Summary List my notifications
// @Tags notifications
// @Produce json
// @Security BearerAuth
// @Param page query int false "Page number, 1-based"
// @Param pageSize query int false "Page size (default 20, max 100)"
// @Success 200 {array} models.NotificationResponse
// @Router /notifications [get]
func (h *NotificationHandler) ListNotifications(c *gin.Context) {
	items, err := h.notifications.List(c.Request.Context(), middleware.CurrentUserID(c), pageQuery(c, models.DefaultNotificationPageSize))
	if err != nil {
		response.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, items)
}

// UnreadCount godoc
// @Summary Count my unread notifications
// @Tags notifications
// @Produce json
// @Security BearerAuth
// @Success 200 {object} models.UnreadCountResponse
// @Router /notifications/unread-count [get]
func (h *NotificationHandler) UnreadCount(c *gin.Context) {
	count, err := h.notifications.UnreadCount(c.Request.Context(), middleware.CurrentUserID(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, models.UnreadCountResponse{Count: count})
}

// MarkRead godoc
// @Summary Mark a notification read
// @Tags notifications
// @Security BearerAuth
// @Param id path int true "Notification ID"
// @Success 204 "Marked"
// @Failure 404 {object} response.ErrorResponse "Notification not found"
// @Router /notifications/{id}/read [put]
func (h *NotificationHandler) MarkRead(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		response.Error(c, err)
		return
	}
	if err := h.notifications.MarkRead(c.Request.Context(), middleware.CurrentUserID(c), id); err != nil {
		response.Error(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// MarkAllRead godoc
// @Summary Mark all my notifications read
// @Tags notifications
// @Security BearerAuth
// @Success 204 "Marked"
// @Router /notifications/read-all [put]
func (h *NotificationHandler) MarkAllRead(c *gin.Context) {
	if _, err := h.notifications.MarkAllRead(c.Request.Context(), middleware.CurrentUserID(c)); err != nil {
		response.Error(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
