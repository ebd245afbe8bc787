package handlers

import (
	"net/http"

	"messaging-service/internal/api/middleware"
	"messaging-service/internal/models"
	"messaging-service/internal/services"
	"messaging-service/pkg/response"

	"github.com/gin-gonic/gin"
)

type GroupHandler struct {
	groupService *services.GroupService
}

func NewGroupHandler(groupService *services.GroupService) *GroupHandler {
	return &GroupHandler{groupService: groupService}
}

// CreateGroup godoc
// @Summary Create a group
// @Description Create a group and its full member list in one transaction. Every member id must belong to an active user.
// @Tags groups
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body models.GroupRequest true "Group data"
// @Success 201 {object} models.GroupResponse "Group created"
// @Failure 400 {object} response.ErrorResponse "Validation failed; invalidIds lists rejected members"
// @Failure 401 {object} response.ErrorResponse "Unauthorized"
// @Failure 403 {object} response.ErrorResponse "Admin role required"
// @Failure 500 {object} response.ErrorResponse "Internal server error"
// @Router /groups [post]
func (h *GroupHandler) CreateGroup(c *gin.Context) {
	var req models.GroupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	group, err := h.groupService.CreateGroup(c.Request.Context(), middleware.CurrentUserID(c), &req)
	if err != nil {
		response.Error(c, err)
		return
	}
	c.JSON(http.StatusCreated, group)
}

// UpdateGroup godoc
// @Summary Update a group
// @Description Rename the group and replace its entire active member list.
// @Tags groups
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Group ID"
// @Param request body models.GroupRequest true "Group data"
// @Success 200 {object} models.GroupResponse "Group updated"
// @Failure 400 {object} response.ErrorResponse "Validation failed"
// @Failure 403 {object} response.ErrorResponse "Admin role required"
// @Failure 404 {object} response.ErrorResponse "Group not found"
// @Router /groups/{id} [put]
func (h *GroupHandler) UpdateGroup(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		response.Error(c, err)
		return
	}
	var req models.GroupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	group, err := h.groupService.UpdateGroup(c.Request.Context(), id, middleware.CurrentUserID(c), &req)
	if err != nil {
		response.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, group)
}

// DeactivateGroup godoc
// @Summary Deactivate a group
// @Tags groups
// @Security BearerAuth
// @Param id path int true "Group ID"
// @Success 204 "Group deactivated"
// @Failure 403 {object} response.ErrorResponse "Admin role required"
// @Failure 404 {object} response.ErrorResponse "Group not found"
// @Router /groups/{id} [delete]
func (h *GroupHandler) DeactivateGroup(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		response.Error(c, err)
		return
	}
	if err := h.groupService.DeactivateGroup(c.Request.Context(), id); err != nil {
		response.Error(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// GetGroup godoc
// @Summary Get a group (admin)
// @Tags groups
// @Produce json
// @Security BearerAuth
// @Param id path int true "Group ID"
// @Success 200 {object} models.GroupResponse
// @Failure 404 {object} response.ErrorResponse "Group not found"
// @Router /groups/{id} [get]
func (h *GroupHandler) GetGroup(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		response.Error(c, err)
		return
	}
	group, err := h.groupService.GetGroup(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, group)
}

// ListGroups godoc
// @Summary List active groups (admin)
// @Tags groups
// @Produce json
// @Security BearerAuth
// @Param page query int false "Page number, 1-based"
// @Param pageSize query int false "Page size (default 10, max 100)"
// @Success 200 {array} models.GroupResponse
// @Router /groups [get]
func (h *GroupHandler) ListGroups(c *gin.Context) {
	groups, err := h.groupService.ListGroups(c.Request.Context(), pageQuery(c, models.DefaultGroupListPageSize))
	if err != nil {
		response.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, groups)
}

// MyGroups godoc
// @Summary List my groups
// @Tags my-groups
// @Produce json
// @Security BearerAuth
// @Success 200 {array} models.GroupResponse
// @Router /me/groups [get]
func (h *GroupHandler) MyGroups(c *gin.Context) {
	groups, err := h.groupService.MyGroups(c.Request.Context(), middleware.CurrentUserID(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, groups)
}

// GetMyGroup godoc
// @Summary Get one of my groups
// @Tags my-groups
// @Produce json
// @Security BearerAuth
// @Param id path int true "Group ID"
// @Success 200 {object} models.GroupResponse
// @Failure 403 {object} response.ErrorResponse "Not a member"
// @Failure 404 {object} response.ErrorResponse "Group not found"
// @Router /me/groups/{id} [get]
func (h *GroupHandler) GetMyGroup(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		response.Error(c, err)
		return
	}
	group, err := h.groupService.GetMyGroup(c.Request.Context(), middleware.CurrentUserID(c), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, group)
}
