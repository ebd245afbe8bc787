package handlers

import (
	"strconv"

	"messaging-service/internal/models"
	apperrors "messaging-service/pkg/errors"

	"github.com/gin-gonic/gin"
)

func pathID(c *gin.Context, name string) (uint, error) {
	id, err := strconv.ParseUint(c.Param(name), 10, 63)
	if err != nil || id == 0 {
		return 0, apperrors.Validation(name, "invalid "+name)
	}
	return uint(id), nil
}

// pageQuery reads ?page=&pageSize=, falling back to def for a missing or
// non-positive size and capping an oversized one.
func pageQuery(c *gin.Context, def int) models.Page {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	size, _ := strconv.Atoi(c.Query("pageSize"))
	return models.NewPage(page, size, def)
}
