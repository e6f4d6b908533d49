package handler

import (
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
)

func pageParams(c *gin.Context) (int, int) {
	page := 1
	size := 20
	if v, err := strconv.Atoi(c.DefaultQuery("page", "1")); err == nil {
		page = v
	}
	if v, err := strconv.Atoi(c.DefaultQuery("limit", "20")); err == nil {
		size = v
	}
	return page, size
}

func searchQuery(c *gin.Context) string {
	return strings.TrimSpace(c.Query("search"))
}
