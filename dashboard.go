package main

import (
	"net/http"
	"strconv"

	"bitbucket.org/mmdatafocus/esteira_backend/config"
	"bitbucket.org/mmdatafocus/esteira_backend/models"
	"bitbucket.org/mmdatafocus/esteira_backend/models/reports"
	"github.com/gin-gonic/gin"
)

func dashboardHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		logger := config.GetLogger()

		dashboard, err := reports.GetDashboard(c.Request.Context())
		if err != nil {
			config.LogError(logger, "dashboard.go", "dashboardHandler", "GetDashboard", nil, err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "could not build dashboard"})
			return
		}
		c.JSON(http.StatusOK, dashboard)
	}
}

func listHistoriesHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		page, limit := pageParams(c)

		var operatorId *int
		if v := c.Query("operator_id"); v != "" {
			id, err := strconv.Atoi(v)
			if err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": "invalid operator_id"})
				return
			}
			operatorId = &id
		}

		result, err := models.PaginateHistories(c.Request.Context(), page, limit, operatorId)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "could not list histories"})
			return
		}
		c.JSON(http.StatusOK, result)
	}
}
