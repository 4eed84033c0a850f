package main

import (
	"net/http"

	"bitbucket.org/mmdatafocus/esteira_backend/config"
	"bitbucket.org/mmdatafocus/esteira_backend/models"
	"bitbucket.org/mmdatafocus/esteira_backend/models/reports"
	"github.com/gin-gonic/gin"
)

func exportProposalsHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		logger := config.GetLogger()

		var filter models.ProposalFilter
		if err := c.ShouldBindQuery(&filter); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid filter"})
			return
		}

		workbook, err := reports.BuildProposalsWorkbook(c.Request.Context(), &filter)
		if err != nil {
			config.LogError(logger, "reports.go", "exportProposalsHandler", "BuildProposalsWorkbook", nil, err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "could not build report"})
			return
		}

		c.Header("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
		c.Header("Content-Disposition", "attachment; filename=proposals.xlsx")
		if err := workbook.Write(c.Writer); err != nil {
			config.LogError(logger, "reports.go", "exportProposalsHandler", "Write", nil, err)
		}
	}
}
