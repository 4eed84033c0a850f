package main

import (
	"errors"
	"net/http"
	"strconv"

	"bitbucket.org/mmdatafocus/esteira_backend/models"
	"bitbucket.org/mmdatafocus/esteira_backend/utils"
	"github.com/gin-gonic/gin"
)

func pathId(c *gin.Context) (int, bool) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return 0, false
	}
	return id, true
}

func pageParams(c *gin.Context) (page int, limit int) {
	page, _ = strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ = strconv.Atoi(c.DefaultQuery("limit", "25"))
	return page, limit
}

func listProposalsHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var filter models.ProposalFilter
		if err := c.ShouldBindQuery(&filter); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid filter"})
			return
		}
		page, limit := pageParams(c)

		result, err := models.PaginateProposals(c.Request.Context(), page, limit, &filter)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "could not list proposals"})
			return
		}
		c.JSON(http.StatusOK, result)
	}
}

func getProposalHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathId(c)
		if !ok {
			return
		}
		proposal, err := models.GetProposal(c.Request.Context(), id)
		if err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "proposal not found"})
			return
		}
		c.JSON(http.StatusOK, proposal)
	}
}

func updateProposalHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathId(c)
		if !ok {
			return
		}
		var input models.UpdateProposalInput
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
			return
		}

		proposal, err := models.UpdateProposalManualFields(c.Request.Context(), id, &input)
		if err != nil {
			if errors.Is(err, utils.ErrorRecordNotFound) {
				c.JSON(http.StatusNotFound, gin.H{"error": "proposal not found"})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": "could not update proposal"})
			return
		}
		c.JSON(http.StatusOK, proposal)
	}
}

func deleteProposalHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathId(c)
		if !ok {
			return
		}
		proposal, err := models.DeleteProposal(c.Request.Context(), id)
		if err != nil {
			if errors.Is(err, utils.ErrorRecordNotFound) {
				c.JSON(http.StatusNotFound, gin.H{"error": "proposal not found"})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": "could not delete proposal"})
			return
		}
		c.JSON(http.StatusOK, proposal)
	}
}
