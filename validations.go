package main

import (
	"errors"
	"net/http"

	"bitbucket.org/mmdatafocus/esteira_backend/middlewares"
	"bitbucket.org/mmdatafocus/esteira_backend/models"
	"bitbucket.org/mmdatafocus/esteira_backend/utils"
	"github.com/gin-gonic/gin"
)

func listValidationsHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var filter models.ValidationFilter
		if err := c.ShouldBindQuery(&filter); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid filter"})
			return
		}
		page, limit := pageParams(c)

		result, err := models.PaginateValidations(c.Request.Context(), page, limit, &filter)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "could not list validations"})
			return
		}
		c.JSON(http.StatusOK, result)
	}
}

func resolveValidationHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathId(c)
		if !ok {
			return
		}
		claim := middlewares.CtxValue(c.Request.Context())

		validation, err := models.ResolveValidation(c.Request.Context(), id, claim.ID)
		if err != nil {
			switch {
			case errors.Is(err, utils.ErrorRecordNotFound):
				c.JSON(http.StatusNotFound, gin.H{"error": "validation not found"})
			case errors.Is(err, utils.ErrorAlreadyResolved):
				c.JSON(http.StatusConflict, gin.H{"error": "validation already resolved"})
			default:
				c.JSON(http.StatusInternalServerError, gin.H{"error": "could not resolve validation"})
			}
			return
		}
		c.JSON(http.StatusOK, validation)
	}
}

func deleteValidationHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathId(c)
		if !ok {
			return
		}
		validation, err := models.DeleteValidation(c.Request.Context(), id)
		if err != nil {
			if errors.Is(err, utils.ErrorRecordNotFound) {
				c.JSON(http.StatusNotFound, gin.H{"error": "validation not found"})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": "could not delete validation"})
			return
		}
		c.JSON(http.StatusOK, validation)
	}
}
