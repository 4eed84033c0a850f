package main

import (
	"errors"
	"net/http"

	"bitbucket.org/mmdatafocus/esteira_backend/models"
	"bitbucket.org/mmdatafocus/esteira_backend/utils"
	"github.com/gin-gonic/gin"
)

type updateOperatorRequest struct {
	Nome string `json:"nome" binding:"required"`
	Role string `json:"role" binding:"required,oneof=admin operador"`
}

type toggleOperatorRequest struct {
	IsActive *bool `json:"is_active" binding:"required"`
}

func listOperatorsHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		operators, err := models.GetAllOperators(c.Request.Context())
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "could not list operators"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"operators": operators})
	}
}

func createOperatorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var input models.NewOperator
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": utils.ProcessValidationErrors(err)})
			return
		}

		operator, err := models.CreateOperator(c.Request.Context(), &input)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusCreated, operator)
	}
}

func updateOperatorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathId(c)
		if !ok {
			return
		}
		var req updateOperatorRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "nome and role are required"})
			return
		}

		operator, err := models.UpdateOperator(c.Request.Context(), id, req.Nome, req.Role)
		if err != nil {
			if errors.Is(err, utils.ErrorRecordNotFound) {
				c.JSON(http.StatusNotFound, gin.H{"error": "operator not found"})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": "could not update operator"})
			return
		}
		c.JSON(http.StatusOK, operator)
	}
}

func toggleOperatorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathId(c)
		if !ok {
			return
		}
		var req toggleOperatorRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "is_active is required"})
			return
		}

		operator, err := models.ToggleActiveOperator(c.Request.Context(), id, *req.IsActive)
		if err != nil {
			if errors.Is(err, utils.ErrorRecordNotFound) {
				c.JSON(http.StatusNotFound, gin.H{"error": "operator not found"})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": "could not update operator"})
			return
		}
		c.JSON(http.StatusOK, operator)
	}
}
