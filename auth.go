package main

import (
	"net/http"

	"bitbucket.org/mmdatafocus/esteira_backend/middlewares"
	"bitbucket.org/mmdatafocus/esteira_backend/models"
	"github.com/gin-gonic/gin"
)

type loginRequest struct {
	Usuario string `json:"usuario" binding:"required"`
	Senha   string `json:"senha" binding:"required"`
}

type changePasswordRequest struct {
	OldPassword string `json:"old_password" binding:"required"`
	NewPassword string `json:"new_password" binding:"required,min=6"`
}

func loginHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req loginRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "usuario and senha are required"})
			return
		}

		info, err := models.Login(c.Request.Context(), req.Usuario, req.Senha)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
			return
		}

		// best effort; a failed audit row must not block the login
		ctx := c.Request.Context()
		_ = models.CreateHistory(ctx, models.ActionLogin, "Operator "+info.Operator.Usuario+" logged in", c.ClientIP())

		c.JSON(http.StatusOK, info)
	}
}

func meHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		claim := middlewares.CtxValue(c.Request.Context())

		operator, err := models.GetOperator(c.Request.Context(), claim.ID)
		if err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "operator not found"})
			return
		}
		c.JSON(http.StatusOK, operator)
	}
}

func changePasswordHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req changePasswordRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "old_password and new_password are required"})
			return
		}

		if _, err := models.ChangePassword(c.Request.Context(), req.OldPassword, req.NewPassword); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": "password changed"})
	}
}
