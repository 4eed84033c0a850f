package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"bitbucket.org/mmdatafocus/esteira_backend/config"
	"bitbucket.org/mmdatafocus/esteira_backend/middlewares"
	"bitbucket.org/mmdatafocus/esteira_backend/models"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

const defaultPort = "8080"

func newRouter() *gin.Engine {
	r := gin.Default()

	corsConfig := cors.DefaultConfig()
	corsConfig.AllowAllOrigins = true
	corsConfig.AllowHeaders = append(corsConfig.AllowHeaders, "Authorization")
	r.Use(cors.New(corsConfig))
	r.Use(middlewares.AuthMiddleware())

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := r.Group("/api")

	api.POST("/auth/login", loginHandler())

	authed := api.Group("")
	authed.Use(middlewares.RequireAuth())
	{
		authed.GET("/auth/me", meHandler())
		authed.PUT("/auth/password", changePasswordHandler())

		authed.POST("/upload/spreadsheet", uploadSpreadsheetHandler())
		authed.POST("/upload/validate", validateSpreadsheetHandler())
		authed.GET("/uploads", listUploadsHandler())

		authed.GET("/proposals", listProposalsHandler())
		authed.GET("/proposals/:id", getProposalHandler())
		authed.PUT("/proposals/:id", updateProposalHandler())

		authed.GET("/validations", listValidationsHandler())
		authed.PUT("/validations/:id/resolve", resolveValidationHandler())

		authed.GET("/dashboard", dashboardHandler())
		authed.GET("/reports/proposals.xlsx", exportProposalsHandler())
		authed.GET("/histories", listHistoriesHandler())
	}

	admin := api.Group("")
	admin.Use(middlewares.RequireAdmin())
	{
		admin.DELETE("/proposals/:id", deleteProposalHandler())
		admin.DELETE("/validations/:id", deleteValidationHandler())

		admin.GET("/operators", listOperatorsHandler())
		admin.POST("/operators", createOperatorHandler())
		admin.PUT("/operators/:id", updateOperatorHandler())
		admin.PUT("/operators/:id/active", toggleOperatorHandler())
	}

	// validated workbooks are served back from the uploads dir
	r.Static("/uploads", uploadDir())

	return r
}

func main() {
	port := os.Getenv("PORT")
	if port == "" {
		port = defaultPort
	}

	r := newRouter()

	srv := &http.Server{
		Addr:    ":" + port,
		Handler: r,
	}

	// Listen first, then connect: the container must accept traffic on
	// $PORT quickly while the DB connection retries in the background.
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %v", err)
		}
	}()
	log.Printf("listening on :%s", port)

	config.ConnectDatabaseWithRetry()
	config.ConnectRedisWithRetry()
	models.MigrateTable()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatalf("server forced to shutdown: %v", err)
	}
	log.Println("server exited")
}
