package handlers

import (
	"labelcast/internal/logger"
	"labelcast/internal/service"

	"github.com/gin-gonic/gin"

	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

// Handler wires HTTP layer to services and logging.
type Handler struct {
	services *service.Service
	log      *logger.Logger
}

// NewHandler constructs a new HTTP handler with dependencies.
func NewHandler(services *service.Service, log *logger.Logger) *Handler {
	return &Handler{services: services, log: log}
}

// InitRoutes builds and returns the Gin router with all routes registered.
func (h *Handler) InitRoutes() *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())

	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	router.GET("/health", h.health)

	h.registerAuthRoutes(router)
	h.registerAPIRoutes(router)

	// countdown and printer state stream
	router.GET("/ws", h.wsConnect)

	return router
}

func (h *Handler) registerAuthRoutes(r *gin.Engine) {
	auth := r.Group("/auth")
	{
		auth.POST("/sign-up", h.signUp)
		auth.POST("/sign-in", h.signIn)
	}
}

func (h *Handler) registerAPIRoutes(r *gin.Engine) {
	api := r.Group("/api/v1", h.operatorMiddleware)
	{
		h.registerPrinterRoutes(api)
		h.registerLogRoutes(api)
		h.registerJobRoutes(api)
		h.registerCanvasRoutes(api)
	}
}

func (h *Handler) registerPrinterRoutes(api *gin.RouterGroup) {
	printer := api.Group("/printer")
	{
		printer.GET("/state", h.getState)
	}
}

func (h *Handler) registerLogRoutes(api *gin.RouterGroup) {
	logs := api.Group("/logs")
	{
		logs.GET("/", h.getLogs)
	}
}

func (h *Handler) registerJobRoutes(api *gin.RouterGroup) {
	jobs := api.Group("/jobs")
	{
		jobs.GET("/", h.listJobs)
		jobs.POST("/:id/reprint", h.reprintJob)
	}
}

func (h *Handler) registerCanvasRoutes(api *gin.RouterGroup) {
	cv := api.Group("/canvas")
	{
		// Body example: {"text":"logo 10,10,2"}
		cv.POST("/draw", h.drawOnCanvas)
		cv.POST("/flush", h.flushCanvas)
		cv.GET("/preview.png", h.previewCanvas)
	}
}
