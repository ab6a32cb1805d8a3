package controller

import (
	"fashion-studio/common/logger"
	"fashion-studio/conf"
	"fashion-studio/controller/handler"
	"fashion-studio/controller/middleware"
	"fashion-studio/controller/respond"
	studioDocs "fashion-studio/docs/studio"
	"fashion-studio/service/storage_service"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

// Dependencies everything the router hands to its handlers
type Dependencies struct {
	Config      *conf.Config
	Backend     storage_service.Backend
	Generator   handler.Generator
	Persist     handler.Scheduler
	DeadLetters handler.DeadLetterLister
	Log         *logger.Logger
}

// SetupRouter setup studio service router
func SetupRouter(deps Dependencies) *gin.Engine {
	cfg := deps.Config

	// Set Swagger host from config
	studioDocs.SwaggerInfostudio.Host = cfg.SwaggerBaseUrl

	r := gin.Default()
	r.MaxMultipartMemory = cfg.MaxUploadSize

	// Add CORS middleware
	corsCfg := cors.Config{
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS", "PATCH"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Content-Length", "Accept-Encoding", "Authorization", "Accept", "Cache-Control", "X-Requested-With"},
		ExposeHeaders:    []string{"Content-Length", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           12 * 3600, // 12 hours
	}
	if len(cfg.CorsOrigins) > 0 {
		corsCfg.AllowOrigins = cfg.CorsOrigins
	} else {
		corsCfg.AllowAllOrigins = true
		corsCfg.AllowCredentials = false
	}
	r.Use(cors.New(corsCfg))

	// Add timing middleware
	r.Use(respond.TimingMiddleware())

	assetHandler := handler.NewAssetHandler(deps.Backend, deps.Log)
	generateHandler := handler.NewGenerateHandler(deps.Generator, deps.Persist, cfg.GenAI, deps.Log)
	proxyHandler := handler.NewProxyHandler(deps.Log)
	adminHandler := handler.NewAdminHandler(deps.DeadLetters, cfg.Project)

	// Public routes
	r.GET("/", adminHandler.Health)
	r.Static("/media", deps.Backend.MediaRoot())
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler, ginSwagger.InstanceName("studio")))

	authed := r.Group("/")
	authed.Use(middleware.Auth(deps.Backend, deps.Log))
	{
		assets := authed.Group("/assets")
		{
			assets.GET("", assetHandler.ListAssets)
			assets.POST("", assetHandler.CreateAsset)
			assets.POST("/upload", assetHandler.UploadAsset)
			assets.PUT("/:id", assetHandler.UpdateAsset)
			assets.DELETE("/:id", assetHandler.DeleteAsset)
		}

		authed.POST("/generate-image", generateHandler.GenerateImage)
		authed.POST("/edit-image", generateHandler.EditImage)
		authed.POST("/try-on", generateHandler.TryOn)
		authed.POST("/generate-video", generateHandler.GenerateVideo)
		authed.POST("/generate-text", generateHandler.GenerateText)

		authed.GET("/proxy-image", proxyHandler.ProxyImage)

		authed.GET("/admin/dead-letters", adminHandler.ListDeadLetters)
	}

	return r
}
