package router

import (
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	"github.com/noah-isme/arsip-biak-api/internal/handler"
	"github.com/noah-isme/arsip-biak-api/internal/middleware"
	"github.com/noah-isme/arsip-biak-api/internal/service"
	"github.com/noah-isme/arsip-biak-api/pkg/config"
	"github.com/noah-isme/arsip-biak-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/arsip-biak-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/arsip-biak-api/pkg/middleware/requestid"
)

// Deps bundles everything the router needs.
type Deps struct {
	Config  *config.Config
	Logger  *zap.Logger
	Auth    *service.AuthService
	Metrics *service.MetricsService

	AuthHandler      *handler.AuthHandler
	ArchiveHandler   *handler.ArchiveHandler
	PlacementHandler *handler.PlacementHandler
	HierarchyHandler *handler.HierarchyHandler
	LetterHandler    *handler.LetterHandler
	EducationHandler *handler.EducationHandler
	MetricsHandler   *handler.MetricsHandler
}

// New assembles the gin engine. Reads stay public; every mutation sits behind
// JWT plus the admin role.
func New(d Deps) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(d.Logger))
	r.Use(corsmiddleware.New(d.Config.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(d.Metrics))

	r.GET("/health", d.MetricsHandler.Health)
	r.GET("/ready", d.MetricsHandler.Ready)
	r.GET("/metrics", d.MetricsHandler.Prometheus)

	if d.Config.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	r.Static(d.Config.Uploads.PublicPath, d.Config.Uploads.StorageDir)

	api := r.Group(d.Config.APIPrefix)

	auth := api.Group("/auth")
	{
		auth.POST("/login", d.AuthHandler.Login)
		auth.POST("/refresh", d.AuthHandler.Refresh)

		session := auth.Group("", middleware.JWT(d.Auth))
		session.POST("/logout", d.AuthHandler.Logout)
		session.POST("/change-password", d.AuthHandler.ChangePassword)
		session.GET("/me", d.AuthHandler.Me)
	}

	archives := api.Group("/archives", middleware.OptionalJWT(d.Auth))
	{
		archives.GET("", d.ArchiveHandler.List)
		archives.GET("/:id", d.ArchiveHandler.Get)
	}
	archivesAdmin := api.Group("/archives", middleware.JWT(d.Auth), middleware.AdminOnly())
	{
		archivesAdmin.POST("", d.ArchiveHandler.Create)
		archivesAdmin.PUT("/:id", d.ArchiveHandler.Update)
		archivesAdmin.DELETE("/:id", d.ArchiveHandler.Delete)
	}

	api.GET("/categories", d.PlacementHandler.ListCategories)
	api.GET("/subcategories", d.PlacementHandler.ListSubcategories)
	api.GET("/positions", d.PlacementHandler.ListPositions)
	placementAdmin := api.Group("", middleware.JWT(d.Auth), middleware.AdminOnly())
	{
		placementAdmin.POST("/categories", d.PlacementHandler.CreateCategory)
		placementAdmin.PUT("/categories/:id", d.PlacementHandler.UpdateCategory)
		placementAdmin.DELETE("/categories/:id", d.PlacementHandler.DeleteCategory)
		placementAdmin.POST("/subcategories", d.PlacementHandler.CreateSubcategory)
		placementAdmin.PUT("/subcategories/:id", d.PlacementHandler.UpdateSubcategory)
		placementAdmin.DELETE("/subcategories/:id", d.PlacementHandler.DeleteSubcategory)
		placementAdmin.POST("/positions", d.PlacementHandler.CreatePosition)
		placementAdmin.PUT("/positions/:id", d.PlacementHandler.UpdatePosition)
		placementAdmin.DELETE("/positions/:id", d.PlacementHandler.DeletePosition)
	}

	staticFields := api.Group("/static-fields/:level")
	{
		staticFields.GET("", d.HierarchyHandler.List)
		staticFields.GET("/:id", d.HierarchyHandler.Get)

		staticAdmin := staticFields.Group("", middleware.JWT(d.Auth), middleware.AdminOnly())
		staticAdmin.POST("", d.HierarchyHandler.Create)
		staticAdmin.PUT("/:id", d.HierarchyHandler.Update)
		staticAdmin.DELETE("/:id", d.HierarchyHandler.Delete)
	}

	letters := api.Group("/letters")
	{
		letters.GET("", d.LetterHandler.List)
		letters.GET("/rekap/summary", d.LetterHandler.Rekap)
		letters.GET("/rekap/export", d.LetterHandler.ExportRekap)
		// Alias kept for clients that predate the /summary path.
		letters.GET("/rekap", d.LetterHandler.Rekap)
		letters.GET("/download", d.LetterHandler.Download)
		letters.GET("/:id", d.LetterHandler.Get)
		letters.GET("/:id/history", d.LetterHandler.History)
		letters.GET("/:id/file", d.LetterHandler.FileToken)

		lettersAdmin := letters.Group("", middleware.JWT(d.Auth), middleware.AdminOnly())
		lettersAdmin.POST("", d.LetterHandler.Create)
		lettersAdmin.PUT("/:id", d.LetterHandler.Update)
		lettersAdmin.DELETE("/:id", d.LetterHandler.Delete)
		lettersAdmin.PUT("/:id/status", d.LetterHandler.UpdateStatus)
		lettersAdmin.PUT("/:id/history/:historyId", d.LetterHandler.UpdateHistoryItem)
		lettersAdmin.DELETE("/:id/history/:historyId", d.LetterHandler.DeleteHistoryItem)
	}

	education := api.Group("/education")
	{
		education.GET("/levels", d.EducationHandler.ListLevels)
		education.GET("/faculties", d.EducationHandler.ListFaculties)
		education.GET("/programs", d.EducationHandler.ListPrograms)

		educationAdmin := education.Group("", middleware.JWT(d.Auth), middleware.AdminOnly())
		educationAdmin.POST("/levels", d.EducationHandler.CreateLevel)
		educationAdmin.PUT("/levels/:id", d.EducationHandler.UpdateLevel)
		educationAdmin.DELETE("/levels/:id", d.EducationHandler.DeleteLevel)
		educationAdmin.POST("/faculties", d.EducationHandler.CreateFaculty)
		educationAdmin.PUT("/faculties/:id", d.EducationHandler.UpdateFaculty)
		educationAdmin.DELETE("/faculties/:id", d.EducationHandler.DeleteFaculty)
		educationAdmin.POST("/programs", d.EducationHandler.CreateProgram)
		educationAdmin.PUT("/programs/:id", d.EducationHandler.UpdateProgram)
		educationAdmin.DELETE("/programs/:id", d.EducationHandler.DeleteProgram)
	}

	return r
}
