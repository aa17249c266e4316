package main

import (
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/noah-isme/coursework-api/api/swagger"
	"github.com/noah-isme/coursework-api/internal/handler"
	"github.com/noah-isme/coursework-api/internal/middleware"
	"github.com/noah-isme/coursework-api/internal/models"
	"github.com/noah-isme/coursework-api/pkg/config"
	"github.com/noah-isme/coursework-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/coursework-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/coursework-api/pkg/middleware/requestid"
)

type routeDeps struct {
	tokens      middleware.TokenValidator
	metrics     *handler.MetricsHandler
	observer    middleware.RequestObserver
	activities  *handler.ActivityHandler
	submissions *handler.SubmissionHandler
	grades      *handler.GradeHandler
	grading     *handler.GradingHandler
	// exports is nil when grade exports are disabled.
	exports *handler.ExportHandler
}

func newRouter(cfg *config.Config, logr *zap.Logger, deps routeDeps) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(deps.observer))

	r.GET("/health", deps.metrics.Health)
	r.GET("/ready", deps.metrics.Ready)
	r.GET("/metrics", deps.metrics.Prometheus)
	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	staff := middleware.RequireRoles(models.RoleTeacher, models.RoleAdmin)
	staffOrSelf := middleware.RBAC(string(models.RoleTeacher), string(models.RoleAdmin), middleware.RoleSelf)

	api := r.Group(cfg.APIPrefix)
	api.Use(middleware.JWT(deps.tokens), middleware.WithResponseMeta())

	api.GET("/activities", deps.activities.List)
	api.POST("/activities", staff, deps.activities.Create)
	api.PUT("/activities/:id", staff, deps.activities.Update)
	api.DELETE("/activities/:id", staff, deps.activities.Delete)
	api.GET("/students/:id/activities", staffOrSelf, deps.activities.ForStudent)

	api.GET("/submissions", deps.submissions.List)
	api.POST("/submissions", middleware.RequireRoles(models.RoleStudent), deps.submissions.Create)

	api.GET("/grades", deps.grades.List)
	api.POST("/grades", staff, deps.grades.Upsert)
	api.GET("/students/:id/grades/summary", staffOrSelf, deps.grades.Summary)

	grading := api.Group("/grading/sessions", staff)
	grading.POST("", deps.grading.Open)
	grading.GET("/:id", deps.grading.Sheet)
	grading.DELETE("/:id", deps.grading.Close)
	grading.PUT("/:id/cells", deps.grading.Write)
	grading.DELETE("/:id/cells", deps.grading.Discard)
	grading.POST("/:id/commit", deps.grading.Commit)
	grading.POST("/:id/refresh", deps.grading.Refresh)

	if deps.exports != nil {
		api.GET("/courses/:id/grades/export", staff, deps.exports.CourseGrades)
	}
	return r
}
