package app

import (
	"assessment_backend/docs"
	"assessment_backend/internal/config"
	"assessment_backend/internal/middleware"
	"assessment_backend/internal/model"
	"assessment_backend/pkg/monitoring"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

func (a *App) registerRoutes(router *gin.Engine, c *controllers, repos *repositories, cfg *config.Config) {
	docs.SwaggerInfo.BasePath = "/api"
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler, ginSwagger.URL("/swagger/doc.json")))

	router.GET("/metrics", monitoring.PrometheusHandler())

	public := router.Group("/api")
	{
		public.GET("/health", c.health.HealthCheck)
	}

	authGroup := router.Group("/api")
	authGroup.Use(middleware.AuthMiddleware(cfg), middleware.ActivityMiddleware(repos.client))
	{
		a.registerStudentRoutes(authGroup, c)
	}

	a.registerAdminRoutes(router, c, repos, cfg)
}

func (a *App) registerStudentRoutes(rg *gin.RouterGroup, c *controllers) {
	rg.GET("/access", c.access.MyAccess)

	tools := rg.Group("/tools/:toolId")
	{
		tools.GET("/render", c.form.Render)
		tools.GET("/access", c.access.CanAccess)
		tools.POST("/pages/:page", c.form.SavePage)
		tools.POST("/submit", c.form.Submit)
		tools.POST("/edit", c.form.EnterEditMode)
		tools.POST("/cancel-edit", c.form.CancelEdit)
		tools.POST("/start-fresh", c.form.StartFresh)
	}
}

func (a *App) registerAdminRoutes(router *gin.Engine, c *controllers, repos *repositories, cfg *config.Config) {
	admin := router.Group("/api/admin")
	admin.Use(middleware.AuthMiddleware(cfg), middleware.ActivityMiddleware(repos.client))
	admin.Use(middleware.RoleMiddleware(model.Admin))
	{
		students := admin.Group("/students/:clientId")
		{
			students.POST("/init", c.access.InitializeStudent)
			students.GET("/access", c.access.StudentAccess)
			students.POST("/tools/:toolId/unlock", c.access.AdminUnlock)
			students.POST("/tools/:toolId/lock", c.access.AdminLock)
		}
	}
}
