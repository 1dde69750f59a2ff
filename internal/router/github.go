package router

import "github.com/gin-gonic/gin"

func (r *Router) githubRoutes(version *gin.RouterGroup) {
	github := version.Group("/github")
	github.Use(r.rateLimit())
	{
		github.GET("/login", r.githubHandler.Login)
		github.POST("/callback", r.githubHandler.Callback)
	}
}
