package router

import (
	"github.com/bookhub/backend/internal/dto"
	"github.com/gin-gonic/gin"
)

func (r *Router) authRoutes(version *gin.RouterGroup) {
	auth := version.Group("/auth")
	auth.Use(r.rateLimit())
	{
		auth.POST("/signup", r.validMw.ValidateRequestBody(func() any { return &dto.SignupRequest{} }), r.authHandler.Signup)
		auth.POST("/signin", r.validMw.ValidateRequestBody(func() any { return &dto.SigninRequest{} }), r.authHandler.Signin)
		auth.POST("/refreshToken", r.validMw.ValidateRequestBody(func() any { return &dto.RefreshTokenRequest{} }), r.authHandler.RefreshToken)

		protected := auth.Group("")
		protected.Use(r.jwtMw.RequireAuth())
		{
			protected.PATCH("", r.validMw.ValidateRequestBody(func() any { return &dto.UpdateProfileRequest{} }), r.userHandler.UpdateProfile)
			protected.GET("/me", r.userHandler.Me)
		}
	}
}
