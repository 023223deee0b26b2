package routes

import (
	"net/http"

	"github.com/royamoon/FoodLens/controllers"
	"github.com/royamoon/FoodLens/middlewares"

	"github.com/gin-gonic/gin"
)

func SetupRouter() *gin.Engine {
	r := gin.Default()

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// Analysis gateway (no auth, matching the original API route)
	r.POST("/api/analyze", controllers.AnalyzeFood)

	// Public auth routes
	auth := r.Group("/auth")
	{
		auth.POST("/register", controllers.Register)
		auth.POST("/login", controllers.Login)
		auth.POST("/login/google", controllers.LoginWithGoogle)
		auth.POST("/auth/callback", controllers.OAuthCallback)
		auth.POST("/refresh", controllers.Refresh)
	}

	// Protected auth routes
	session := r.Group("/auth")
	session.Use(middlewares.AuthMiddleware())
	{
		session.POST("/logout", controllers.Logout)
		session.GET("/verify", controllers.Verify)
		session.GET("/profile", controllers.GetProfile)
	}

	// Food entry CRUD, scoped to the caller
	food := r.Group("/food")
	food.Use(middlewares.AuthMiddleware())
	{
		food.POST("", controllers.CreateFood)
		food.GET("", controllers.ListFood)
		food.GET("/:id", controllers.GetFood)
		food.PATCH("/:id", controllers.UpdateFood)
		food.DELETE("/:id", controllers.DeleteFood)
	}

	return r
}
