package main

import (
	"log"

	"github.com/gin-gonic/gin"

	"github.com/FastAndPray/config"
	"github.com/FastAndPray/controllers"
	"github.com/FastAndPray/initializers"
	"github.com/FastAndPray/middlewares"
	"github.com/FastAndPray/services"
)

func init() {
	initializers.LoadEnv()
	initializers.ConnectDB()

	cfg := config.Load()
	controllers.Init(cfg)

	services.InitProfanityFilter()
	services.InitModerationService(cfg, services.NewAnthropicCapability(cfg))
	services.InitPushNotificationService()
	services.InitEmailService()
	services.InitMediaService()
}

func main() {
	router := gin.Default()

	getKey := func(c *gin.Context) string {
		if gin.Mode() == gin.DebugMode {
			return c.FullPath()
		}
		return c.ClientIP()
	}

	router.POST("/login", middlewares.RateLimitMiddleware(2, 2, getKey), controllers.UserLogin)
	router.POST("/signup", middlewares.RateLimitMiddleware(2, 2, getKey), controllers.UserSignup)

	auth := router.Group("/")
	auth.Use(middlewares.CheckAuth)
	auth.Use(middlewares.RateLimitMiddleware(10, 10, getKey))
	{
		// user routes
		auth.GET("/users/me", controllers.GetUserProfile)
		auth.POST("/users/push-token", controllers.StorePushToken)
		auth.GET("/notifications", controllers.GetNotifications)

		// prayer request routes
		auth.GET("/prayer-requests", controllers.GetPrayerRequests)
		auth.POST("/prayer-requests", controllers.CreatePrayerRequest)
		auth.GET("/prayer-requests/accepted", controllers.GetAcceptedPrayerRequests)
		auth.GET("/prayer-requests/:id", controllers.GetPrayerRequest)
		auth.PATCH("/prayer-requests/:id", controllers.UpdatePrayerRequest)
		auth.DELETE("/prayer-requests/:id", controllers.DeletePrayerRequest)

		// engagement routes
		auth.POST("/prayer-requests/:id/accept", controllers.AcceptPrayerRequest)
		auth.POST("/prayer-requests/:id/mark-prayed", controllers.MarkPrayed)
		auth.POST("/prayer-requests/:id/send-thanks", controllers.SendThanks)

		// admin only routes
		admin := auth.Group("/")
		admin.Use(middlewares.CheckAdmin)
		admin.Use(middlewares.RateLimitMiddleware(5, 5, getKey))
		{
			admin.POST("/jobs/expiration-sweep", controllers.RunExpirationSweepJob)
			admin.POST("/jobs/daily-digest", controllers.RunDailyDigestJob)
		}
	}

	if err := router.Run(); err != nil {
		log.Fatal(err)
	}
}
