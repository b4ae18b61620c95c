package controllers

import (
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/FastAndPray/services"
)

// Scheduled job triggers. The deployment's cron infrastructure hits these
// admin endpoints once a day; both underlying jobs are idempotent, so an
// accidental double invocation is harmless.

// POST /admin/jobs/expiration-sweep
func RunExpirationSweepJob(c *gin.Context) {
	result, err := services.RunExpirationSweep(time.Now())
	if err != nil {
		log.Printf("Expiration sweep failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Expiration sweep failed"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Expiration sweep completed",
		"result":  result,
	})
}

// POST /admin/jobs/daily-digest
func RunDailyDigestJob(c *gin.Context) {
	result, err := services.RunDailyDigest(time.Now())
	if err != nil {
		log.Printf("Daily digest failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Daily digest failed"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Daily digest completed",
		"result":  result,
	})
}
