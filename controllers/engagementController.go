package controllers

import (
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/gin-gonic/gin"

	"github.com/FastAndPray/initializers"
	"github.com/FastAndPray/models"
	"github.com/FastAndPray/services"
	"github.com/doug-martin/goqu/v9"
)

// AcceptPrayerRequest commits the caller to praying for a request. One
// acceptance per user per request; the owner's implicit acceptance is created
// at approval time, so the owner never accepts through this endpoint.
// POST /prayer-requests/:id/accept
func AcceptPrayerRequest(c *gin.Context) {
	user := c.MustGet("currentUser").(models.UserProfile)

	prayerRequestID, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid prayer request ID"})
		return
	}

	var pr models.PrayerRequest
	found, err := initializers.DB.From("prayer_request").
		Where(goqu.C("prayer_request_id").Eq(prayerRequestID)).
		ScanStruct(&pr)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch prayer request"})
		return
	}
	if !found {
		c.JSON(http.StatusNotFound, gin.H{"error": "Prayer request not found"})
		return
	}

	if pr.User_ID == user.User_Profile_ID {
		c.JSON(http.StatusBadRequest, gin.H{"error": "You cannot accept your own prayer request"})
		return
	}
	if pr.Status != models.StatusApproved {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Only approved prayer requests can be accepted"})
		return
	}
	if pr.IsExpired(time.Now()) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "This prayer request has expired"})
		return
	}

	var acceptanceID int
	created, err := initializers.DB.Insert("prayer_request_acceptance").
		Rows(models.PrayerRequestAcceptance{
			Prayer_Request_ID:     prayerRequestID,
			User_Profile_ID:       user.User_Profile_ID,
			Counts_For_Milestones: true,
		}).
		OnConflict(goqu.DoNothing()).
		Returning("acceptance_id").
		Executor().ScanVal(&acceptanceID)
	if err != nil {
		log.Printf("Failed to accept prayer request %d for user %d: %v", prayerRequestID, user.User_Profile_ID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to accept prayer request"})
		return
	}
	if !created {
		c.JSON(http.StatusBadRequest, gin.H{"error": "You have already accepted this prayer request"})
		return
	}

	services.NotifyRequestAccepted(pr, user.User_Profile_ID, user.First_Name+" "+user.Last_Name)
	services.EvaluateAcceptanceMilestones(cfg, user.User_Profile_ID, prayerRequestID)

	c.JSON(http.StatusCreated, gin.H{
		"message":      "Prayer request accepted",
		"acceptanceId": acceptanceID,
	})
}

// MarkPrayed records that the caller prayed for a request today. At most one
// log per user per request per calendar day; acceptance is a prerequisite.
// POST /prayer-requests/:id/mark-prayed
func MarkPrayed(c *gin.Context) {
	user := c.MustGet("currentUser").(models.UserProfile)

	prayerRequestID, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid prayer request ID"})
		return
	}

	var pr models.PrayerRequest
	found, err := initializers.DB.From("prayer_request").
		Where(goqu.C("prayer_request_id").Eq(prayerRequestID)).
		ScanStruct(&pr)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch prayer request"})
		return
	}
	if !found {
		c.JSON(http.StatusNotFound, gin.H{"error": "Prayer request not found"})
		return
	}

	if pr.Status != models.StatusApproved && pr.Status != models.StatusCompleted {
		c.JSON(http.StatusBadRequest, gin.H{"error": "This prayer request is not open for prayer"})
		return
	}

	var accepted int64
	if _, err := initializers.DB.From("prayer_request_acceptance").
		Where(
			goqu.C("prayer_request_id").Eq(prayerRequestID),
			goqu.C("user_profile_id").Eq(user.User_Profile_ID),
		).
		Select(goqu.COUNT("*")).
		ScanVal(&accepted); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to check acceptance"})
		return
	}
	if accepted == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "You must accept this prayer request before logging prayer"})
		return
	}

	now := time.Now()
	date := now.Format("2006-01-02")

	var prayerLogID int
	created, err := initializers.DB.Insert("prayer_request_prayer_log").
		Rows(models.PrayerRequestPrayerLog{
			Prayer_Request_ID: prayerRequestID,
			User_Profile_ID:   user.User_Profile_ID,
			Prayed_On_Date:    date,
		}).
		OnConflict(goqu.DoNothing()).
		Returning("prayer_log_id").
		Executor().ScanVal(&prayerLogID)
	if err != nil {
		log.Printf("Failed to log prayer for request %d by user %d: %v", prayerRequestID, user.User_Profile_ID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to log prayer"})
		return
	}
	if !created {
		c.JSON(http.StatusBadRequest, gin.H{"error": "You have already marked this prayer for today"})
		return
	}

	if _, err := initializers.DB.Update("prayer_request").
		Set(goqu.Record{"prayer_count": goqu.L("prayer_count + 1")}).
		Where(goqu.C("prayer_request_id").Eq(prayerRequestID)).
		Executor().Exec(); err != nil {
		log.Printf("Failed to bump prayer count for request %d: %v", prayerRequestID, err)
	}

	services.EvaluatePrayerStreak(cfg, user.User_Profile_ID, now)

	c.JSON(http.StatusCreated, gin.H{
		"message":      "Prayer logged for today",
		"prayerLogId":  prayerLogID,
		"prayedOnDate": date,
	})
}

// GetAcceptedPrayerRequests lists the requests the caller has committed to
// pray for, most recently accepted first. Deleted requests fall out of the
// list; completed ones stay so the thanks message remains visible.
// GET /prayer-requests/accepted
func GetAcceptedPrayerRequests(c *gin.Context) {
	user := c.MustGet("currentUser").(models.UserProfile)
	admin := c.MustGet("admin").(bool)

	limit, offset := paginationParams(c)

	ds := prayerRequestDataset().
		Join(
			goqu.T("prayer_request_acceptance").As("acc"),
			goqu.On(goqu.I("acc.prayer_request_id").Eq(goqu.I("pr.prayer_request_id"))),
		).
		Where(
			goqu.I("acc.user_profile_id").Eq(user.User_Profile_ID),
			goqu.I("pr.status").Neq(models.StatusDeleted),
		)

	var total int64
	if _, err := ds.Select(goqu.COUNT("*")).ScanVal(&total); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to count accepted prayer requests"})
		return
	}

	var rows []models.PrayerRequestRow
	err := ds.Select(prayerRequestColumns(user.User_Profile_ID)...).
		Order(goqu.I("acc.datetime_create").Desc()).
		Limit(uint(limit)).
		Offset(uint(offset)).
		ScanStructs(&rows)
	if err != nil {
		log.Printf("Failed to list accepted prayer requests for user %d: %v", user.User_Profile_ID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch accepted prayer requests"})
		return
	}

	results := make([]models.PrayerRequestResponse, 0, len(rows))
	for i := range rows {
		results = append(results, rows[i].ToResponse(user.User_Profile_ID, admin, services.ResolveMediaURL(rows[i].Media_Ref)))
	}

	c.JSON(http.StatusOK, gin.H{
		"results": results,
		"total":   total,
		"limit":   limit,
		"offset":  offset,
	})
}

type thanksInput struct {
	Message string `json:"message" binding:"required"`
}

// SendThanks lets the owner of a completed request send a gratitude message
// to everyone who accepted it.
// POST /prayer-requests/:id/send-thanks
func SendThanks(c *gin.Context) {
	user := c.MustGet("currentUser").(models.UserProfile)

	prayerRequestID, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid prayer request ID"})
		return
	}

	var input thanksInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	message := strings.TrimSpace(input.Message)
	if message == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "message cannot be empty"})
		return
	}
	if utf8.RuneCountInString(message) > cfg.ThanksMaxLength {
		c.JSON(http.StatusBadRequest, gin.H{"error": "message cannot exceed " + strconv.Itoa(cfg.ThanksMaxLength) + " characters"})
		return
	}

	var pr models.PrayerRequest
	found, err := initializers.DB.From("prayer_request").
		Where(goqu.C("prayer_request_id").Eq(prayerRequestID)).
		ScanStruct(&pr)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch prayer request"})
		return
	}
	if !found {
		c.JSON(http.StatusNotFound, gin.H{"error": "Prayer request not found"})
		return
	}

	if pr.User_ID != user.User_Profile_ID {
		c.JSON(http.StatusForbidden, gin.H{"error": "Only the request owner can send thanks"})
		return
	}
	if pr.Status != models.StatusCompleted {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Thanks can only be sent for completed prayer requests"})
		return
	}

	var recipients []int
	err = initializers.DB.From("prayer_request_acceptance").
		Select("user_profile_id").
		Where(
			goqu.C("prayer_request_id").Eq(prayerRequestID),
			goqu.C("user_profile_id").Neq(pr.User_ID),
		).
		ScanVals(&recipients)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch recipients"})
		return
	}
	if len(recipients) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "No one has accepted this prayer request yet"})
		return
	}

	for _, recipientID := range recipients {
		if err := services.NotifyThanks(pr, recipientID, message); err != nil {
			log.Printf("Failed to send thanks for request %d to user %d: %v", prayerRequestID, recipientID, err)
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"message":        "Thanks sent",
		"recipientCount": len(recipients),
	})
}
