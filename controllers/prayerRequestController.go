package controllers

import (
	"database/sql"
	"errors"
	"log"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/FastAndPray/config"
	"github.com/FastAndPray/initializers"
	"github.com/FastAndPray/models"
	"github.com/FastAndPray/services"
	"github.com/doug-martin/goqu/v9"
)

var cfg = config.Load()

// Init overrides the lifecycle configuration; main calls this after the
// environment is loaded.
func Init(c config.Config) {
	cfg = c
}

// createRequestSQL inserts the request and its empty moderation row in one
// statement. The guarded SELECT makes the active-request cap atomic: racing
// submissions see a consistent count and at most one can take the last slot.
const createRequestSQL = `
	WITH new_request AS (
		INSERT INTO prayer_request
			(user_id, title, description, is_anonymous, duration_days, media_ref, status, expiration_date)
		SELECT $1, $2, $3, $4, $5, $6, 'pending_moderation', NOW() + make_interval(days => $5)
		WHERE (
			SELECT COUNT(*) FROM prayer_request
			WHERE user_id = $1
			  AND (status = 'pending_moderation'
			       OR (status = 'approved' AND expiration_date > NOW()))
		) < $7
		RETURNING prayer_request_id
	), new_moderation AS (
		INSERT INTO prayer_request_moderation (prayer_request_id)
		SELECT prayer_request_id FROM new_request
	)
	SELECT prayer_request_id FROM new_request`

// CreatePrayerRequest stores a submission in pending_moderation and hands it
// to the moderation pipeline.
// POST /prayer-requests
func CreatePrayerRequest(c *gin.Context) {
	user := c.MustGet("currentUser").(models.UserProfile)

	var input models.PrayerRequestCreate
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if input.Duration_Days < cfg.MinDurationDays || input.Duration_Days > cfg.MaxDurationDays {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "durationDays must be between " + strconv.Itoa(cfg.MinDurationDays) + " and " + strconv.Itoa(cfg.MaxDurationDays),
		})
		return
	}

	var prayerRequestID int
	err := initializers.DB.QueryRow(createRequestSQL,
		user.User_Profile_ID,
		strings.TrimSpace(input.Title),
		strings.TrimSpace(input.Description),
		input.Is_Anonymous,
		input.Duration_Days,
		input.Media_Ref,
		cfg.MaxActiveRequests,
	).Scan(&prayerRequestID)
	if errors.Is(err, sql.ErrNoRows) {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "You already have " + strconv.Itoa(cfg.MaxActiveRequests) + " active prayer requests. Wait for one to complete before creating another.",
		})
		return
	}
	if err != nil {
		log.Printf("Failed to create prayer request for user %d: %v", user.User_Profile_ID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create prayer request"})
		return
	}

	services.EnqueueModeration(prayerRequestID)

	row, found, err := fetchPrayerRequestRow(prayerRequestID, user.User_Profile_ID)
	if err != nil || !found {
		log.Printf("Failed to fetch created prayer request %d: %v", prayerRequestID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch created prayer request"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message":       "Prayer request submitted for review.",
		"prayerRequest": row.ToResponse(user.User_Profile_ID, false, services.ResolveMediaURL(row.Media_Ref)),
	})
}

// GetPrayerRequests lists requests. Default view is approved-and-unexpired;
// a status filter may name any of the five statuses.
// GET /prayer-requests
func GetPrayerRequests(c *gin.Context) {
	user := c.MustGet("currentUser").(models.UserProfile)
	admin := c.MustGet("admin").(bool)

	limit, offset := paginationParams(c)

	ds := prayerRequestDataset()

	if statusParam := c.Query("status"); statusParam != "" {
		statuses := strings.Split(statusParam, ",")
		for _, status := range statuses {
			if !models.IsValidStatus(status) {
				c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid status filter: " + status})
				return
			}
		}
		ds = ds.Where(goqu.I("pr.status").In(statuses))
		if !admin {
			// Non-public statuses are only listable on the caller's own rows;
			// deleted requests stay hidden even from their owner. Same rules
			// as the detail endpoint.
			ds = ds.Where(goqu.Or(
				goqu.I("pr.status").In(models.StatusApproved, models.StatusCompleted),
				goqu.And(
					goqu.I("pr.user_id").Eq(user.User_Profile_ID),
					goqu.I("pr.status").Neq(models.StatusDeleted),
				),
			))
		}
	} else {
		ds = ds.Where(
			goqu.I("pr.status").Eq(models.StatusApproved),
			goqu.L("pr.expiration_date > NOW()"),
		)
	}

	var total int64
	if _, err := ds.Select(goqu.COUNT("*")).ScanVal(&total); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to count prayer requests"})
		return
	}

	var rows []models.PrayerRequestRow
	err := ds.Select(prayerRequestColumns(user.User_Profile_ID)...).
		Order(goqu.I("pr.datetime_create").Desc()).
		Limit(uint(limit)).
		Offset(uint(offset)).
		ScanStructs(&rows)
	if err != nil {
		log.Printf("Failed to list prayer requests: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch prayer requests"})
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

type prayerRequestDetail struct {
	models.PrayerRequestResponse
	Moderation *models.PrayerRequestModeration `json:"moderation,omitempty"`
}

// GetPrayerRequest retrieves one request. Non-owners only see requests that
// reached a publicly visible status. The owner and operators additionally get
// the moderation outcome while the request is pending or rejected, so a
// rejection reason is never invisible to the person who can act on it.
// GET /prayer-requests/:id
func GetPrayerRequest(c *gin.Context) {
	user := c.MustGet("currentUser").(models.UserProfile)
	admin := c.MustGet("admin").(bool)

	prayerRequestID, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid prayer request ID"})
		return
	}

	row, found, err := fetchPrayerRequestRow(prayerRequestID, user.User_Profile_ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch prayer request"})
		return
	}
	if !found || !canViewRequest(&row.PrayerRequest, user.User_Profile_ID, admin) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Prayer request not found"})
		return
	}

	detail := prayerRequestDetail{
		PrayerRequestResponse: row.ToResponse(user.User_Profile_ID, admin, services.ResolveMediaURL(row.Media_Ref)),
	}

	canSeeModeration := row.User_ID == user.User_Profile_ID || admin
	if canSeeModeration && (row.Status == models.StatusPendingModeration || row.Status == models.StatusRejected) {
		var moderation models.PrayerRequestModeration
		found, err := initializers.DB.From("prayer_request_moderation").
			Where(goqu.C("prayer_request_id").Eq(prayerRequestID)).
			ScanStruct(&moderation)
		if err != nil {
			log.Printf("Failed to fetch moderation outcome for request %d: %v", prayerRequestID, err)
		} else if found {
			detail.Moderation = &moderation
		}
	}

	c.JSON(http.StatusOK, detail)
}

// UpdatePrayerRequest edits a request. Only the owner may edit, and only
// while it is pending moderation; an edit resets the moderation outcome and
// resubmits the request to the pipeline.
// PATCH /prayer-requests/:id
func UpdatePrayerRequest(c *gin.Context) {
	user := c.MustGet("currentUser").(models.UserProfile)

	prayerRequestID, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid prayer request ID"})
		return
	}

	var existing models.PrayerRequest
	found, err := initializers.DB.From("prayer_request").
		Where(goqu.C("prayer_request_id").Eq(prayerRequestID)).
		ScanStruct(&existing)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch prayer request"})
		return
	}
	if !found {
		c.JSON(http.StatusNotFound, gin.H{"error": "Prayer request not found"})
		return
	}

	if existing.User_ID != user.User_Profile_ID {
		c.JSON(http.StatusForbidden, gin.H{"error": "You are not authorized to update this prayer request"})
		return
	}
	if existing.Status != models.StatusPendingModeration {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Only requests pending moderation can be edited"})
		return
	}

	var input models.PrayerRequestUpdate
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	updateRecord := goqu.Record{"datetime_update": goqu.L("NOW()")}
	if input.Title != nil {
		title := strings.TrimSpace(*input.Title)
		if title == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "title cannot be empty"})
			return
		}
		updateRecord["title"] = title
	}
	if input.Description != nil {
		description := strings.TrimSpace(*input.Description)
		if description == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "description cannot be empty"})
			return
		}
		updateRecord["description"] = description
	}
	if input.Is_Anonymous != nil {
		updateRecord["is_anonymous"] = *input.Is_Anonymous
	}
	if input.Duration_Days != nil {
		if *input.Duration_Days < cfg.MinDurationDays || *input.Duration_Days > cfg.MaxDurationDays {
			c.JSON(http.StatusBadRequest, gin.H{
				"error": "durationDays must be between " + strconv.Itoa(cfg.MinDurationDays) + " and " + strconv.Itoa(cfg.MaxDurationDays),
			})
			return
		}
		updateRecord["duration_days"] = *input.Duration_Days
		updateRecord["expiration_date"] = goqu.L("datetime_create + make_interval(days => ?)", *input.Duration_Days)
	}
	if input.Media_Ref != nil {
		updateRecord["media_ref"] = *input.Media_Ref
	}

	if _, err := initializers.DB.Update("prayer_request").
		Set(updateRecord).
		Where(goqu.C("prayer_request_id").Eq(prayerRequestID)).
		Executor().Exec(); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update prayer request"})
		return
	}

	// Resubmission: wipe the previous outcome and run the pipeline again.
	// Bumping the epoch orphans any review already in flight for the old
	// content; its verdict writes match zero rows.
	if _, err := initializers.DB.Update("prayer_request_moderation").
		Set(goqu.Record{
			"profanity_passed": nil,
			"ai_approved":      nil,
			"concerns":         nil,
			"reason":           nil,
			"reviewed":         false,
			"ai_error":         false,
			"requires_review":  false,
			"moderated_at":     nil,
			"in_flight_until":  nil,
			"submission_epoch": goqu.L("submission_epoch + 1"),
		}).
		Where(goqu.C("prayer_request_id").Eq(prayerRequestID)).
		Executor().Exec(); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to reset moderation outcome"})
		return
	}

	services.EnqueueModeration(prayerRequestID)

	row, found, err := fetchPrayerRequestRow(prayerRequestID, user.User_Profile_ID)
	if err != nil || !found {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch updated prayer request"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message":       "Prayer request updated and resubmitted for review.",
		"prayerRequest": row.ToResponse(user.User_Profile_ID, false, services.ResolveMediaURL(row.Media_Ref)),
	})
}

// DeletePrayerRequest soft-deletes a request. Owner-only, allowed from any
// status, and idempotent: deleting an already-deleted request succeeds.
// DELETE /prayer-requests/:id
func DeletePrayerRequest(c *gin.Context) {
	user := c.MustGet("currentUser").(models.UserProfile)

	prayerRequestID, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid prayer request ID"})
		return
	}

	var existing models.PrayerRequest
	found, err := initializers.DB.From("prayer_request").
		Where(goqu.C("prayer_request_id").Eq(prayerRequestID)).
		ScanStruct(&existing)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch prayer request"})
		return
	}
	if !found {
		c.JSON(http.StatusNotFound, gin.H{"error": "Prayer request not found"})
		return
	}

	if existing.User_ID != user.User_Profile_ID {
		c.JSON(http.StatusForbidden, gin.H{"error": "You are not authorized to delete this prayer request"})
		return
	}

	if existing.Status != models.StatusDeleted {
		if _, err := initializers.DB.Update("prayer_request").
			Set(goqu.Record{"status": models.StatusDeleted, "datetime_update": goqu.L("NOW()")}).
			Where(goqu.C("prayer_request_id").Eq(prayerRequestID)).
			Executor().Exec(); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete prayer request"})
			return
		}
	}

	c.JSON(http.StatusOK, gin.H{"message": "Prayer request deleted successfully"})
}

// canViewRequest hides non-public requests from everyone but the owner and
// operators. Deleted requests are gone for everyone but operators.
func canViewRequest(pr *models.PrayerRequest, callerID int, admin bool) bool {
	if admin {
		return true
	}
	if pr.Status == models.StatusDeleted {
		return false
	}
	if pr.User_ID == callerID {
		return true
	}
	return pr.Status == models.StatusApproved || pr.Status == models.StatusCompleted
}

func paginationParams(c *gin.Context) (int, int) {
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "20"))
	if err != nil || limit < 1 || limit > 100 {
		limit = 20
	}
	offset, err := strconv.Atoi(c.DefaultQuery("offset", "0"))
	if err != nil || offset < 0 {
		offset = 0
	}
	return limit, offset
}

func prayerRequestDataset() *goqu.SelectDataset {
	return initializers.DB.From(goqu.T("prayer_request").As("pr")).
		Join(
			goqu.T("user_profile").As("up"),
			goqu.On(goqu.I("pr.user_id").Eq(goqu.I("up.user_profile_id"))),
		)
}

func prayerRequestColumns(callerID int) []interface{} {
	return []interface{}{
		goqu.I("pr.prayer_request_id"),
		goqu.I("pr.user_id"),
		goqu.I("pr.title"),
		goqu.I("pr.description"),
		goqu.I("pr.is_anonymous"),
		goqu.I("pr.duration_days"),
		goqu.I("pr.media_ref"),
		goqu.I("pr.status"),
		goqu.I("pr.prayer_count"),
		goqu.I("pr.expiration_date"),
		goqu.I("pr.datetime_create"),
		goqu.I("pr.datetime_update"),
		goqu.I("up.first_name").As("owner_first_name"),
		goqu.I("up.last_name").As("owner_last_name"),
		goqu.L("(SELECT COUNT(*) FROM prayer_request_acceptance a WHERE a.prayer_request_id = pr.prayer_request_id)").As("acceptance_count"),
		goqu.L("EXISTS (SELECT 1 FROM prayer_request_acceptance a WHERE a.prayer_request_id = pr.prayer_request_id AND a.user_profile_id = ?)", callerID).As("has_accepted"),
		goqu.L("EXISTS (SELECT 1 FROM prayer_request_prayer_log l WHERE l.prayer_request_id = pr.prayer_request_id AND l.user_profile_id = ? AND l.prayed_on_date = CURRENT_DATE)", callerID).As("has_prayed_today"),
	}
}

func fetchPrayerRequestRow(prayerRequestID int, callerID int) (*models.PrayerRequestRow, bool, error) {
	var row models.PrayerRequestRow
	found, err := prayerRequestDataset().
		Select(prayerRequestColumns(callerID)...).
		Where(goqu.I("pr.prayer_request_id").Eq(prayerRequestID)).
		ScanStruct(&row)
	if err != nil || !found {
		return nil, found, err
	}
	return &row, true, nil
}
