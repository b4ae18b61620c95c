package services

import (
	"fmt"
	"log"
	"time"

	"github.com/FastAndPray/config"
	"github.com/FastAndPray/initializers"
	"github.com/FastAndPray/models"
	"github.com/doug-martin/goqu/v9"
)

// AwardMilestone inserts a (user, type) milestone. The unique constraint on
// (user_profile_id, milestone_type) makes the award idempotent: evaluating
// the same condition twice never duplicates a row. Returns whether a new
// milestone was created.
func AwardMilestone(userID int, milestoneType string, prayerRequestID *int, description string) (bool, error) {
	milestone := models.UserMilestone{
		User_Profile_ID:   userID,
		Milestone_Type:    milestoneType,
		Prayer_Request_ID: prayerRequestID,
		Description:       description,
	}

	var milestoneID int
	created, err := initializers.DB.Insert("user_milestone").
		Rows(milestone).
		OnConflict(goqu.DoNothing()).
		Returning("milestone_id").
		Executor().ScanVal(&milestoneID)
	if err != nil {
		return false, err
	}
	if !created {
		return false, nil
	}

	notifyMilestoneAwarded(userID, description, prayerRequestID)
	return true, nil
}

// EvaluateAcceptanceMilestones checks the caller's count of acceptances of
// other members' requests (auto-acceptances carry counts_for_milestones =
// false and are excluded) against the configured thresholds.
func EvaluateAcceptanceMilestones(cfg config.Config, userID int, prayerRequestID int) {
	var count int
	_, err := initializers.DB.From("prayer_request_acceptance").
		Select(goqu.COUNT("*")).
		Where(
			goqu.C("user_profile_id").Eq(userID),
			goqu.C("counts_for_milestones").IsTrue(),
		).
		ScanVal(&count)
	if err != nil {
		log.Printf("Failed to count acceptances for user %d: %v", userID, err)
		return
	}

	milestoneType, hit := cfg.AcceptanceMilestones[count]
	if !hit {
		return
	}

	description := fmt.Sprintf("Accepted %d prayer request(s) from other members", count)
	if _, err := AwardMilestone(userID, milestoneType, &prayerRequestID, description); err != nil {
		log.Printf("Failed to award %s for user %d: %v", milestoneType, userID, err)
	}
}

// EvaluatePrayerStreak awards the consecutive-day streak milestone when the
// user's distinct prayer-log days (across all engaged requests) form an
// unbroken run ending today.
func EvaluatePrayerStreak(cfg config.Config, userID int, now time.Time) {
	var days []time.Time
	err := initializers.DB.From("prayer_request_prayer_log").
		SelectDistinct(goqu.C("prayed_on_date")).
		Where(goqu.C("user_profile_id").Eq(userID)).
		Order(goqu.C("prayed_on_date").Desc()).
		Limit(uint(cfg.StreakDays)).
		ScanVals(&days)
	if err != nil {
		log.Printf("Failed to load prayer log days for user %d: %v", userID, err)
		return
	}

	if len(days) < cfg.StreakDays {
		return
	}

	for i, day := range days {
		want := now.AddDate(0, 0, -i).Format("2006-01-02")
		if day.Format("2006-01-02") != want {
			return
		}
	}

	description := fmt.Sprintf("Prayed %d days in a row", cfg.StreakDays)
	if _, err := AwardMilestone(userID, models.MilestoneSevenDayStreak, nil, description); err != nil {
		log.Printf("Failed to award prayer streak for user %d: %v", userID, err)
	}
}
