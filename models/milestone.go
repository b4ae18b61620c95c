package models

import "time"

// Milestone types
const (
	MilestoneFirstRequestCreated   = "first_prayer_request_created"
	MilestoneFirstRequestAccepted  = "first_prayer_request_accepted"
	MilestoneTenRequestsAccepted   = "ten_prayer_requests_accepted"
	MilestoneFiftyRequestsAccepted = "fifty_prayer_requests_accepted"
	MilestoneSevenDayStreak        = "seven_day_prayer_streak"
)

// UserMilestone is unique per (user_profile_id, milestone_type); awards are
// idempotent inserts.
type UserMilestone struct {
	Milestone_ID      int       `json:"milestoneId" goqu:"skipinsert"`
	User_Profile_ID   int       `json:"userProfileId"`
	Milestone_Type    string    `json:"milestoneType"`
	Prayer_Request_ID *int      `json:"prayerRequestId"`
	Description       string    `json:"description"`
	Datetime_Create   time.Time `json:"datetimeCreate" goqu:"skipinsert"`
}
