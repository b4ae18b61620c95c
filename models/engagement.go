package models

import "time"

// PrayerRequestAcceptance is a user's durable commitment to pray for a
// request. Unique per (prayer_request_id, user_profile_id). The owner's row
// is created automatically at approval with Counts_For_Milestones false.
type PrayerRequestAcceptance struct {
	Acceptance_ID         int       `json:"acceptanceId" goqu:"skipinsert"`
	Prayer_Request_ID     int       `json:"prayerRequestId"`
	User_Profile_ID       int       `json:"userProfileId"`
	Counts_For_Milestones bool      `json:"countsForMilestones"`
	Datetime_Create       time.Time `json:"datetimeCreate" goqu:"skipinsert"`
}

// PrayerRequestPrayerLog records one prayer act. Unique per
// (prayer_request_id, user_profile_id, prayed_on_date); never mutated.
type PrayerRequestPrayerLog struct {
	Prayer_Log_ID     int       `json:"prayerLogId" goqu:"skipinsert"`
	Prayer_Request_ID int       `json:"prayerRequestId"`
	User_Profile_ID   int       `json:"userProfileId"`
	Prayed_On_Date    string    `json:"prayedOnDate"`
	Datetime_Create   time.Time `json:"datetimeCreate" goqu:"skipinsert"`
}
