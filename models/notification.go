package models

import "time"

// Notification type constants
const (
	NotificationTypeRequestApproved  = "PRAYER_REQUEST_APPROVED"
	NotificationTypeRequestAccepted  = "PRAYER_REQUEST_ACCEPTED"
	NotificationTypeRequestCompleted = "PRAYER_REQUEST_COMPLETED"
	NotificationTypeDailyPrayerCount = "PRAYER_REQUEST_DAILY_COUNT"
	NotificationTypeThanksMessage    = "PRAYER_REQUEST_THANKS"
	NotificationTypeMilestoneAwarded = "MILESTONE_AWARDED"
)

// Notification status constants
const (
	NotificationStatusRead   = "READ"
	NotificationStatusUnread = "UNREAD"
)

// Notification is one activity-feed entry. Dedup_Key, when set, is unique:
// inserting the same key twice is a silent no-op, which is how the sweep and
// digest jobs stay exactly-once across re-runs.
type Notification struct {
	Notification_ID          int       `json:"notificationId" goqu:"skipinsert"`
	User_Profile_ID          int       `json:"userProfileId"`
	Notification_Type        string    `json:"notificationType"`
	Notification_Message     string    `json:"notificationMessage"`
	Notification_Status      string    `json:"notificationStatus"`
	Target_Prayer_Request_ID *int      `json:"targetPrayerRequestId"`
	Dedup_Key                *string   `json:"-"`
	Datetime_Create          time.Time `json:"datetimeCreate" goqu:"skipinsert"`
	Datetime_Update          time.Time `json:"datetimeUpdate" goqu:"skipinsert"`
	Created_By               int       `json:"createdBy"`
	Updated_By               int       `json:"updatedBy"`
}
