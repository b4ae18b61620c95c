package models

import "time"

// Prayer request lifecycle statuses
const (
	StatusPendingModeration = "pending_moderation"
	StatusApproved          = "approved"
	StatusRejected          = "rejected"
	StatusCompleted         = "completed"
	StatusDeleted           = "deleted"
)

func IsValidStatus(status string) bool {
	switch status {
	case StatusPendingModeration, StatusApproved, StatusRejected, StatusCompleted, StatusDeleted:
		return true
	}
	return false
}

type PrayerRequest struct {
	Prayer_Request_ID int       `json:"prayerRequestId" goqu:"skipinsert"`
	User_ID           int       `json:"-"`
	Title             string    `json:"title"`
	Description       string    `json:"description"`
	Is_Anonymous      bool      `json:"isAnonymous"`
	Duration_Days     int       `json:"durationDays"`
	Media_Ref         *string   `json:"-"`
	Status            string    `json:"status"`
	Prayer_Count      int       `json:"prayerCount" goqu:"skipinsert"`
	Expiration_Date   time.Time `json:"expirationDate"`
	Datetime_Create   time.Time `json:"datetimeCreate" goqu:"skipinsert"`
	Datetime_Update   time.Time `json:"datetimeUpdate" goqu:"skipinsert"`
}

func (pr *PrayerRequest) IsExpired(now time.Time) bool {
	return now.After(pr.Expiration_Date)
}

type PrayerRequestCreate struct {
	Title         string  `json:"title" binding:"required,max=200"`
	Description   string  `json:"description" binding:"required"`
	Is_Anonymous  bool    `json:"isAnonymous"`
	Duration_Days int     `json:"durationDays" binding:"required"`
	Media_Ref     *string `json:"mediaRef"`
}

type PrayerRequestUpdate struct {
	Title         *string `json:"title"`
	Description   *string `json:"description"`
	Is_Anonymous  *bool   `json:"isAnonymous"`
	Duration_Days *int    `json:"durationDays"`
	Media_Ref     *string `json:"mediaRef"`
}

// PrayerRequestRow is the scan target for list/detail queries. The extra
// columns come from the user_profile join and per-caller subselects.
type PrayerRequestRow struct {
	PrayerRequest
	Owner_First_Name string `json:"-" goqu:"skipinsert"`
	Owner_Last_Name  string `json:"-" goqu:"skipinsert"`
	Acceptance_Count int    `json:"-" goqu:"skipinsert"`
	Has_Accepted     bool   `json:"-" goqu:"skipinsert"`
	Has_Prayed_Today bool   `json:"-" goqu:"skipinsert"`
}

type PrayerRequestOwner struct {
	User_Profile_ID int    `json:"userProfileId"`
	Display_Name    string `json:"displayName"`
}

type PrayerRequestResponse struct {
	PrayerRequest
	Owner          *PrayerRequestOwner `json:"owner"`
	Media_URL      *string             `json:"mediaUrl"`
	AcceptanceNum  int                 `json:"acceptanceCount"`
	HasAccepted    bool                `json:"hasAccepted"`
	HasPrayedToday bool                `json:"hasPrayedToday"`
	IsOwner        bool                `json:"isOwner"`
}

// ToResponse shapes a row for one caller. The owner reference is withheld on
// anonymous requests unless the caller is the owner or an operator.
func (row *PrayerRequestRow) ToResponse(callerID int, isAdmin bool, mediaURL *string) PrayerRequestResponse {
	resp := PrayerRequestResponse{
		PrayerRequest:  row.PrayerRequest,
		Media_URL:      mediaURL,
		AcceptanceNum:  row.Acceptance_Count,
		HasAccepted:    row.Has_Accepted,
		HasPrayedToday: row.Has_Prayed_Today,
		IsOwner:        row.User_ID == callerID,
	}

	if !row.Is_Anonymous || row.User_ID == callerID || isAdmin {
		resp.Owner = &PrayerRequestOwner{
			User_Profile_ID: row.User_ID,
			Display_Name:    row.Owner_First_Name + " " + row.Owner_Last_Name,
		}
	}

	return resp
}
