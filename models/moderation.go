package models

import "time"

// PrayerRequestModeration is the 1:1 moderation outcome for a request.
// Created empty alongside the request, mutated only by the moderation
// pipeline, never deleted.
type PrayerRequestModeration struct {
	Moderation_ID     int        `json:"moderationId" goqu:"skipinsert"`
	Prayer_Request_ID int        `json:"prayerRequestId"`
	Profanity_Passed  *bool      `json:"profanityPassed"`
	AI_Approved       *bool      `json:"aiApproved"`
	Concerns          *string    `json:"concerns"`
	Reason            *string    `json:"reason"`
	Reviewed          bool       `json:"reviewed"`
	AI_Error          bool       `json:"aiError"`
	Requires_Review   bool       `json:"requiresReview"`
	In_Flight_Until   *time.Time `json:"-"`
	Submission_Epoch  int        `json:"-"`
	Moderated_At      *time.Time `json:"moderatedAt"`
}
