package services

import (
	"fmt"
	"log"
	"strconv"

	"github.com/FastAndPray/initializers"
	"github.com/FastAndPray/models"
	"github.com/doug-martin/goqu/v9"
)

// Notification gateway: every trigger writes an activity-feed row and then
// attempts push delivery. Push failures are logged, never surfaced — the
// durable record is the row.

// createNotification inserts one activity-feed row. When a dedup key is set,
// the unique index on dedup_key turns a re-run into a silent no-op, which is
// what makes the sweep and digest notifications exactly-once. Returns whether
// a row was created.
func createNotification(n models.Notification) (bool, error) {
	if n.Notification_Status == "" {
		n.Notification_Status = models.NotificationStatusUnread
	}

	if n.Dedup_Key == nil {
		_, err := initializers.DB.Insert("notification").Rows(n).Executor().Exec()
		return err == nil, err
	}

	var notificationID int
	created, err := initializers.DB.Insert("notification").
		Rows(n).
		OnConflict(goqu.DoNothing()).
		Returning("notification_id").
		Executor().ScanVal(&notificationID)
	if err != nil {
		return false, err
	}
	return created, nil
}

func pushToUser(userID int, title string, body string, data map[string]string) {
	pushService := GetPushNotificationService()
	if pushService == nil {
		return
	}
	payload := NotificationPayload{Title: title, Body: body, Data: data}
	if err := pushService.SendNotificationToUser(userID, payload); err != nil {
		log.Printf("Push delivery to user %d failed: %v", userID, err)
	}
}

// NotifyRequestApproved tells the owner their request passed moderation and
// is now visible to the community.
func NotifyRequestApproved(pr models.PrayerRequest) {
	message := fmt.Sprintf("Your prayer request %q was approved and is now visible to the community.", pr.Title)
	n := models.Notification{
		User_Profile_ID:          pr.User_ID,
		Notification_Type:        models.NotificationTypeRequestApproved,
		Notification_Message:     message,
		Target_Prayer_Request_ID: &pr.Prayer_Request_ID,
		Created_By:               pr.User_ID,
		Updated_By:               pr.User_ID,
	}
	if _, err := createNotification(n); err != nil {
		log.Printf("Failed to create approval notification for request %d: %v", pr.Prayer_Request_ID, err)
		return
	}
	pushToUser(pr.User_ID, "Prayer request approved", message, map[string]string{
		"type":            models.NotificationTypeRequestApproved,
		"prayerRequestId": strconv.Itoa(pr.Prayer_Request_ID),
	})
}

// NotifyRequestAccepted tells the owner someone committed to pray. The owner
// always learns about it; anonymity only hides the owner from other members.
func NotifyRequestAccepted(pr models.PrayerRequest, acceptorID int, acceptorName string) {
	message := fmt.Sprintf("%s committed to pray for %q.", acceptorName, pr.Title)
	n := models.Notification{
		User_Profile_ID:          pr.User_ID,
		Notification_Type:        models.NotificationTypeRequestAccepted,
		Notification_Message:     message,
		Target_Prayer_Request_ID: &pr.Prayer_Request_ID,
		Created_By:               acceptorID,
		Updated_By:               acceptorID,
	}
	if _, err := createNotification(n); err != nil {
		log.Printf("Failed to create acceptance notification for request %d: %v", pr.Prayer_Request_ID, err)
		return
	}
	pushToUser(pr.User_ID, "Someone is praying for you", message, map[string]string{
		"type":            models.NotificationTypeRequestAccepted,
		"prayerRequestId": strconv.Itoa(pr.Prayer_Request_ID),
	})
}

// NotifyRequestCompleted records the end-of-duration notification. Keyed on
// the request id so a crashed-and-retried sweep cannot send it twice.
func NotifyRequestCompleted(prayerRequestID int, ownerID int, title string) (bool, error) {
	dedupKey := fmt.Sprintf("completed:%d", prayerRequestID)
	message := fmt.Sprintf("Your prayer request %q has reached its duration. You can now send a thank you message to those who prayed.", title)
	n := models.Notification{
		User_Profile_ID:          ownerID,
		Notification_Type:        models.NotificationTypeRequestCompleted,
		Notification_Message:     message,
		Target_Prayer_Request_ID: &prayerRequestID,
		Dedup_Key:                &dedupKey,
		Created_By:               ownerID,
		Updated_By:               ownerID,
	}
	created, err := createNotification(n)
	if err != nil || !created {
		return created, err
	}
	pushToUser(ownerID, "Prayer request completed", message, map[string]string{
		"type":            models.NotificationTypeRequestCompleted,
		"prayerRequestId": strconv.Itoa(prayerRequestID),
	})
	return true, nil
}

// NotifyDailyPrayerCount is keyed on (request, date): one digest notification
// per request per calendar day no matter how often the job re-runs.
func NotifyDailyPrayerCount(prayerRequestID int, ownerID int, title string, count int, date string) (bool, error) {
	dedupKey := fmt.Sprintf("daily_count:%d:%s", prayerRequestID, date)
	noun := "people"
	if count == 1 {
		noun = "person"
	}
	message := fmt.Sprintf("%d %s prayed for your request %q today.", count, noun, title)
	n := models.Notification{
		User_Profile_ID:          ownerID,
		Notification_Type:        models.NotificationTypeDailyPrayerCount,
		Notification_Message:     message,
		Target_Prayer_Request_ID: &prayerRequestID,
		Dedup_Key:                &dedupKey,
		Created_By:               ownerID,
		Updated_By:               ownerID,
	}
	created, err := createNotification(n)
	if err != nil || !created {
		return created, err
	}
	pushToUser(ownerID, fmt.Sprintf("%d %s prayed for you today", count, noun), message, map[string]string{
		"type":            models.NotificationTypeDailyPrayerCount,
		"prayerRequestId": strconv.Itoa(prayerRequestID),
	})
	return true, nil
}

// NotifyThanks delivers the owner's thank-you message to one acceptor. No
// dedup key: every explicit send-thanks call fans out again.
func NotifyThanks(pr models.PrayerRequest, recipientID int, message string) error {
	body := fmt.Sprintf("Thank you from the requester of %q: %s", pr.Title, message)
	n := models.Notification{
		User_Profile_ID:          recipientID,
		Notification_Type:        models.NotificationTypeThanksMessage,
		Notification_Message:     body,
		Target_Prayer_Request_ID: &pr.Prayer_Request_ID,
		Created_By:               pr.User_ID,
		Updated_By:               pr.User_ID,
	}
	if _, err := createNotification(n); err != nil {
		return err
	}
	pushToUser(recipientID, "A thank you for your prayers", body, map[string]string{
		"type":            models.NotificationTypeThanksMessage,
		"prayerRequestId": strconv.Itoa(pr.Prayer_Request_ID),
	})
	return nil
}

func notifyMilestoneAwarded(userID int, description string, prayerRequestID *int) {
	n := models.Notification{
		User_Profile_ID:          userID,
		Notification_Type:        models.NotificationTypeMilestoneAwarded,
		Notification_Message:     description,
		Target_Prayer_Request_ID: prayerRequestID,
		Created_By:               userID,
		Updated_By:               userID,
	}
	if _, err := createNotification(n); err != nil {
		log.Printf("Failed to create milestone notification for user %d: %v", userID, err)
		return
	}
	pushToUser(userID, "Milestone reached", description, map[string]string{
		"type": models.NotificationTypeMilestoneAwarded,
	})
}
