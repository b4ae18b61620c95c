package services

import (
	"fmt"
	"log"
	"os"

	"github.com/FastAndPray/models"
	"github.com/resend/resend-go/v2"
)

type EmailService struct {
	client *resend.Client
}

var emailService *EmailService

// InitEmailService initializes the email service with Resend API
func InitEmailService() {
	apiKey := os.Getenv("RESEND_API_KEY")

	if apiKey == "" {
		log.Println("WARNING: RESEND_API_KEY not set. Email service will not be available.")
		return
	}

	emailService = &EmailService{
		client: resend.NewClient(apiKey),
	}

	log.Println("Email service initialized successfully with Resend")
}

// GetEmailService returns the singleton email service instance
func GetEmailService() *EmailService {
	return emailService
}

var moderationAlertSubjects = map[string]string{
	"profanity_detected":      "Prayer Request Rejected - Profanity Detected",
	"llm_rejected":            "Prayer Request Rejected - Automated Review",
	"llm_error":               "Prayer Request Moderation Error - Manual Review Required",
	"requires_review":         "Prayer Request Flagged for Human Review",
	"critical_safety_concern": "Prayer Request Safety Concern",
}

// SendModerationAlert emails the operator inbox about a request that was
// rejected, errored, or flagged during moderation.
func (s *EmailService) SendModerationAlert(pr models.PrayerRequest, alertType string, details string) error {
	if s == nil || s.client == nil {
		return fmt.Errorf("email service not initialized")
	}

	recipient := os.Getenv("MODERATION_ALERT_EMAIL")
	if recipient == "" {
		return fmt.Errorf("MODERATION_ALERT_EMAIL not set")
	}

	subject, ok := moderationAlertSubjects[alertType]
	if !ok {
		subject = "Prayer Request Needs Review"
	}

	textBody := fmt.Sprintf(`A prayer request was flagged during moderation and requires attention.

Prayer Request ID: %d
Title: %s
Description: %s
Owner user ID: %d
Anonymous: %t
Status: %s
Created: %s

Details:
%s
`,
		pr.Prayer_Request_ID,
		pr.Title,
		pr.Description,
		pr.User_ID,
		pr.Is_Anonymous,
		pr.Status,
		pr.Datetime_Create.Format("2006-01-02 15:04:05 UTC"),
		details,
	)

	params := &resend.SendEmailRequest{
		From:    os.Getenv("RESEND_FROM_EMAIL"),
		To:      []string{recipient},
		Subject: subject,
		Text:    textBody,
	}

	sent, err := s.client.Emails.Send(params)
	if err != nil {
		log.Printf("Failed to send moderation alert for prayer request %d: %v", pr.Prayer_Request_ID, err)
		return fmt.Errorf("failed to send email: %v", err)
	}

	log.Printf("Moderation alert sent for prayer request %d. Email ID: %s", pr.Prayer_Request_ID, sent.Id)
	return nil
}

// sendModerationAlert is the nil-safe helper the pipeline calls; a missing
// email service only logs.
func sendModerationAlert(pr models.PrayerRequest, alertType string, details string) {
	svc := GetEmailService()
	if svc == nil {
		log.Printf("Email service unavailable; moderation alert (%s) for request %d not sent", alertType, pr.Prayer_Request_ID)
		return
	}
	if err := svc.SendModerationAlert(pr, alertType, details); err != nil {
		log.Printf("Moderation alert (%s) for request %d failed: %v", alertType, pr.Prayer_Request_ID, err)
	}
}
