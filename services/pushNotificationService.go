package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/FastAndPray/initializers"
	"github.com/FastAndPray/models"
	"github.com/doug-martin/goqu/v9"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/messaging"
	"google.golang.org/api/option"
)

type PushNotificationService struct {
	fcmClient *messaging.Client
}

type NotificationPayload struct {
	Title string            `json:"title"`
	Body  string            `json:"body"`
	Data  map[string]string `json:"data,omitempty"`
	Sound string            `json:"sound,omitempty"`
}

var pushService *PushNotificationService

func InitPushNotificationService() {
	pushService = &PushNotificationService{}

	serviceAccountPath := os.Getenv("FIREBASE_SERVICE_ACCOUNT_PATH")

	var app *firebase.App
	var err error

	if serviceAccountPath != "" {
		opt := option.WithCredentialsFile(serviceAccountPath)
		app, err = firebase.NewApp(context.Background(), nil, opt)
		if err != nil {
			log.Printf("Failed to initialize Firebase app with service account: %v", err)
			return
		}
	} else {
		// Application Default Credentials
		app, err = firebase.NewApp(context.Background(), nil)
		if err != nil {
			log.Printf("Failed to initialize Firebase app with ADC: %v", err)
			return
		}
	}

	pushService.fcmClient, err = app.Messaging(context.Background())
	if err != nil {
		log.Printf("Failed to get Firebase messaging client: %v", err)
		return
	}

	log.Println("Push notification service initialized successfully with FCM")
}

func GetPushNotificationService() *PushNotificationService {
	return pushService
}

// SendNotificationToUser delivers a payload to every registered device of one
// user. A failing token does not stop delivery to the others.
func (s *PushNotificationService) SendNotificationToUser(userID int, payload NotificationPayload) error {
	var tokens []models.PushToken
	err := initializers.DB.From("user_push_tokens").
		Where(goqu.C("user_profile_id").Eq(userID)).
		ScanStructs(&tokens)
	if err != nil {
		return fmt.Errorf("failed to get push tokens for user %d: %v", userID, err)
	}

	if len(tokens) == 0 {
		return fmt.Errorf("no push tokens found for user %d", userID)
	}

	for _, token := range tokens {
		if err := s.sendToToken(token, payload); err != nil {
			log.Printf("Failed to send notification to token %s: %v", token.PushToken, err)
		}
	}

	return nil
}

// SendNotificationToUsers fans one payload out to a recipient set.
func (s *PushNotificationService) SendNotificationToUsers(userIDs []int, payload NotificationPayload) error {
	failed := 0
	for _, userID := range userIDs {
		if err := s.SendNotificationToUser(userID, payload); err != nil {
			failed++
			log.Printf("Failed to send notification to user %d: %v", userID, err)
		}
	}
	if failed > 0 {
		return fmt.Errorf("failed to send notifications to %d users", failed)
	}
	return nil
}

func (s *PushNotificationService) sendToToken(pushToken models.PushToken, payload NotificationPayload) error {
	// Expo Go tokens bypass FCM
	if strings.HasPrefix(pushToken.PushToken, "ExponentPushToken[") {
		return s.sendExpoNotification(pushToken, payload)
	}

	if s.fcmClient == nil {
		return fmt.Errorf("FCM client not initialized")
	}

	message := &messaging.Message{
		Token: pushToken.PushToken,
		Notification: &messaging.Notification{
			Title: payload.Title,
			Body:  payload.Body,
		},
		Data: payload.Data,
	}

	switch pushToken.Platform {
	case "ios":
		message.APNS = &messaging.APNSConfig{
			Payload: &messaging.APNSPayload{
				Aps: &messaging.Aps{
					Alert: &messaging.ApsAlert{
						Title: payload.Title,
						Body:  payload.Body,
					},
					Sound: payload.Sound,
				},
			},
		}
	case "android":
		message.Android = &messaging.AndroidConfig{
			Notification: &messaging.AndroidNotification{
				Title: payload.Title,
				Body:  payload.Body,
				Sound: payload.Sound,
			},
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	response, err := s.fcmClient.Send(ctx, message)
	if err != nil {
		return fmt.Errorf("failed to send FCM message: %v", err)
	}

	log.Printf("Sent FCM notification. Message ID: %s", response)
	return nil
}

// sendExpoNotification sends via the Expo Push API (Expo Go testing)
func (s *PushNotificationService) sendExpoNotification(pushToken models.PushToken, payload NotificationPayload) error {
	expoMessage := map[string]interface{}{
		"to":    pushToken.PushToken,
		"title": payload.Title,
		"body":  payload.Body,
		"data":  payload.Data,
	}
	if payload.Sound != "" {
		expoMessage["sound"] = payload.Sound
	}

	jsonBody, err := json.Marshal(expoMessage)
	if err != nil {
		return fmt.Errorf("failed to marshal Expo message: %v", err)
	}

	resp, err := http.Post("https://exp.host/--/api/v2/push/send", "application/json", bytes.NewBuffer(jsonBody))
	if err != nil {
		return fmt.Errorf("failed to send Expo notification: %v", err)
	}
	defer resp.Body.Close()

	responseBody, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("Expo push API returned status %d: %s", resp.StatusCode, string(responseBody))
	}

	return nil
}
