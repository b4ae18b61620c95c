package controllers

import (
	"time"

	"github.com/FastAndPray/models"
	"golang.org/x/crypto/bcrypt"
)

// Test fixture data for use in tests

// MockUser creates a sample user profile for testing
func MockUser() models.UserProfile {
	return models.UserProfile{
		User_Profile_ID: 1,
		Username:        "testuser",
		First_Name:      "Test",
		Last_Name:       "User",
		Email:           "test@example.com",
		Admin:           false,
		Created_By:      1,
		Updated_By:      1,
		Datetime_Create: time.Now(),
		Datetime_Update: time.Now(),
	}
}

// MockUserWithPassword creates a sample user with a bcrypt hashed password
// Password is "password123" - use this in tests
func MockUserWithPassword() models.UserProfile {
	hashedPassword, _ := bcrypt.GenerateFromPassword([]byte("password123"), bcrypt.DefaultCost)
	user := MockUser()
	user.Password = string(hashedPassword)
	return user
}

// MockAdminUser creates a sample admin user for testing
func MockAdminUser() models.UserProfile {
	return models.UserProfile{
		User_Profile_ID: 2,
		Username:        "adminuser",
		First_Name:      "Admin",
		Last_Name:       "User",
		Email:           "admin@example.com",
		Admin:           true,
		Created_By:      1,
		Updated_By:      1,
		Datetime_Create: time.Now(),
		Datetime_Update: time.Now(),
	}
}

// MockPrayerRequest creates a sample approved, unexpired prayer request owned
// by MockUser
func MockPrayerRequest() models.PrayerRequest {
	return models.PrayerRequest{
		Prayer_Request_ID: 10,
		User_ID:           1,
		Title:             "Healing for my mother",
		Description:       "She goes into surgery next week.",
		Is_Anonymous:      false,
		Duration_Days:     7,
		Status:            models.StatusApproved,
		Prayer_Count:      0,
		Expiration_Date:   time.Now().Add(5 * 24 * time.Hour),
		Datetime_Create:   time.Now().Add(-2 * 24 * time.Hour),
		Datetime_Update:   time.Now().Add(-2 * 24 * time.Hour),
	}
}
