package services

import (
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/FastAndPray/config"
	"github.com/FastAndPray/initializers"
	"github.com/doug-martin/goqu/v9"
)

// setupTestDB swaps the global DB for a sqlmock-backed instance
func setupTestDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("Failed to create sqlmock: %v", err)
	}

	goquDB := goqu.New("postgres", db)

	originalDB := initializers.DB
	initializers.DB = goquDB

	cleanup := func() {
		db.Close()
		initializers.DB = originalDB
	}

	return db, mock, cleanup
}

func testConfig() config.Config {
	return config.Config{
		MaxActiveRequests:    3,
		MinDurationDays:      1,
		MaxDurationDays:      7,
		ThanksMaxLength:      500,
		ModerationMaxRetries: 3,
		ModerationRetryDelay: time.Millisecond,
		ReviewTimeout:        time.Second,
		InFlightTTL:          10 * time.Minute,
		ModerationModel:      "claude-sonnet-4-5-20250929",
		AcceptanceMilestones: map[int]string{
			1:  "first_prayer_request_accepted",
			10: "ten_prayer_requests_accepted",
			50: "fifty_prayer_requests_accepted",
		},
		StreakDays: 7,
	}
}
