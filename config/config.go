package config

import (
	"os"
	"strconv"
	"time"

	"github.com/FastAndPray/models"
)

// Config holds the tunables for the prayer request lifecycle. Values come
// from the environment with defaults matching production behavior; tests
// construct the struct directly.
type Config struct {
	// Lifecycle
	MaxActiveRequests int // simultaneous pending/approved-unexpired requests per user
	MinDurationDays   int
	MaxDurationDays   int
	ThanksMaxLength   int

	// Moderation pipeline
	ModerationMaxRetries int
	ModerationRetryDelay time.Duration
	ReviewTimeout        time.Duration
	InFlightTTL          time.Duration
	ModerationModel      string

	// Milestones
	AcceptanceMilestones map[int]string // acceptance count -> milestone type
	StreakDays           int
}

func Load() Config {
	return Config{
		MaxActiveRequests:    envInt("MAX_ACTIVE_PRAYER_REQUESTS", 3),
		MinDurationDays:      1,
		MaxDurationDays:      envInt("MAX_PRAYER_REQUEST_DURATION_DAYS", 7),
		ThanksMaxLength:      500,
		ModerationMaxRetries: envInt("MODERATION_MAX_RETRIES", 3),
		ModerationRetryDelay: time.Duration(envInt("MODERATION_RETRY_DELAY_SECONDS", 60)) * time.Second,
		ReviewTimeout:        time.Duration(envInt("MODERATION_REVIEW_TIMEOUT_SECONDS", 30)) * time.Second,
		InFlightTTL:          time.Duration(envInt("MODERATION_IN_FLIGHT_TTL_MINUTES", 10)) * time.Minute,
		ModerationModel:      envStr("MODERATION_MODEL", "claude-sonnet-4-5-20250929"),
		AcceptanceMilestones: map[int]string{
			1:  models.MilestoneFirstRequestAccepted,
			10: models.MilestoneTenRequestsAccepted,
			50: models.MilestoneFiftyRequestsAccepted,
		},
		StreakDays: envInt("PRAYER_STREAK_DAYS", 7),
	}
}

func envStr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}
