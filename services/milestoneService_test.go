package services

import (
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
)

func TestAwardMilestone(t *testing.T) {
	t.Run("new milestone created and notified", func(t *testing.T) {
		_, mock, cleanup := setupTestDB(t)
		defer cleanup()

		mock.ExpectQuery("INSERT INTO \"user_milestone\"").
			WillReturnRows(sqlmock.NewRows([]string{"milestone_id"}).AddRow(1))
		mock.ExpectExec("INSERT INTO \"notification\"").
			WillReturnResult(sqlmock.NewResult(1, 1))

		created, err := AwardMilestone(1, "first_prayer_request_accepted", nil, "Accepted 1 prayer request(s) from other members")
		assert.NoError(t, err)
		assert.True(t, created)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("duplicate award is a no-op", func(t *testing.T) {
		_, mock, cleanup := setupTestDB(t)
		defer cleanup()

		mock.ExpectQuery("INSERT INTO \"user_milestone\"").
			WillReturnRows(sqlmock.NewRows([]string{"milestone_id"}))

		created, err := AwardMilestone(1, "first_prayer_request_accepted", nil, "Accepted 1 prayer request(s) from other members")
		assert.NoError(t, err)
		assert.False(t, created)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestEvaluateAcceptanceMilestones(t *testing.T) {
	t.Run("threshold hit awards milestone", func(t *testing.T) {
		_, mock, cleanup := setupTestDB(t)
		defer cleanup()

		mock.ExpectQuery("SELECT COUNT").
			WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(10))
		mock.ExpectQuery("INSERT INTO \"user_milestone\"").
			WillReturnRows(sqlmock.NewRows([]string{"milestone_id"}).AddRow(2))
		mock.ExpectExec("INSERT INTO \"notification\"").
			WillReturnResult(sqlmock.NewResult(1, 1))

		EvaluateAcceptanceMilestones(testConfig(), 1, 10)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("count between thresholds does nothing", func(t *testing.T) {
		_, mock, cleanup := setupTestDB(t)
		defer cleanup()

		mock.ExpectQuery("SELECT COUNT").
			WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(7))

		EvaluateAcceptanceMilestones(testConfig(), 1, 10)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestEvaluatePrayerStreak(t *testing.T) {
	now := time.Now()

	t.Run("seven consecutive days awards streak", func(t *testing.T) {
		_, mock, cleanup := setupTestDB(t)
		defer cleanup()

		days := sqlmock.NewRows([]string{"prayed_on_date"})
		for i := 0; i < 7; i++ {
			days.AddRow(now.AddDate(0, 0, -i))
		}

		mock.ExpectQuery("SELECT DISTINCT").WillReturnRows(days)
		mock.ExpectQuery("INSERT INTO \"user_milestone\"").
			WillReturnRows(sqlmock.NewRows([]string{"milestone_id"}).AddRow(3))
		mock.ExpectExec("INSERT INTO \"notification\"").
			WillReturnResult(sqlmock.NewResult(1, 1))

		EvaluatePrayerStreak(testConfig(), 1, now)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("gap in the run awards nothing", func(t *testing.T) {
		_, mock, cleanup := setupTestDB(t)
		defer cleanup()

		days := sqlmock.NewRows([]string{"prayed_on_date"})
		for i := 0; i < 7; i++ {
			offset := -i
			if i >= 3 {
				offset-- // one missed day breaks the streak
			}
			days.AddRow(now.AddDate(0, 0, offset))
		}

		mock.ExpectQuery("SELECT DISTINCT").WillReturnRows(days)

		EvaluatePrayerStreak(testConfig(), 1, now)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("fewer days than required awards nothing", func(t *testing.T) {
		_, mock, cleanup := setupTestDB(t)
		defer cleanup()

		days := sqlmock.NewRows([]string{"prayed_on_date"})
		for i := 0; i < 3; i++ {
			days.AddRow(now.AddDate(0, 0, -i))
		}

		mock.ExpectQuery("SELECT DISTINCT").WillReturnRows(days)

		EvaluatePrayerStreak(testConfig(), 1, now)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}
