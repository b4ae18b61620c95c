package services

import (
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
)

func TestRunExpirationSweep(t *testing.T) {
	_, mock, cleanup := setupTestDB(t)
	defer cleanup()

	sweptRows := sqlmock.NewRows([]string{"prayer_request_id", "user_id", "title"}).
		AddRow(10, 1, "Healing for my mother").
		AddRow(11, 2, "Safe travels")

	mock.ExpectQuery("UPDATE \"prayer_request\"").WillReturnRows(sweptRows)

	// first owner gets a fresh completion notification
	mock.ExpectQuery("INSERT INTO \"notification\"").
		WillReturnRows(sqlmock.NewRows([]string{"notification_id"}).AddRow(100))
	// second was already notified by an earlier run: dedup key conflict
	mock.ExpectQuery("INSERT INTO \"notification\"").
		WillReturnRows(sqlmock.NewRows([]string{"notification_id"}))

	result, err := RunExpirationSweep(time.Now())
	assert.NoError(t, err)
	assert.Equal(t, 2, result.Completed)
	assert.Equal(t, 1, result.Notified)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRunExpirationSweep_NothingExpired(t *testing.T) {
	_, mock, cleanup := setupTestDB(t)
	defer cleanup()

	mock.ExpectQuery("UPDATE \"prayer_request\"").
		WillReturnRows(sqlmock.NewRows([]string{"prayer_request_id", "user_id", "title"}))

	result, err := RunExpirationSweep(time.Now())
	assert.NoError(t, err)
	assert.Equal(t, 0, result.Completed)
	assert.Equal(t, 0, result.Notified)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRunDailyDigest(t *testing.T) {
	_, mock, cleanup := setupTestDB(t)
	defer cleanup()

	digestRows := sqlmock.NewRows([]string{"prayer_request_id", "user_id", "title", "prayer_count"}).
		AddRow(10, 1, "Healing for my mother", 3).
		AddRow(11, 2, "Safe travels", 1)

	mock.ExpectQuery("SELECT").WillReturnRows(digestRows)

	mock.ExpectQuery("INSERT INTO \"notification\"").
		WillReturnRows(sqlmock.NewRows([]string{"notification_id"}).AddRow(101))
	mock.ExpectQuery("INSERT INTO \"notification\"").
		WillReturnRows(sqlmock.NewRows([]string{"notification_id"}).AddRow(102))

	result, err := RunDailyDigest(time.Now())
	assert.NoError(t, err)
	assert.Equal(t, 2, result.Notified)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRunDailyDigest_RerunIsIdempotent(t *testing.T) {
	_, mock, cleanup := setupTestDB(t)
	defer cleanup()

	digestRows := sqlmock.NewRows([]string{"prayer_request_id", "user_id", "title", "prayer_count"}).
		AddRow(10, 1, "Healing for my mother", 3)

	mock.ExpectQuery("SELECT").WillReturnRows(digestRows)

	// dedup key already present from the first run
	mock.ExpectQuery("INSERT INTO \"notification\"").
		WillReturnRows(sqlmock.NewRows([]string{"notification_id"}))

	result, err := RunDailyDigest(time.Now())
	assert.NoError(t, err)
	assert.Equal(t, 0, result.Notified)
	assert.NoError(t, mock.ExpectationsWereMet())
}
