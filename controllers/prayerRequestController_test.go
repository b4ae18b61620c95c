package controllers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/FastAndPray/models"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func requestRowColumns() []string {
	return []string{
		"prayer_request_id", "user_id", "title", "description", "is_anonymous",
		"duration_days", "media_ref", "status", "prayer_count",
		"expiration_date", "datetime_create", "datetime_update",
		"owner_first_name", "owner_last_name",
		"acceptance_count", "has_accepted", "has_prayed_today",
	}
}

func addRequestRow(rows *sqlmock.Rows, pr models.PrayerRequest) *sqlmock.Rows {
	return rows.AddRow(
		pr.Prayer_Request_ID, pr.User_ID, pr.Title, pr.Description, pr.Is_Anonymous,
		pr.Duration_Days, pr.Media_Ref, pr.Status, pr.Prayer_Count,
		pr.Expiration_Date, pr.Datetime_Create, pr.Datetime_Update,
		"Test", "User",
		1, false, false,
	)
}

func TestCreatePrayerRequest(t *testing.T) {
	tests := []struct {
		name           string
		body           models.PrayerRequestCreate
		capExceeded    bool
		expectedStatus int
		skipDB         bool
	}{
		{
			name: "successful creation",
			body: models.PrayerRequestCreate{
				Title:         "Healing for my mother",
				Description:   "She goes into surgery next week.",
				Duration_Days: 7,
			},
			expectedStatus: http.StatusCreated,
		},
		{
			name: "active request cap exceeded",
			body: models.PrayerRequestCreate{
				Title:         "One request too many",
				Description:   "Fourth active request.",
				Duration_Days: 5,
			},
			capExceeded:    true,
			expectedStatus: http.StatusBadRequest,
		},
		{
			name: "duration above maximum",
			body: models.PrayerRequestCreate{
				Title:         "Too long",
				Description:   "Eight days is past the limit.",
				Duration_Days: 8,
			},
			skipDB:         true,
			expectedStatus: http.StatusBadRequest,
		},
		{
			name: "duration below minimum",
			body: models.PrayerRequestCreate{
				Title:         "Too short",
				Description:   "Zero days.",
				Duration_Days: -1,
			},
			skipDB:         true,
			expectedStatus: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, mock, cleanup := SetupTestDB(t)
			defer cleanup()

			if !tt.skipDB {
				if tt.capExceeded {
					mock.ExpectQuery("WITH new_request").
						WillReturnRows(sqlmock.NewRows([]string{"prayer_request_id"}))
				} else {
					mock.ExpectQuery("WITH new_request").
						WillReturnRows(sqlmock.NewRows([]string{"prayer_request_id"}).AddRow(10))

					pending := MockPrayerRequest()
					pending.Status = models.StatusPendingModeration
					pending.Title = tt.body.Title
					mock.ExpectQuery("SELECT").
						WillReturnRows(addRequestRow(sqlmock.NewRows(requestRowColumns()), pending))
				}
			}

			c, w := SetupTestContext()
			SetAuthenticatedUser(c, MockUser(), false)
			jsonData, _ := json.Marshal(tt.body)
			c.Request = httptest.NewRequest("POST", "/prayer-requests", bytes.NewBuffer(jsonData))
			c.Request.Header.Set("Content-Type", "application/json")

			CreatePrayerRequest(c)

			assert.Equal(t, tt.expectedStatus, w.Code)
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestGetPrayerRequest(t *testing.T) {
	tests := []struct {
		name             string
		request          func() models.PrayerRequest
		caller           models.UserProfile
		isAdmin          bool
		expectModeration bool
		expectedStatus   int
	}{
		{
			name:             "owner sees own pending request",
			request:          func() models.PrayerRequest { pr := MockPrayerRequest(); pr.Status = models.StatusPendingModeration; return pr },
			caller:           MockUser(),
			expectModeration: true,
			expectedStatus:   http.StatusOK,
		},
		{
			name:           "non-owner sees approved request",
			request:        func() models.PrayerRequest { pr := MockPrayerRequest(); pr.User_ID = 99; return pr },
			caller:         MockUser(),
			expectedStatus: http.StatusOK,
		},
		{
			name: "non-owner cannot see pending request",
			request: func() models.PrayerRequest {
				pr := MockPrayerRequest()
				pr.User_ID = 99
				pr.Status = models.StatusPendingModeration
				return pr
			},
			caller:         MockUser(),
			expectedStatus: http.StatusNotFound,
		},
		{
			name: "non-owner cannot see rejected request",
			request: func() models.PrayerRequest {
				pr := MockPrayerRequest()
				pr.User_ID = 99
				pr.Status = models.StatusRejected
				return pr
			},
			caller:         MockUser(),
			expectedStatus: http.StatusNotFound,
		},
		{
			name: "admin sees pending request of another user",
			request: func() models.PrayerRequest {
				pr := MockPrayerRequest()
				pr.User_ID = 99
				pr.Status = models.StatusPendingModeration
				return pr
			},
			caller:           MockAdminUser(),
			isAdmin:          true,
			expectModeration: true,
			expectedStatus:   http.StatusOK,
		},
		{
			name: "deleted request hidden from non-admin owner",
			request: func() models.PrayerRequest {
				pr := MockPrayerRequest()
				pr.Status = models.StatusDeleted
				return pr
			},
			caller:         MockUser(),
			expectedStatus: http.StatusNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, mock, cleanup := SetupTestDB(t)
			defer cleanup()

			mock.ExpectQuery("SELECT").
				WillReturnRows(addRequestRow(sqlmock.NewRows(requestRowColumns()), tt.request()))

			if tt.expectModeration {
				mock.ExpectQuery("SELECT").WillReturnRows(sqlmock.NewRows([]string{
					"moderation_id", "prayer_request_id", "profanity_passed", "ai_approved",
					"concerns", "reason", "reviewed", "ai_error", "requires_review",
					"in_flight_until", "moderated_at",
				}).AddRow(1, 10, nil, nil, nil, nil, false, false, false, nil, nil))
			}

			c, w := SetupTestContext()
			SetAuthenticatedUser(c, tt.caller, tt.isAdmin)
			c.Params = gin.Params{{Key: "id", Value: "10"}}
			c.Request = httptest.NewRequest("GET", "/prayer-requests/10", nil)

			GetPrayerRequest(c)

			assert.Equal(t, tt.expectedStatus, w.Code)
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestGetPrayerRequest_AnonymousOwnerHidden(t *testing.T) {
	_, mock, cleanup := SetupTestDB(t)
	defer cleanup()

	pr := MockPrayerRequest()
	pr.User_ID = 99
	pr.Is_Anonymous = true
	mock.ExpectQuery("SELECT").
		WillReturnRows(addRequestRow(sqlmock.NewRows(requestRowColumns()), pr))

	c, w := SetupTestContext()
	SetAuthenticatedUser(c, MockUser(), false)
	c.Params = gin.Params{{Key: "id", Value: "10"}}
	c.Request = httptest.NewRequest("GET", "/prayer-requests/10", nil)

	GetPrayerRequest(c)

	assert.Equal(t, http.StatusOK, w.Code)

	var resp map[string]interface{}
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Nil(t, resp["owner"], "anonymous request must not expose the owner")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdatePrayerRequest(t *testing.T) {
	newTitle := "Updated title"

	tests := []struct {
		name           string
		request        func() models.PrayerRequest
		caller         models.UserProfile
		body           models.PrayerRequestUpdate
		expectSuccess  bool
		expectedStatus int
	}{
		{
			name: "owner edits pending request",
			request: func() models.PrayerRequest {
				pr := MockPrayerRequest()
				pr.Status = models.StatusPendingModeration
				return pr
			},
			caller:         MockUser(),
			body:           models.PrayerRequestUpdate{Title: &newTitle},
			expectSuccess:  true,
			expectedStatus: http.StatusOK,
		},
		{
			name:           "approved request cannot be edited",
			request:        MockPrayerRequest,
			caller:         MockUser(),
			body:           models.PrayerRequestUpdate{Title: &newTitle},
			expectedStatus: http.StatusBadRequest,
		},
		{
			name: "non-owner cannot edit",
			request: func() models.PrayerRequest {
				pr := MockPrayerRequest()
				pr.User_ID = 99
				pr.Status = models.StatusPendingModeration
				return pr
			},
			caller:         MockUser(),
			body:           models.PrayerRequestUpdate{Title: &newTitle},
			expectedStatus: http.StatusForbidden,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, mock, cleanup := SetupTestDB(t)
			defer cleanup()

			pr := tt.request()
			existing := sqlmock.NewRows([]string{
				"prayer_request_id", "user_id", "title", "description", "is_anonymous",
				"duration_days", "media_ref", "status", "prayer_count",
				"expiration_date", "datetime_create", "datetime_update",
			}).AddRow(
				pr.Prayer_Request_ID, pr.User_ID, pr.Title, pr.Description, pr.Is_Anonymous,
				pr.Duration_Days, pr.Media_Ref, pr.Status, pr.Prayer_Count,
				pr.Expiration_Date, pr.Datetime_Create, pr.Datetime_Update,
			)
			mock.ExpectQuery("SELECT").WillReturnRows(existing)

			if tt.expectSuccess {
				mock.ExpectExec("UPDATE \"prayer_request\"").WillReturnResult(sqlmock.NewResult(0, 1))
				// moderation outcome reset for re-review
				mock.ExpectExec("UPDATE \"prayer_request_moderation\"").WillReturnResult(sqlmock.NewResult(0, 1))

				updated := pr
				updated.Title = newTitle
				mock.ExpectQuery("SELECT").
					WillReturnRows(addRequestRow(sqlmock.NewRows(requestRowColumns()), updated))
			}

			c, w := SetupTestContext()
			SetAuthenticatedUser(c, tt.caller, false)
			c.Params = gin.Params{{Key: "id", Value: "10"}}
			jsonData, _ := json.Marshal(tt.body)
			c.Request = httptest.NewRequest("PATCH", "/prayer-requests/10", bytes.NewBuffer(jsonData))
			c.Request.Header.Set("Content-Type", "application/json")

			UpdatePrayerRequest(c)

			assert.Equal(t, tt.expectedStatus, w.Code)
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestDeletePrayerRequest(t *testing.T) {
	tests := []struct {
		name           string
		request        func() models.PrayerRequest
		caller         models.UserProfile
		isAdmin        bool
		expectUpdate   bool
		expectedStatus int
	}{
		{
			name:           "owner deletes own request",
			request:        MockPrayerRequest,
			caller:         MockUser(),
			expectUpdate:   true,
			expectedStatus: http.StatusOK,
		},
		{
			name: "non-owner cannot delete",
			request: func() models.PrayerRequest {
				pr := MockPrayerRequest()
				pr.User_ID = 99
				return pr
			},
			caller:         MockUser(),
			expectedStatus: http.StatusForbidden,
		},
		{
			name: "admin cannot delete another user's request",
			request: func() models.PrayerRequest {
				pr := MockPrayerRequest()
				pr.User_ID = 99
				return pr
			},
			caller:         MockAdminUser(),
			isAdmin:        true,
			expectedStatus: http.StatusForbidden,
		},
		{
			name: "deleting an already deleted request succeeds without update",
			request: func() models.PrayerRequest {
				pr := MockPrayerRequest()
				pr.Status = models.StatusDeleted
				return pr
			},
			caller:         MockUser(),
			expectedStatus: http.StatusOK,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, mock, cleanup := SetupTestDB(t)
			defer cleanup()

			pr := tt.request()
			existing := sqlmock.NewRows([]string{
				"prayer_request_id", "user_id", "title", "description", "is_anonymous",
				"duration_days", "media_ref", "status", "prayer_count",
				"expiration_date", "datetime_create", "datetime_update",
			}).AddRow(
				pr.Prayer_Request_ID, pr.User_ID, pr.Title, pr.Description, pr.Is_Anonymous,
				pr.Duration_Days, pr.Media_Ref, pr.Status, pr.Prayer_Count,
				pr.Expiration_Date, pr.Datetime_Create, pr.Datetime_Update,
			)
			mock.ExpectQuery("SELECT").WillReturnRows(existing)

			if tt.expectUpdate {
				mock.ExpectExec("UPDATE \"prayer_request\"").WillReturnResult(sqlmock.NewResult(0, 1))
			}

			c, w := SetupTestContext()
			SetAuthenticatedUser(c, tt.caller, tt.isAdmin)
			c.Params = gin.Params{{Key: "id", Value: "10"}}
			c.Request = httptest.NewRequest("DELETE", "/prayer-requests/10", nil)

			DeletePrayerRequest(c)

			assert.Equal(t, tt.expectedStatus, w.Code)
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestGetPrayerRequests(t *testing.T) {
	t.Run("default listing returns approved requests", func(t *testing.T) {
		_, mock, cleanup := SetupTestDB(t)
		defer cleanup()

		mock.ExpectQuery("SELECT COUNT").
			WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

		pr := MockPrayerRequest()
		pr.User_ID = 99
		mock.ExpectQuery("SELECT").
			WillReturnRows(addRequestRow(sqlmock.NewRows(requestRowColumns()), pr))

		c, w := SetupTestContext()
		SetAuthenticatedUser(c, MockUser(), false)
		c.Request = httptest.NewRequest("GET", "/prayer-requests", nil)

		GetPrayerRequests(c)

		assert.Equal(t, http.StatusOK, w.Code)

		var resp map[string]interface{}
		assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, float64(1), resp["total"])
		assert.Len(t, resp["results"], 1)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("non-public status filter scoped to caller for non-admins", func(t *testing.T) {
		_, mock, cleanup := SetupTestDB(t)
		defer cleanup()

		// Both queries must carry the caller scoping predicate so one
		// member cannot list another member's pending or rejected requests.
		mock.ExpectQuery(`SELECT COUNT.*"pr"\."user_id" = 1`).
			WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

		pr := MockPrayerRequest()
		pr.Status = models.StatusPendingModeration
		mock.ExpectQuery(`SELECT .*"pr"\."user_id" = 1`).
			WillReturnRows(addRequestRow(sqlmock.NewRows(requestRowColumns()), pr))

		c, w := SetupTestContext()
		SetAuthenticatedUser(c, MockUser(), false)
		c.Request = httptest.NewRequest("GET", "/prayer-requests?status=pending_moderation", nil)

		GetPrayerRequests(c)

		assert.Equal(t, http.StatusOK, w.Code)

		var resp map[string]interface{}
		assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, float64(1), resp["total"])
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("invalid status filter rejected", func(t *testing.T) {
		_, mock, cleanup := SetupTestDB(t)
		defer cleanup()

		c, w := SetupTestContext()
		SetAuthenticatedUser(c, MockUser(), false)
		c.Request = httptest.NewRequest("GET", "/prayer-requests?status=bogus", nil)

		GetPrayerRequests(c)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}
