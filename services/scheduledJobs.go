package services

import (
	"log"
	"time"

	"github.com/FastAndPray/initializers"
	"github.com/FastAndPray/models"
	"github.com/doug-martin/goqu/v9"
)

// Scheduled job bodies. The external scheduler infrastructure invokes these
// once a day through the admin job endpoints; both are pure functions of
// "now" so tests can drive them with a fixed clock, and both are safe to
// re-run after a crash.

type SweepResult struct {
	Completed int `json:"completed"`
	Notified  int `json:"notified"`
}

type sweptRequest struct {
	Prayer_Request_ID int    `db:"prayer_request_id"`
	User_ID           int    `db:"user_id"`
	Title             string `db:"title"`
}

// RunExpirationSweep transitions every approved request whose expiration has
// passed to completed, then notifies each owner. The approved-only filter
// keeps the transition idempotent; the completion notification's dedup key
// keeps delivery exactly-once across re-runs.
func RunExpirationSweep(now time.Time) (SweepResult, error) {
	var result SweepResult

	var swept []sweptRequest
	err := initializers.DB.Update("prayer_request").
		Set(goqu.Record{"status": models.StatusCompleted, "datetime_update": goqu.L("NOW()")}).
		Where(
			goqu.C("status").Eq(models.StatusApproved),
			goqu.C("expiration_date").Lte(now),
		).
		Returning("prayer_request_id", "user_id", "title").
		Executor().ScanStructs(&swept)
	if err != nil {
		return result, err
	}
	result.Completed = len(swept)

	for _, pr := range swept {
		created, err := NotifyRequestCompleted(pr.Prayer_Request_ID, pr.User_ID, pr.Title)
		if err != nil {
			// Per-item failure: log and keep sweeping.
			log.Printf("Completion notification for request %d failed: %v", pr.Prayer_Request_ID, err)
			continue
		}
		if created {
			result.Notified++
		}
	}

	log.Printf("Expiration sweep: %d requests completed, %d owners notified", result.Completed, result.Notified)
	return result, nil
}

type DigestResult struct {
	Notified int `json:"notified"`
}

type digestRow struct {
	Prayer_Request_ID int    `db:"prayer_request_id"`
	User_ID           int    `db:"user_id"`
	Title             string `db:"title"`
	Prayer_Count      int    `db:"prayer_count"`
}

// RunDailyDigest sends each owner one "N people prayed for you today"
// notification. Completed requests whose expiration fell today are included
// so prayers logged on the final day are not lost. Idempotent per
// (request, date) via the notification dedup key.
func RunDailyDigest(now time.Time) (DigestResult, error) {
	var result DigestResult
	date := now.Format("2006-01-02")

	var rows []digestRow
	err := initializers.DB.From(goqu.T("prayer_request_prayer_log").As("l")).
		Join(
			goqu.T("prayer_request").As("pr"),
			goqu.On(goqu.I("l.prayer_request_id").Eq(goqu.I("pr.prayer_request_id"))),
		).
		Select(
			goqu.I("pr.prayer_request_id"),
			goqu.I("pr.user_id"),
			goqu.I("pr.title"),
			goqu.L("COUNT(DISTINCT l.user_profile_id)").As("prayer_count"),
		).
		Where(
			goqu.I("l.prayed_on_date").Eq(date),
			goqu.Or(
				goqu.I("pr.status").Eq(models.StatusApproved),
				goqu.And(
					goqu.I("pr.status").Eq(models.StatusCompleted),
					goqu.L("pr.expiration_date::date = ?", date),
				),
			),
		).
		GroupBy(goqu.I("pr.prayer_request_id"), goqu.I("pr.user_id"), goqu.I("pr.title")).
		ScanStructs(&rows)
	if err != nil {
		return result, err
	}

	for _, row := range rows {
		if row.Prayer_Count == 0 {
			continue
		}
		created, err := NotifyDailyPrayerCount(row.Prayer_Request_ID, row.User_ID, row.Title, row.Prayer_Count, date)
		if err != nil {
			log.Printf("Daily digest notification for request %d failed: %v", row.Prayer_Request_ID, err)
			continue
		}
		if created {
			result.Notified++
		}
	}

	log.Printf("Daily digest: %d notifications sent for %s", result.Notified, date)
	return result, nil
}
