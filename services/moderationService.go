package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/FastAndPray/config"
	"github.com/FastAndPray/initializers"
	"github.com/FastAndPray/models"
	"github.com/doug-martin/goqu/v9"
)

// ModerationService runs the two-stage content-safety pipeline off the
// request-handling path. Requests are enqueued at submission (and
// edit-resubmission) and consumed by a background worker; interactive
// endpoints never block on the generative review call.
type ModerationService struct {
	cfg        config.Config
	capability ModerationCapability
	queue      chan int
	sleep      func(time.Duration)
}

var moderationService *ModerationService

// InitModerationService creates the singleton and starts the worker.
func InitModerationService(cfg config.Config, capability ModerationCapability) {
	moderationService = NewModerationService(cfg, capability)
	go moderationService.worker()
	log.Println("Moderation service initialized")
}

// NewModerationService builds a service without starting the worker; tests
// drive ModerateRequest directly.
func NewModerationService(cfg config.Config, capability ModerationCapability) *ModerationService {
	return &ModerationService{
		cfg:        cfg,
		capability: capability,
		queue:      make(chan int, 256),
		sleep:      time.Sleep,
	}
}

func GetModerationService() *ModerationService {
	return moderationService
}

// EnqueueModeration hands a request id to the pipeline. Nil-safe so the
// request path never fails because the worker is not running.
func EnqueueModeration(prayerRequestID int) {
	if moderationService == nil {
		log.Printf("Moderation service unavailable; request %d left pending", prayerRequestID)
		return
	}
	moderationService.Enqueue(prayerRequestID)
}

func (s *ModerationService) Enqueue(prayerRequestID int) {
	select {
	case s.queue <- prayerRequestID:
	default:
		// Queue saturated; fall back to a one-off goroutine rather than drop.
		go func() {
			if err := s.ModerateRequest(prayerRequestID); err != nil {
				log.Printf("Moderation of prayer request %d failed: %v", prayerRequestID, err)
			}
		}()
	}
}

func (s *ModerationService) worker() {
	for prayerRequestID := range s.queue {
		if err := s.ModerateRequest(prayerRequestID); err != nil {
			log.Printf("Moderation of prayer request %d failed: %v", prayerRequestID, err)
		}
	}
}

// ModerateRequest runs the full pipeline for one request: single-flight
// claim, lexical filter, generative review with retries, verdict
// application. Safe to call concurrently; the claim guarantees one runner
// per submission epoch, and every verdict write carries the claimed epoch
// so a run orphaned by an edit-resubmission cannot touch the fresh outcome.
func (s *ModerationService) ModerateRequest(prayerRequestID int) error {
	epoch, claimed, err := s.claim(prayerRequestID)
	if err != nil {
		return err
	}
	if !claimed {
		log.Printf("Prayer request %d already reviewed or moderation in flight, skipping", prayerRequestID)
		return nil
	}

	var pr models.PrayerRequest
	found, err := initializers.DB.From("prayer_request").
		Where(goqu.C("prayer_request_id").Eq(prayerRequestID)).
		ScanStruct(&pr)
	if err != nil {
		s.release(prayerRequestID, epoch)
		return err
	}
	if !found {
		s.release(prayerRequestID, epoch)
		return fmt.Errorf("prayer request %d not found", prayerRequestID)
	}
	if pr.Status != models.StatusPendingModeration {
		s.release(prayerRequestID, epoch)
		return nil
	}

	// Stage 1: lexical filter. A hit is terminal and skips the AI stage.
	if ContainsProfanity(pr.Title) || ContainsProfanity(pr.Description) {
		return s.rejectForProfanity(pr, epoch)
	}

	// Stage 2: generative review, off any lock; only the verdict is applied
	// transactionally.
	verdict, reviewErr := s.review(pr)
	if reviewErr != nil {
		return s.recordReviewError(pr, epoch, reviewErr)
	}

	return s.applyVerdict(pr, epoch, verdict)
}

// claim marks the request's moderation row in flight and captures its
// submission epoch. The TTL means a crashed worker releases the request by
// timeout instead of wedging it; an edit bumps the epoch, so the claim a
// stale worker still holds no longer matches any write.
func (s *ModerationService) claim(prayerRequestID int) (int, bool, error) {
	const claimSQL = `
		UPDATE prayer_request_moderation
		SET in_flight_until = NOW() + make_interval(secs => $1)
		WHERE prayer_request_id = $2
		  AND reviewed = FALSE
		  AND (in_flight_until IS NULL OR in_flight_until < NOW())
		RETURNING submission_epoch`

	var epoch int
	err := initializers.DB.QueryRow(claimSQL, int(s.cfg.InFlightTTL.Seconds()), prayerRequestID).Scan(&epoch)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	return epoch, true, nil
}

func (s *ModerationService) release(prayerRequestID int, epoch int) {
	_, err := initializers.DB.Update("prayer_request_moderation").
		Set(goqu.Record{"in_flight_until": nil}).
		Where(
			goqu.C("prayer_request_id").Eq(prayerRequestID),
			goqu.C("submission_epoch").Eq(epoch),
		).
		Executor().Exec()
	if err != nil {
		log.Printf("Failed to release moderation claim for request %d: %v", prayerRequestID, err)
	}
}

func (s *ModerationService) rejectForProfanity(pr models.PrayerRequest, epoch int) error {
	var stale bool
	err := initializers.DB.WithTx(func(tx *goqu.TxDatabase) error {
		// Moderation row first: if the epoch no longer matches, the request
		// was edited under us and this run's outcome must not land.
		res, err := tx.Update("prayer_request_moderation").
			Set(goqu.Record{
				"profanity_passed": false,
				"reviewed":         true,
				"reason":           "Content contains inappropriate language",
				"moderated_at":     goqu.L("NOW()"),
				"in_flight_until":  nil,
			}).
			Where(
				goqu.C("prayer_request_id").Eq(pr.Prayer_Request_ID),
				goqu.C("submission_epoch").Eq(epoch),
			).
			Executor().Exec()
		if err != nil {
			return err
		}
		if n, err := res.RowsAffected(); err != nil {
			return err
		} else if n == 0 {
			stale = true
			return nil
		}
		_, err = tx.Update("prayer_request").
			Set(goqu.Record{"status": models.StatusRejected, "datetime_update": goqu.L("NOW()")}).
			Where(
				goqu.C("prayer_request_id").Eq(pr.Prayer_Request_ID),
				goqu.C("status").Eq(models.StatusPendingModeration),
			).
			Executor().Exec()
		return err
	})
	if err != nil {
		s.release(pr.Prayer_Request_ID, epoch)
		return err
	}
	if stale {
		log.Printf("Discarding stale profanity verdict for request %d (epoch %d)", pr.Prayer_Request_ID, epoch)
		return nil
	}

	pr.Status = models.StatusRejected
	sendModerationAlert(pr, "profanity_detected", "The lexical filter matched blocklisted language in the title or description. No generative review was performed.")
	log.Printf("Prayer request %d rejected due to profanity", pr.Prayer_Request_ID)
	return nil
}

// review calls the generative capability with a bounded timeout, retrying
// transient failures with linear backoff.
func (s *ModerationService) review(pr models.PrayerRequest) (*ModerationVerdict, error) {
	var lastErr error
	for attempt := 1; attempt <= s.cfg.ModerationMaxRetries; attempt++ {
		ctx, cancel := context.WithTimeout(context.Background(), s.cfg.ReviewTimeout)
		verdict, err := s.capability.Review(ctx, pr.Title, pr.Description)
		cancel()
		if err == nil {
			return verdict, nil
		}
		lastErr = err

		var transient *TransientReviewError
		if !errors.As(err, &transient) {
			// Terminal capability failure; retrying cannot change it.
			return nil, err
		}
		if attempt < s.cfg.ModerationMaxRetries {
			log.Printf("Transient review failure for request %d (attempt %d/%d): %v",
				pr.Prayer_Request_ID, attempt, s.cfg.ModerationMaxRetries, err)
			s.sleep(s.cfg.ModerationRetryDelay * time.Duration(attempt))
		}
	}
	return nil, lastErr
}

// recordReviewError leaves the request pending with the error flag set so an
// operator can resolve it manually; the owner can still edit and resubmit.
func (s *ModerationService) recordReviewError(pr models.PrayerRequest, epoch int, reviewErr error) error {
	res, err := initializers.DB.Update("prayer_request_moderation").
		Set(goqu.Record{
			"profanity_passed": true,
			"ai_error":         true,
			"reviewed":         false,
			"reason":           "Generative review failed: " + reviewErr.Error(),
			"in_flight_until":  nil,
		}).
		Where(
			goqu.C("prayer_request_id").Eq(pr.Prayer_Request_ID),
			goqu.C("submission_epoch").Eq(epoch),
		).
		Executor().Exec()
	if err != nil {
		s.release(pr.Prayer_Request_ID, epoch)
		return err
	}
	if n, err := res.RowsAffected(); err != nil {
		return err
	} else if n == 0 {
		log.Printf("Discarding stale review error for request %d (epoch %d)", pr.Prayer_Request_ID, epoch)
		return nil
	}

	sendModerationAlert(pr, "llm_error", "The generative review stage failed after retries; the request remains pending moderation.\n\n"+reviewErr.Error())
	log.Printf("Prayer request %d left pending after review error: %v", pr.Prayer_Request_ID, reviewErr)
	return nil
}

func (s *ModerationService) applyVerdict(pr models.PrayerRequest, epoch int, verdict *ModerationVerdict) error {
	concerns := strings.Join(verdict.Concerns, "; ")

	switch {
	case verdict.Severity == "critical" || !verdict.Approved:
		return s.rejectFromVerdict(pr, epoch, verdict, concerns)

	case verdict.RequiresHumanReview || verdict.Severity == "high":
		// Not terminal: stays pending with the outcome recorded for the
		// operator, same shape as the error path.
		res, err := initializers.DB.Update("prayer_request_moderation").
			Set(goqu.Record{
				"profanity_passed": true,
				"requires_review":  true,
				"reviewed":         false,
				"concerns":         concerns,
				"reason":           verdict.Reason,
				"in_flight_until":  nil,
			}).
			Where(
				goqu.C("prayer_request_id").Eq(pr.Prayer_Request_ID),
				goqu.C("submission_epoch").Eq(epoch),
			).
			Executor().Exec()
		if err != nil {
			s.release(pr.Prayer_Request_ID, epoch)
			return err
		}
		if n, err := res.RowsAffected(); err != nil {
			return err
		} else if n == 0 {
			log.Printf("Discarding stale review flag for request %d (epoch %d)", pr.Prayer_Request_ID, epoch)
			return nil
		}
		sendModerationAlert(pr, "requires_review", fmt.Sprintf("Severity: %s\nReason: %s\nConcerns: %s", verdict.Severity, verdict.Reason, concerns))
		log.Printf("Prayer request %d flagged for human review (severity: %s)", pr.Prayer_Request_ID, verdict.Severity)
		return nil

	default:
		return s.approveFromVerdict(pr, epoch, verdict, concerns)
	}
}

func (s *ModerationService) rejectFromVerdict(pr models.PrayerRequest, epoch int, verdict *ModerationVerdict, concerns string) error {
	var stale bool
	err := initializers.DB.WithTx(func(tx *goqu.TxDatabase) error {
		res, err := tx.Update("prayer_request_moderation").
			Set(goqu.Record{
				"profanity_passed": true,
				"ai_approved":      false,
				"reviewed":         true,
				"concerns":         concerns,
				"reason":           verdict.Reason,
				"requires_review":  verdict.RequiresHumanReview || verdict.Severity == "critical",
				"moderated_at":     goqu.L("NOW()"),
				"in_flight_until":  nil,
			}).
			Where(
				goqu.C("prayer_request_id").Eq(pr.Prayer_Request_ID),
				goqu.C("submission_epoch").Eq(epoch),
			).
			Executor().Exec()
		if err != nil {
			return err
		}
		if n, err := res.RowsAffected(); err != nil {
			return err
		} else if n == 0 {
			stale = true
			return nil
		}
		_, err = tx.Update("prayer_request").
			Set(goqu.Record{"status": models.StatusRejected, "datetime_update": goqu.L("NOW()")}).
			Where(
				goqu.C("prayer_request_id").Eq(pr.Prayer_Request_ID),
				goqu.C("status").Eq(models.StatusPendingModeration),
			).
			Executor().Exec()
		return err
	})
	if err != nil {
		s.release(pr.Prayer_Request_ID, epoch)
		return err
	}
	if stale {
		log.Printf("Discarding stale rejection verdict for request %d (epoch %d)", pr.Prayer_Request_ID, epoch)
		return nil
	}

	pr.Status = models.StatusRejected
	alertType := "llm_rejected"
	if verdict.Severity == "critical" {
		alertType = "critical_safety_concern"
	}
	sendModerationAlert(pr, alertType, fmt.Sprintf("Severity: %s\nReason: %s\nConcerns: %s", verdict.Severity, verdict.Reason, concerns))
	log.Printf("Prayer request %d rejected by generative review (severity: %s)", pr.Prayer_Request_ID, verdict.Severity)
	return nil
}

func (s *ModerationService) approveFromVerdict(pr models.PrayerRequest, epoch int, verdict *ModerationVerdict, concerns string) error {
	var stale bool
	err := initializers.DB.WithTx(func(tx *goqu.TxDatabase) error {
		res, err := tx.Update("prayer_request_moderation").
			Set(goqu.Record{
				"profanity_passed": true,
				"ai_approved":      true,
				"reviewed":         true,
				"concerns":         concerns,
				"reason":           verdict.Reason,
				"moderated_at":     goqu.L("NOW()"),
				"in_flight_until":  nil,
			}).
			Where(
				goqu.C("prayer_request_id").Eq(pr.Prayer_Request_ID),
				goqu.C("submission_epoch").Eq(epoch),
			).
			Executor().Exec()
		if err != nil {
			return err
		}
		if n, err := res.RowsAffected(); err != nil {
			return err
		} else if n == 0 {
			stale = true
			return nil
		}
		_, err = tx.Update("prayer_request").
			Set(goqu.Record{"status": models.StatusApproved, "datetime_update": goqu.L("NOW()")}).
			Where(
				goqu.C("prayer_request_id").Eq(pr.Prayer_Request_ID),
				goqu.C("status").Eq(models.StatusPendingModeration),
			).
			Executor().Exec()
		return err
	})
	if err != nil {
		s.release(pr.Prayer_Request_ID, epoch)
		return err
	}
	if stale {
		log.Printf("Discarding stale approval verdict for request %d (epoch %d)", pr.Prayer_Request_ID, epoch)
		return nil
	}
	pr.Status = models.StatusApproved

	// Owner auto-acceptance; excluded from accepted-others milestone counts.
	autoAcceptance := models.PrayerRequestAcceptance{
		Prayer_Request_ID:     pr.Prayer_Request_ID,
		User_Profile_ID:       pr.User_ID,
		Counts_For_Milestones: false,
	}
	if _, err := initializers.DB.Insert("prayer_request_acceptance").
		Rows(autoAcceptance).
		OnConflict(goqu.DoNothing()).
		Executor().Exec(); err != nil {
		log.Printf("Failed to create auto-acceptance for request %d: %v", pr.Prayer_Request_ID, err)
	}

	var approvedCount int
	if _, err := initializers.DB.From("prayer_request").
		Select(goqu.COUNT("*")).
		Where(
			goqu.C("user_id").Eq(pr.User_ID),
			goqu.C("status").Eq(models.StatusApproved),
		).
		ScanVal(&approvedCount); err != nil {
		log.Printf("Failed to count approved requests for user %d: %v", pr.User_ID, err)
	} else if approvedCount == 1 {
		requestID := pr.Prayer_Request_ID
		if _, err := AwardMilestone(pr.User_ID, models.MilestoneFirstRequestCreated, &requestID, "Created your first prayer request"); err != nil {
			log.Printf("Failed to award first-request milestone for user %d: %v", pr.User_ID, err)
		}
	}

	NotifyRequestApproved(pr)
	log.Printf("Prayer request %d approved by generative review (severity: %s)", pr.Prayer_Request_ID, verdict.Severity)
	return nil
}
