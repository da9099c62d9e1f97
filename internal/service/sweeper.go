package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Eursukkul/booking-microservice/reservation-service/internal/apperror"
	"github.com/Eursukkul/booking-microservice/reservation-service/internal/models"
	"github.com/Eursukkul/booking-microservice/reservation-service/internal/repository"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

const (
	noShowLockKey = "reservation-service:no-show-sweep"
	purgeLockKey  = "reservation-service:retention-purge"
	jobLockTTL    = 10 * time.Minute
)

var errNoLongerCandidate = errors.New("reservation no longer qualifies")

type SweepReport struct {
	Date    time.Time       `json:"date"`
	Marked  []uint          `json:"marked"`
	Skipped []uint          `json:"skipped"`
	Failed  map[uint]string `json:"failed"`
	Count   int             `json:"count"`
}

type PurgeReport struct {
	Cutoff  time.Time `json:"cutoff"`
	Deleted []uint    `json:"deleted"`
	Count   int       `json:"count"`
}

type SweeperConfig struct {
	Location  *time.Location
	Retention time.Duration
}

// Sweeper runs the batch jobs: marking yesterday's missed arrivals as
// no-shows and purging old cancelled/no-show reservations.
type Sweeper struct {
	tx          repository.Transactor
	roomRepo    repository.RoomRepository
	resRepo     repository.ReservationRepository
	paymentRepo repository.PaymentRepository
	locker      Locker
	log         logrus.FieldLogger
	loc         *time.Location
	retention   time.Duration
	now         func() time.Time
}

func NewSweeper(
	tx repository.Transactor,
	roomRepo repository.RoomRepository,
	resRepo repository.ReservationRepository,
	paymentRepo repository.PaymentRepository,
	locker Locker,
	cfg SweeperConfig,
	log logrus.FieldLogger,
) *Sweeper {
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	if cfg.Retention <= 0 {
		cfg.Retention = 30 * 24 * time.Hour
	}
	return &Sweeper{
		tx:          tx,
		roomRepo:    roomRepo,
		resRepo:     resRepo,
		paymentRepo: paymentRepo,
		locker:      locker,
		log:         log.WithField("component", "NoShowSweeper"),
		loc:         cfg.Location,
		retention:   cfg.Retention,
		now:         time.Now,
	}
}

func (s *Sweeper) SweepNoShows(ctx context.Context, p models.Principal) (*SweepReport, error) {
	if err := authorize(p, CapSweep, nil); err != nil {
		return nil, err
	}
	return s.RunNoShowSweep(ctx)
}

// RunNoShowSweep marks confirmed reservations whose check-in date was
// yesterday and whose guest never arrived. Each candidate is handled in its
// own transaction; a failure is recorded and the sweep moves on.
func (s *Sweeper) RunNoShowSweep(ctx context.Context) (*SweepReport, error) {
	release, err := s.lock(ctx, noShowLockKey)
	if err != nil {
		return nil, err
	}
	defer release()

	now := s.now()
	target := models.DateOf(now.In(s.loc)).AddDate(0, 0, -1)
	report := &SweepReport{Date: target, Marked: []uint{}, Skipped: []uint{}, Failed: map[uint]string{}}

	candidates, err := s.resRepo.FindNoShowCandidates(ctx, target)
	if err != nil {
		return nil, fmt.Errorf("find no-show candidates: %w", err)
	}

	for _, c := range candidates {
		err := s.markNoShow(ctx, c.ID, target, now)
		switch {
		case err == nil:
			report.Marked = append(report.Marked, c.ID)
		case errors.Is(err, errNoLongerCandidate):
			report.Skipped = append(report.Skipped, c.ID)
		default:
			report.Failed[c.ID] = err.Error()
			s.log.WithError(err).WithField("reservation_id", c.ID).Error("mark no-show failed")
		}
	}
	report.Count = len(report.Marked)

	s.log.WithFields(logrus.Fields{
		"date":    target.Format("2006-01-02"),
		"marked":  report.Count,
		"skipped": len(report.Skipped),
		"failed":  len(report.Failed),
	}).Info("no-show sweep finished")
	return report, nil
}

func (s *Sweeper) markNoShow(ctx context.Context, id uint, target, now time.Time) error {
	return s.tx.WithinTx(ctx, func(tx *gorm.DB) error {
		res, err := s.resRepo.FindByIDForUpdate(ctx, tx, id)
		if err != nil {
			return orNotFound(err, errNoLongerCandidate)
		}
		// The scan took no lock; re-check on the fresh row.
		if res.BookingStatus != models.StatusConfirmed || res.IsCheckedIn || res.IsNoShow ||
			!models.DateOf(res.CheckInDate).Equal(target) {
			return errNoLongerCandidate
		}

		if err := res.MarkNoShow(now); err != nil {
			return err
		}
		if err := s.resRepo.Save(ctx, tx, res); err != nil {
			return fmt.Errorf("save reservation: %w", err)
		}
		if err := s.roomRepo.SetAvailable(ctx, tx, res.RoomID, true); err != nil {
			return fmt.Errorf("release room: %w", err)
		}
		return nil
	})
}

func (s *Sweeper) PurgeExpired(ctx context.Context, p models.Principal, olderThan time.Duration) (*PurgeReport, error) {
	if err := authorize(p, CapSweep, nil); err != nil {
		return nil, err
	}
	return s.RunRetentionPurge(ctx, olderThan)
}

// RunRetentionPurge deletes cancelled or no-show reservations created more
// than olderThan ago, payments included. A non-positive olderThan uses the
// configured retention.
func (s *Sweeper) RunRetentionPurge(ctx context.Context, olderThan time.Duration) (*PurgeReport, error) {
	if olderThan <= 0 {
		olderThan = s.retention
	}
	release, err := s.lock(ctx, purgeLockKey)
	if err != nil {
		return nil, err
	}
	defer release()

	report := &PurgeReport{Cutoff: s.now().Add(-olderThan), Deleted: []uint{}}
	err = s.tx.WithinTx(ctx, func(tx *gorm.DB) error {
		ids, err := s.resRepo.FindPurgeable(ctx, tx, report.Cutoff)
		if err != nil {
			return err
		}
		if len(ids) == 0 {
			return nil
		}
		if err := s.paymentRepo.DeleteByReservationIDs(ctx, tx, ids); err != nil {
			return fmt.Errorf("delete payments: %w", err)
		}
		if err := s.resRepo.DeleteByIDs(ctx, tx, ids); err != nil {
			return fmt.Errorf("delete reservations: %w", err)
		}
		report.Deleted = ids
		return nil
	})
	if err != nil {
		return nil, err
	}
	report.Count = len(report.Deleted)

	s.log.WithFields(logrus.Fields{"cutoff": report.Cutoff, "deleted": report.Count}).Info("retention purge finished")
	return report, nil
}

// RunDaily is the scheduled entry point.
func (s *Sweeper) RunDaily(ctx context.Context) {
	if _, err := s.RunNoShowSweep(ctx); err != nil {
		s.log.WithError(err).Error("scheduled no-show sweep failed")
	}
	if _, err := s.RunRetentionPurge(ctx, 0); err != nil {
		s.log.WithError(err).Error("scheduled retention purge failed")
	}
}

func (s *Sweeper) lock(ctx context.Context, key string) (func(), error) {
	if s.locker == nil {
		return func() {}, nil
	}
	release, ok, err := s.locker.TryLock(ctx, key, jobLockTTL)
	if err != nil {
		return nil, fmt.Errorf("acquire %s: %w", key, err)
	}
	if !ok {
		return nil, apperror.ErrSweepInProgress
	}
	return release, nil
}
