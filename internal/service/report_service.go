package service

import (
	"context"
	"time"

	"github.com/Eursukkul/booking-microservice/reservation-service/internal/models"
	"github.com/Eursukkul/booking-microservice/reservation-service/internal/repository"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

type PaymentReportFilter struct {
	PaymentStatus models.PaymentStatus
	CheckOutDate  time.Time
	Limit         int
	Offset        int
}

type PaymentReportRow struct {
	Reservation       models.Reservation
	Payments          []models.Payment
	DaysUntilCheckout *int
	Consistent        bool
}

type CheckoutRow struct {
	Reservation       models.Reservation
	DaysUntilCheckout int
}

// ReportService serves read-only admin views over committed state.
type ReportService interface {
	PaymentReport(ctx context.Context, p models.Principal, f PaymentReportFilter) ([]PaymentReportRow, error)
	UpcomingCheckouts(ctx context.Context, p models.Principal, days int) ([]CheckoutRow, error)
	PaymentPending(ctx context.Context, p models.Principal) ([]models.Reservation, error)
}

type reportService struct {
	tx          repository.Transactor
	resRepo     repository.ReservationRepository
	paymentRepo repository.PaymentRepository
	loc         *time.Location
	log         logrus.FieldLogger
	now         func() time.Time
}

func NewReportService(tx repository.Transactor, resRepo repository.ReservationRepository, paymentRepo repository.PaymentRepository, loc *time.Location, log logrus.FieldLogger) ReportService {
	if loc == nil {
		loc = time.UTC
	}
	return &reportService{
		tx:          tx,
		resRepo:     resRepo,
		paymentRepo: paymentRepo,
		loc:         loc,
		log:         log.WithField("component", "ReportService"),
		now:         time.Now,
	}
}

func (s *reportService) today() time.Time {
	return models.DateOf(s.now().In(s.loc))
}

func (s *reportService) PaymentReport(ctx context.Context, p models.Principal, f PaymentReportFilter) ([]PaymentReportRow, error) {
	if err := authorize(p, CapReport, nil); err != nil {
		return nil, err
	}
	if f.Limit <= 0 {
		f.Limit = 100
	}

	filter := repository.ReservationFilter{Limit: f.Limit, Offset: f.Offset}
	if f.PaymentStatus != "" {
		filter.PaymentStatuses = []models.PaymentStatus{f.PaymentStatus}
	}
	if !f.CheckOutDate.IsZero() {
		filter.CheckOutFrom = f.CheckOutDate
		filter.CheckOutTo = f.CheckOutDate
	}

	// Both reads share one snapshot so a payment committed in between
	// cannot show up as a ledger mismatch.
	var list []models.Reservation
	var payments []models.Payment
	err := s.tx.WithinSnapshot(ctx, func(tx *gorm.DB) error {
		var err error
		if list, _, err = s.resRepo.List(ctx, tx, filter); err != nil {
			return err
		}
		ids := make([]uint, 0, len(list))
		for _, res := range list {
			ids = append(ids, res.ID)
		}
		payments, err = s.paymentRepo.FindByReservationIDs(ctx, tx, ids)
		return err
	})
	if err != nil {
		return nil, err
	}
	byReservation := make(map[uint][]models.Payment, len(list))
	for _, pay := range payments {
		byReservation[pay.ReservationID] = append(byReservation[pay.ReservationID], pay)
	}

	today := s.today()
	rows := make([]PaymentReportRow, 0, len(list))
	for i := range list {
		res := list[i]
		row := PaymentReportRow{Reservation: res, Payments: byReservation[res.ID]}
		if !res.IsCheckedOut {
			days := models.NightsBetween(today, res.CheckOutDate)
			row.DaysUntilCheckout = &days
		}
		if _, err := models.Reconcile(&res, row.Payments); err != nil {
			s.log.WithError(err).WithField("reservation_id", res.ID).Warn("ledger mismatch in report")
		} else {
			row.Consistent = true
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// UpcomingCheckouts lists in-house guests due to leave within days.
func (s *reportService) UpcomingCheckouts(ctx context.Context, p models.Principal, days int) ([]CheckoutRow, error) {
	if err := authorize(p, CapReport, nil); err != nil {
		return nil, err
	}
	if days <= 0 {
		days = 7
	}

	today := s.today()
	list, _, err := s.resRepo.List(ctx, nil, repository.ReservationFilter{
		CheckOutFrom: today,
		CheckOutTo:   today.AddDate(0, 0, days),
		InHouse:      true,
		OrderBy:      "check_out_date",
	})
	if err != nil {
		return nil, err
	}

	rows := make([]CheckoutRow, 0, len(list))
	for _, res := range list {
		rows = append(rows, CheckoutRow{Reservation: res, DaysUntilCheckout: models.NightsBetween(today, res.CheckOutDate)})
	}
	return rows, nil
}

// PaymentPending lists live reservations that are unpaid or partially paid.
// No-shows are excluded since nothing more will be collected on them.
func (s *reportService) PaymentPending(ctx context.Context, p models.Principal) ([]models.Reservation, error) {
	if err := authorize(p, CapReport, nil); err != nil {
		return nil, err
	}
	list, _, err := s.resRepo.List(ctx, nil, repository.ReservationFilter{
		PaymentStatuses: []models.PaymentStatus{models.PaymentPending, models.PaymentAdvancePaid},
		ExcludeCanceled: true,
		ExcludeNoShow:   true,
		OrderBy:         "check_in_date",
	})
	return list, err
}
