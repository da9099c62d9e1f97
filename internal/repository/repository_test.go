package repository

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/Eursukkul/booking-microservice/reservation-service/internal/apperror"
	"github.com/Eursukkul/booking-microservice/reservation-service/internal/models"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	t.Helper()
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })

	db, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}), &gorm.Config{
		SkipDefaultTransaction: true,
		Logger:                 logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	return db, mock
}

func date(s string) time.Time {
	d, _ := time.Parse("2006-01-02", s)
	return d
}

func TestCheckOverlap(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewRoomRepository(db)

	mock.ExpectQuery(`SELECT count\(\*\) FROM "reservations" WHERE .*room_id = \$1 AND check_in_date < \$2 AND check_out_date > \$3.*booking_status <> \$4 AND check_in_status <> \$5`).
		WithArgs(3, sqlmock.AnyArg(), sqlmock.AnyArg(), "cancelled", "no-show").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	busy, err := repo.CheckOverlap(context.Background(), nil, 3, date("2024-06-01"), date("2024-06-03"))
	require.NoError(t, err)
	assert.True(t, busy)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCheckOverlap_Free(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewRoomRepository(db)

	mock.ExpectQuery(`SELECT count\(\*\) FROM "reservations"`).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))

	busy, err := repo.CheckOverlap(context.Background(), db, 3, date("2024-06-03"), date("2024-06-05"))
	require.NoError(t, err)
	assert.False(t, busy)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSetAvailable(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewRoomRepository(db)

	mock.ExpectExec(`UPDATE "rooms" SET "is_available"=\$1,"updated_at"=\$2 WHERE id = \$3`).
		WithArgs(false, sqlmock.AnyArg(), 3).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.SetAvailable(context.Background(), db, 3, false))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRoomFindByIDForUpdate(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewRoomRepository(db)

	rows := sqlmock.NewRows([]string{"id", "room_number", "room_type", "price_per_night", "max_occupancy", "is_available"}).
		AddRow(3, "301", "suite", "120.00", 4, true)
	mock.ExpectQuery(`SELECT \* FROM "rooms" WHERE "rooms"."id" = \$1 ORDER BY "rooms"."id" LIMIT .* FOR UPDATE`).
		WillReturnRows(rows)

	room, err := repo.FindByIDForUpdate(context.Background(), db, 3)
	require.NoError(t, err)
	assert.Equal(t, "301", room.RoomNumber)
	assert.True(t, room.PricePerNight.Equal(decimal.RequireFromString("120")))
	assert.True(t, room.Available)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRoomCreate_DuplicateNumber(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewRoomRepository(db)

	mock.ExpectQuery(`INSERT INTO "rooms"`).
		WillReturnError(&pgconn.PgError{Code: sqlStateUniqueViolation, Message: "duplicate key value"})

	err := repo.Create(context.Background(), nil, &models.Room{RoomNumber: "301", RoomType: "suite", PricePerNight: decimal.NewFromInt(120), MaxOccupancy: 2})
	assert.ErrorIs(t, err, apperror.ErrDuplicateRoom)
}

func TestReservationCreate_ExclusionViolation(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewReservationRepository(db)

	mock.ExpectQuery(`INSERT INTO "reservations"`).
		WillReturnError(&pgconn.PgError{Code: sqlStateExclusionViolation, ConstraintName: "reservations_no_overlap"})

	err := repo.Create(context.Background(), db, &models.Reservation{RoomID: 3, UserID: "u1", CheckInDate: date("2024-06-01"), CheckOutDate: date("2024-06-03"), Nights: 2})
	assert.ErrorIs(t, err, apperror.ErrOverlap)
	assert.True(t, apperror.IsKind(err, apperror.KindConflict))
}

func TestFindPurgeable(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewReservationRepository(db)

	mock.ExpectQuery(`SELECT .*id.* FROM "reservations" WHERE .*booking_status = \$1 OR check_in_status = \$2.*created_at < \$3`).
		WithArgs("cancelled", "no-show", sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(4).AddRow(9))

	ids, err := repo.FindPurgeable(context.Background(), nil, time.Now().AddDate(0, 0, -30))
	require.NoError(t, err)
	assert.Equal(t, []uint{4, 9}, ids)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFindNoShowCandidates(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewReservationRepository(db)

	mock.ExpectQuery(`SELECT \* FROM "reservations" WHERE .*check_in_date = \$1 AND booking_status = \$2.*is_checked_in = \$3 AND is_no_show = \$4`).
		WithArgs(sqlmock.AnyArg(), "confirmed", false, false).
		WillReturnRows(sqlmock.NewRows([]string{"id", "room_id", "booking_status"}).AddRow(11, 3, "confirmed"))

	list, err := repo.FindNoShowCandidates(context.Background(), date("2024-06-01"))
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, uint(11), list[0].ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReservationList_ExcludeNoShow(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewReservationRepository(db)

	mock.ExpectQuery(`SELECT count\(\*\) FROM "reservations" WHERE payment_status IN \(\$1,\$2\) AND booking_status <> \$3 AND check_in_status <> \$4`).
		WithArgs("pending", "advance_paid", "cancelled", "no-show").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
	mock.ExpectQuery(`SELECT \* FROM "reservations" WHERE .*check_in_status <> \$4 ORDER BY`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	list, total, err := repo.List(context.Background(), nil, ReservationFilter{
		PaymentStatuses: []models.PaymentStatus{models.PaymentPending, models.PaymentAdvancePaid},
		ExcludeCanceled: true,
		ExcludeNoShow:   true,
		OrderBy:         "check_in_date",
	})
	require.NoError(t, err)
	assert.Zero(t, total)
	assert.Empty(t, list)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWithinSnapshot_ReadsShareOneTransaction(t *testing.T) {
	db, mock := newMockDB(t)
	resRepo := NewReservationRepository(db)
	payRepo := NewPaymentRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT count\(\*\) FROM "reservations"`).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))
	mock.ExpectQuery(`SELECT \* FROM "reservations"`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "room_id"}).AddRow(7, 3))
	mock.ExpectQuery(`SELECT \* FROM "rooms" WHERE "rooms"."id" = \$1`).
		WithArgs(3).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(3))
	mock.ExpectQuery(`SELECT \* FROM "payments" WHERE reservation_id IN \(\$1\)`).
		WithArgs(7).
		WillReturnRows(sqlmock.NewRows([]string{"id", "reservation_id"}).AddRow(1, 7))
	mock.ExpectCommit()

	var payments []models.Payment
	err := NewTransactor(db).WithinSnapshot(context.Background(), func(tx *gorm.DB) error {
		list, _, err := resRepo.List(context.Background(), tx, ReservationFilter{})
		if err != nil {
			return err
		}
		payments, err = payRepo.FindByReservationIDs(context.Background(), tx, []uint{list[0].ID})
		return err
	})
	require.NoError(t, err)
	require.Len(t, payments, 1)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDeleteByIDs_Empty(t *testing.T) {
	db, mock := newMockDB(t)

	assert.NoError(t, NewReservationRepository(db).DeleteByIDs(context.Background(), db, nil))
	assert.NoError(t, NewPaymentRepository(db).DeleteByReservationIDs(context.Background(), db, nil))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLStateHelpers(t *testing.T) {
	wrapped := fmt.Errorf("insert: %w", &pgconn.PgError{Code: sqlStateExclusionViolation})

	assert.True(t, isExclusionViolation(wrapped))
	assert.False(t, isUniqueViolation(wrapped))
	assert.False(t, isExclusionViolation(fmt.Errorf("plain")))
}
