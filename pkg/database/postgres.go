package database

import (
	"fmt"
	"time"

	"github.com/Eursukkul/booking-microservice/reservation-service/internal/models"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func NewPostgresDB(dsn string) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("get sql.DB: %w", err)
	}
	sqlDB.SetMaxOpenConns(25)
	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetConnMaxLifetime(5 * time.Minute)
	sqlDB.SetConnMaxIdleTime(1 * time.Minute)

	if err := Migrate(db); err != nil {
		return nil, err
	}
	return db, nil
}

// Migrate creates the tables and the constraints gorm tags cannot express.
func Migrate(db *gorm.DB) error {
	if err := db.Exec(`CREATE EXTENSION IF NOT EXISTS btree_gist`).Error; err != nil {
		return fmt.Errorf("enable btree_gist: %w", err)
	}

	if err := db.AutoMigrate(&models.Room{}, &models.Reservation{}, &models.Payment{}); err != nil {
		return fmt.Errorf("auto-migrate: %w", err)
	}

	// Backstop for the locked overlap check: two live stays on one room can
	// never share a night, even if a writer skips the room lock.
	if err := db.Exec(`
		DO $$
		BEGIN
			IF NOT EXISTS (SELECT 1 FROM pg_constraint WHERE conname = 'reservations_no_overlap') THEN
				ALTER TABLE reservations ADD CONSTRAINT reservations_no_overlap
				EXCLUDE USING gist (
					room_id WITH =,
					daterange(check_in_date, check_out_date, '[)') WITH &&
				)
				WHERE (booking_status <> 'cancelled' AND check_in_status <> 'no-show');
			END IF;
		END
		$$;
	`).Error; err != nil {
		return fmt.Errorf("create overlap constraint: %w", err)
	}

	if err := db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_reservations_room_dates
		ON reservations (room_id, check_in_date, check_out_date)
	`).Error; err != nil {
		return fmt.Errorf("create date index: %w", err)
	}

	if err := db.Exec(`
		DO $$
		BEGIN
			IF NOT EXISTS (SELECT 1 FROM pg_constraint WHERE conname = 'reservations_dates_ordered') THEN
				ALTER TABLE reservations ADD CONSTRAINT reservations_dates_ordered CHECK (check_out_date > check_in_date);
			END IF;
		END
		$$;
	`).Error; err != nil {
		return fmt.Errorf("create date check: %w", err)
	}
	return nil
}
