package service

import (
	"github.com/Eursukkul/booking-microservice/reservation-service/internal/apperror"
	"github.com/Eursukkul/booking-microservice/reservation-service/internal/models"
)

type Capability string

const (
	CapBook        Capability = "book"
	CapView        Capability = "view"
	CapPay         Capability = "pay"
	CapCancel      Capability = "cancel"
	CapCheckIn     Capability = "check_in"
	CapCheckOut    Capability = "check_out"
	CapManageRooms Capability = "manage_rooms"
	CapSweep       Capability = "sweep"
	CapReport      Capability = "report"
)

// ownerCapabilities are granted to a booker on their own reservations.
var ownerCapabilities = map[Capability]bool{
	CapView:   true,
	CapPay:    true,
	CapCancel: true,
}

// authorize is the single gate in front of every orchestrator operation.
// res may be nil for capabilities that are not tied to a reservation.
func authorize(p models.Principal, c Capability, res *models.Reservation) error {
	if p.ID == "" {
		return apperror.ErrForbidden
	}
	if p.IsAdmin() {
		return nil
	}
	if c == CapBook {
		return nil
	}
	if ownerCapabilities[c] && p.Owns(res) {
		return nil
	}
	return apperror.ErrForbidden
}
