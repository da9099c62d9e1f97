package dto

import (
	"time"

	"github.com/Eursukkul/booking-microservice/reservation-service/internal/models"
	"github.com/Eursukkul/booking-microservice/reservation-service/internal/service"
	"github.com/shopspring/decimal"
)

type ErrorResponse struct {
	Message string `json:"message"`
}

type ListResponse[T any] struct {
	Data   []T   `json:"data"`
	Total  int64 `json:"total"`
	Limit  int   `json:"limit,omitempty"`
	Offset int   `json:"offset,omitempty"`
}

type RoomResponse struct {
	ID            uint      `json:"id"`
	RoomNumber    string    `json:"room_number"`
	RoomType      string    `json:"room_type"`
	Description   string    `json:"description"`
	PricePerNight string    `json:"price_per_night"`
	MaxOccupancy  int       `json:"max_occupancy"`
	IsAvailable   bool      `json:"is_available"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

type ReservationResponse struct {
	ID              uint    `json:"id"`
	RoomID          uint    `json:"room_id"`
	RoomNumber      string  `json:"room_number,omitempty"`
	UserID          string  `json:"user_id"`
	CheckInDate     string  `json:"check_in_date"`
	CheckOutDate    string  `json:"check_out_date"`
	Nights          int     `json:"nights"`
	TotalPrice      string  `json:"total_price"`
	AdvanceAmount   string  `json:"advance_amount"`
	TotalPaidAmount string  `json:"total_paid_amount"`
	RemainingAmount string  `json:"remaining_amount"`
	Status          string  `json:"status"`
	BookingStatus   string  `json:"booking_status"`
	PaymentStatus   string  `json:"payment_status"`
	CheckInStatus   string  `json:"check_in_status"`
	AdvancePaid     bool    `json:"advance_paid"`
	IsFullyPaid     bool    `json:"is_fully_paid"`
	IsCheckedIn     bool    `json:"is_checked_in"`
	IsCheckedOut    bool    `json:"is_checked_out"`
	IsNoShow        bool    `json:"is_no_show"`
	CheckedInAt     *string `json:"checked_in_at,omitempty"`
	CheckedOutAt    *string `json:"checked_out_at,omitempty"`
	CreatedAt       string  `json:"created_at"`
}

type PaymentResponse struct {
	ID            uint   `json:"id"`
	ReservationID uint   `json:"reservation_id"`
	Amount        string `json:"amount"`
	PaymentMethod string `json:"payment_method"`
	PaymentStatus string `json:"payment_status"`
	PaymentType   string `json:"payment_type"`
	TransactionID string `json:"transaction_id"`
	Notes         string `json:"payment_notes,omitempty"`
	PaidAt        string `json:"paid_at"`
}

type PaymentResultResponse struct {
	Reservation    ReservationResponse `json:"reservation"`
	Payment        PaymentResponse     `json:"payment"`
	AdvanceSettled bool                `json:"advance_settled"`
	FullySettled   bool                `json:"fully_settled"`
}

type PaymentReportRowResponse struct {
	Reservation       ReservationResponse `json:"reservation"`
	Payments          []PaymentResponse   `json:"payments"`
	DaysUntilCheckout *int                `json:"days_until_checkout"`
	Consistent        bool                `json:"consistent"`
}

type CheckoutRowResponse struct {
	Reservation       ReservationResponse `json:"reservation"`
	DaysUntilCheckout int                 `json:"days_until_checkout"`
}

func money(d decimal.Decimal) string {
	return d.StringFixed(2)
}

func timestamp(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := t.UTC().Format(time.RFC3339)
	return &s
}

func ToRoomResponse(r *models.Room) RoomResponse {
	return RoomResponse{
		ID:            r.ID,
		RoomNumber:    r.RoomNumber,
		RoomType:      r.RoomType,
		Description:   r.Description,
		PricePerNight: money(r.PricePerNight),
		MaxOccupancy:  r.MaxOccupancy,
		IsAvailable:   r.Available,
		CreatedAt:     r.CreatedAt,
		UpdatedAt:     r.UpdatedAt,
	}
}

func ToRoomResponses(rooms []models.Room) []RoomResponse {
	out := make([]RoomResponse, len(rooms))
	for i := range rooms {
		out[i] = ToRoomResponse(&rooms[i])
	}
	return out
}

func ToReservationResponse(r *models.Reservation) ReservationResponse {
	resp := ReservationResponse{
		ID:              r.ID,
		RoomID:          r.RoomID,
		UserID:          r.UserID,
		CheckInDate:     r.CheckInDate.Format(DateLayout),
		CheckOutDate:    r.CheckOutDate.Format(DateLayout),
		Nights:          r.Nights,
		TotalPrice:      money(r.TotalPrice),
		AdvanceAmount:   money(r.AdvanceAmount),
		TotalPaidAmount: money(r.TotalPaidAmount),
		RemainingAmount: money(r.RemainingAmount),
		Status:          string(r.State()),
		BookingStatus:   string(r.BookingStatus),
		PaymentStatus:   string(r.PaymentStatus),
		CheckInStatus:   string(r.CheckInStatus),
		AdvancePaid:     r.AdvancePaid,
		IsFullyPaid:     r.IsFullyPaid,
		IsCheckedIn:     r.IsCheckedIn,
		IsCheckedOut:    r.IsCheckedOut,
		IsNoShow:        r.IsNoShow,
		CheckedInAt:     timestamp(r.CheckedInAt),
		CheckedOutAt:    timestamp(r.CheckedOutAt),
		CreatedAt:       r.CreatedAt.UTC().Format(time.RFC3339),
	}
	if r.Room != nil {
		resp.RoomNumber = r.Room.RoomNumber
	}
	return resp
}

func ToReservationResponses(list []models.Reservation) []ReservationResponse {
	out := make([]ReservationResponse, len(list))
	for i := range list {
		out[i] = ToReservationResponse(&list[i])
	}
	return out
}

func ToPaymentResponse(p *models.Payment) PaymentResponse {
	return PaymentResponse{
		ID:            p.ID,
		ReservationID: p.ReservationID,
		Amount:        money(p.Amount),
		PaymentMethod: p.Method,
		PaymentStatus: string(p.Status),
		PaymentType:   string(p.Type),
		TransactionID: p.TransactionRef,
		Notes:         p.Notes,
		PaidAt:        p.PaidAt.UTC().Format(time.RFC3339),
	}
}

func ToPaymentResponses(list []models.Payment) []PaymentResponse {
	out := make([]PaymentResponse, len(list))
	for i := range list {
		out[i] = ToPaymentResponse(&list[i])
	}
	return out
}

func ToPaymentResultResponse(r *service.PaymentResult) PaymentResultResponse {
	return PaymentResultResponse{
		Reservation:    ToReservationResponse(r.Reservation),
		Payment:        ToPaymentResponse(r.Payment),
		AdvanceSettled: r.Crossing.CrossedAdvance,
		FullySettled:   r.Crossing.CrossedFull,
	}
}

func ToPaymentReportResponses(rows []service.PaymentReportRow) []PaymentReportRowResponse {
	out := make([]PaymentReportRowResponse, len(rows))
	for i, row := range rows {
		out[i] = PaymentReportRowResponse{
			Reservation:       ToReservationResponse(&row.Reservation),
			Payments:          ToPaymentResponses(row.Payments),
			DaysUntilCheckout: row.DaysUntilCheckout,
			Consistent:        row.Consistent,
		}
	}
	return out
}

func ToCheckoutRowResponses(rows []service.CheckoutRow) []CheckoutRowResponse {
	out := make([]CheckoutRowResponse, len(rows))
	for i, row := range rows {
		out[i] = CheckoutRowResponse{
			Reservation:       ToReservationResponse(&row.Reservation),
			DaysUntilCheckout: row.DaysUntilCheckout,
		}
	}
	return out
}
