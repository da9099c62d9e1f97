package handler

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/Eursukkul/booking-microservice/reservation-service/internal/dto"
	"github.com/Eursukkul/booking-microservice/reservation-service/internal/middleware"
	"github.com/Eursukkul/booking-microservice/reservation-service/internal/models"
	"github.com/Eursukkul/booking-microservice/reservation-service/internal/repository"
	"github.com/Eursukkul/booking-microservice/reservation-service/internal/service"
	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"
)

type ReservationHandler struct {
	svc service.BookingService
	log logrus.FieldLogger
}

func NewReservationHandler(svc service.BookingService, log logrus.FieldLogger) *ReservationHandler {
	return &ReservationHandler{svc: svc, log: log.WithField("component", "ReservationHandler")}
}

func (h *ReservationHandler) RegisterRoutes(g *echo.Group) {
	res := g.Group("/reservations")
	res.POST("", h.CreateReservation)
	res.GET("", h.ListReservations)
	res.GET("/:id", h.GetReservation)

	res.POST("/:id/payments", h.Pay(""))
	res.POST("/:id/advance-payment", h.Pay(models.PaymentTypeAdvance))
	res.POST("/:id/remaining-payment", h.Pay(models.PaymentTypeRemaining))
	res.GET("/:id/payments", h.ListReservationPayments)
	res.GET("/:id/reconcile", h.Reconcile)

	res.POST("/:id/check-in", h.CheckIn)
	res.POST("/:id/check-out", h.CheckOut)
	res.POST("/:id/cancel", h.Cancel)

	g.GET("/payments", h.ListPayments)
	g.GET("/payments/:id", h.GetPayment)
}

func (h *ReservationHandler) CreateReservation(c echo.Context) error {
	var req dto.CreateReservationRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	checkIn, checkOut, err := req.Dates()
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	res, err := h.svc.CreateReservation(c.Request().Context(), middleware.PrincipalFrom(c), req.RoomID, checkIn, checkOut)
	if err != nil {
		return toHTTPError(h.log, err)
	}
	return c.JSON(http.StatusCreated, dto.ToReservationResponse(res))
}

func (h *ReservationHandler) GetReservation(c echo.Context) error {
	id, err := parseID(c, "reservation")
	if err != nil {
		return err
	}
	res, err := h.svc.GetReservation(c.Request().Context(), middleware.PrincipalFrom(c), id)
	if err != nil {
		return toHTTPError(h.log, err)
	}
	return c.JSON(http.StatusOK, dto.ToReservationResponse(res))
}

// ListReservations accepts status, payment_status (comma separated),
// room_id, from and to (check-in date window), limit and offset.
func (h *ReservationHandler) ListReservations(c echo.Context) error {
	limit, offset, err := paging(c)
	if err != nil {
		return err
	}
	filter := repository.ReservationFilter{Limit: limit, Offset: offset, OrderBy: "created_at"}

	if s := c.QueryParam("status"); s != "" {
		filter.BookingStatus = models.BookingStatus(s)
	}
	if s := c.QueryParam("payment_status"); s != "" {
		for _, ps := range strings.Split(s, ",") {
			filter.PaymentStatuses = append(filter.PaymentStatuses, models.PaymentStatus(strings.TrimSpace(ps)))
		}
	}
	if s := c.QueryParam("room_id"); s != "" {
		roomID, err := strconv.ParseUint(s, 10, 64)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid room_id")
		}
		filter.RoomID = uint(roomID)
	}
	if filter.CheckInFrom, err = queryDate(c, "from"); err != nil {
		return err
	}
	if filter.CheckInTo, err = queryDate(c, "to"); err != nil {
		return err
	}

	list, total, err := h.svc.ListReservations(c.Request().Context(), middleware.PrincipalFrom(c), filter)
	if err != nil {
		return toHTTPError(h.log, err)
	}
	return c.JSON(http.StatusOK, dto.ListResponse[dto.ReservationResponse]{
		Data:   dto.ToReservationResponses(list),
		Total:  total,
		Limit:  limit,
		Offset: offset,
	})
}

// Pay handles the three payment routes. A fixed type overrides the body.
func (h *ReservationHandler) Pay(fixed models.PaymentType) echo.HandlerFunc {
	return func(c echo.Context) error {
		id, err := parseID(c, "reservation")
		if err != nil {
			return err
		}
		var req dto.PaymentRequest
		if err := bindAndValidate(c, &req); err != nil {
			return err
		}

		payType := fixed
		if payType == "" {
			t, ok := models.ParsePaymentType(req.PaymentType)
			if !ok {
				return echo.NewHTTPError(http.StatusBadRequest, "payment_type must be one of advance, remaining, full")
			}
			payType = t
		}

		result, err := h.svc.ApplyPayment(c.Request().Context(), middleware.PrincipalFrom(c), id, models.PaymentRequest{
			Amount:         req.Amount,
			Method:         req.PaymentMethod,
			TransactionRef: req.TransactionID,
			Type:           payType,
			Notes:          req.Notes,
		})
		if err != nil {
			return toHTTPError(h.log, err)
		}
		return c.JSON(http.StatusCreated, dto.ToPaymentResultResponse(result))
	}
}

func (h *ReservationHandler) ListReservationPayments(c echo.Context) error {
	id, err := parseID(c, "reservation")
	if err != nil {
		return err
	}
	payments, err := h.svc.ListPayments(c.Request().Context(), middleware.PrincipalFrom(c), id)
	if err != nil {
		return toHTTPError(h.log, err)
	}
	return c.JSON(http.StatusOK, dto.ToPaymentResponses(payments))
}

func (h *ReservationHandler) Reconcile(c echo.Context) error {
	id, err := parseID(c, "reservation")
	if err != nil {
		return err
	}
	rec, err := h.svc.ReconcileReservation(c.Request().Context(), middleware.PrincipalFrom(c), id)
	if err != nil {
		return toHTTPError(h.log, err)
	}
	return c.JSON(http.StatusOK, rec)
}

func (h *ReservationHandler) CheckIn(c echo.Context) error {
	return h.transition(c, h.svc.CheckIn)
}

func (h *ReservationHandler) CheckOut(c echo.Context) error {
	return h.transition(c, h.svc.CheckOut)
}

func (h *ReservationHandler) Cancel(c echo.Context) error {
	return h.transition(c, h.svc.Cancel)
}

func (h *ReservationHandler) transition(c echo.Context, step func(ctx context.Context, p models.Principal, id uint) (*models.Reservation, error)) error {
	id, err := parseID(c, "reservation")
	if err != nil {
		return err
	}
	res, err := step(c.Request().Context(), middleware.PrincipalFrom(c), id)
	if err != nil {
		return toHTTPError(h.log, err)
	}
	return c.JSON(http.StatusOK, dto.ToReservationResponse(res))
}

func (h *ReservationHandler) ListPayments(c echo.Context) error {
	limit, offset, err := paging(c)
	if err != nil {
		return err
	}
	payments, err := h.svc.ListAllPayments(c.Request().Context(), middleware.PrincipalFrom(c), limit, offset)
	if err != nil {
		return toHTTPError(h.log, err)
	}
	return c.JSON(http.StatusOK, dto.ToPaymentResponses(payments))
}

func (h *ReservationHandler) GetPayment(c echo.Context) error {
	id, err := parseID(c, "payment")
	if err != nil {
		return err
	}
	p, err := h.svc.GetPayment(c.Request().Context(), middleware.PrincipalFrom(c), id)
	if err != nil {
		return toHTTPError(h.log, err)
	}
	return c.JSON(http.StatusOK, dto.ToPaymentResponse(p))
}
