package handler

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/Eursukkul/booking-microservice/reservation-service/internal/dto"
	"github.com/Eursukkul/booking-microservice/reservation-service/internal/middleware"
	"github.com/Eursukkul/booking-microservice/reservation-service/internal/models"
	"github.com/Eursukkul/booking-microservice/reservation-service/internal/service"
	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"
)

// Maintenance is the admin-triggered side of the sweeper.
type Maintenance interface {
	SweepNoShows(ctx context.Context, p models.Principal) (*service.SweepReport, error)
	PurgeExpired(ctx context.Context, p models.Principal, olderThan time.Duration) (*service.PurgeReport, error)
}

type AdminHandler struct {
	reports service.ReportService
	maint   Maintenance
	log     logrus.FieldLogger
}

func NewAdminHandler(reports service.ReportService, maint Maintenance, log logrus.FieldLogger) *AdminHandler {
	return &AdminHandler{reports: reports, maint: maint, log: log.WithField("component", "AdminHandler")}
}

func (h *AdminHandler) RegisterRoutes(g *echo.Group) {
	admin := g.Group("/admin")
	admin.POST("/no-show-sweeps", h.SweepNoShows)
	admin.POST("/purge", h.Purge)
	admin.GET("/payment-reports", h.PaymentReport)
	admin.GET("/upcoming-checkouts", h.UpcomingCheckouts)
	admin.GET("/payment-pending", h.PaymentPending)
}

func (h *AdminHandler) SweepNoShows(c echo.Context) error {
	report, err := h.maint.SweepNoShows(c.Request().Context(), middleware.PrincipalFrom(c))
	if err != nil {
		return toHTTPError(h.log, err)
	}
	return c.JSON(http.StatusOK, report)
}

// Purge takes older_than_days; without it the configured retention applies.
func (h *AdminHandler) Purge(c echo.Context) error {
	var olderThan time.Duration
	if v := c.QueryParam("older_than_days"); v != "" {
		days, err := strconv.Atoi(v)
		if err != nil || days < 1 {
			return echo.NewHTTPError(http.StatusBadRequest, "older_than_days must be a positive integer")
		}
		olderThan = time.Duration(days) * 24 * time.Hour
	}

	report, err := h.maint.PurgeExpired(c.Request().Context(), middleware.PrincipalFrom(c), olderThan)
	if err != nil {
		return toHTTPError(h.log, err)
	}
	return c.JSON(http.StatusOK, report)
}

func (h *AdminHandler) PaymentReport(c echo.Context) error {
	limit, offset, err := paging(c)
	if err != nil {
		return err
	}
	f := service.PaymentReportFilter{
		PaymentStatus: models.PaymentStatus(c.QueryParam("payment_status")),
		Limit:         limit,
		Offset:        offset,
	}
	if f.CheckOutDate, err = queryDate(c, "check_out_date"); err != nil {
		return err
	}

	rows, err := h.reports.PaymentReport(c.Request().Context(), middleware.PrincipalFrom(c), f)
	if err != nil {
		return toHTTPError(h.log, err)
	}
	return c.JSON(http.StatusOK, dto.ToPaymentReportResponses(rows))
}

func (h *AdminHandler) UpcomingCheckouts(c echo.Context) error {
	days := 0
	if v := c.QueryParam("days"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			return echo.NewHTTPError(http.StatusBadRequest, "days must be a positive integer")
		}
		days = n
	}
	rows, err := h.reports.UpcomingCheckouts(c.Request().Context(), middleware.PrincipalFrom(c), days)
	if err != nil {
		return toHTTPError(h.log, err)
	}
	return c.JSON(http.StatusOK, dto.ToCheckoutRowResponses(rows))
}

func (h *AdminHandler) PaymentPending(c echo.Context) error {
	list, err := h.reports.PaymentPending(c.Request().Context(), middleware.PrincipalFrom(c))
	if err != nil {
		return toHTTPError(h.log, err)
	}
	return c.JSON(http.StatusOK, dto.ToReservationResponses(list))
}
