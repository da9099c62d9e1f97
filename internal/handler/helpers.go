package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/Eursukkul/booking-microservice/reservation-service/internal/apperror"
	"github.com/Eursukkul/booking-microservice/reservation-service/internal/dto"
	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"
)

const (
	defaultLimit = 20
	maxLimit     = 100
)

// toHTTPError maps a service error onto a response. Unclassified errors are
// logged and reported as 500 without their detail.
func toHTTPError(log logrus.FieldLogger, err error) error {
	kind, ok := apperror.KindOf(err)
	if !ok {
		log.WithError(err).Error("unhandled error")
		return echo.NewHTTPError(http.StatusInternalServerError, "internal server error")
	}
	switch kind {
	case apperror.KindNotFound:
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	case apperror.KindConflict:
		return echo.NewHTTPError(http.StatusConflict, err.Error())
	case apperror.KindPreconditionFailed:
		return echo.NewHTTPError(http.StatusUnprocessableEntity, err.Error())
	case apperror.KindValidation:
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	case apperror.KindAuthorization:
		return echo.NewHTTPError(http.StatusForbidden, err.Error())
	default:
		log.WithError(err).Error("unknown error kind")
		return echo.NewHTTPError(http.StatusInternalServerError, "internal server error")
	}
}

func parseID(c echo.Context, name string) (uint, error) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		return 0, echo.NewHTTPError(http.StatusBadRequest, "invalid "+name+" id")
	}
	return uint(id), nil
}

// bindAndValidate binds the body into req and runs the registered validator.
func bindAndValidate(c echo.Context, req any) error {
	if err := c.Bind(req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if c.Echo().Validator != nil {
		if err := c.Validate(req); err != nil {
			return err
		}
	}
	return nil
}

func paging(c echo.Context) (limit, offset int, err error) {
	limit, offset = defaultLimit, 0
	if v := c.QueryParam("limit"); v != "" {
		if limit, err = strconv.Atoi(v); err != nil || limit < 1 {
			return 0, 0, echo.NewHTTPError(http.StatusBadRequest, "limit must be a positive integer")
		}
	}
	if limit > maxLimit {
		limit = maxLimit
	}
	if v := c.QueryParam("offset"); v != "" {
		if offset, err = strconv.Atoi(v); err != nil || offset < 0 {
			return 0, 0, echo.NewHTTPError(http.StatusBadRequest, "offset must be a non-negative integer")
		}
	}
	return limit, offset, nil
}

func queryDate(c echo.Context, name string) (time.Time, error) {
	v := c.QueryParam(name)
	if v == "" {
		return time.Time{}, nil
	}
	t, err := dto.ParseDate(v)
	if err != nil {
		return time.Time{}, echo.NewHTTPError(http.StatusBadRequest, name+": "+err.Error())
	}
	return t, nil
}

func Health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}
