package handler

import (
	"net/http"

	"github.com/Eursukkul/booking-microservice/reservation-service/internal/dto"
	"github.com/Eursukkul/booking-microservice/reservation-service/internal/middleware"
	"github.com/Eursukkul/booking-microservice/reservation-service/internal/service"
	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"
)

type RoomHandler struct {
	svc service.RoomService
	log logrus.FieldLogger
}

func NewRoomHandler(svc service.RoomService, log logrus.FieldLogger) *RoomHandler {
	return &RoomHandler{svc: svc, log: log.WithField("component", "RoomHandler")}
}

func (h *RoomHandler) RegisterRoutes(g *echo.Group) {
	rooms := g.Group("/rooms")
	rooms.POST("", h.CreateRoom)
	rooms.GET("", h.ListRooms)
	rooms.GET("/available", h.ListAvailable)
	rooms.GET("/:id", h.GetRoom)
	rooms.PUT("/:id", h.UpdateRoom)
	rooms.DELETE("/:id", h.DeleteRoom)
}

func toRoomInput(req dto.RoomRequest) service.RoomInput {
	return service.RoomInput{
		RoomNumber:    req.RoomNumber,
		RoomType:      req.RoomType,
		Description:   req.Description,
		PricePerNight: req.PricePerNight,
		MaxOccupancy:  req.MaxOccupancy,
		Available:     req.IsAvailable,
	}
}

func (h *RoomHandler) CreateRoom(c echo.Context) error {
	var req dto.RoomRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	room, err := h.svc.CreateRoom(c.Request().Context(), middleware.PrincipalFrom(c), toRoomInput(req))
	if err != nil {
		return toHTTPError(h.log, err)
	}
	return c.JSON(http.StatusCreated, dto.ToRoomResponse(room))
}

func (h *RoomHandler) GetRoom(c echo.Context) error {
	id, err := parseID(c, "room")
	if err != nil {
		return err
	}
	room, err := h.svc.GetRoom(c.Request().Context(), id)
	if err != nil {
		return toHTTPError(h.log, err)
	}
	return c.JSON(http.StatusOK, dto.ToRoomResponse(room))
}

func (h *RoomHandler) ListRooms(c echo.Context) error {
	rooms, err := h.svc.ListRooms(c.Request().Context())
	if err != nil {
		return toHTTPError(h.log, err)
	}
	return c.JSON(http.StatusOK, dto.ToRoomResponses(rooms))
}

// ListAvailable filters by check_in_date/check_out_date when both are given.
func (h *RoomHandler) ListAvailable(c echo.Context) error {
	checkIn, err := queryDate(c, "check_in_date")
	if err != nil {
		return err
	}
	checkOut, err := queryDate(c, "check_out_date")
	if err != nil {
		return err
	}
	if checkIn.IsZero() != checkOut.IsZero() {
		return echo.NewHTTPError(http.StatusBadRequest, "check_in_date and check_out_date must be given together")
	}

	rooms, err := h.svc.ListAvailable(c.Request().Context(), checkIn, checkOut)
	if err != nil {
		return toHTTPError(h.log, err)
	}
	return c.JSON(http.StatusOK, dto.ToRoomResponses(rooms))
}

func (h *RoomHandler) UpdateRoom(c echo.Context) error {
	id, err := parseID(c, "room")
	if err != nil {
		return err
	}
	var req dto.RoomRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	room, err := h.svc.UpdateRoom(c.Request().Context(), middleware.PrincipalFrom(c), id, toRoomInput(req))
	if err != nil {
		return toHTTPError(h.log, err)
	}
	return c.JSON(http.StatusOK, dto.ToRoomResponse(room))
}

func (h *RoomHandler) DeleteRoom(c echo.Context) error {
	id, err := parseID(c, "room")
	if err != nil {
		return err
	}
	if err := h.svc.DeleteRoom(c.Request().Context(), middleware.PrincipalFrom(c), id); err != nil {
		return toHTTPError(h.log, err)
	}
	return c.NoContent(http.StatusNoContent)
}
