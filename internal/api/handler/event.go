package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/parul297/MeraEvents/internal/application"
	"github.com/parul297/MeraEvents/internal/domain/event"
)

type EventHandler struct {
	eventService EventServiceInterface
}

func NewEventHandler(eventService EventServiceInterface) *EventHandler {
	return &EventHandler{eventService: eventService}
}

type CreateEventRequest struct {
	Title       string `json:"title" validate:"required,max=200" example:"年末技術交流会2026"`
	Description string `json:"description" validate:"required,max=1000" example:"エンジニア向けの交流イベント"`
	Date        string `json:"date" validate:"required" example:"2026-12-20T18:00:00+09:00"`
	Capacity    int    `json:"capacity" validate:"required,gt=0" example:"100"`
}

type EventResponse struct {
	ID          string `json:"id" example:"550e8400-e29b-41d4-a716-446655440000"`
	Title       string `json:"title" example:"年末技術交流会2026"`
	Description string `json:"description" example:"エンジニア向けの交流イベント"`
	Date        string `json:"date" example:"2026-12-20T18:00:00+09:00"`
	Capacity    int    `json:"capacity" example:"100"`
	Registered  int    `json:"registered" example:"42"`
	CreatedAt   string `json:"created_at" example:"2026-09-01T10:00:00+09:00"`
	UpdatedAt   string `json:"updated_at" example:"2026-09-01T10:00:00+09:00"`
}

func toEventResponse(e *event.Event) *EventResponse {
	return &EventResponse{
		ID:          e.ID,
		Title:       e.Title,
		Description: e.Description,
		Date:        e.Date.Format(time.RFC3339),
		Capacity:    e.Capacity,
		CreatedAt:   e.CreatedAt.Format(time.RFC3339),
		UpdatedAt:   e.UpdatedAt.Format(time.RFC3339),
	}
}

// eventResponseWithCount は登録者数を付与したレスポンスを作る
func (h *EventHandler) eventResponseWithCount(c echo.Context, e *event.Event) (*EventResponse, error) {
	registered, err := h.eventService.CountRegistered(c.Request().Context(), e.ID)
	if err != nil {
		return nil, err
	}
	resp := toEventResponse(e)
	resp.Registered = registered
	return resp, nil
}

// Create godoc
// @Summary イベントを作成
// @Description 新しいイベントを作成します
// @Tags events
// @Accept json
// @Produce json
// @Param request body CreateEventRequest true "イベント情報"
// @Success 201 {object} EventResponse
// @Failure 400 {object} map[string]string
// @Router /events [post]
func (h *EventHandler) Create(c echo.Context) error {
	var req CreateEventRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "リクエストの形式が不正です")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	date, err := time.Parse(time.RFC3339, req.Date)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "開催日時の形式が不正です")
	}

	e, err := h.eventService.CreateEvent(c.Request().Context(), application.CreateEventInput{
		Title:       req.Title,
		Description: req.Description,
		Date:        date,
		Capacity:    req.Capacity,
	})
	if err != nil {
		return httpError(err)
	}

	return c.JSON(http.StatusCreated, toEventResponse(e))
}

// GetByID godoc
// @Summary イベントを取得
// @Description 指定IDのイベントを取得します
// @Tags events
// @Produce json
// @Param id path string true "イベントID"
// @Success 200 {object} EventResponse
// @Failure 404 {object} map[string]string
// @Router /events/{id} [get]
func (h *EventHandler) GetByID(c echo.Context) error {
	id := c.Param("id")
	e, err := h.eventService.GetEvent(c.Request().Context(), id)
	if err != nil {
		return httpError(err)
	}

	resp, err := h.eventResponseWithCount(c, e)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, resp)
}

// List godoc
// @Summary イベント一覧を取得
// @Description イベントの一覧を取得します
// @Tags events
// @Produce json
// @Param limit query int false "取得件数" default(20)
// @Param offset query int false "オフセット" default(0)
// @Success 200 {array} EventResponse
// @Router /events [get]
func (h *EventHandler) List(c echo.Context) error {
	limit, _ := strconv.Atoi(c.QueryParam("limit"))
	offset, _ := strconv.Atoi(c.QueryParam("offset"))

	events, err := h.eventService.ListEvents(c.Request().Context(), limit, offset)
	if err != nil {
		return httpError(err)
	}

	responses := make([]*EventResponse, len(events))
	for i, e := range events {
		resp, err := h.eventResponseWithCount(c, e)
		if err != nil {
			return httpError(err)
		}
		responses[i] = resp
	}
	return c.JSON(http.StatusOK, responses)
}

// Update godoc
// @Summary イベントを更新
// @Description 指定IDのイベントを更新します
// @Tags events
// @Accept json
// @Produce json
// @Param id path string true "イベントID"
// @Param request body CreateEventRequest true "イベント情報"
// @Success 200 {object} EventResponse
// @Failure 400 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Router /events/{id} [put]
func (h *EventHandler) Update(c echo.Context) error {
	id := c.Param("id")
	var req CreateEventRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "リクエストの形式が不正です")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	date, err := time.Parse(time.RFC3339, req.Date)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "開催日時の形式が不正です")
	}

	e, err := h.eventService.UpdateEvent(c.Request().Context(), application.UpdateEventInput{
		ID:          id,
		Title:       req.Title,
		Description: req.Description,
		Date:        date,
		Capacity:    req.Capacity,
	})
	if err != nil {
		return httpError(err)
	}

	resp, err := h.eventResponseWithCount(c, e)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, resp)
}

// Delete godoc
// @Summary イベントを削除
// @Description 指定IDのイベントと全参加者を原子的に削除します
// @Tags events
// @Param id path string true "イベントID"
// @Success 204
// @Failure 404 {object} map[string]string
// @Router /events/{id} [delete]
func (h *EventHandler) Delete(c echo.Context) error {
	id := c.Param("id")
	if err := h.eventService.DeleteEvent(c.Request().Context(), id); err != nil {
		return httpError(err)
	}
	return c.NoContent(http.StatusNoContent)
}
