package handler

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/parul297/MeraEvents/internal/application"
	"github.com/parul297/MeraEvents/internal/domain/attendee"
)

type AttendeeHandler struct {
	service RegistrationServiceInterface
}

func NewAttendeeHandler(s RegistrationServiceInterface) *AttendeeHandler {
	return &AttendeeHandler{service: s}
}

type RegisterRequest struct {
	EventID string `json:"event_id" validate:"required" example:"550e8400-e29b-41d4-a716-446655440000"`
	Name    string `json:"name" validate:"required,max=100" example:"田中太郎"`
	Email   string `json:"email" validate:"required,email" example:"tanaka@example.com"`
}

type AttendeeResponse struct {
	ID        string `json:"id" example:"660e8400-e29b-41d4-a716-446655440000"`
	EventID   string `json:"event_id" example:"550e8400-e29b-41d4-a716-446655440000"`
	Name      string `json:"name" example:"田中太郎"`
	Email     string `json:"email" example:"tanaka@example.com"`
	CreatedAt string `json:"created_at" example:"2026-09-01T10:00:00+09:00"`
	UpdatedAt string `json:"updated_at" example:"2026-09-01T10:00:00+09:00"`
}

func toAttendeeResponse(a *attendee.Attendee) *AttendeeResponse {
	return &AttendeeResponse{
		ID:        a.ID,
		EventID:   a.EventID,
		Name:      a.Name,
		Email:     a.Email,
		CreatedAt: a.CreatedAt.Format(time.RFC3339),
		UpdatedAt: a.UpdatedAt.Format(time.RFC3339),
	}
}

// Register godoc
// @Summary 参加登録
// @Description イベントに参加者を登録します（定員・重複はアトミックに検査）
// @Tags attendees
// @Accept json
// @Produce json
// @Param request body RegisterRequest true "参加者情報"
// @Success 201 {object} AttendeeResponse
// @Failure 400 {object} map[string]string "検証エラー・定員超過・メール重複"
// @Failure 404 {object} map[string]string
// @Failure 409 {object} map[string]string "競合（リトライ上限超過）"
// @Router /attendees [post]
func (h *AttendeeHandler) Register(c echo.Context) error {
	var req RegisterRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "リクエストの形式が不正です")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	a, err := h.service.Register(c.Request().Context(), application.RegisterInput{
		EventID: req.EventID,
		Name:    req.Name,
		Email:   req.Email,
	})
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusCreated, toAttendeeResponse(a))
}

// GetByID godoc
// @Summary 参加者を取得
// @Description 指定IDの参加者を取得します
// @Tags attendees
// @Produce json
// @Param id path string true "参加者ID"
// @Success 200 {object} AttendeeResponse
// @Failure 404 {object} map[string]string
// @Router /attendees/{id} [get]
func (h *AttendeeHandler) GetByID(c echo.Context) error {
	id := c.Param("id")
	a, err := h.service.GetAttendee(c.Request().Context(), id)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, toAttendeeResponse(a))
}

// Update godoc
// @Summary 登録内容を更新
// @Description 参加者の氏名・メール・所属イベントを更新します。イベント変更時は
// @Description 移動元からの取消と移動先への登録が1つの原子的操作になります
// @Tags attendees
// @Accept json
// @Produce json
// @Param id path string true "参加者ID"
// @Param request body RegisterRequest true "参加者情報"
// @Success 200 {object} AttendeeResponse
// @Failure 400 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Router /attendees/{id} [put]
func (h *AttendeeHandler) Update(c echo.Context) error {
	id := c.Param("id")
	var req RegisterRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "リクエストの形式が不正です")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	a, err := h.service.UpdateRegistration(c.Request().Context(), application.UpdateRegistrationInput{
		AttendeeID: id,
		EventID:    req.EventID,
		Name:       req.Name,
		Email:      req.Email,
	})
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, toAttendeeResponse(a))
}

// Cancel godoc
// @Summary 参加登録を取消
// @Description 参加登録を取り消します。既に存在しない場合は404を返します
// @Tags attendees
// @Param id path string true "参加者ID"
// @Success 204
// @Failure 404 {object} map[string]string
// @Router /attendees/{id} [delete]
func (h *AttendeeHandler) Cancel(c echo.Context) error {
	id := c.Param("id")
	if err := h.service.CancelRegistration(c.Request().Context(), id); err != nil {
		return httpError(err)
	}
	return c.NoContent(http.StatusNoContent)
}

// ListByEvent godoc
// @Summary イベントの参加者一覧
// @Description イベントの参加者一覧を氏名順で取得します
// @Tags attendees
// @Produce json
// @Param id path string true "イベントID"
// @Success 200 {array} AttendeeResponse
// @Failure 404 {object} map[string]string
// @Router /events/{id}/attendees [get]
func (h *AttendeeHandler) ListByEvent(c echo.Context) error {
	eventID := c.Param("id")
	attendees, err := h.service.ListAttendees(c.Request().Context(), eventID)
	if err != nil {
		return httpError(err)
	}
	resp := make([]*AttendeeResponse, len(attendees))
	for i, a := range attendees {
		resp[i] = toAttendeeResponse(a)
	}
	return c.JSON(http.StatusOK, resp)
}
