package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/beanbrew/queueboard/internal/api/dto"
	"github.com/beanbrew/queueboard/internal/service"
	apperrors "github.com/beanbrew/queueboard/pkg/util"
)

// BoardHandler serves the classified queue.
type BoardHandler struct {
	engine   *service.OrderSyncEngine
	sessions *service.SessionManager
}

// NewBoardHandler constructs handler.
func NewBoardHandler(engine *service.OrderSyncEngine, sessions *service.SessionManager) *BoardHandler {
	return &BoardHandler{engine: engine, sessions: sessions}
}

// Get handles GET /api/board.
func (h *BoardHandler) Get(c *fiber.Ctx) error {
	if _, ok := h.sessions.Current(); !ok {
		return apperrors.NewUnauthenticated("login required")
	}
	return c.JSON(fiber.Map{"data": h.engine.Board()})
}

// Refresh handles POST /api/board/refresh.
func (h *BoardHandler) Refresh(c *fiber.Ctx) error {
	if _, ok := h.sessions.Current(); !ok {
		return apperrors.NewUnauthenticated("login required")
	}
	return c.Status(fiber.StatusAccepted).JSON(fiber.Map{"data": dto.RefreshResponse{Issued: h.engine.RefreshNow()}})
}
