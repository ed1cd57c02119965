package handlers

import (
	"net/http"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/beanbrew/queueboard/internal/api/dto"
	"github.com/beanbrew/queueboard/internal/service"
)

// SessionHandler exposes login, signup and logout for the dashboard.
type SessionHandler struct {
	sessions *service.SessionManager
}

// NewSessionHandler constructs handler.
func NewSessionHandler(sessions *service.SessionManager) *SessionHandler {
	return &SessionHandler{sessions: sessions}
}

// Get handles GET /api/session.
func (h *SessionHandler) Get(c *fiber.Ctx) error {
	state := h.sessions.State()
	if session, ok := h.sessions.Current(); ok {
		return c.JSON(fiber.Map{"data": dto.NewSessionResponse(state, &session)})
	}
	return c.JSON(fiber.Map{"data": dto.NewSessionResponse(state, nil)})
}

// Login handles POST /api/session/login.
func (h *SessionHandler) Login(c *fiber.Ctx) error {
	var req dto.LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid payload")
	}
	if strings.TrimSpace(req.Username) == "" || req.Password == "" {
		return fiber.NewError(http.StatusBadRequest, "username and password required")
	}

	session, err := h.sessions.Login(c.UserContext(), req.Username, req.Password)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewSessionResponse(h.sessions.State(), &session)})
}

// Signup handles POST /api/session/signup.
func (h *SessionHandler) Signup(c *fiber.Ctx) error {
	var req dto.SignupRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid payload")
	}
	if strings.TrimSpace(req.Username) == "" || req.Password == "" || req.Email == "" {
		return fiber.NewError(http.StatusBadRequest, "username, password, email required")
	}

	session, err := h.sessions.Signup(c.UserContext(), req.Username, req.Password, req.Email)
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": dto.NewSessionResponse(h.sessions.State(), &session)})
}

// Logout handles POST /api/session/logout.
func (h *SessionHandler) Logout(c *fiber.Ctx) error {
	if err := h.sessions.Logout(c.UserContext()); err != nil {
		return err
	}
	return c.SendStatus(http.StatusNoContent)
}
