package handlers

import (
	"context"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/beanbrew/queueboard/internal/domain"
	"github.com/beanbrew/queueboard/internal/service"
)

// Pinger is a session store backend that can be probed.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthHandler responds to liveness and readiness probes.
type HealthHandler struct {
	serviceName string
	version     string
	sessions    *service.SessionManager
	engine      *service.OrderSyncEngine
	store       Pinger
	storeName   string
}

// NewHealthHandler returns a new handler instance. store may be nil for the
// file backend.
func NewHealthHandler(serviceName, version string, sessions *service.SessionManager, engine *service.OrderSyncEngine, storeName string, store Pinger) *HealthHandler {
	return &HealthHandler{
		serviceName: serviceName,
		version:     version,
		sessions:    sessions,
		engine:      engine,
		store:       store,
		storeName:   storeName,
	}
}

// Live reports that the process is serving, independent of the session.
func (h *HealthHandler) Live(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status":  "alive",
		"service": h.serviceName,
		"version": h.version,
		"session": h.sessions.State().String(),
	})
}

// Ready reports readiness: a session is installed and the session store
// answers. Sync status is informational and never fails the probe.
func (h *HealthHandler) Ready(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), 2*time.Second)
	defer cancel()

	checks := []readinessCheck{{name: "session", run: h.checkSession}}
	if h.store != nil {
		checks = append(checks, readinessCheck{name: h.storeName, run: h.store.Ping})
	}

	depStatus := fiber.Map{}
	ready := true
	for _, check := range checks {
		if err := check.run(ctx); err != nil {
			depStatus[check.name] = err.Error()
			ready = false
			continue
		}
		depStatus[check.name] = "ok"
	}
	depStatus["sync"] = syncStatus(h.engine.Board())

	if !ready {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
			"error": fiber.Map{
				"code":    "DEPENDENCY_UNAVAILABLE",
				"message": "one or more dependencies unavailable",
				"details": depStatus,
			},
		})
	}
	return c.JSON(fiber.Map{
		"status":       "ready",
		"dependencies": depStatus,
	})
}

type readinessCheck struct {
	name string
	run  func(context.Context) error
}

func (h *HealthHandler) checkSession(context.Context) error {
	if state := h.sessions.State(); state != domain.SessionAuthenticated {
		return fmt.Errorf("session %s", state)
	}
	return nil
}

func syncStatus(view service.BoardView) fiber.Map {
	return fiber.Map{
		"running":   view.Running,
		"seq":       view.Seq,
		"synced_at": view.SyncedAt,
		"stale":     view.Stale,
	}
}
