package handlers

import (
	"net/http"
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/beanbrew/queueboard/internal/api/dto"
	"github.com/beanbrew/queueboard/internal/service"
)

// OrdersHandler forwards order actions to the ActionHandler.
type OrdersHandler struct {
	actions *service.ActionHandler
}

// NewOrdersHandler constructs handler.
func NewOrdersHandler(actions *service.ActionHandler) *OrdersHandler {
	return &OrdersHandler{actions: actions}
}

// Menu handles GET /api/menu.
func (h *OrdersHandler) Menu(c *fiber.Ctx) error {
	drinks, err := h.actions.Menu(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": drinks})
}

// PlaceOrder handles POST /api/orders.
func (h *OrdersHandler) PlaceOrder(c *fiber.Ctx) error {
	var req dto.PlaceOrderRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid payload")
	}
	req = req.WithDefaults()

	order, err := h.actions.PlaceOrder(c.UserContext(), req.DrinkID, service.OrderOptions{
		Size:  req.Size,
		Sugar: req.Sugar,
		Loyal: req.Loyal,
	})
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": order})
}

// Pickup handles PUT /api/orders/:id/pickup.
func (h *OrdersHandler) Pickup(c *fiber.Ctx) error {
	id, err := strconv.ParseInt(c.Params("id"), 10, 64)
	if err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid order id")
	}
	order, err := h.actions.Pickup(c.UserContext(), id)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": order})
}
