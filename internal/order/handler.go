package order

import (
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/wichananm65/pet-shop-orders/internal/cart"
	"github.com/wichananm65/pet-shop-orders/internal/interface/presenter"
	"github.com/wichananm65/pet-shop-orders/internal/session"
)

// Handler exposes checkout and the order lifecycle over HTTP.
type Handler struct {
	service *Service
}

func NewHandler(s *Service) *Handler {
	return &Handler{service: s}
}

func (h *Handler) RegisterRoutes(router fiber.Router) {
	router.Post("/api/v1/orders/checkout", h.checkout)
	router.Get("/api/v1/orders", h.listOrders)
	router.Get("/api/v1/orders/:id<int>", h.getOrder)
	router.Put("/api/v1/orders/:id<int>", h.updateOrder)
	router.Delete("/api/v1/orders/:id<int>", h.deleteOrder)
	router.Post("/api/v1/orders/:id<int>/cancel", h.cancel)
	router.Post("/api/v1/orders/:id<int>/ship", h.ship)
	router.Post("/api/v1/orders/:id<int>/deliver", h.deliver)
	router.Get("/api/v1/orders/:id<int>/track", h.track)
}

// OrderID reads the :id route parameter.
func OrderID(c *fiber.Ctx) (int64, bool) {
	id, err := strconv.ParseInt(c.Params("id"), 10, 64)
	return id, err == nil && id > 0
}

func (h *Handler) checkout(c *fiber.Ctx) error {
	orders, err := h.service.CreateOrder(c.UserContext(), session.TokenFromCtx(c), c.Get("Idempotency-Key"))
	if err != nil {
		return presenter.Error(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(orders)
}

func (h *Handler) listOrders(c *fiber.Ctx) error {
	orders, err := h.service.ListOrders(c.UserContext(), session.TokenFromCtx(c))
	if err != nil {
		return presenter.Error(c, err)
	}
	return c.JSON(orders)
}

func (h *Handler) getOrder(c *fiber.Ctx) error {
	id, ok := OrderID(c)
	if !ok {
		return presenter.BadRequest(c, "invalid order id")
	}
	o, err := h.service.GetOrder(c.UserContext(), session.TokenFromCtx(c), id)
	if err != nil {
		return presenter.Error(c, err)
	}
	return c.JSON(o)
}

type updateRequest struct {
	LineItems    []cart.Line `json:"lineItems"`
	Status       *Status     `json:"status"`
	DeliveryDate string      `json:"deliveryDate"`
}

func (h *Handler) updateOrder(c *fiber.Ctx) error {
	id, ok := OrderID(c)
	if !ok {
		return presenter.BadRequest(c, "invalid order id")
	}
	payload := new(updateRequest)
	if err := c.BodyParser(payload); err != nil {
		return presenter.BadRequest(c, err.Error())
	}
	in := UpdateInput{LineItems: payload.LineItems, Status: payload.Status}
	if payload.DeliveryDate != "" {
		date, err := time.Parse(dateLayout, payload.DeliveryDate)
		if err != nil {
			return presenter.BadRequest(c, "deliveryDate must be YYYY-MM-DD")
		}
		in.DeliveryDate = &date
	}
	o, err := h.service.UpdateOrder(c.UserContext(), session.TokenFromCtx(c), id, in)
	if err != nil {
		return presenter.Error(c, err)
	}
	return c.JSON(o)
}

func (h *Handler) deleteOrder(c *fiber.Ctx) error {
	id, ok := OrderID(c)
	if !ok {
		return presenter.BadRequest(c, "invalid order id")
	}
	if err := h.service.DeleteOrder(c.UserContext(), session.TokenFromCtx(c), id); err != nil {
		return presenter.Error(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func (h *Handler) cancel(c *fiber.Ctx) error {
	id, ok := OrderID(c)
	if !ok {
		return presenter.BadRequest(c, "invalid order id")
	}
	o, err := h.service.Cancel(c.UserContext(), session.TokenFromCtx(c), id)
	if err != nil {
		return presenter.Error(c, err)
	}
	return c.JSON(o)
}

type shipRequest struct {
	DeliveryDate string `json:"deliveryDate"`
}

func (h *Handler) ship(c *fiber.Ctx) error {
	id, ok := OrderID(c)
	if !ok {
		return presenter.BadRequest(c, "invalid order id")
	}
	payload := new(shipRequest)
	if err := c.BodyParser(payload); err != nil {
		return presenter.BadRequest(c, err.Error())
	}
	date, err := time.Parse(dateLayout, payload.DeliveryDate)
	if err != nil {
		return presenter.BadRequest(c, "deliveryDate must be YYYY-MM-DD")
	}
	o, err := h.service.Ship(c.UserContext(), session.TokenFromCtx(c), id, date)
	if err != nil {
		return presenter.Error(c, err)
	}
	return c.JSON(o)
}

func (h *Handler) deliver(c *fiber.Ctx) error {
	id, ok := OrderID(c)
	if !ok {
		return presenter.BadRequest(c, "invalid order id")
	}
	o, err := h.service.Deliver(c.UserContext(), session.TokenFromCtx(c), id)
	if err != nil {
		return presenter.Error(c, err)
	}
	return c.JSON(o)
}

func (h *Handler) track(c *fiber.Ctx) error {
	id, ok := OrderID(c)
	if !ok {
		return presenter.BadRequest(c, "invalid order id")
	}
	msg, err := h.service.TrackOrder(c.UserContext(), session.TokenFromCtx(c), id)
	if err != nil {
		return presenter.Error(c, err)
	}
	return c.JSON(fiber.Map{"message": msg})
}
