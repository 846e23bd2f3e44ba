package refund

import (
	"github.com/gofiber/fiber/v2"
	"github.com/wichananm65/pet-shop-orders/internal/interface/presenter"
	"github.com/wichananm65/pet-shop-orders/internal/order"
	"github.com/wichananm65/pet-shop-orders/internal/session"
)

type Handler struct {
	service *Service
}

func NewHandler(s *Service) *Handler {
	return &Handler{service: s}
}

func (h *Handler) RegisterRoutes(router fiber.Router) {
	router.Post("/api/v1/orders/:id<int>/refund", h.request)
	router.Post("/api/v1/orders/:id<int>/refund/accept", h.accept)
	router.Post("/api/v1/orders/:id<int>/refund/reject", h.reject)
	router.Get("/api/v1/refunds", h.list)
}

func (h *Handler) request(c *fiber.Ctx) error {
	id, ok := order.OrderID(c)
	if !ok {
		return presenter.BadRequest(c, "invalid order id")
	}
	req, err := h.service.RequestRefund(c.UserContext(), session.TokenFromCtx(c), id)
	if err != nil {
		return presenter.Error(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(req)
}

func (h *Handler) accept(c *fiber.Ctx) error {
	id, ok := order.OrderID(c)
	if !ok {
		return presenter.BadRequest(c, "invalid order id")
	}
	req, err := h.service.AcceptRefund(c.UserContext(), session.TokenFromCtx(c), id)
	if err != nil {
		return presenter.Error(c, err)
	}
	return c.JSON(req)
}

func (h *Handler) reject(c *fiber.Ctx) error {
	id, ok := order.OrderID(c)
	if !ok {
		return presenter.BadRequest(c, "invalid order id")
	}
	req, err := h.service.RejectRefund(c.UserContext(), session.TokenFromCtx(c), id)
	if err != nil {
		return presenter.Error(c, err)
	}
	return c.JSON(req)
}

func (h *Handler) list(c *fiber.Ctx) error {
	reqs, err := h.service.ListRefundRequests(c.UserContext(), session.TokenFromCtx(c))
	if err != nil {
		return presenter.Error(c, err)
	}
	return c.JSON(reqs)
}
