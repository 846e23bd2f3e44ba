package cart

import (
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/wichananm65/pet-shop-orders/internal/interface/presenter"
	"github.com/wichananm65/pet-shop-orders/internal/session"
)

// Handler exposes the cart manager over HTTP.
type Handler struct {
	service *Service
}

func NewHandler(s *Service) *Handler {
	return &Handler{service: s}
}

func (h *Handler) RegisterRoutes(router fiber.Router) {
	router.Get("/api/v1/cart", h.getCart)
	router.Post("/api/v1/cart/items", h.addItem)
	router.Delete("/api/v1/cart/items/:productId", h.removeItem)
	router.Delete("/api/v1/cart", h.clearCart)
}

type addItemRequest struct {
	ProductID int64 `json:"productId"`
	Quantity  int   `json:"quantity"`
}

func (h *Handler) getCart(c *fiber.Ctx) error {
	cart, err := h.service.ViewCart(c.UserContext(), session.TokenFromCtx(c))
	if err != nil {
		return presenter.Error(c, err)
	}
	return c.JSON(cart.View())
}

func (h *Handler) addItem(c *fiber.Ctx) error {
	payload := new(addItemRequest)
	if err := c.BodyParser(payload); err != nil {
		return presenter.BadRequest(c, err.Error())
	}
	if payload.ProductID <= 0 {
		return presenter.BadRequest(c, "invalid productId")
	}

	cart, err := h.service.AddItem(c.UserContext(), session.TokenFromCtx(c), payload.ProductID, payload.Quantity)
	if err != nil {
		return presenter.Error(c, err)
	}
	return c.JSON(cart.View())
}

func (h *Handler) removeItem(c *fiber.Ctx) error {
	productID, err := strconv.ParseInt(c.Params("productId"), 10, 64)
	if err != nil || productID <= 0 {
		return presenter.BadRequest(c, "invalid productId")
	}

	var quantity *int
	if raw := c.Query("quantity"); raw != "" {
		q, err := strconv.Atoi(raw)
		if err != nil {
			return presenter.BadRequest(c, "invalid quantity")
		}
		quantity = &q
	}

	cart, err := h.service.RemoveItem(c.UserContext(), session.TokenFromCtx(c), productID, quantity)
	if err != nil {
		return presenter.Error(c, err)
	}
	return c.JSON(cart.View())
}

func (h *Handler) clearCart(c *fiber.Ctx) error {
	if err := h.service.ClearCart(c.UserContext(), session.TokenFromCtx(c)); err != nil {
		return presenter.Error(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}
