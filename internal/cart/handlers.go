package cart

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/bhokmandu/storefront/internal/backend"
	"github.com/bhokmandu/storefront/internal/logging"
	"github.com/bhokmandu/storefront/internal/session"
)

// Handlers exposes the cart HTTP surface.
type Handlers struct {
	service *Service
}

func NewHandlers(service *Service) *Handlers {
	return &Handlers{service: service}
}

func (h *Handlers) RegisterRoutes(r gin.IRouter) {
	r.GET("/cart", h.Get)
	r.DELETE("/cart", h.Clear)
	r.POST("/cart/items", h.Add)
	r.PUT("/cart/items/:productId", h.UpdateQuantity)
	r.DELETE("/cart/items/:productId", h.Remove)
}

func (h *Handlers) Get(c *gin.Context) {
	view, err := h.service.Get(c.Request.Context(), session.FromContext(c))
	if err != nil {
		h.renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

type addItemRequest struct {
	ProductID string  `json:"productId" binding:"required"`
	Name      string  `json:"name"`
	Price     float64 `json:"price"`
	Image     string  `json:"image"`
	Quantity  int     `json:"quantity"`
}

func (h *Handlers) Add(c *gin.Context) {
	var req addItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "invalid_request",
			"message": err.Error(),
		})
		return
	}
	if req.Quantity == 0 {
		req.Quantity = 1
	}

	view, err := h.service.Add(c.Request.Context(), session.FromContext(c), session.CartItem{
		ProductID: req.ProductID,
		Name:      req.Name,
		Price:     req.Price,
		Image:     req.Image,
		Quantity:  req.Quantity,
	})
	if err != nil {
		h.renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

type updateItemRequest struct {
	Quantity int `json:"quantity"`
}

func (h *Handlers) UpdateQuantity(c *gin.Context) {
	var req updateItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "invalid_request",
			"message": err.Error(),
		})
		return
	}

	view, err := h.service.UpdateQuantity(c.Request.Context(), session.FromContext(c), c.Param("productId"), req.Quantity)
	if err != nil {
		h.renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

func (h *Handlers) Remove(c *gin.Context) {
	view, err := h.service.Remove(c.Request.Context(), session.FromContext(c), c.Param("productId"))
	if err != nil {
		h.renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

func (h *Handlers) Clear(c *gin.Context) {
	view := h.service.Clear(c.Request.Context(), session.FromContext(c))
	c.JSON(http.StatusOK, view)
}

func (h *Handlers) renderError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, ErrEmptyProductID), errors.Is(err, ErrBadQuantity):
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "invalid_request",
			"message": err.Error(),
		})
	case errors.Is(err, ErrItemNotFound), errors.Is(err, backend.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{
			"error":   "not_found",
			"message": "Item is not in the cart",
		})
	case errors.Is(err, backend.ErrUnauthorized):
		c.JSON(http.StatusUnauthorized, gin.H{
			"error":   "unauthorized",
			"message": "Sign in again to manage your cart",
		})
	default:
		logging.L(c.Request.Context()).Error("cart operation failed", "error", err)
		c.JSON(http.StatusBadGateway, gin.H{
			"error":   "backend_unavailable",
			"message": "Could not reach the store, try again shortly",
		})
	}
}
