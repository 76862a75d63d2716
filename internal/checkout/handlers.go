package checkout

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/bhokmandu/storefront/internal/backend"
	"github.com/bhokmandu/storefront/internal/logging"
	"github.com/bhokmandu/storefront/internal/session"
	"github.com/bhokmandu/storefront/internal/validation"
)

type Handlers struct {
	service *Service
}

func NewHandlers(service *Service) *Handlers {
	return &Handlers{service: service}
}

func (h *Handlers) RegisterRoutes(r gin.IRouter) {
	r.POST("/checkout", h.Place)
}

// Place accepts a checkout submission and responds with the gateway URL. The
// client performs the redirect; the gateway URL is cross-origin so a server
// redirect would not carry the session cookie anywhere useful.
func (h *Handlers) Place(c *gin.Context) {
	var req Request
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "invalid_request",
			"message": err.Error(),
		})
		return
	}

	result, err := h.service.Place(c.Request.Context(), session.FromContext(c), req)
	if err != nil {
		h.renderError(c, err)
		return
	}
	c.JSON(http.StatusCreated, result)
}

func (h *Handlers) renderError(c *gin.Context, err error) {
	var fieldErrs validation.ValidationErrors
	switch {
	case errors.Is(err, ErrSignInRequired), errors.Is(err, backend.ErrUnauthorized):
		c.JSON(http.StatusUnauthorized, gin.H{
			"error":   "unauthorized",
			"message": "Sign in to place an order",
		})
	case errors.As(err, &fieldErrs):
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "invalid_request",
			"message": fieldErrs.Error(),
			"fields":  fieldErrs,
		})
	case errors.Is(err, ErrBadGateway):
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "invalid_request",
			"message": err.Error(),
		})
	case errors.Is(err, backend.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{
			"error":   "not_found",
			"message": "Product no longer exists",
		})
	default:
		logging.L(c.Request.Context()).Error("order placement failed", "error", err)
		c.JSON(http.StatusBadGateway, gin.H{
			"error":   "backend_unavailable",
			"message": "Could not place the order, try again shortly",
		})
	}
}
