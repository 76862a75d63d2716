package orders

import (
	"crypto/subtle"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/bhokmandu/storefront/internal/backend"
	"github.com/bhokmandu/storefront/internal/logging"
	"github.com/bhokmandu/storefront/internal/session"
)

type Handlers struct {
	service     *Service
	adminSecret string
}

func NewHandlers(service *Service, adminSecret string) *Handlers {
	return &Handlers{service: service, adminSecret: adminSecret}
}

func (h *Handlers) RegisterRoutes(r gin.IRouter) {
	r.GET("/orders", h.List)
	r.GET("/orders/:id", h.Get)
}

// RegisterAdminRoutes wires the status transition endpoint. Callers must
// present the X-Admin-Secret header.
func (h *Handlers) RegisterAdminRoutes(r gin.IRouter) {
	r.PATCH("/admin/orders/:id/status", h.requireAdmin, h.UpdateStatus)
}

func (h *Handlers) List(c *gin.Context) {
	list, err := h.service.List(c.Request.Context(), bearerFrom(c))
	if err != nil {
		h.renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"orders": list, "count": len(list)})
}

func (h *Handlers) Get(c *gin.Context) {
	order, err := h.service.Get(c.Request.Context(), bearerFrom(c), c.Param("id"))
	if err != nil {
		h.renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, order)
}

type updateStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

func (h *Handlers) UpdateStatus(c *gin.Context) {
	var req updateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "invalid_request",
			"message": err.Error(),
		})
		return
	}

	if err := h.service.UpdateStatus(c.Request.Context(), bearerFrom(c), c.Param("id"), req.Status); err != nil {
		h.renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"orderId": c.Param("id"), "status": req.Status})
}

// requireAdmin gates a route behind the X-Admin-Secret header.
func (h *Handlers) requireAdmin(c *gin.Context) {
	got := c.GetHeader("X-Admin-Secret")
	if h.adminSecret == "" || subtle.ConstantTimeCompare([]byte(got), []byte(h.adminSecret)) != 1 {
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
			"error":   "forbidden",
			"message": "Admin credentials required",
		})
		return
	}
	c.Next()
}

func bearerFrom(c *gin.Context) string {
	if sess := session.FromContext(c); sess != nil {
		return sess.BearerToken
	}
	return ""
}

func (h *Handlers) renderError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, ErrSignInRequired), errors.Is(err, backend.ErrUnauthorized):
		c.JSON(http.StatusUnauthorized, gin.H{
			"error":   "unauthorized",
			"message": "Sign in to view orders",
		})
	case errors.Is(err, ErrBadStatus):
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "invalid_request",
			"message": err.Error(),
		})
	case errors.Is(err, backend.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{
			"error":   "not_found",
			"message": "Order not found",
		})
	default:
		logging.L(c.Request.Context()).Error("order lookup failed", "error", err)
		c.JSON(http.StatusBadGateway, gin.H{
			"error":   "backend_unavailable",
			"message": "Could not reach the store, try again shortly",
		})
	}
}
