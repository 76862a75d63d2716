package reconcile

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/bhokmandu/storefront/internal/gateway"
	"github.com/bhokmandu/storefront/internal/logging"
	"github.com/bhokmandu/storefront/internal/session"
)

// Handlers exposes the payment result endpoints the gateways redirect to.
type Handlers struct {
	service *Service
}

func NewHandlers(service *Service) *Handlers {
	return &Handlers{service: service}
}

// RegisterRoutes wires the gateway return URLs.
func (h *Handlers) RegisterRoutes(r gin.IRouter) {
	r.GET("/payment/success", h.Success)
	r.GET("/payment/failure", h.Failure)
}

// Success handles the gateway's success redirect. The redirect alone proves
// nothing; the outcome comes from exactly one backend verification.
func (h *Handlers) Success(c *gin.Context) {
	ctx := c.Request.Context()
	cb := h.parseCallback(c)
	sess := session.FromContext(c)

	result := h.service.Reconcile(ctx, cb, sess)
	switch result.Outcome {
	case OutcomeNoTransaction:
		c.JSON(http.StatusNotFound, gin.H{
			"outcome": result.Outcome,
			"message": "no transaction found for this payment",
		})

	case OutcomeCompleted:
		resp := gin.H{
			"outcome":        result.Outcome,
			"transaction_id": result.Reference,
			"gateway":        result.Gateway,
			"status":         "COMPLETED",
		}
		if result.HasAmount {
			resp["amount_paid"] = result.Amount
		}
		c.JSON(http.StatusOK, resp)

	case OutcomeNotCompleted:
		c.Redirect(http.StatusSeeOther, result.RedirectTo)

	case OutcomeVerificationError:
		c.JSON(http.StatusBadGateway, gin.H{
			"outcome":        result.Outcome,
			"transaction_id": result.Reference,
			"retryable":      true,
			"message":        "payment status could not be confirmed, try again shortly",
		})
	}
}

// Failure handles both the gateway's failure redirect and the internal
// redirect from Success. Marking the order failed is fire and forget; the
// response never waits on it and never reports its result.
func (h *Handlers) Failure(c *gin.Context) {
	cb := h.parseCallback(c)
	sess := session.FromContext(c)

	ref, _ := h.service.MarkFailed(cb, sess)
	resp := gin.H{
		"outcome": "failed",
		"message": "payment was not completed",
	}
	if ref != "" {
		resp["transaction_id"] = ref
	}
	c.JSON(http.StatusOK, resp)
}

func (h *Handlers) parseCallback(c *gin.Context) gateway.Callback {
	cb := gateway.ParseCallback(c.Request.URL.Query())
	if cb.Token == nil && c.Query(gateway.ParamToken) != "" {
		logging.L(c.Request.Context()).Warn("gateway token did not decode, falling back to query params")
	}
	return cb
}
