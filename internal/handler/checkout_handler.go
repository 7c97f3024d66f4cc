package handler

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yeshivabachur/breslov-academy-sub000/internal/middleware"
	"github.com/yeshivabachur/breslov-academy-sub000/internal/service"
	"github.com/yeshivabachur/breslov-academy-sub000/internal/tenancy"
	appErrors "github.com/yeshivabachur/breslov-academy-sub000/pkg/errors"
	"github.com/yeshivabachur/breslov-academy-sub000/pkg/response"
)

// CheckoutHandler serves checkout and the payment-processor webhook.
type CheckoutHandler struct {
	checkout      *service.CheckoutService
	webhookSecret string
	// system is the principal webhook callbacks run as; the processor is not
	// a tenant member, so its writes cross tenants by construction.
	system tenancy.Principal
}

// NewCheckoutHandler creates the handler.
func NewCheckoutHandler(checkout *service.CheckoutService, webhookSecret string, system tenancy.Principal) *CheckoutHandler {
	return &CheckoutHandler{checkout: checkout, webhookSecret: webhookSecret, system: system}
}

// Begin godoc
// @Summary Start a checkout
// @Description Price an offer, apply an optional coupon, and record a pending transaction. Free checkouts complete inline.
// @Tags Checkout
// @Accept json
// @Produce json
// @Param payload body service.CheckoutRequest true "Checkout payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /checkout [post]
func (h *CheckoutHandler) Begin(c *gin.Context) {
	var req service.CheckoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrInvalidPayload.Code, http.StatusBadRequest, "invalid checkout payload"))
		return
	}

	result, err := h.checkout.Begin(c.Request.Context(), middleware.Principal(c), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, result)
}

// Complete godoc
// @Summary Complete a checkout
// @Description Settle a pending transaction and issue its entitlements. Safe to repeat; issuance is idempotent per transaction.
// @Tags Checkout
// @Accept json
// @Produce json
// @Param payload body object true "Transaction id"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /checkout/complete [post]
func (h *CheckoutHandler) Complete(c *gin.Context) {
	var payload struct {
		TransactionID string `json:"transaction_id" binding:"required"`
	}
	if err := c.ShouldBindJSON(&payload); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrInvalidPayload.Code, http.StatusBadRequest, "transaction_id is required"))
		return
	}

	result, err := h.checkout.Complete(c.Request.Context(), middleware.Principal(c), payload.TransactionID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// Webhook godoc
// @Summary Payment processor callback
// @Description Apply a transaction status callback. Paid transactions trigger idempotent entitlement issuance.
// @Tags Checkout
// @Accept json
// @Produce json
// @Param X-Webhook-Signature header string true "HMAC-SHA256 of the raw body"
// @Param payload body service.WebhookEvent true "Webhook event"
// @Success 200 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Router /checkout/webhook [post]
func (h *CheckoutHandler) Webhook(c *gin.Context) {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrInvalidPayload, "unreadable webhook body"))
		return
	}
	if !h.verifySignature(body, c.GetHeader("X-Webhook-Signature")) {
		response.Error(c, appErrors.Clone(appErrors.ErrAuthRequired, "invalid webhook signature"))
		return
	}

	var event service.WebhookEvent
	if err := bindWebhookEvent(body, &event); err != nil {
		response.Error(c, err)
		return
	}

	result, err := h.checkout.HandleWebhook(c.Request.Context(), h.system, event)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

func bindWebhookEvent(body []byte, event *service.WebhookEvent) error {
	if err := json.Unmarshal(body, event); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInvalidPayload.Code, http.StatusBadRequest, "invalid webhook payload")
	}
	if event.TransactionID == "" || event.Status == "" {
		return appErrors.Clone(appErrors.ErrMissingParams, "transaction_id and status are required")
	}
	return nil
}

func (h *CheckoutHandler) verifySignature(body []byte, signature string) bool {
	if h.webhookSecret == "" {
		return true
	}
	mac := hmac.New(sha256.New, []byte(h.webhookSecret))
	mac.Write(body)
	expected := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(signature))
}
