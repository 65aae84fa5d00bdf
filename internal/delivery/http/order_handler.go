package http

import (
	"io"
	"log/slog"
	"mime"
	"net/http"
	"strconv"

	"github.com/egannguyen/fontmarket/internal/entity"
	"github.com/egannguyen/fontmarket/internal/service"
	"github.com/gin-gonic/gin"
)

type checkoutRequest struct {
	Items []entity.CheckoutLine `json:"items" binding:"required,min=1"`
}

func (h *Handler) handleCheckout(c *gin.Context) {
	var req checkoutRequest
	if !bindJSON(c, &req) {
		return
	}
	result, err := h.svc.Checkout.Checkout(c.Request.Context(), userID(c), req.Items, c.GetHeader("Idempotency-Key"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h *Handler) handleListOrders(c *gin.Context) {
	orders, err := h.svc.Checkout.ListOrders(c.Request.Context(), userID(c), service.OrderView(c.Query("type")))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"orders": orders})
}

func (h *Handler) handleApprove(c *gin.Context) {
	result, err := h.svc.Checkout.Approve(c.Request.Context(), userID(c), c.Param("orderId"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

type paymentResponseRequest struct {
	MessageID string                `json:"messageId" binding:"required"`
	Action    service.PaymentAction `json:"action" binding:"required,oneof=accept decline"`
}

func (h *Handler) handlePaymentResponse(c *gin.Context) {
	var req paymentResponseRequest
	if !bindJSON(c, &req) {
		return
	}
	result, err := h.svc.Checkout.RespondToPaymentRequest(c.Request.Context(), userID(c), req.MessageID, req.Action)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h *Handler) handleDownload(c *gin.Context) {
	dl, err := h.svc.Downloads.Fetch(c.Request.Context(), userID(c), c.Param("orderId"), c.ClientIP())
	if err != nil {
		writeError(c, err)
		return
	}
	defer dl.Body.Close()

	c.Header("Content-Type", dl.ContentType)
	c.Header("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": dl.Filename}))
	if dl.Size > 0 {
		c.Header("Content-Length", strconv.FormatInt(dl.Size, 10))
	}
	c.Status(http.StatusOK)
	if _, err := io.Copy(c.Writer, dl.Body); err != nil {
		slog.Warn("Download interrupted", "order_id", c.Param("orderId"), "err", err)
	}
}

func (h *Handler) handleDownloadHistory(c *gin.Context) {
	history, err := h.svc.Downloads.History(c.Request.Context(), userID(c), c.Param("orderId"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, history)
}
