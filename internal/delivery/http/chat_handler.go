package http

import (
	"net/http"

	"github.com/egannguyen/fontmarket/internal/entity"
	"github.com/egannguyen/fontmarket/internal/service"
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

func (h *Handler) handleListConversations(c *gin.Context) {
	convs, err := h.svc.Chat.ListConversations(c.Request.Context(), userID(c))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"conversations": convs})
}

type conversationRequest struct {
	ParticipantID string `json:"participantId" binding:"required"`
}

func (h *Handler) handleResolveConversation(c *gin.Context) {
	var req conversationRequest
	if !bindJSON(c, &req) {
		return
	}
	conv, created, err := h.svc.Chat.ResolveConversation(c.Request.Context(), userID(c), req.ParticipantID)
	if err != nil {
		writeError(c, err)
		return
	}
	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	c.JSON(status, gin.H{"conversation": conv})
}

func (h *Handler) handleListMessages(c *gin.Context) {
	msgs, marked, err := h.svc.Chat.ListMessages(c.Request.Context(), userID(c), c.Param("conversationId"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"messages": msgs, "markedRead": marked})
}

type offerRequest struct {
	FontID  string          `json:"fontId" binding:"required"`
	OrderID string          `json:"orderId"`
	Amount  decimal.Decimal `json:"amount"`
}

type sendMessageRequest struct {
	ConversationID string             `json:"conversationId" binding:"required"`
	Message        string             `json:"message"`
	MessageType    entity.MessageType `json:"messageType" binding:"omitempty,oneof=text payment-request"`
	PaymentRequest *offerRequest      `json:"paymentRequest"`
}

func (h *Handler) handleSendMessage(c *gin.Context) {
	var req sendMessageRequest
	if !bindJSON(c, &req) {
		return
	}
	in := service.SendMessageInput{
		ConversationID: req.ConversationID,
		Body:           req.Message,
		Type:           req.MessageType,
	}
	if req.PaymentRequest != nil {
		in.Offer = &service.OfferInput{
			FontID:  req.PaymentRequest.FontID,
			OrderID: req.PaymentRequest.OrderID,
			Amount:  req.PaymentRequest.Amount,
		}
	}
	msg, err := h.svc.Chat.Send(c.Request.Context(), userID(c), in)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"message": msg})
}
