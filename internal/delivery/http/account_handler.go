package http

import (
	"net/http"

	"github.com/egannguyen/fontmarket/internal/entity"
	"github.com/egannguyen/fontmarket/internal/service"
	"github.com/gin-gonic/gin"
)

func (h *Handler) handleMe(c *gin.Context) {
	user, err := h.svc.Users.Me(c.Request.Context(), userID(c))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, user)
}

type profileRequest struct {
	Email       string      `json:"email" binding:"omitempty,email"`
	DisplayName string      `json:"displayName" binding:"required"`
	Role        entity.Role `json:"role" binding:"omitempty,oneof=buyer seller"`
}

func (h *Handler) handleUpsertProfile(c *gin.Context) {
	var req profileRequest
	if !bindJSON(c, &req) {
		return
	}
	email := req.Email
	if email == "" {
		email = c.GetString(ctxEmail)
	}
	user, err := h.svc.Users.UpsertProfile(c.Request.Context(), userID(c), service.ProfileInput{
		Email:       email,
		DisplayName: req.DisplayName,
		Role:        req.Role,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, user)
}

func (h *Handler) handleListCart(c *gin.Context) {
	cart, err := h.svc.Carts.List(c.Request.Context(), userID(c))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, cart)
}

type addToCartRequest struct {
	FontID   string `json:"fontId" binding:"required"`
	Quantity int    `json:"quantity" binding:"omitempty,min=1"`
}

func (h *Handler) handleAddToCart(c *gin.Context) {
	var req addToCartRequest
	if !bindJSON(c, &req) {
		return
	}
	item, err := h.svc.Carts.Add(c.Request.Context(), userID(c), req.FontID, req.Quantity)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Added to cart", "item": item})
}

type updateCartRequest struct {
	ItemID   string `json:"itemId" binding:"required"`
	Quantity int    `json:"quantity" binding:"required,min=1"`
}

func (h *Handler) handleUpdateCart(c *gin.Context) {
	var req updateCartRequest
	if !bindJSON(c, &req) {
		return
	}
	if err := h.svc.Carts.SetQuantity(c.Request.Context(), userID(c), req.ItemID, req.Quantity); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Cart updated"})
}

// handleRemoveFromCart removes one line when itemId is given, otherwise clears the cart.
func (h *Handler) handleRemoveFromCart(c *gin.Context) {
	ctx := c.Request.Context()
	if itemID := c.Query("itemId"); itemID != "" {
		if err := h.svc.Carts.Remove(ctx, userID(c), itemID); err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": "Removed from cart"})
		return
	}
	n, err := h.svc.Carts.Clear(ctx, userID(c))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Cart cleared", "removed": n})
}

func (h *Handler) handleListWishlist(c *gin.Context) {
	fonts, err := h.svc.Wishlist.List(c.Request.Context(), userID(c))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"wishlist": fonts})
}

type wishlistRequest struct {
	FontID string `json:"fontId" binding:"required"`
}

func (h *Handler) handleAddToWishlist(c *gin.Context) {
	var req wishlistRequest
	if !bindJSON(c, &req) {
		return
	}
	if err := h.svc.Wishlist.Add(c.Request.Context(), userID(c), req.FontID); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Added to wishlist"})
}

func (h *Handler) handleRemoveFromWishlist(c *gin.Context) {
	fontID := c.Query("fontId")
	if fontID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "fontId is required"})
		return
	}
	if err := h.svc.Wishlist.Remove(c.Request.Context(), userID(c), fontID); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Removed from wishlist"})
}

func (h *Handler) handlePriceMonitor(c *gin.Context) {
	alerts, err := h.svc.Wishlist.PriceMonitor(c.Request.Context(), userID(c))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"alerts": alerts})
}

func (h *Handler) handleListNotifications(c *gin.Context) {
	list, err := h.svc.Notifications.List(c.Request.Context(), userID(c))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"notifications": list})
}

type notificationRequest struct {
	Type    string `json:"type" binding:"required"`
	Title   string `json:"title" binding:"required"`
	Message string `json:"message"`
	FontID  string `json:"fontId"`
}

func (h *Handler) handleCreateNotification(c *gin.Context) {
	var req notificationRequest
	if !bindJSON(c, &req) {
		return
	}
	n, err := h.svc.Notifications.Create(c.Request.Context(), userID(c), service.NotificationInput{
		Type:    req.Type,
		Title:   req.Title,
		Message: req.Message,
		FontID:  req.FontID,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, n)
}

type markReadRequest struct {
	NotificationID string `json:"notificationId" binding:"required"`
}

func (h *Handler) handleMarkRead(c *gin.Context) {
	var req markReadRequest
	if !bindJSON(c, &req) {
		return
	}
	if err := h.svc.Notifications.MarkRead(c.Request.Context(), userID(c), req.NotificationID); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Notification marked as read"})
}

func (h *Handler) handleListTrialKeys(c *gin.Context) {
	keys, err := h.svc.TrialKeys.List(c.Request.Context(), userID(c))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"trialKeys": keys})
}

type trialKeyRequest struct {
	FontID string `json:"fontId" binding:"required"`
}

func (h *Handler) handleIssueTrialKey(c *gin.Context) {
	var req trialKeyRequest
	if !bindJSON(c, &req) {
		return
	}
	key, err := h.svc.TrialKeys.Issue(c.Request.Context(), userID(c), req.FontID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"trialKey": key})
}
