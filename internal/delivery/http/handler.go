package http

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/egannguyen/fontmarket/internal/auth"
	"github.com/egannguyen/fontmarket/internal/ratelimit"
	"github.com/egannguyen/fontmarket/internal/service"
	"github.com/gin-gonic/gin"
)

// Services groups the application services the HTTP layer calls into.
type Services struct {
	Users         *service.UserService
	Catalog       *service.CatalogService
	Carts         *service.CartService
	Chat          *service.ChatService
	Checkout      *service.CheckoutService
	Downloads     *service.DownloadService
	Wishlist      *service.WishlistService
	Notifications *service.NotificationService
	Sponsors      *service.SponsorService
	TrialKeys     *service.TrialKeyService
}

// Handler handles HTTP requests for the application.
type Handler struct {
	svc        Services
	verifier   auth.Verifier
	limiter    ratelimit.Limiter
	cookieName string
}

func NewHandler(svc Services, verifier auth.Verifier, limiter ratelimit.Limiter, cookieName string) *Handler {
	return &Handler{
		svc:        svc,
		verifier:   verifier,
		limiter:    limiter,
		cookieName: cookieName,
	}
}

// NewRouter builds a gin engine with the standard middleware and every route registered.
func NewRouter(h *Handler) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), RequestLogger(), EnableCORS())
	h.RegisterRoutes(r)
	return r
}

func (h *Handler) RegisterRoutes(r *gin.Engine) {
	r.GET("/healthz", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })

	public := r.Group("/api", h.authenticate(false))
	public.GET("/fonts", h.handleListFonts)
	public.GET("/fonts/:id", h.handleGetFont)
	public.GET("/categories/counts", h.handleCategoryCounts)
	public.GET("/sponsor", h.handleListSponsored)

	api := r.Group("/api", h.authenticate(true))
	limited := h.rateLimit()

	api.GET("/me", h.handleMe)
	api.PUT("/me", h.handleUpsertProfile)

	api.POST("/fonts", h.handleCreateFont)
	api.PATCH("/fonts/:id", h.handleUpdateFont)
	api.GET("/admin/fonts", h.handleListPending)
	api.POST("/admin/fonts/:id/approve", h.handleModerate)
	api.GET("/dashboard/stats", h.handleSellerStats)
	api.GET("/dashboard/fonts", h.handleSellerFonts)

	api.GET("/cart", h.handleListCart)
	api.POST("/cart", h.handleAddToCart)
	api.PATCH("/cart", h.handleUpdateCart)
	api.DELETE("/cart", h.handleRemoveFromCart)

	api.POST("/checkout", limited, h.handleCheckout)
	api.GET("/orders", h.handleListOrders)
	api.POST("/orders/:orderId/approve", h.handleApprove)
	api.GET("/orders/:orderId/download-history", h.handleDownloadHistory)
	api.GET("/download/:orderId", limited, h.handleDownload)

	api.GET("/chat/conversations", h.handleListConversations)
	api.POST("/chat/conversations", h.handleResolveConversation)
	api.GET("/chat/messages/:conversationId", h.handleListMessages)
	api.POST("/chat/messages", limited, h.handleSendMessage)
	api.POST("/chat/payment-response", h.handlePaymentResponse)

	api.GET("/wishlist", h.handleListWishlist)
	api.POST("/wishlist", h.handleAddToWishlist)
	api.DELETE("/wishlist", h.handleRemoveFromWishlist)
	api.GET("/wishlist/price-monitor", h.handlePriceMonitor)

	api.GET("/notifications", h.handleListNotifications)
	api.POST("/notifications", h.handleCreateNotification)
	api.POST("/notifications/mark-read", h.handleMarkRead)

	api.POST("/sponsor", h.handleSponsor)

	api.GET("/trial-keys", h.handleListTrialKeys)
	api.POST("/trial-keys", h.handleIssueTrialKey)
}

var statusByKind = map[service.Kind]int{
	service.KindUnauthenticated: http.StatusUnauthorized,
	service.KindInvalidToken:    http.StatusUnauthorized,
	service.KindForbidden:       http.StatusForbidden,
	service.KindNotFound:        http.StatusNotFound,
	service.KindValidation:      http.StatusBadRequest,
	service.KindConflict:        http.StatusConflict,
	service.KindExpired:         http.StatusGone,
	service.KindRateLimited:     http.StatusTooManyRequests,
}

// writeError answers with the status matching the error kind. Internal errors
// are logged and reported without detail.
func writeError(c *gin.Context, err error) {
	var svcErr *service.Error
	if errors.As(err, &svcErr) {
		if status, ok := statusByKind[svcErr.Kind]; ok {
			c.AbortWithStatusJSON(status, gin.H{"error": svcErr.Message})
			return
		}
	}
	slog.Error("Request failed", "method", c.Request.Method, "path", c.FullPath(), "err", err)
	c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
}

// bindJSON decodes the body into req, answering 400 on failure.
func bindJSON(c *gin.Context, req any) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid request body: " + err.Error()})
		return false
	}
	return true
}
