package http

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/egannguyen/fontmarket/internal/auth"
	"github.com/egannguyen/fontmarket/internal/entity"
	"github.com/egannguyen/fontmarket/internal/ratelimit"
	"github.com/egannguyen/fontmarket/internal/repository/memory"
	"github.com/egannguyen/fontmarket/internal/service"
	"github.com/egannguyen/fontmarket/internal/storage"
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const fontBytes = "not really a font"

type testServer struct {
	router *gin.Engine
	jwt    *auth.JWT
	store  *memory.Store
}

func newTestServer(t *testing.T, limiter ratelimit.Limiter) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)
	ctx := context.Background()

	store := memory.NewStore()
	files, err := storage.NewLocal(t.TempDir())
	require.NoError(t, err)
	require.NoError(t, files.Put(ctx, "fonts/test-sans.ttf", strings.NewReader(fontBytes)))

	now := time.Now()
	for _, u := range []entity.User{
		{ID: "seller", Email: "s@example.com", DisplayName: "Type Foundry", Role: entity.RoleSeller, CreatedAt: now, UpdatedAt: now},
		{ID: "buyer", Email: "b@example.com", DisplayName: "Ada", Role: entity.RoleBuyer, CreatedAt: now, UpdatedAt: now},
	} {
		require.NoError(t, store.Users().Upsert(ctx, &u))
	}
	require.NoError(t, store.Fonts().Create(ctx, &entity.Font{
		ID:         "font-1",
		SellerID:   "seller",
		SellerName: "Type Foundry",
		Name:       "Test Sans",
		Category:   "sans-serif",
		Price:      decimal.NewFromInt(25),
		Status:     entity.FontApproved,
		Files:      []entity.FontFile{{Format: "ttf", Size: int64(len(fontBytes)), Locator: "fonts/test-sans.ttf"}},
		CreatedAt:  now,
		UpdatedAt:  now,
	}))

	svc := Services{
		Users:         service.NewUserService(store),
		Catalog:       service.NewCatalogService(store, nil),
		Carts:         service.NewCartService(store),
		Chat:          service.NewChatService(store),
		Checkout:      service.NewCheckoutService(store, nil, service.DefaultDownloadTTL),
		Downloads:     service.NewDownloadService(store, files),
		Wishlist:      service.NewWishlistService(store),
		Notifications: service.NewNotificationService(store),
		Sponsors:      service.NewSponsorService(store),
		TrialKeys:     service.NewTrialKeyService(store),
	}
	jwt := auth.NewJWT("test-secret", time.Hour)
	h := NewHandler(svc, jwt, limiter, "auth-token")
	return &testServer{router: NewRouter(h), jwt: jwt, store: store}
}

func (s *testServer) do(t *testing.T, method, path, user string, body any, headers ...string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if user != "" {
		token, err := s.jwt.Sign(auth.Identity{UserID: user})
		require.NoError(t, err)
		req.Header.Set("Authorization", "Bearer "+token)
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

func TestHealthz(t *testing.T) {
	s := newTestServer(t, nil)
	w := s.do(t, http.MethodGet, "/healthz", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestAuthentication(t *testing.T) {
	s := newTestServer(t, nil)

	w := s.do(t, http.MethodGet, "/api/fonts", "", nil)
	assert.Equal(t, http.StatusOK, w.Code, "catalog is public")

	w = s.do(t, http.MethodGet, "/api/fonts", "", nil, "Authorization", "Bearer garbage")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = s.do(t, http.MethodGet, "/api/orders", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "authentication required", decode(t, w)["error"])

	token, err := s.jwt.Sign(auth.Identity{UserID: "buyer"})
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodGet, "/api/orders", nil)
	req.AddCookie(&http.Cookie{Name: "auth-token", Value: token})
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code, "cookie credential is accepted")
}

func TestListFonts(t *testing.T) {
	s := newTestServer(t, nil)

	w := s.do(t, http.MethodGet, "/api/fonts?search=test&free=false", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.Len(t, body["fonts"], 1)
	assert.Equal(t, float64(1), body["pagination"].(map[string]any)["total"])

	w = s.do(t, http.MethodGet, "/api/fonts?free=maybe", "", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(t, http.MethodGet, "/api/fonts?page=9223372036854775807&limit=50", "", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(t, http.MethodGet, "/api/fonts/missing", "", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestCheckoutApproveDownload(t *testing.T) {
	s := newTestServer(t, nil)
	checkout := map[string]any{"items": []map[string]any{{"fontId": "font-1", "quantity": 1}}}

	w := s.do(t, http.MethodPost, "/api/checkout", "buyer", map[string]any{"items": []any{}})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(t, http.MethodPost, "/api/checkout", "buyer", checkout, "Idempotency-Key", "k1")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	first := decode(t, w)
	orderIDs := first["orderIds"].([]any)
	require.Len(t, orderIDs, 1)
	orderID := orderIDs[0].(string)
	assert.Contains(t, first["redirectUrl"], "/chat?conversationId=")

	w = s.do(t, http.MethodPost, "/api/checkout", "buyer", checkout, "Idempotency-Key", "k1")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, first["orderIds"], decode(t, w)["orderIds"], "replay returns the stored response")

	w = s.do(t, http.MethodGet, "/api/download/"+orderID, "buyer", nil)
	assert.Equal(t, http.StatusNotFound, w.Code, "pending orders are not downloadable")

	w = s.do(t, http.MethodPost, "/api/orders/"+orderID+"/approve", "buyer", nil)
	assert.Equal(t, http.StatusNotFound, w.Code, "only the seller approves")

	w = s.do(t, http.MethodPost, "/api/orders/"+orderID+"/approve", "seller", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, false, decode(t, w)["alreadyCompleted"])

	w = s.do(t, http.MethodPost, "/api/orders/"+orderID+"/approve", "seller", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, true, decode(t, w)["alreadyCompleted"])

	w = s.do(t, http.MethodGet, "/api/download/"+orderID, "seller", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = s.do(t, http.MethodGet, "/api/download/"+orderID, "buyer", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "font/ttf", w.Header().Get("Content-Type"))
	assert.Contains(t, w.Header().Get("Content-Disposition"), "attachment")
	assert.Contains(t, w.Header().Get("Content-Disposition"), "Test_Sans.ttf")
	assert.Equal(t, fontBytes, w.Body.String())

	w = s.do(t, http.MethodGet, "/api/orders/"+orderID+"/download-history", "buyer", nil)
	require.Equal(t, http.StatusOK, w.Code)
	history := decode(t, w)
	assert.Len(t, history["downloadHistory"], 1)
	assert.Equal(t, true, history["canDownload"])

	w = s.do(t, http.MethodGet, "/api/orders?type=purchases", "buyer", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode(t, w)["orders"], 1)
}

func TestPaymentResponseValidation(t *testing.T) {
	s := newTestServer(t, nil)

	w := s.do(t, http.MethodPost, "/api/chat/payment-response", "seller", map[string]any{"messageId": "m", "action": "maybe"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(t, http.MethodPost, "/api/chat/payment-response", "seller", map[string]any{"messageId": "missing", "action": "accept"})
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestChatFlow(t *testing.T) {
	s := newTestServer(t, nil)

	w := s.do(t, http.MethodPost, "/api/chat/conversations", "buyer", map[string]any{"participantId": "seller"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	conv := decode(t, w)["conversation"].(map[string]any)
	convID := conv["id"].(string)

	w = s.do(t, http.MethodPost, "/api/chat/conversations", "seller", map[string]any{"participantId": "buyer"})
	require.Equal(t, http.StatusOK, w.Code)

	w = s.do(t, http.MethodPost, "/api/chat/messages", "buyer", map[string]any{"conversationId": convID, "message": "hello"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = s.do(t, http.MethodGet, "/api/chat/messages/"+convID, "seller", nil)
	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.Len(t, body["messages"], 1)
	assert.Equal(t, float64(1), body["markedRead"])

	w = s.do(t, http.MethodGet, "/api/chat/messages/"+convID, "stranger", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestRateLimit(t *testing.T) {
	s := newTestServer(t, ratelimit.NewMemory(1, time.Minute))
	checkout := map[string]any{"items": []map[string]any{{"fontId": "font-1", "quantity": 1}}}

	w := s.do(t, http.MethodPost, "/api/checkout", "buyer", checkout)
	require.Equal(t, http.StatusOK, w.Code)

	w = s.do(t, http.MethodPost, "/api/checkout", "buyer", checkout)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "too many requests", decode(t, w)["error"])
}

func TestWriteErrorKinds(t *testing.T) {
	gin.SetMode(gin.TestMode)
	cases := map[error]int{
		service.ErrForbidden("no"):   http.StatusForbidden,
		service.ErrExpired("late"):   http.StatusGone,
		service.ErrConflict("again"): http.StatusConflict,
		assert.AnError:               http.StatusInternalServerError,
	}
	for err, status := range cases {
		w := httptest.NewRecorder()
		c, _ := gin.CreateTestContext(w)
		c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
		writeError(c, err)
		assert.Equal(t, status, w.Code, err.Error())
	}
}
