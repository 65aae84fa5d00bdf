package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/egannguyen/fontmarket/internal/entity"
	"github.com/egannguyen/fontmarket/internal/messaging"
	"github.com/egannguyen/fontmarket/internal/repository"
)

const (
	DefaultPageLimit = 12
	MaxPageLimit     = 100
)

// AllowedFormats are the artifact formats a listing may carry.
var AllowedFormats = map[string]bool{"ttf": true, "otf": true, "woff": true, "woff2": true, "zip": true}

// CatalogService handles font listings and their moderation.
type CatalogService struct {
	store     repository.Store
	publisher messaging.Publisher
	now       func() time.Time
}

func NewCatalogService(store repository.Store, publisher messaging.Publisher) *CatalogService {
	return &CatalogService{store: store, publisher: publisher, now: time.Now}
}

// ListFontsInput filters the public catalog. Free is tri-state.
type ListFontsInput struct {
	Search   string
	Category string
	Free     *bool
	Page     int
	Limit    int
}

type Pagination struct {
	Page  int `json:"page"`
	Limit int `json:"limit"`
	Total int `json:"total"`
	Pages int `json:"pages"`
}

type FontPage struct {
	Fonts      []entity.Font `json:"fonts"`
	Pagination Pagination    `json:"pagination"`
}

// List returns one page of approved fonts, newest first.
func (s *CatalogService) List(ctx context.Context, in ListFontsInput) (*FontPage, error) {
	if in.Page < 1 {
		in.Page = 1
	}
	if in.Limit < 1 {
		in.Limit = DefaultPageLimit
	}
	if in.Limit > MaxPageLimit {
		in.Limit = MaxPageLimit
	}
	if in.Page > math.MaxInt32/in.Limit {
		return nil, ErrValidation("page out of range")
	}

	fonts, total, err := s.store.Fonts().Search(ctx, repository.FontQuery{
		Status:   entity.FontApproved,
		Search:   strings.TrimSpace(in.Search),
		Category: in.Category,
		Free:     in.Free,
		Offset:   (in.Page - 1) * in.Limit,
		Limit:    in.Limit,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to search fonts: %w", err)
	}
	if fonts == nil {
		fonts = []entity.Font{}
	}

	return &FontPage{
		Fonts: fonts,
		Pagination: Pagination{
			Page:  in.Page,
			Limit: in.Limit,
			Total: total,
			Pages: (total + in.Limit - 1) / in.Limit,
		},
	}, nil
}

// Get returns a font. Unapproved fonts are visible only to their owner and admins.
func (s *CatalogService) Get(ctx context.Context, viewerID, id string) (*entity.Font, error) {
	font, err := s.store.Fonts().Get(ctx, id)
	if err != nil {
		return nil, notFoundOr(err, "font not found", "load font")
	}
	if font.Status == entity.FontApproved || (viewerID != "" && font.SellerID == viewerID) {
		return font, nil
	}
	if viewerID != "" {
		viewer, err := s.store.Users().Get(ctx, viewerID)
		if err != nil && !errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("failed to load viewer: %w", err)
		}
		if err == nil && viewer.Role == entity.RoleAdmin {
			return font, nil
		}
	}
	return nil, ErrNotFound("font not found")
}

// FontInput is the seller-editable content of a listing.
type FontInput struct {
	Name        string
	Description string
	Category    string
	Price       decimal.Decimal
	IsFree      bool
	Promotion   *entity.Promotion
	Tags        []string
	Languages   []string
	Files       []entity.FontFile
}

func (in *FontInput) validate() error {
	in.Name = strings.TrimSpace(in.Name)
	in.Category = strings.TrimSpace(in.Category)
	if in.Name == "" {
		return ErrValidation("name is required")
	}
	if in.Category == "" {
		return ErrValidation("category is required")
	}
	if in.IsFree {
		in.Price = decimal.Zero
	} else if in.Price.IsNegative() {
		return ErrValidation("price must not be negative")
	}
	if p := in.Promotion; p != nil {
		if p.Kind != entity.PromotionSale && p.Kind != entity.PromotionGiveaway {
			return ErrValidation("promotion kind must be sale or giveaway")
		}
		if p.Price.IsNegative() {
			return ErrValidation("promotion price must not be negative")
		}
		if p.EndsAt.IsZero() {
			return ErrValidation("promotion end is required")
		}
	}
	if len(in.Files) == 0 {
		return ErrValidation("at least one font file is required")
	}
	for i := range in.Files {
		in.Files[i].Format = strings.ToLower(strings.TrimPrefix(in.Files[i].Format, "."))
		if !AllowedFormats[in.Files[i].Format] {
			return ErrValidation("unsupported font format " + in.Files[i].Format)
		}
		if in.Files[i].Locator == "" {
			return ErrValidation("font file locator is required")
		}
	}
	return nil
}

// Create lists a new font for review. New fonts always start pending.
func (s *CatalogService) Create(ctx context.Context, sellerID string, in FontInput) (*entity.Font, error) {
	seller, err := requireRole(ctx, s.store, sellerID, entity.RoleSeller)
	if err != nil {
		return nil, err
	}
	if err := in.validate(); err != nil {
		return nil, err
	}

	now := s.now()
	font := &entity.Font{
		ID:          uuid.NewString(),
		SellerID:    seller.ID,
		SellerName:  seller.DisplayName,
		Name:        in.Name,
		Description: in.Description,
		Category:    in.Category,
		Price:       in.Price,
		IsFree:      in.IsFree,
		Promotion:   in.Promotion,
		Tags:        in.Tags,
		Languages:   in.Languages,
		Status:      entity.FontPending,
		Files:       in.Files,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.store.Fonts().Create(ctx, font); err != nil {
		return nil, fmt.Errorf("failed to create font: %w", err)
	}

	slog.Info("Font submitted for review", "font_id", font.ID, "seller_id", seller.ID)
	return font, nil
}

// Update replaces the content of the caller's font and sends it back to review.
func (s *CatalogService) Update(ctx context.Context, sellerID, id string, in FontInput) (*entity.Font, error) {
	if _, err := requireRole(ctx, s.store, sellerID, entity.RoleSeller); err != nil {
		return nil, err
	}
	font, err := s.store.Fonts().Get(ctx, id)
	if err != nil {
		return nil, notFoundOr(err, "font not found", "load font")
	}
	if font.SellerID != sellerID {
		return nil, ErrNotFound("font not found")
	}
	if err := in.validate(); err != nil {
		return nil, err
	}

	font.Name = in.Name
	font.Description = in.Description
	font.Category = in.Category
	font.Price = in.Price
	font.IsFree = in.IsFree
	font.Promotion = in.Promotion
	font.Tags = in.Tags
	font.Languages = in.Languages
	font.Files = in.Files
	font.Status = entity.FontPending
	font.UpdatedAt = s.now()

	if err := s.store.Fonts().Update(ctx, font); err != nil {
		return nil, notFoundOr(err, "font not found", "update font")
	}
	return font, nil
}

// ListPending returns fonts awaiting review, oldest first.
func (s *CatalogService) ListPending(ctx context.Context, adminID string) ([]entity.Font, error) {
	if _, err := requireRole(ctx, s.store, adminID, entity.RoleAdmin); err != nil {
		return nil, err
	}
	fonts, err := s.store.Fonts().ListByStatus(ctx, entity.FontPending)
	if err != nil {
		return nil, fmt.Errorf("failed to list pending fonts: %w", err)
	}
	return fonts, nil
}

// Moderate approves or rejects a pending font.
func (s *CatalogService) Moderate(ctx context.Context, adminID, id string, status entity.FontStatus) (*entity.Font, error) {
	if _, err := requireRole(ctx, s.store, adminID, entity.RoleAdmin); err != nil {
		return nil, err
	}
	if status != entity.FontApproved && status != entity.FontRejected {
		return nil, ErrValidation("status must be approved or rejected")
	}

	now := s.now()
	moved, err := s.store.Fonts().TransitionStatus(ctx, id, entity.FontPending, status, now)
	if err != nil {
		return nil, fmt.Errorf("failed to moderate font: %w", err)
	}
	if !moved {
		return nil, ErrNotFound("font not found or already reviewed")
	}

	font, err := s.store.Fonts().Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to reload font: %w", err)
	}

	event := entity.FontModerated{
		FontID:      font.ID,
		FontName:    font.Name,
		SellerID:    font.SellerID,
		Status:      status,
		ModeratedAt: now,
	}
	publish(ctx, s.publisher, entity.TopicFontsModerated, font.ID, event)

	slog.Info("Font moderated", "font_id", font.ID, "status", status)
	return font, nil
}

// CategoryCounts returns the number of approved fonts per category.
func (s *CatalogService) CategoryCounts(ctx context.Context) (map[string]int, error) {
	counts, err := s.store.Fonts().CategoryCounts(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to count categories: %w", err)
	}
	return counts, nil
}

// SellerFonts returns every font of the seller, newest first.
func (s *CatalogService) SellerFonts(ctx context.Context, sellerID string) ([]entity.Font, error) {
	if _, err := requireRole(ctx, s.store, sellerID, entity.RoleSeller); err != nil {
		return nil, err
	}
	fonts, err := s.store.Fonts().ListBySeller(ctx, sellerID)
	if err != nil {
		return nil, fmt.Errorf("failed to list seller fonts: %w", err)
	}
	if fonts == nil {
		fonts = []entity.Font{}
	}
	return fonts, nil
}

type SellerStats struct {
	TotalFonts     int             `json:"totalFonts"`
	ApprovedFonts  int             `json:"approvedFonts"`
	PendingFonts   int             `json:"pendingFonts"`
	TotalSales     int             `json:"totalSales"`
	PendingOrders  int             `json:"pendingOrders"`
	Revenue        decimal.Decimal `json:"revenue"`
	TotalDownloads int             `json:"totalDownloads"`
}

// SellerStats summarizes the seller's catalog and completed sales.
func (s *CatalogService) SellerStats(ctx context.Context, sellerID string) (*SellerStats, error) {
	fonts, err := s.SellerFonts(ctx, sellerID)
	if err != nil {
		return nil, err
	}
	orders, err := s.store.Orders().List(ctx, repository.OrderFilter{SellerID: sellerID})
	if err != nil {
		return nil, fmt.Errorf("failed to list seller orders: %w", err)
	}

	stats := &SellerStats{TotalFonts: len(fonts), Revenue: decimal.Zero}
	for _, f := range fonts {
		switch f.Status {
		case entity.FontApproved:
			stats.ApprovedFonts++
		case entity.FontPending:
			stats.PendingFonts++
		}
		stats.TotalDownloads += f.Downloads
	}
	for _, o := range orders {
		if o.Completed() {
			stats.TotalSales++
			stats.Revenue = stats.Revenue.Add(o.Amount)
		} else {
			stats.PendingOrders++
		}
	}
	return stats, nil
}

// publish sends an event after its writes committed. Failures are logged
// and do not fail the request.
func publish(ctx context.Context, p messaging.Publisher, topic, key string, event entity.Event) {
	if p == nil {
		return
	}
	if err := p.PublishEvent(ctx, topic, key, event); err != nil {
		slog.Warn("Failed to publish event", "topic", topic, "key", key, "event", event.EventType(), "err", err)
	}
}
