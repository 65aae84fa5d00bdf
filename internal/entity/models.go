package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// Role is the marketplace role of a user.
type Role string

const (
	RoleBuyer  Role = "buyer"
	RoleSeller Role = "seller"
	RoleAdmin  Role = "admin"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	switch r {
	case RoleBuyer, RoleSeller, RoleAdmin:
		return true
	}
	return false
}

// User represents a marketplace account.
type User struct {
	ID             string    `json:"id"`
	Email          string    `json:"email"`
	DisplayName    string    `json:"display_name"`
	Role           Role      `json:"role"`
	Wishlist       []string  `json:"wishlist"`
	PurchasedFonts []string  `json:"purchased_fonts"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// HasPurchased reports whether fontID is in the user's purchased set.
func (u *User) HasPurchased(fontID string) bool {
	for _, id := range u.PurchasedFonts {
		if id == fontID {
			return true
		}
	}
	return false
}

// FontStatus is the moderation state of a font listing.
type FontStatus string

const (
	FontPending  FontStatus = "pending"
	FontApproved FontStatus = "approved"
	FontRejected FontStatus = "rejected"
)

// PromotionKind distinguishes a discounted sale from a free giveaway.
type PromotionKind string

const (
	PromotionSale     PromotionKind = "sale"
	PromotionGiveaway PromotionKind = "giveaway"
)

// Promotion is a time-boxed price override on a font.
type Promotion struct {
	Kind   PromotionKind   `json:"kind"`
	Price  decimal.Decimal `json:"price"`
	EndsAt time.Time       `json:"ends_at"`
}

// Active reports whether the promotion is still running at now.
func (p *Promotion) Active(now time.Time) bool {
	return p != nil && now.Before(p.EndsAt)
}

// FontFile is one downloadable artifact of a font.
type FontFile struct {
	Format  string `json:"format"`
	Size    int64  `json:"size"`
	Locator string `json:"locator"`
}

// Font is a listing owned by exactly one seller.
type Font struct {
	ID             string          `json:"id"`
	SellerID       string          `json:"seller_id"`
	SellerName     string          `json:"seller_name"`
	Name           string          `json:"name"`
	Description    string          `json:"description"`
	Category       string          `json:"category"`
	Price          decimal.Decimal `json:"price"`
	IsFree         bool            `json:"is_free"`
	Promotion      *Promotion      `json:"promotion,omitempty"`
	Tags           []string        `json:"tags"`
	Languages      []string        `json:"languages"`
	Status         FontStatus      `json:"status"`
	Sponsored      bool            `json:"sponsored"`
	SponsorEndDate *time.Time      `json:"sponsor_end_date,omitempty"`
	Rating         float64         `json:"rating"`
	Downloads      int             `json:"downloads"`
	Files          []FontFile      `json:"files"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
}

// EffectivePrice returns the unit price a buyer pays at now.
func (f *Font) EffectivePrice(now time.Time) decimal.Decimal {
	if f.IsFree {
		return decimal.Zero
	}
	if f.Promotion.Active(now) {
		if f.Promotion.Kind == PromotionGiveaway {
			return decimal.Zero
		}
		return f.Promotion.Price
	}
	return f.Price
}

// CartItem is one (user, font, quantity) line.
type CartItem struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	FontID    string    `json:"font_id"`
	Quantity  int       `json:"quantity"`
	Font      *Font     `json:"font,omitempty"`
	AddedAt   time.Time `json:"added_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// DownloadRecord is an append-only entry written for every successful download.
type DownloadRecord struct {
	ID           string    `json:"id"`
	OrderID      string    `json:"order_id"`
	UserID       string    `json:"user_id"`
	FontID       string    `json:"font_id"`
	RemoteAddr   string    `json:"remote_addr,omitempty"`
	DownloadedAt time.Time `json:"downloaded_at"`
}

// Notification is an in-app message for a single user.
type Notification struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Type      string    `json:"type"`
	Title     string    `json:"title"`
	Message   string    `json:"message"`
	FontID    string    `json:"font_id,omitempty"`
	Read      bool      `json:"read"`
	CreatedAt time.Time `json:"created_at"`
}

// Sponsorship is a paid placement of a font for a number of days.
type Sponsorship struct {
	ID           string          `json:"id"`
	FontID       string          `json:"font_id"`
	SellerID     string          `json:"seller_id"`
	Amount       decimal.Decimal `json:"amount"`
	DurationDays int             `json:"duration_days"`
	StartDate    time.Time       `json:"start_date"`
	EndDate      time.Time       `json:"end_date"`
	Active       bool            `json:"active"`
	CreatedAt    time.Time       `json:"created_at"`
}

// TrialKey grants limited evaluation use of a font.
type TrialKey struct {
	ID         string    `json:"id"`
	FontID     string    `json:"font_id"`
	FontName   string    `json:"font_name,omitempty"`
	UserID     string    `json:"user_id"`
	Key        string    `json:"key"`
	ExpiresAt  time.Time `json:"expires_at"`
	UsageCount int       `json:"usage_count"`
	MaxUsage   int       `json:"max_usage"`
	CreatedAt  time.Time `json:"created_at"`
}
