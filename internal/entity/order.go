package entity

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

// PaymentStatus of an order. The only transition is pending -> completed.
type PaymentStatus string

const (
	PaymentPending   PaymentStatus = "pending"
	PaymentCompleted PaymentStatus = "completed"
)

// PaymentMethod records how an order came to exist.
type PaymentMethod string

const (
	// PaymentMethodChat orders are created at checkout and approved by the seller.
	PaymentMethodChat PaymentMethod = "chat"
	// PaymentMethodChatPayment orders are created already completed when an offer is accepted.
	PaymentMethodChatPayment PaymentMethod = "chat-payment"
)

// ErrOrderCompleted is returned when completing an order twice.
var ErrOrderCompleted = errors.New("order is already completed")

// Order links a buyer, a seller and a font.
type Order struct {
	ID               string          `json:"id"`
	BuyerID          string          `json:"buyer_id"`
	SellerID         string          `json:"seller_id"`
	FontID           string          `json:"font_id"`
	FontName         string          `json:"font_name,omitempty"`
	Amount           decimal.Decimal `json:"amount"`
	PaymentMethod    PaymentMethod   `json:"payment_method"`
	PaymentStatus    PaymentStatus   `json:"payment_status"`
	LicenseGenerated bool            `json:"license_generated"`
	LicenseText      string          `json:"license_text,omitempty"`
	DownloadURL      string          `json:"download_url,omitempty"`
	DownloadExpiry   *time.Time      `json:"download_expiry,omitempty"`
	CreatedAt        time.Time       `json:"created_at"`
	UpdatedAt        time.Time       `json:"updated_at"`
}

// Completed reports whether payment has been confirmed.
func (o *Order) Completed() bool {
	return o.PaymentStatus == PaymentCompleted
}

// Complete moves the order to completed and sets its license fields.
func (o *Order) Complete(licenseText, downloadURL string, expiry, now time.Time) error {
	if o.Completed() {
		return ErrOrderCompleted
	}
	o.PaymentStatus = PaymentCompleted
	o.LicenseGenerated = true
	o.LicenseText = licenseText
	o.DownloadURL = downloadURL
	o.DownloadExpiry = &expiry
	o.UpdatedAt = now
	return nil
}

// DownloadExpired reports whether the download window closed before now.
func (o *Order) DownloadExpired(now time.Time) bool {
	return o.DownloadExpiry != nil && now.After(*o.DownloadExpiry)
}
