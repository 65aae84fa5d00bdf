package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"
	"unicode"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/egannguyen/fontmarket/internal/entity"
	"github.com/egannguyen/fontmarket/internal/repository"
	"github.com/egannguyen/fontmarket/internal/storage"
)

var contentTypes = map[string]string{
	"ttf":   "font/ttf",
	"otf":   "font/otf",
	"woff":  "font/woff",
	"woff2": "font/woff2",
	"zip":   "application/zip",
}

// ContentType returns the media type served for an artifact format.
func ContentType(format string) string {
	if ct, ok := contentTypes[strings.ToLower(format)]; ok {
		return ct
	}
	return "application/octet-stream"
}

// AttachmentName builds a download filename from a font name and format.
func AttachmentName(fontName, format string) string {
	name := strings.Map(func(r rune) rune {
		switch {
		case r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r)), r == '-', r == '_':
			return r
		case unicode.IsSpace(r):
			return '_'
		}
		return -1
	}, strings.TrimSpace(fontName))
	if name == "" {
		name = "font"
	}
	return name + "." + strings.ToLower(format)
}

// DownloadService serves licensed font files to their buyers.
type DownloadService struct {
	store repository.Store
	files storage.FileStore
	now   func() time.Time
}

func NewDownloadService(store repository.Store, files storage.FileStore) *DownloadService {
	return &DownloadService{store: store, files: files, now: time.Now}
}

// Download is an opened artifact ready to stream. The caller closes Body.
type Download struct {
	Filename    string
	ContentType string
	Size        int64
	Body        io.ReadCloser
}

// buyerOrder loads an order owned by buyerID. Other users' orders are reported as not found.
func buyerOrder(ctx context.Context, store repository.Store, buyerID, orderID, msg string) (*entity.Order, error) {
	order, err := store.Orders().Get(ctx, orderID)
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return nil, fmt.Errorf("failed to load order: %w", err)
	}
	if err != nil || order.BuyerID != buyerID {
		return nil, ErrNotFound(msg)
	}
	return order, nil
}

// Fetch opens the first artifact of the order's font and records the download.
func (s *DownloadService) Fetch(ctx context.Context, buyerID, orderID, remoteAddr string) (*Download, error) {
	order, err := buyerOrder(ctx, s.store, buyerID, orderID, "order not found or not completed")
	if err != nil {
		return nil, err
	}
	if !order.Completed() {
		return nil, ErrNotFound("order not found or not completed")
	}
	now := s.now()
	if order.DownloadExpired(now) {
		return nil, ErrExpired("download link has expired")
	}

	font, err := s.store.Fonts().Get(ctx, order.FontID)
	if err != nil {
		return nil, notFoundOr(err, "font not found", "load font")
	}
	if len(font.Files) == 0 {
		return nil, ErrNotFound("font file not found")
	}
	file := font.Files[0]

	obj, err := s.files.Open(ctx, file.Locator)
	if errors.Is(err, storage.ErrNotExist) {
		return nil, ErrNotFound("font file not found")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open font file: %w", err)
	}

	err = s.store.WithinTx(ctx, func(tx repository.Store) error {
		rec := &entity.DownloadRecord{
			ID:           uuid.NewString(),
			OrderID:      order.ID,
			UserID:       buyerID,
			FontID:       font.ID,
			RemoteAddr:   remoteAddr,
			DownloadedAt: now,
		}
		if err := tx.Downloads().Record(ctx, rec); err != nil {
			return fmt.Errorf("failed to record download: %w", err)
		}
		if err := tx.Fonts().IncrementDownloads(ctx, font.ID); err != nil {
			return fmt.Errorf("failed to count download: %w", err)
		}
		return nil
	})
	if err != nil {
		obj.Body.Close()
		return nil, err
	}

	slog.Info("Font downloaded", "order_id", order.ID, "font_id", font.ID)
	return &Download{
		Filename:    AttachmentName(font.Name, file.Format),
		ContentType: ContentType(file.Format),
		Size:        obj.Size,
		Body:        obj.Body,
	}, nil
}

type OrderSummary struct {
	ID           string               `json:"id"`
	FontName     string               `json:"fontName"`
	PurchaseDate time.Time            `json:"purchaseDate"`
	Amount       decimal.Decimal      `json:"amount"`
	Status       entity.PaymentStatus `json:"status"`
	Expiry       *time.Time           `json:"downloadExpiry,omitempty"`
}

type DownloadHistory struct {
	Order       OrderSummary            `json:"order"`
	Downloads   []entity.DownloadRecord `json:"downloadHistory"`
	CanDownload bool                    `json:"canDownload"`
}

// History returns the download records of the buyer's order, newest first.
func (s *DownloadService) History(ctx context.Context, buyerID, orderID string) (*DownloadHistory, error) {
	order, err := buyerOrder(ctx, s.store, buyerID, orderID, "order not found")
	if err != nil {
		return nil, err
	}
	recs, err := s.store.Downloads().ListByOrder(ctx, order.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to list downloads: %w", err)
	}
	if recs == nil {
		recs = []entity.DownloadRecord{}
	}
	return &DownloadHistory{
		Order: OrderSummary{
			ID:           order.ID,
			FontName:     order.FontName,
			PurchaseDate: order.CreatedAt,
			Amount:       order.Amount,
			Status:       order.PaymentStatus,
			Expiry:       order.DownloadExpiry,
		},
		Downloads:   recs,
		CanDownload: order.Completed() && !order.DownloadExpired(s.now()),
	}, nil
}
