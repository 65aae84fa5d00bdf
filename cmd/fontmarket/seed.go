package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/egannguyen/fontmarket/internal/entity"
	"github.com/egannguyen/fontmarket/internal/repository"
	"github.com/shopspring/decimal"
)

const demoSellerID = "demo-seller"

// seedCatalog loads a demo seller and a few approved fonts. It does nothing
// when the demo seller already exists.
func seedCatalog(ctx context.Context, store repository.Store) error {
	_, err := store.Users().Get(ctx, demoSellerID)
	if err == nil {
		return nil
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return fmt.Errorf("failed to check seed state: %w", err)
	}

	now := time.Now().UTC()
	seller := entity.User{
		ID:          demoSellerID,
		Email:       "foundry@example.com",
		DisplayName: "Demo Foundry",
		Role:        entity.RoleSeller,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	fonts := []entity.Font{
		{ID: "font-001", Name: "Harbor Sans", Description: "Geometric sans with generous counters for interfaces.", Category: "sans-serif", Price: decimal.RequireFromString("29.00"), Tags: []string{"geometric", "ui"}, Languages: []string{"latin"}},
		{ID: "font-002", Name: "Quill Serif", Description: "Old-style text serif for long reading.", Category: "serif", Price: decimal.RequireFromString("45.00"), Tags: []string{"book", "text"}, Languages: []string{"latin", "greek"}},
		{ID: "font-003", Name: "Static Mono", Description: "Monospace for terminals and code.", Category: "monospace", IsFree: true, Tags: []string{"code"}, Languages: []string{"latin"}},
		{ID: "font-004", Name: "Marquee Display", Description: "Condensed display face for posters.", Category: "display", Price: decimal.RequireFromString("19.00"), Tags: []string{"poster", "condensed"}, Languages: []string{"latin"},
			Promotion: &entity.Promotion{Kind: entity.PromotionSale, Price: decimal.RequireFromString("9.00"), EndsAt: now.AddDate(0, 0, 14)}},
	}

	return store.WithinTx(ctx, func(tx repository.Store) error {
		if err := tx.Users().Upsert(ctx, &seller); err != nil {
			return fmt.Errorf("failed to seed seller: %w", err)
		}
		for i := range fonts {
			f := &fonts[i]
			f.SellerID = seller.ID
			f.SellerName = seller.DisplayName
			f.Status = entity.FontApproved
			f.Files = []entity.FontFile{{Format: "ttf", Locator: "demo/" + f.ID + ".ttf"}}
			f.CreatedAt = now.Add(time.Duration(i) * time.Second)
			f.UpdatedAt = f.CreatedAt
			if err := tx.Fonts().Create(ctx, f); err != nil {
				return fmt.Errorf("failed to seed font %s: %w", f.ID, err)
			}
		}
		slog.Info("Seeded catalog", "fonts", len(fonts))
		return nil
	})
}
