package service

import (
	"time"

	"github.com/egannguyen/fontmarket/internal/entity"
	"github.com/shopspring/decimal"
)

func (s *WorkflowSuite) TestCart() {
	item, err := s.carts.Add(s.ctx, "buyer", "font-1", 0)
	s.Require().NoError(err)
	s.Equal(1, item.Quantity, "quantity defaults to one")

	_, err = s.carts.Add(s.ctx, "buyer", "font-1", 2)
	s.Require().NoError(err)
	_, err = s.carts.Add(s.ctx, "buyer", "font-2", 1)
	s.Require().NoError(err)

	_, err = s.carts.Add(s.ctx, "buyer", "font-pending", 1)
	s.Equal(KindNotFound, KindOf(err))

	view, err := s.carts.List(s.ctx, "buyer")
	s.Require().NoError(err)
	s.Len(view.Items, 2)
	s.True(decimal.NewFromInt(115).Equal(view.Total), "25 x 3 + 40")

	s.Equal(KindNotFound, KindOf(s.carts.Remove(s.ctx, "seller", item.ID)), "only the owner's lines")
	s.Equal(KindValidation, KindOf(s.carts.SetQuantity(s.ctx, "buyer", item.ID, 0)))
	s.Require().NoError(s.carts.SetQuantity(s.ctx, "buyer", item.ID, 5))

	n, err := s.carts.Clear(s.ctx, "buyer")
	s.Require().NoError(err)
	s.Equal(2, n)
}

func (s *WorkflowSuite) TestWishlistPriceMonitor() {
	wishlist := NewWishlistService(s.store)
	wishlist.now = func() time.Time { return s.now }

	font, err := s.store.Fonts().Get(s.ctx, "font-2")
	s.Require().NoError(err)
	font.Promotion = &entity.Promotion{Kind: entity.PromotionSale, Price: decimal.NewFromInt(20), EndsAt: s.now.Add(24 * time.Hour)}
	s.Require().NoError(s.store.Fonts().Update(s.ctx, font))

	s.Require().NoError(wishlist.Add(s.ctx, "buyer", "font-1"))
	s.Require().NoError(wishlist.Add(s.ctx, "buyer", "font-2"))
	s.Require().NoError(wishlist.Add(s.ctx, "buyer", "font-2"))
	s.Equal(KindNotFound, KindOf(wishlist.Add(s.ctx, "buyer", "missing")))

	fonts, err := wishlist.List(s.ctx, "buyer")
	s.Require().NoError(err)
	s.Len(fonts, 2, "set semantics")

	alerts, err := wishlist.PriceMonitor(s.ctx, "buyer")
	s.Require().NoError(err)
	s.Require().Len(alerts, 1)
	s.Equal("font-2", alerts[0].Font.ID)
	s.True(decimal.NewFromInt(20).Equal(alerts[0].EffectivePrice))

	s.Require().NoError(wishlist.Remove(s.ctx, "buyer", "font-2"))
	fonts, err = wishlist.List(s.ctx, "buyer")
	s.Require().NoError(err)
	s.Len(fonts, 1)
}

func (s *WorkflowSuite) TestUpsertProfile() {
	user, err := s.users.UpsertProfile(s.ctx, "newcomer", ProfileInput{Email: "n@example.com", DisplayName: " Newcomer "})
	s.Require().NoError(err)
	s.Equal("Newcomer", user.DisplayName)
	s.Equal(entity.RoleBuyer, user.Role)

	_, err = s.users.UpsertProfile(s.ctx, "newcomer", ProfileInput{DisplayName: "N", Role: entity.RoleAdmin})
	s.Equal(KindValidation, KindOf(err), "admin is never self-assigned")

	user, err = s.users.UpsertProfile(s.ctx, "admin", ProfileInput{DisplayName: "Still Admin", Role: entity.RoleSeller})
	s.Require().NoError(err)
	s.Equal(entity.RoleAdmin, user.Role)

	s.Require().NoError(s.users.SetRole(s.ctx, "newcomer", entity.RoleSeller))
	s.Equal(KindNotFound, KindOf(s.users.SetRole(s.ctx, "ghost", entity.RoleSeller)))
	s.Equal(KindValidation, KindOf(s.users.SetRole(s.ctx, "newcomer", entity.Role("root"))))
}
