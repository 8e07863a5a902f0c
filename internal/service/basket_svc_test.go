package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"marketplace_v1_202610/internal/api/dto"
	"marketplace_v1_202610/internal/apperr"
	"marketplace_v1_202610/internal/model"
)

func qty(n int) *int { return &n }

func TestBasket_TotalAndUpsert(t *testing.T) {
	f := newOrderFixture(t)
	ctx := context.Background()
	buyer := createUser(t, f.db, "buyer", model.UserTypeClient)
	shopA := createShop(t, f.db, "A", nil)
	shopB := createShop(t, f.db, "B", nil)
	l1 := createListing(t, f.db, shopA, 1, 100)
	l2 := createListing(t, f.db, shopB, 2, 50)

	basket, err := f.basket.GetBasket(ctx, buyer.ID)
	require.NoError(t, err)
	assert.Equal(t, model.OrderStatusInProcess, basket.Status)
	assert.EqualValues(t, 0, basket.Total, "空购物车金额为 0")

	_, err = f.basket.SetLineItem(ctx, buyer.ID, &dto.SetItemRequest{ListingID: l1.ID, ShopID: shopA.ID, Quantity: qty(2)})
	require.NoError(t, err)
	info, err := f.basket.SetLineItem(ctx, buyer.ID, &dto.SetItemRequest{ListingID: l2.ID, ShopID: shopB.ID, Quantity: qty(1)})
	require.NoError(t, err)
	assert.EqualValues(t, 250, info.Total)
	require.Len(t, info.Items, 2)

	// 同一报价再次设置时原地更新
	info, err = f.basket.SetLineItem(ctx, buyer.ID, &dto.SetItemRequest{ListingID: l1.ID, ShopID: shopA.ID, Quantity: qty(3)})
	require.NoError(t, err)
	require.Len(t, info.Items, 2)
	assert.EqualValues(t, 350, info.Total)

	// 数量 0 移除
	info, err = f.basket.SetLineItem(ctx, buyer.ID, &dto.SetItemRequest{ListingID: l2.ID, ShopID: shopB.ID, Quantity: qty(0)})
	require.NoError(t, err)
	require.Len(t, info.Items, 1)
	assert.EqualValues(t, 300, info.Total)

	// 始终只有一个购物车
	var baskets int64
	f.db.Model(&model.Order{}).Where("user_id = ? AND status = ?", buyer.ID, model.OrderStatusInProcess).Count(&baskets)
	assert.EqualValues(t, 1, baskets)

	total, err := f.basket.ComputeTotal(ctx, info.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 300, total)
}

func TestBasket_SetLineItemRejects(t *testing.T) {
	f := newOrderFixture(t)
	ctx := context.Background()
	buyer := createUser(t, f.db, "buyer", model.UserTypeClient)
	shopA := createShop(t, f.db, "A", nil)
	shopB := createShop(t, f.db, "B", nil)
	l1 := createListing(t, f.db, shopA, 1, 100)

	tests := []struct {
		name string
		req  *dto.SetItemRequest
		kind apperr.Kind
	}{
		{"店铺不一致", &dto.SetItemRequest{ListingID: l1.ID, ShopID: shopB.ID, Quantity: qty(1)}, apperr.KindValidation},
		{"报价不存在", &dto.SetItemRequest{ListingID: 9999, ShopID: shopA.ID, Quantity: qty(1)}, apperr.KindNotFound},
		{"数量为负", &dto.SetItemRequest{ListingID: l1.ID, ShopID: shopA.ID, Quantity: qty(-1)}, apperr.KindValidation},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.basket.SetLineItem(ctx, buyer.ID, tt.req)
			require.Error(t, err)
			assert.Equal(t, tt.kind, apperr.KindOf(err))
		})
	}

	// 停止接单的店铺不能加购
	require.NoError(t, f.db.Model(&model.Shop{}).Where("id = ?", shopA.ID).Update("accepting_orders", false).Error)
	_, err := f.basket.SetLineItem(ctx, buyer.ID, &dto.SetItemRequest{ListingID: l1.ID, ShopID: shopA.ID, Quantity: qty(1)})
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))

	// 软删除的报价不能加购
	require.NoError(t, f.db.Delete(&model.ProductListing{}, l1.ID).Error)
	_, err = f.basket.SetLineItem(ctx, buyer.ID, &dto.SetItemRequest{ListingID: l1.ID, ShopID: shopA.ID, Quantity: qty(1)})
	assert.True(t, errors.Is(err, ErrListingNotFound))
}

func TestBasket_RemoveLineItem(t *testing.T) {
	f := newOrderFixture(t)
	ctx := context.Background()
	buyer := createUser(t, f.db, "buyer", model.UserTypeClient)
	other := createUser(t, f.db, "other", model.UserTypeClient)
	shop := createShop(t, f.db, "A", nil)
	l1 := createListing(t, f.db, shop, 1, 100)

	info, err := f.basket.SetLineItem(ctx, buyer.ID, &dto.SetItemRequest{ListingID: l1.ID, ShopID: shop.ID, Quantity: qty(1)})
	require.NoError(t, err)
	itemID := info.Items[0].ID

	// 其他用户不能删除
	_, err = f.basket.GetBasket(ctx, other.ID)
	require.NoError(t, err)
	_, err = f.basket.RemoveLineItem(ctx, other.ID, itemID)
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))

	info, err = f.basket.RemoveLineItem(ctx, buyer.ID, itemID)
	require.NoError(t, err)
	assert.Empty(t, info.Items)
	assert.EqualValues(t, 0, info.Total)

	_, err = f.basket.RemoveLineItem(ctx, buyer.ID, itemID)
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))
}

func TestBasket_TotalKeepsRemovedListingPrice(t *testing.T) {
	f := newOrderFixture(t)
	ctx := context.Background()
	buyer := createUser(t, f.db, "buyer", model.UserTypeClient)
	shop := createShop(t, f.db, "A", nil)
	l1 := createListing(t, f.db, shop, 1, 120)

	info, err := f.basket.SetLineItem(ctx, buyer.ID, &dto.SetItemRequest{ListingID: l1.ID, ShopID: shop.ID, Quantity: qty(2)})
	require.NoError(t, err)

	require.NoError(t, f.db.Delete(&model.ProductListing{}, l1.ID).Error)

	view, err := f.basket.GetBasket(ctx, buyer.ID)
	require.NoError(t, err)
	assert.Equal(t, info.ID, view.ID)
	assert.EqualValues(t, 240, view.Total)
	require.Len(t, view.Items, 1)
	assert.False(t, view.Items[0].Available)
}
