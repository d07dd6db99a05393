package book

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRatings(t *testing.T) {
	tests := []struct {
		name    string
		ratings []int64
		want    Ratings
	}{
		{name: "无评论归零", ratings: nil, want: Ratings{}},
		{name: "5/3/4", ratings: []int64{5, 3, 4}, want: Ratings{Average: 4.0, Count: 3}},
		{name: "删除3分后", ratings: []int64{5, 4}, want: Ratings{Average: 4.5, Count: 2}},
		{name: "循环小数", ratings: []int64{5, 4, 4}, want: Ratings{Average: 4.3, Count: 3}},
		{name: "恰好一半向上取整", ratings: []int64{5, 4, 4, 4}, want: Ratings{Average: 4.3, Count: 4}},
		{name: "单条", ratings: []int64{1}, want: Ratings{Average: 1, Count: 1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var sum int64
			for _, r := range tt.ratings {
				sum += r
			}
			assert.Equal(t, tt.want, NewRatings(sum, len(tt.ratings)))
		})
	}
}

func TestBook_EffectivePrice(t *testing.T) {
	b := NewBook("9787115428028", "Go语言实战", "William", "人民邮电", 1000, 800, 5, "", "", 1)
	assert.Equal(t, int64(800), b.EffectivePrice())
	assert.True(t, b.HasDiscount())

	b.DiscountPrice = 0
	assert.Equal(t, int64(1000), b.EffectivePrice())
	assert.False(t, b.HasDiscount())
}

func TestBook_UpdatePricing(t *testing.T) {
	tests := []struct {
		name     string
		price    int64
		discount int64
		wantErr  error
	}{
		{name: "设置折扣", price: 1000, discount: 800},
		{name: "取消折扣", price: 1000, discount: 0},
		{name: "折扣等于原价", price: 1000, discount: 1000},
		{name: "折扣高于原价", price: 1000, discount: 1200, wantErr: ErrInvalidDiscount},
		{name: "负折扣", price: 1000, discount: -1, wantErr: ErrInvalidDiscount},
		{name: "价格为0", price: 0, discount: 0, wantErr: ErrInvalidPrice},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := NewBook("9787115428028", "Go", "A", "P", 500, 0, 1, "", "", 1)
			err := b.UpdatePricing(tt.price, tt.discount)
			if tt.wantErr != nil {
				assert.Same(t, tt.wantErr, err)
				assert.Equal(t, int64(500), b.Price, "校验失败时不修改价格")
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.price, b.Price)
			assert.Equal(t, tt.discount, b.DiscountPrice)
		})
	}
}

func TestBook_Stock(t *testing.T) {
	b := NewBook("9787115428028", "Go", "A", "P", 500, 0, 3, "", "", 1)

	require.NoError(t, b.DecrStock(2))
	assert.Equal(t, 1, b.Stock)

	assert.ErrorIs(t, b.DecrStock(2), ErrInsufficientStock)
	assert.Equal(t, 1, b.Stock)
	assert.Same(t, ErrInvalidQuantity, b.DecrStock(0))

	require.NoError(t, b.IncrStock(4))
	assert.Equal(t, 5, b.Stock)
	assert.Same(t, ErrInvalidQuantity, b.IncrStock(-1))
}
