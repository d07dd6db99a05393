//go:build integration

package integration

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appbook "github.com/xiebiao/bookmall/internal/application/book"
	appreview "github.com/xiebiao/bookmall/internal/application/review"
	apperrors "github.com/xiebiao/bookmall/pkg/errors"
)

func postReview(t *testing.T, token string, bookID uint, rating int) *appreview.ReviewView {
	t.Helper()
	var view appreview.ReviewView
	MustData(t, PostJSON(t, fmt.Sprintf("%s/books/%d/reviews", BaseURL, bookID), map[string]interface{}{
		"rating":  rating,
		"title":   "读后感",
		"comment": "内容扎实，例子很多，推荐给同事。",
	}, token), &view)
	return &view
}

func bookRating(t *testing.T, bookID uint) (float64, int) {
	t.Helper()
	var view appbook.BookView
	MustData(t, GetJSON(t, fmt.Sprintf("%s/books/%d", BaseURL, bookID), ""), &view)
	return view.RatingAverage, view.RatingCount
}

// TestReviewRating 评分汇总随评论增删实时重算
func TestReviewRating(t *testing.T) {
	_, seller := RegisterTestUser(t, "review_seller")
	book := PublishTestBook(t, seller, "《评分》", 4900, 0, 10)

	avg, count := bookRating(t, book.ID)
	assert.Equal(t, 0.0, avg)
	assert.Equal(t, 0, count)

	tokens := make(map[int]string)
	reviews := make(map[int]*appreview.ReviewView)
	for _, rating := range []int{5, 3, 4} {
		_, token := RegisterTestUser(t, fmt.Sprintf("reviewer_%d", rating))
		tokens[rating] = token
		reviews[rating] = postReview(t, token, book.ID, rating)
	}

	avg, count = bookRating(t, book.ID)
	assert.Equal(t, 4.0, avg)
	assert.Equal(t, 3, count)

	t.Run("同一用户不能重复评论", func(t *testing.T) {
		resp := PostJSON(t, fmt.Sprintf("%s/books/%d/reviews", BaseURL, book.ID), map[string]interface{}{
			"rating":  1,
			"comment": "第二次评论应该被拒绝的内容。",
		}, tokens[5])
		assert.Equal(t, apperrors.ErrCodeReviewDuplicate, resp.Code)
	})

	t.Run("别人不能删除", func(t *testing.T) {
		resp := DoJSON(t, "DELETE", fmt.Sprintf("%s/reviews/%d", BaseURL, reviews[3].ID), nil, tokens[5])
		assert.Equal(t, apperrors.ErrCodeForbidden, resp.Code)
	})

	t.Run("删除后重算", func(t *testing.T) {
		MustData(t, DoJSON(t, "DELETE", fmt.Sprintf("%s/reviews/%d", BaseURL, reviews[3].ID), nil, tokens[3]), nil)

		avg, count := bookRating(t, book.ID)
		assert.Equal(t, 4.5, avg)
		assert.Equal(t, 2, count)
	})

	t.Run("隐藏全部评论后归零", func(t *testing.T) {
		admin := AdminToken(t)
		for _, rating := range []int{5, 4} {
			path := fmt.Sprintf("%s/reviews/%d/visibility", BaseURL, reviews[rating].ID)
			MustData(t, DoJSON(t, "PATCH", path, map[string]bool{"active": false}, admin), nil)
		}

		avg, count := bookRating(t, book.ID)
		assert.Equal(t, 0.0, avg)
		assert.Equal(t, 0, count)

		var page appreview.ReviewPage
		MustData(t, GetJSON(t, fmt.Sprintf("%s/books/%d/reviews", BaseURL, book.ID), ""), &page)
		assert.Empty(t, page.List)
	})
}

// TestReviewVerifiedPurchase 已送达订单中包含该书的评论标记为已购
func TestReviewVerifiedPurchase(t *testing.T) {
	_, seller := RegisterTestUser(t, "verified_seller")
	_, buyer := RegisterTestUser(t, "verified_buyer")
	_, browser := RegisterTestUser(t, "verified_browser")
	admin := AdminToken(t)

	book := PublishTestBook(t, seller, "《已购》", 3000, 0, 5)
	placed := PlaceOrder(t, buyer, OrderItem{BookID: book.ID, Quantity: 1})
	MustData(t, SetOrderStatus(t, admin, placed.ID, "delivered"), nil)

	assert.True(t, postReview(t, buyer, book.ID, 5).IsVerifiedPurchase)
	assert.False(t, postReview(t, browser, book.ID, 2).IsVerifiedPurchase)

	t.Run("点赞切换", func(t *testing.T) {
		var page appreview.ReviewPage
		MustData(t, GetJSON(t, fmt.Sprintf("%s/books/%d/reviews", BaseURL, book.ID), ""), &page)
		require.Len(t, page.List, 2)

		path := fmt.Sprintf("%s/reviews/%d/like", BaseURL, page.List[0].ID)
		var like appreview.LikeView
		MustData(t, PostJSON(t, path, nil, browser), &like)
		assert.True(t, like.Liked)
		assert.Equal(t, 1, like.Likes)

		MustData(t, PostJSON(t, path, nil, browser), &like)
		assert.False(t, like.Liked)
		assert.Equal(t, 0, like.Likes)
	})
}
