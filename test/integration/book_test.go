//go:build integration

package integration

import (
	"fmt"
	"net/http"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appbook "github.com/xiebiao/bookmall/internal/application/book"
	apperrors "github.com/xiebiao/bookmall/pkg/errors"
)

// 教学说明：图书模块集成测试
// 价格统一以"分"为单位，8900表示89.00元

func TestBookPublish(t *testing.T) {
	_, token := RegisterTestUser(t, "book_publisher")

	t.Run("正常上架图书", func(t *testing.T) {
		book := PublishTestBook(t, token, "《Go语言实战》", 8900, 7900, 100)

		assert.NotZero(t, book.ID)
		assert.Equal(t, int64(8900), book.Price)
		assert.Equal(t, "89.00", book.PriceYuan)
		assert.Equal(t, int64(7900), book.EffectivePrice)
		assert.Equal(t, 100, book.Stock)
		assert.Zero(t, book.RatingCount)
	})

	t.Run("未登录不能上架", func(t *testing.T) {
		resp := PostJSON(t, BaseURL+"/books", map[string]interface{}{
			"isbn": GenerateTestISBN(), "title": "匿名图书", "author": "作者", "publisher": "出版社",
			"price": 1000, "stock": 1,
		}, "")
		assert.Equal(t, apperrors.ErrCodeUnauthorized, resp.Code)
	})

	t.Run("ISBN重复应失败", func(t *testing.T) {
		first := PublishTestBook(t, token, "《原书》", 5000, 0, 1)
		resp := PostJSON(t, BaseURL+"/books", map[string]interface{}{
			"isbn": first.ISBN, "title": "《盗版》", "author": "作者", "publisher": "出版社",
			"price": 5000, "stock": 1,
		}, token)
		assert.Equal(t, apperrors.ErrCodeISBNDuplicate, resp.Code)
	})

	t.Run("ISBN格式错误应失败", func(t *testing.T) {
		resp := PostJSON(t, BaseURL+"/books", map[string]interface{}{
			"isbn": "978-ABC", "title": "《坏ISBN》", "author": "作者", "publisher": "出版社",
			"price": 5000, "stock": 1,
		}, token)
		assert.Equal(t, apperrors.ErrCodeInvalidParams, resp.Code)
	})

	t.Run("价格范围验证", func(t *testing.T) {
		for _, price := range []int64{0, 1000000} {
			resp := PostJSON(t, BaseURL+"/books", map[string]interface{}{
				"isbn": GenerateTestISBN(), "title": "《价格》", "author": "作者", "publisher": "出版社",
				"price": price, "stock": 1,
			}, token)
			assert.Equal(t, apperrors.ErrCodeInvalidParams, resp.Code, "price=%d", price)
		}
	})

	t.Run("折扣价不能高于原价", func(t *testing.T) {
		resp := PostJSON(t, BaseURL+"/books", map[string]interface{}{
			"isbn": GenerateTestISBN(), "title": "《折扣》", "author": "作者", "publisher": "出版社",
			"price": 1000, "discount_price": 1200, "stock": 1,
		}, token)
		assert.Equal(t, apperrors.ErrCodeInvalidParams, resp.Code)
	})

	t.Run("库存不能为负", func(t *testing.T) {
		resp := PostJSON(t, BaseURL+"/books", map[string]interface{}{
			"isbn": GenerateTestISBN(), "title": "《负库存》", "author": "作者", "publisher": "出版社",
			"price": 1000, "stock": -1,
		}, token)
		assert.Equal(t, apperrors.ErrCodeInvalidParams, resp.Code)
	})
}

func TestBookList(t *testing.T) {
	_, token := RegisterTestUser(t, "book_lister")

	// 关键词唯一，避免和其他测试的数据混在一起
	keyword := fmt.Sprintf("列表测试%d", seq.Add(1))
	cheap := PublishTestBook(t, token, keyword+"《便宜》", 1000, 0, 10)
	mid := PublishTestBook(t, token, keyword+"《中等》", 3000, 0, 10)
	dear := PublishTestBook(t, token, keyword+"《昂贵》", 9000, 0, 10)

	list := func(t *testing.T, query url.Values) appbook.ListBooksResponse {
		t.Helper()
		query.Set("keyword", keyword)
		var data appbook.ListBooksResponse
		MustData(t, GetJSON(t, BaseURL+"/books?"+query.Encode(), ""), &data)
		return data
	}

	t.Run("关键词搜索", func(t *testing.T) {
		data := list(t, url.Values{})
		assert.Equal(t, int64(3), data.Total)
		assert.Len(t, data.List, 3)
		for _, b := range data.List {
			assert.Empty(t, b.Description, "列表不返回描述")
		}
	})

	t.Run("价格升序排序", func(t *testing.T) {
		data := list(t, url.Values{"sort_by": {"price_asc"}})
		require.Len(t, data.List, 3)
		assert.Equal(t, []uint{cheap.ID, mid.ID, dear.ID}, ids(data.List))
	})

	t.Run("价格降序排序", func(t *testing.T) {
		data := list(t, url.Values{"sort_by": {"price_desc"}})
		require.Len(t, data.List, 3)
		assert.Equal(t, []uint{dear.ID, mid.ID, cheap.ID}, ids(data.List))
	})

	t.Run("分页查询", func(t *testing.T) {
		data := list(t, url.Values{"sort_by": {"price_asc"}, "page": {"2"}, "page_size": {"2"}})
		assert.Equal(t, int64(3), data.Total)
		assert.Equal(t, 2, data.TotalPages)
		require.Len(t, data.List, 1)
		assert.Equal(t, dear.ID, data.List[0].ID)
	})

	t.Run("非法排序参数", func(t *testing.T) {
		resp := GetJSON(t, BaseURL+"/books?sort_by=random", "")
		assert.Equal(t, apperrors.ErrCodeInvalidParams, resp.Code)
	})

	t.Run("公开接口无需认证", func(t *testing.T) {
		var view appbook.BookView
		MustData(t, GetJSON(t, fmt.Sprintf("%s/books/%d", BaseURL, mid.ID), ""), &view)
		assert.Equal(t, "集成测试用图书", view.Description)
	})

	t.Run("图书不存在", func(t *testing.T) {
		resp := GetJSON(t, BaseURL+"/books/999999", "")
		assert.Equal(t, apperrors.ErrCodeBookNotFound, resp.Code)
	})
}

func TestBookPricing(t *testing.T) {
	_, owner := RegisterTestUser(t, "price_owner")
	_, other := RegisterTestUser(t, "price_other")
	book := PublishTestBook(t, owner, "《调价》", 5000, 0, 10)
	path := fmt.Sprintf("%s/books/%d/price", BaseURL, book.ID)

	var view appbook.BookView
	MustData(t, DoJSON(t, http.MethodPut, path, map[string]int64{"price": 4000, "discount_price": 3500}, owner), &view)
	assert.Equal(t, int64(4000), view.Price)
	assert.Equal(t, int64(3500), view.EffectivePrice)
	assert.Equal(t, "35.00", view.EffectivePriceYuan)

	resp := DoJSON(t, http.MethodPut, path, map[string]int64{"price": 1}, other)
	assert.Equal(t, apperrors.ErrCodeForbidden, resp.Code)

	// 调价后下单按新的实际售价计算
	placed := PlaceOrder(t, owner, OrderItem{BookID: book.ID, Quantity: 2})
	assert.Equal(t, int64(7000), placed.Total)
}

func ids(books []*appbook.BookView) []uint {
	out := make([]uint, 0, len(books))
	for _, b := range books {
		out = append(out, b.ID)
	}
	return out
}
