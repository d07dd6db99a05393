package handler

import (
	"github.com/gin-gonic/gin"

	appbook "github.com/xiebiao/bookmall/internal/application/book"
	"github.com/xiebiao/bookmall/internal/interface/http/dto"
	"github.com/xiebiao/bookmall/internal/interface/http/middleware"
	"github.com/xiebiao/bookmall/pkg/response"
)

// BookHandler 图书HTTP处理器
type BookHandler struct {
	publishBook *appbook.PublishBookUseCase
	getBook     *appbook.GetBookUseCase
	listBooks   *appbook.ListBooksUseCase
	updatePrice *appbook.UpdatePriceUseCase
	manageBook  *appbook.ManageBookUseCase
}

// NewBookHandler 创建图书处理器
func NewBookHandler(
	publishBook *appbook.PublishBookUseCase,
	getBook *appbook.GetBookUseCase,
	listBooks *appbook.ListBooksUseCase,
	updatePrice *appbook.UpdatePriceUseCase,
	manageBook *appbook.ManageBookUseCase,
) *BookHandler {
	return &BookHandler{
		publishBook: publishBook,
		getBook:     getBook,
		listBooks:   listBooks,
		updatePrice: updatePrice,
		manageBook:  manageBook,
	}
}

// PublishBook 发布图书(上架)
// @Summary      发布图书
// @Description  会员发布图书商品上架，可设置折扣价
// @Tags         图书
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request body dto.PublishBookRequest true "图书信息"
// @Success      200 {object} response.Response{data=appbook.BookView}
// @Failure      200 {object} response.Response "40900参数错误 / 40004 ISBN已存在"
// @Router       /api/v1/books [post]
func (h *BookHandler) PublishBook(c *gin.Context) {
	var req dto.PublishBookRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindFailed(c, err)
		return
	}

	view, err := h.publishBook.Execute(c.Request.Context(), appbook.PublishBookRequest{
		ISBN:          req.ISBN,
		Title:         req.Title,
		Author:        req.Author,
		Publisher:     req.Publisher,
		Price:         req.Price,
		DiscountPrice: req.DiscountPrice,
		Stock:         req.Stock,
		CoverURL:      req.CoverURL,
		Description:   req.Description,
		PublisherID:   middleware.GetUserID(c),
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, view)
}

// GetBook 图书详情
// @Summary      图书详情
// @Tags         图书
// @Produce      json
// @Param        id path int true "图书ID"
// @Success      200 {object} response.Response{data=appbook.BookView}
// @Router       /api/v1/books/{id} [get]
func (h *BookHandler) GetBook(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	view, err := h.getBook.Execute(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, view)
}

// ListBooks 图书列表
// @Summary      图书列表
// @Description  支持关键字搜索，按价格、评分、上架时间排序
// @Tags         图书
// @Produce      json
// @Param        page      query int    false "页码"
// @Param        page_size query int    false "每页条数"
// @Param        keyword   query string false "关键字"
// @Param        sort_by   query string false "price_asc | price_desc | rating_desc | created_at_desc"
// @Success      200 {object} response.Response{data=appbook.ListBooksResponse}
// @Router       /api/v1/books [get]
func (h *BookHandler) ListBooks(c *gin.Context) {
	var req dto.ListBooksRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		bindFailed(c, err)
		return
	}

	result, err := h.listBooks.Execute(c.Request.Context(), appbook.ListBooksRequest{
		Page:     req.Page,
		PageSize: req.PageSize,
		Keyword:  req.Keyword,
		SortBy:   req.SortBy,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, result)
}

// UpdatePrice 调整价格(仅发布者)
// @Summary      调整价格
// @Description  调价不影响已下单订单中的价格快照
// @Tags         图书
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id      path int                    true "图书ID"
// @Param        request body dto.UpdatePriceRequest true "新价格"
// @Success      200 {object} response.Response{data=appbook.BookView}
// @Router       /api/v1/books/{id}/price [put]
func (h *BookHandler) UpdatePrice(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req dto.UpdatePriceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindFailed(c, err)
		return
	}

	view, err := h.updatePrice.Execute(c.Request.Context(), appbook.UpdatePriceRequest{
		BookID:        id,
		UserID:        middleware.GetUserID(c),
		Price:         req.Price,
		DiscountPrice: req.DiscountPrice,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, view)
}

// UpdateInfo 修改图书信息(仅发布者)
// @Summary      修改图书信息
// @Tags         图书
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id      path int                       true "图书ID"
// @Param        request body dto.UpdateBookInfoRequest true "图书信息"
// @Success      200 {object} response.Response{data=appbook.BookView}
// @Router       /api/v1/books/{id} [put]
func (h *BookHandler) UpdateInfo(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req dto.UpdateBookInfoRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindFailed(c, err)
		return
	}

	view, err := h.manageBook.UpdateInfo(c.Request.Context(), appbook.UpdateInfoRequest{
		BookID:      id,
		UserID:      middleware.GetUserID(c),
		Title:       req.Title,
		Author:      req.Author,
		Publisher:   req.Publisher,
		Description: req.Description,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, view)
}

// DeleteBook 下架图书(仅发布者)
// @Summary      下架图书
// @Tags         图书
// @Produce      json
// @Security     BearerAuth
// @Param        id path int true "图书ID"
// @Success      200 {object} response.Response
// @Router       /api/v1/books/{id} [delete]
func (h *BookHandler) DeleteBook(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	if err := h.manageBook.Delete(c.Request.Context(), id, middleware.GetUserID(c)); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, nil)
}
