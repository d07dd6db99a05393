package handler

import (
	"github.com/gin-gonic/gin"

	appreview "github.com/xiebiao/bookmall/internal/application/review"
	"github.com/xiebiao/bookmall/internal/interface/http/dto"
	"github.com/xiebiao/bookmall/internal/interface/http/middleware"
	"github.com/xiebiao/bookmall/pkg/response"
)

// ReviewHandler 评论HTTP处理器
type ReviewHandler struct {
	create    *appreview.CreateReviewUseCase
	manage    *appreview.ManageReviewUseCase
	list      *appreview.ListReviewsUseCase
	recompute *appreview.RecomputeBookRatingUseCase
}

// NewReviewHandler 创建评论处理器
func NewReviewHandler(
	create *appreview.CreateReviewUseCase,
	manage *appreview.ManageReviewUseCase,
	list *appreview.ListReviewsUseCase,
	recompute *appreview.RecomputeBookRatingUseCase,
) *ReviewHandler {
	return &ReviewHandler{create: create, manage: manage, list: list, recompute: recompute}
}

// ListReviews 图书评论列表
// @Summary      图书评论列表
// @Description  管理员登录时包含已隐藏的评论
// @Tags         评论
// @Produce      json
// @Param        id        path  int true  "图书ID"
// @Param        page      query int false "页码"
// @Param        page_size query int false "每页条数"
// @Success      200 {object} response.Response{data=appreview.ReviewPage}
// @Router       /api/v1/books/{id}/reviews [get]
func (h *ReviewHandler) ListReviews(c *gin.Context) {
	bookID, ok := pathID(c, "id")
	if !ok {
		return
	}
	var q dto.PageQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		bindFailed(c, err)
		return
	}

	page, err := h.list.Execute(c.Request.Context(), middleware.Actor(c), bookID, q.Page, q.PageSize)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, page)
}

// CreateReview 发表评论
// @Summary      发表评论
// @Description  每人每本书一条；买过该书（订单已送达）时标记为已购
// @Tags         评论
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id      path int                     true "图书ID"
// @Param        request body dto.CreateReviewRequest true "评论内容"
// @Success      200 {object} response.Response{data=appreview.ReviewView}
// @Failure      200 {object} response.Response "40006重复评论 / 40402图书不存在"
// @Router       /api/v1/books/{id}/reviews [post]
func (h *ReviewHandler) CreateReview(c *gin.Context) {
	bookID, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req dto.CreateReviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindFailed(c, err)
		return
	}

	view, err := h.create.Execute(c.Request.Context(), appreview.CreateReviewRequest{
		UserID:  middleware.GetUserID(c),
		BookID:  bookID,
		Rating:  req.Rating,
		Title:   req.Title,
		Comment: req.Comment,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, view)
}

// UpdateReview 修改评论(作者或管理员)
// @Summary      修改评论
// @Tags         评论
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id      path int                     true "评论ID"
// @Param        request body dto.UpdateReviewRequest true "评论内容"
// @Success      200 {object} response.Response{data=appreview.ReviewView}
// @Router       /api/v1/reviews/{id} [put]
func (h *ReviewHandler) UpdateReview(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req dto.UpdateReviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindFailed(c, err)
		return
	}

	view, err := h.manage.Update(c.Request.Context(), middleware.Actor(c), appreview.UpdateReviewRequest{
		ReviewID: id,
		Rating:   req.Rating,
		Title:    req.Title,
		Comment:  req.Comment,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, view)
}

// DeleteReview 删除评论(作者或管理员)
// @Summary      删除评论
// @Tags         评论
// @Produce      json
// @Security     BearerAuth
// @Param        id path int true "评论ID"
// @Success      200 {object} response.Response
// @Router       /api/v1/reviews/{id} [delete]
func (h *ReviewHandler) DeleteReview(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	if err := h.manage.Delete(c.Request.Context(), middleware.Actor(c), id); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, nil)
}

// ToggleLike 点赞/取消点赞
// @Summary      点赞评论
// @Tags         评论
// @Produce      json
// @Security     BearerAuth
// @Param        id path int true "评论ID"
// @Success      200 {object} response.Response{data=appreview.LikeView}
// @Router       /api/v1/reviews/{id}/like [post]
func (h *ReviewHandler) ToggleLike(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	view, err := h.manage.ToggleLike(c.Request.Context(), middleware.Actor(c), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, view)
}

// SetVisibility 隐藏/恢复评论(管理员)
// @Summary      评论审核
// @Description  隐藏的评论不计入图书评分
// @Tags         评论管理
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id      path int                         true "评论ID"
// @Param        request body dto.ReviewVisibilityRequest true "是否可见"
// @Success      200 {object} response.Response{data=appreview.ReviewView}
// @Router       /api/v1/reviews/{id}/visibility [patch]
func (h *ReviewHandler) SetVisibility(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req dto.ReviewVisibilityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindFailed(c, err)
		return
	}

	view, err := h.manage.SetVisibility(c.Request.Context(), middleware.Actor(c), id, *req.Active)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, view)
}

// RecomputeRatings 重新计算图书评分(管理员)
// @Summary      重算评分
// @Description  数据修复用：按当前有效评论重新聚合平均分和评论数
// @Tags         评论管理
// @Produce      json
// @Security     BearerAuth
// @Param        id path int true "图书ID"
// @Success      200 {object} response.Response{data=appreview.RatingsView}
// @Router       /api/v1/books/{id}/ratings/recompute [post]
func (h *ReviewHandler) RecomputeRatings(c *gin.Context) {
	bookID, ok := pathID(c, "id")
	if !ok {
		return
	}
	view, err := h.recompute.Execute(c.Request.Context(), bookID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, view)
}
