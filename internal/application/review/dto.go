package review

import (
	"github.com/xiebiao/bookmall/internal/domain/review"
)

const timeLayout = "2006-01-02 15:04:05"

// ReviewView 评论响应DTO
type ReviewView struct {
	ID                 uint   `json:"id"`
	UserID             uint   `json:"user_id"`
	BookID             uint   `json:"book_id"`
	Rating             int    `json:"rating"`
	Title              string `json:"title,omitempty"`
	Comment            string `json:"comment"`
	Likes              int    `json:"likes"`
	IsVerifiedPurchase bool   `json:"is_verified_purchase"`
	IsEdited           bool   `json:"is_edited"`
	IsActive           bool   `json:"is_active"`
	CreatedAt          string `json:"created_at"`
	UpdatedAt          string `json:"updated_at"`
}

// ReviewPage 评论分页结果
type ReviewPage struct {
	List     []*ReviewView `json:"list"`
	Total    int64         `json:"total"`
	Page     int           `json:"page"`
	PageSize int           `json:"page_size"`
}

// LikeView 点赞结果
type LikeView struct {
	Liked bool `json:"liked"`
	Likes int  `json:"likes"`
}

func newReviewView(r *review.Review) *ReviewView {
	return &ReviewView{
		ID:                 r.ID,
		UserID:             r.UserID,
		BookID:             r.BookID,
		Rating:             r.Rating,
		Title:              r.Title,
		Comment:            r.Comment,
		Likes:              r.Likes,
		IsVerifiedPurchase: r.IsVerifiedPurchase,
		IsEdited:           r.IsEdited,
		IsActive:           r.IsActive,
		CreatedAt:          r.CreatedAt.Format(timeLayout),
		UpdatedAt:          r.UpdatedAt.Format(timeLayout),
	}
}
