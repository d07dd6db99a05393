package review

import (
	"strings"
	"time"
	"unicode/utf8"
)

// 评论字段约束
const (
	MinRating        = 1
	MaxRating        = 5
	MaxTitleLength   = 100
	MinCommentLength = 10
	MaxCommentLength = 500
)

// Review 评论实体(聚合根)
// 设计说明:
// 1. 一个用户对一本书只能有一条评论(user_id + book_id 唯一索引)
// 2. IsActive=false的评论被管理员隐藏,不参与评分聚合
// 3. Likes是冗余计数,点赞关系单独存储(review_likes表)
type Review struct {
	ID                 uint
	UserID             uint
	BookID             uint
	Rating             int
	Title              string
	Comment            string
	Likes              int
	IsVerifiedPurchase bool // 用户有包含该书的已送达订单
	IsEdited           bool
	IsActive           bool
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// NewReview 创建评论(工厂方法),字段去除首尾空白后校验
func NewReview(userID, bookID uint, rating int, title, comment string) (*Review, error) {
	title, comment = strings.TrimSpace(title), strings.TrimSpace(comment)
	if err := validate(rating, title, comment); err != nil {
		return nil, err
	}

	now := time.Now()
	return &Review{
		UserID:    userID,
		BookID:    bookID,
		Rating:    rating,
		Title:     title,
		Comment:   comment,
		IsActive:  true,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

// Edit 修改评论内容并标记为已编辑
func (r *Review) Edit(rating int, title, comment string) error {
	title, comment = strings.TrimSpace(title), strings.TrimSpace(comment)
	if err := validate(rating, title, comment); err != nil {
		return err
	}
	r.Rating = rating
	r.Title = title
	r.Comment = comment
	r.IsEdited = true
	r.UpdatedAt = time.Now()
	return nil
}

// SetActive 管理员隐藏/恢复评论
func (r *Review) SetActive(active bool) {
	r.IsActive = active
	r.UpdatedAt = time.Now()
}

// CanModify 评论作者或管理员可以修改、删除
func (r *Review) CanModify(userID uint, isAdmin bool) bool {
	return isAdmin || r.UserID == userID
}

func validate(rating int, title, comment string) error {
	if rating < MinRating || rating > MaxRating {
		return ErrInvalidRating
	}
	if utf8.RuneCountInString(title) > MaxTitleLength {
		return ErrInvalidTitle
	}
	n := utf8.RuneCountInString(comment)
	if n < MinCommentLength || n > MaxCommentLength {
		return ErrInvalidComment
	}
	return nil
}
