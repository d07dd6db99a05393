package dto

// CreateReviewRequest 发表评论
type CreateReviewRequest struct {
	Rating  int    `json:"rating" binding:"required,min=1,max=5" example:"5"`
	Title   string `json:"title" binding:"max=100" example:"值得一读"`
	Comment string `json:"comment" binding:"required,min=10,max=500" example:"讲解清晰,例子实用,适合入门"`
}

// UpdateReviewRequest 修改评论
type UpdateReviewRequest = CreateReviewRequest

// ReviewVisibilityRequest 管理员隐藏/恢复评论
// 用指针区分"未传"和false
type ReviewVisibilityRequest struct {
	Active *bool `json:"active" binding:"required" example:"false"`
}
