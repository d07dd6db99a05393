package dto

// PublishBookRequest HTTP上架请求
// validator tag说明:
// - required: 必填字段
// - min/max: 数值范围校验
// - ltefield: 折扣价不能高于原价(0表示无折扣,omitempty跳过)
type PublishBookRequest struct {
	ISBN          string `json:"isbn" binding:"required" example:"9787115428028"`
	Title         string `json:"title" binding:"required,max=200" example:"Go语言实战"`
	Author        string `json:"author" binding:"required,max=100" example:"威廉·肯尼迪"`
	Publisher     string `json:"publisher" binding:"required,max=100" example:"人民邮电出版社"`
	Price         int64  `json:"price" binding:"required,min=1,max=999999" example:"5900"` // 价格(分),59.00元
	DiscountPrice int64  `json:"discount_price" binding:"omitempty,min=1,ltefield=Price" example:"4900"`
	Stock         int    `json:"stock" binding:"min=0" example:"100"`
	CoverURL      string `json:"cover_url" binding:"omitempty,url,max=500" example:"https://example.com/cover.jpg"`
	Description   string `json:"description" binding:"max=5000" example:"这是一本关于Go语言的实战书籍"`
}

// UpdatePriceRequest 调价请求,discount_price为0表示取消折扣
type UpdatePriceRequest struct {
	Price         int64 `json:"price" binding:"required,min=1,max=999999" example:"5900"`
	DiscountPrice int64 `json:"discount_price" binding:"omitempty,min=1,ltefield=Price" example:"4900"`
}

// UpdateBookInfoRequest 修改图书信息,未传的字段保持不变
type UpdateBookInfoRequest struct {
	Title       string `json:"title" binding:"max=200" example:"Go语言实战(第2版)"`
	Author      string `json:"author" binding:"max=100" example:"威廉·肯尼迪"`
	Publisher   string `json:"publisher" binding:"max=100" example:"人民邮电出版社"`
	Description string `json:"description" binding:"max=5000"`
}

// ListBooksRequest HTTP图书列表请求
type ListBooksRequest struct {
	Page     int    `form:"page" binding:"omitempty,min=1" example:"1"`
	PageSize int    `form:"page_size" binding:"omitempty,min=1,max=100" example:"20"`
	Keyword  string `form:"keyword" binding:"omitempty,max=100" example:"Go"`
	SortBy   string `form:"sort_by" binding:"omitempty,oneof=price_asc price_desc rating_desc created_at_desc" example:"created_at_desc"`
}

// PageQuery 通用分页参数
type PageQuery struct {
	Page     int `form:"page" binding:"omitempty,min=1" example:"1"`
	PageSize int `form:"page_size" binding:"omitempty,min=1,max=100" example:"20"`
}
