package mysql

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/xiebiao/bookmall/internal/domain/book"
)

// bookRepository 图书仓储实现
// 设计说明:
// 1. 实现domain/book/repository.go定义的接口
// 2. 负责domain实体与GORM模型之间的转换
// 3. 库存只通过条件UPDATE修改,不存在"先读后写"的窗口
type bookRepository struct {
	db *gorm.DB
}

// NewBookRepository 创建图书仓储
func NewBookRepository(db *gorm.DB) book.Repository {
	return &bookRepository{db: db}
}

func (r *bookRepository) Create(ctx context.Context, b *book.Book) error {
	model := toBookModel(b)

	if err := dbFrom(ctx, r.db).Create(model).Error; err != nil {
		if isDuplicateError(err) {
			return book.ErrISBNDuplicate
		}
		return dbError(err, "创建图书失败")
	}

	b.ID = model.ID
	b.CreatedAt = model.CreatedAt
	b.UpdatedAt = model.UpdatedAt
	return nil
}

func (r *bookRepository) FindByID(ctx context.Context, id uint) (*book.Book, error) {
	var model BookModel
	if err := dbFrom(ctx, r.db).First(&model, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, book.ErrBookNotFound
		}
		return nil, dbError(err, "查询图书失败")
	}
	return toBookEntity(&model), nil
}

// FindByIDs 一次查询取回下单涉及的全部图书
func (r *bookRepository) FindByIDs(ctx context.Context, ids []uint) (map[uint]*book.Book, error) {
	result := make(map[uint]*book.Book, len(ids))
	if len(ids) == 0 {
		return result, nil
	}

	var models []BookModel
	if err := dbFrom(ctx, r.db).Where("id IN ?", ids).Find(&models).Error; err != nil {
		return nil, dbError(err, "批量查询图书失败")
	}
	for i := range models {
		result[models[i].ID] = toBookEntity(&models[i])
	}
	return result, nil
}

func (r *bookRepository) FindByISBN(ctx context.Context, isbn string) (*book.Book, error) {
	var model BookModel
	if err := dbFrom(ctx, r.db).Where("isbn = ?", isbn).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, book.ErrBookNotFound
		}
		return nil, dbError(err, "查询图书失败")
	}
	return toBookEntity(&model), nil
}

// Update 更新图书信息
// 教学要点:用Select显式列出可更新的列,stock和评分不会被旧快照覆盖
func (r *bookRepository) Update(ctx context.Context, b *book.Book) error {
	model := toBookModel(b)
	result := dbFrom(ctx, r.db).Model(&BookModel{ID: b.ID}).
		Select("title", "author", "publisher", "price", "discount_price", "cover_url", "description", "updated_at").
		Updates(model)
	if result.Error != nil {
		return dbError(result.Error, "更新图书失败")
	}

	b.UpdatedAt = model.UpdatedAt
	return nil
}

// Delete 删除图书(软删除)
func (r *bookRepository) Delete(ctx context.Context, id uint) error {
	result := dbFrom(ctx, r.db).Delete(&BookModel{}, id)
	if result.Error != nil {
		return dbError(result.Error, "删除图书失败")
	}
	if result.RowsAffected == 0 {
		return book.ErrBookNotFound
	}
	return nil
}

// List 分页查询图书列表
func (r *bookRepository) List(ctx context.Context, params book.ListParams) ([]*book.Book, int64, error) {
	var models []BookModel
	var total int64

	query := dbFrom(ctx, r.db).Model(&BookModel{})

	// 关键词搜索(标题、作者、出版社)
	if params.Keyword != "" {
		keyword := "%" + params.Keyword + "%"
		query = query.Where("title LIKE ? OR author LIKE ? OR publisher LIKE ?", keyword, keyword, keyword)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, dbError(err, "查询图书总数失败")
	}

	switch params.SortBy {
	case "price_asc":
		query = query.Order("price ASC")
	case "price_desc":
		query = query.Order("price DESC")
	case "rating_desc":
		query = query.Order("rating_average DESC").Order("rating_count DESC")
	default:
		query = query.Order("created_at DESC")
	}
	query = query.Order("id DESC")

	offset, limit := normalizePage(params.Page, params.PageSize)
	if err := query.Limit(limit).Offset(offset).Find(&models).Error; err != nil {
		return nil, 0, dbError(err, "查询图书列表失败")
	}

	books := make([]*book.Book, len(models))
	for i := range models {
		books[i] = toBookEntity(&models[i])
	}
	return books, total, nil
}

// DecrementStock 原子条件扣减库存
//
//	UPDATE books SET stock = stock - ? WHERE id = ? AND stock >= ? AND deleted_at IS NULL
//
// 教学要点:
// 1. 判断和扣减在同一条SQL里完成,并发下库存不会变成负数,也不会超卖
// 2. 影响行数为0时再查一次区分"不存在"和"库存不足"
func (r *bookRepository) DecrementStock(ctx context.Context, id uint, quantity int) error {
	if quantity <= 0 {
		return book.ErrInvalidQuantity
	}

	db := dbFrom(ctx, r.db)
	result := db.Model(&BookModel{}).
		Where("id = ? AND stock >= ?", id, quantity).
		Update("stock", gorm.Expr("stock - ?", quantity))
	if result.Error != nil {
		return dbError(result.Error, "扣减库存失败")
	}
	if result.RowsAffected > 0 {
		return nil
	}

	var count int64
	if err := db.Model(&BookModel{}).Where("id = ?", id).Count(&count).Error; err != nil {
		return dbError(err, "查询图书失败")
	}
	if count == 0 {
		return book.ErrBookNotFound
	}
	return book.ErrInsufficientStock
}

// IncrementStock 原子增加库存
// 用Unscoped:下单后图书被下架,取消订单时库存仍要归还
func (r *bookRepository) IncrementStock(ctx context.Context, id uint, quantity int) error {
	if quantity <= 0 {
		return book.ErrInvalidQuantity
	}

	result := dbFrom(ctx, r.db).Unscoped().Model(&BookModel{}).
		Where("id = ?", id).
		Update("stock", gorm.Expr("stock + ?", quantity))
	if result.Error != nil {
		return dbError(result.Error, "归还库存失败")
	}
	if result.RowsAffected == 0 {
		return book.ErrBookNotFound
	}
	return nil
}

// UpdateRatings 写入评分聚合
// 用map更新,{0,0}这样的零值也会写入
func (r *bookRepository) UpdateRatings(ctx context.Context, id uint, ratings book.Ratings) error {
	result := dbFrom(ctx, r.db).Model(&BookModel{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"rating_average": ratings.Average,
			"rating_count":   ratings.Count,
		})
	if result.Error != nil {
		return dbError(result.Error, "更新图书评分失败")
	}
	// MySQL的影响行数只统计值真正变化的行,评分不变时也是0,需要再确认图书是否存在
	if result.RowsAffected == 0 {
		found, err := exists(dbFrom(ctx, r.db), &BookModel{}, id)
		if err != nil {
			return err
		}
		if !found {
			return book.ErrBookNotFound
		}
	}
	return nil
}

// =========================================
// 辅助函数:模型转换
// =========================================

func toBookModel(b *book.Book) *BookModel {
	return &BookModel{
		ID:            b.ID,
		ISBN:          b.ISBN,
		Title:         b.Title,
		Author:        b.Author,
		Publisher:     b.Publisher,
		Price:         b.Price,
		DiscountPrice: b.DiscountPrice,
		Stock:         b.Stock,
		RatingAverage: b.Ratings.Average,
		RatingCount:   b.Ratings.Count,
		CoverURL:      b.CoverURL,
		Description:   b.Description,
		PublisherID:   b.PublisherID,
		CreatedAt:     b.CreatedAt,
		UpdatedAt:     b.UpdatedAt,
	}
}

func toBookEntity(model *BookModel) *book.Book {
	return &book.Book{
		ID:            model.ID,
		ISBN:          model.ISBN,
		Title:         model.Title,
		Author:        model.Author,
		Publisher:     model.Publisher,
		Price:         model.Price,
		DiscountPrice: model.DiscountPrice,
		Stock:         model.Stock,
		Ratings:       book.Ratings{Average: model.RatingAverage, Count: model.RatingCount},
		CoverURL:      model.CoverURL,
		Description:   model.Description,
		PublisherID:   model.PublisherID,
		CreatedAt:     model.CreatedAt,
		UpdatedAt:     model.UpdatedAt,
	}
}
