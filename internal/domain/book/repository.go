package book

import (
	"context"
)

// Repository 图书仓储接口(依赖倒置原则)
// 设计说明:
// 1. 由domain层定义接口,infrastructure层实现
// 2. 库存变更只通过DecrementStock/IncrementStock两个原子操作,
//    不提供"读出来改完再写回"的路径
type Repository interface {
	Create(ctx context.Context, book *Book) error

	// FindByID 不存在时返回ErrBookNotFound
	FindByID(ctx context.Context, id uint) (*Book, error)

	// FindByIDs 批量查询,结果按ID索引;不存在的ID不出现在map中
	FindByIDs(ctx context.Context, ids []uint) (map[uint]*Book, error)

	FindByISBN(ctx context.Context, isbn string) (*Book, error)

	// Update 更新基本信息和价格(不包括库存和评分)
	Update(ctx context.Context, book *Book) error

	// Delete 删除图书(软删除)
	Delete(ctx context.Context, id uint) error

	List(ctx context.Context, params ListParams) ([]*Book, int64, error)

	// DecrementStock 原子条件扣减库存
	// 单条 UPDATE ... SET stock = stock - ? WHERE id = ? AND stock >= ?
	// 影响行数为0时:图书不存在返回ErrBookNotFound,否则返回ErrInsufficientStock
	// 其他数据库错误原样包装为系统错误,绝不能被识别为库存不足
	DecrementStock(ctx context.Context, id uint, quantity int) error

	// IncrementStock 原子增加库存(订单取消、下单补偿)
	IncrementStock(ctx context.Context, id uint, quantity int) error

	// UpdateRatings 写入评分聚合
	UpdateRatings(ctx context.Context, id uint, ratings Ratings) error
}

// ListParams 列表查询参数
type ListParams struct {
	Page     int    // 页码(从1开始)
	PageSize int    // 每页数量
	Keyword  string // 搜索关键词(搜索标题、作者、出版社)
	SortBy   string // 排序字段(price_asc, price_desc, rating_desc, created_at_desc)
}
