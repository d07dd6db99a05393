package book

import (
	"context"
	"errors"
	"regexp"
)

// 价格范围(分):0.01元-9999.99元
const (
	minPrice = 1
	maxPrice = 999999
)

var nonDigit = regexp.MustCompile(`[^0-9]`)

// PublishInput 发布图书的输入
type PublishInput struct {
	ISBN          string
	Title         string
	Author        string
	Publisher     string
	Price         int64
	DiscountPrice int64
	Stock         int
	CoverURL      string
	Description   string
	PublisherID   uint
}

// Service 图书领域服务接口
// 设计说明:
// 1. 领域服务封装跨实体的业务逻辑和业务规则校验
// 2. 不依赖具体的Repository实现(依赖倒置)
type Service interface {
	// PublishBook 发布图书(上架)
	// 业务规则:
	// - ISBN格式必须合法(10位或13位数字)
	// - 价格必须在1-999999分之间,折扣价不高于原价
	// - 库存必须>=0
	// - ISBN不能重复
	PublishBook(ctx context.Context, in PublishInput) (*Book, error)

	GetBookByID(ctx context.Context, id uint) (*Book, error)

	GetBookByISBN(ctx context.Context, isbn string) (*Book, error)

	// UpdateBookInfo 只有发布者本人可以修改
	UpdateBookInfo(ctx context.Context, id uint, userID uint, title, author, publisher, description string) error

	// UpdateBookPrice 更新原价和折扣价,只有发布者本人可以修改
	// 已下单的订单明细保存的是价格快照,不受影响
	UpdateBookPrice(ctx context.Context, id uint, userID uint, price, discountPrice int64) (*Book, error)

	// DeleteBook 只有发布者本人可以删除
	DeleteBook(ctx context.Context, id uint, userID uint) error

	ListBooks(ctx context.Context, params ListParams) ([]*Book, int64, error)
}

type service struct {
	repo Repository
}

// NewService 创建图书领域服务
func NewService(repo Repository) Service {
	return &service{repo: repo}
}

func (s *service) PublishBook(ctx context.Context, in PublishInput) (*Book, error) {
	// 1. 字段校验
	if !isValidISBN(in.ISBN) {
		return nil, ErrInvalidISBN
	}
	if in.Price < minPrice || in.Price > maxPrice {
		return nil, ErrInvalidPrice
	}
	if err := validateDiscount(in.Price, in.DiscountPrice); err != nil {
		return nil, err
	}
	if in.Stock < 0 {
		return nil, ErrInvalidStock
	}

	// 2. ISBN唯一性预检查(最终由唯一索引保证)
	existing, err := s.repo.FindByISBN(ctx, in.ISBN)
	if err == nil && existing != nil {
		return nil, ErrISBNDuplicate
	}
	if err != nil && !errors.Is(err, ErrBookNotFound) {
		return nil, err
	}

	// 3. 创建并持久化
	book := NewBook(in.ISBN, in.Title, in.Author, in.Publisher, in.Price, in.DiscountPrice, in.Stock, in.CoverURL, in.Description, in.PublisherID)
	if err := s.repo.Create(ctx, book); err != nil {
		return nil, err
	}
	return book, nil
}

func (s *service) GetBookByID(ctx context.Context, id uint) (*Book, error) {
	return s.repo.FindByID(ctx, id)
}

func (s *service) GetBookByISBN(ctx context.Context, isbn string) (*Book, error) {
	if !isValidISBN(isbn) {
		return nil, ErrInvalidISBN
	}
	return s.repo.FindByISBN(ctx, isbn)
}

func (s *service) UpdateBookInfo(ctx context.Context, id uint, userID uint, title, author, publisher, description string) error {
	book, err := s.ownedBook(ctx, id, userID)
	if err != nil {
		return err
	}
	book.UpdateInfo(title, author, publisher, description)
	return s.repo.Update(ctx, book)
}

func (s *service) UpdateBookPrice(ctx context.Context, id uint, userID uint, price, discountPrice int64) (*Book, error) {
	if price < minPrice || price > maxPrice {
		return nil, ErrInvalidPrice
	}

	book, err := s.ownedBook(ctx, id, userID)
	if err != nil {
		return nil, err
	}
	if err := book.UpdatePricing(price, discountPrice); err != nil {
		return nil, err
	}
	if err := s.repo.Update(ctx, book); err != nil {
		return nil, err
	}
	return book, nil
}

func (s *service) DeleteBook(ctx context.Context, id uint, userID uint) error {
	if _, err := s.ownedBook(ctx, id, userID); err != nil {
		return err
	}
	return s.repo.Delete(ctx, id)
}

func (s *service) ListBooks(ctx context.Context, params ListParams) ([]*Book, int64, error) {
	return s.repo.List(ctx, params)
}

// ownedBook 查询图书并校验发布者
func (s *service) ownedBook(ctx context.Context, id, userID uint) (*Book, error) {
	book, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !book.IsOwnedBy(userID) {
		return nil, ErrUnauthorized
	}
	return book, nil
}

// isValidISBN 校验ISBN格式
// 去除分隔符后必须是10位或13位数字(978-7-115-42802-8 → 9787115428028)
// 简化实现:不校验校验位
func isValidISBN(isbn string) bool {
	clean := nonDigit.ReplaceAllString(isbn, "")
	return len(clean) == 10 || len(clean) == 13
}
