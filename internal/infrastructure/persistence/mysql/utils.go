package mysql

import (
	"errors"
	"strings"

	"gorm.io/gorm"

	apperrors "github.com/xiebiao/bookmall/pkg/errors"
)

// isDuplicateError 判断是否为唯一索引冲突
// 开启TranslateError后GORM会翻译为ErrDuplicatedKey,字符串判断兜底:
// - MySQL 1062: Duplicate entry 'xxx' for key 'yyy'
// - SQLite: UNIQUE constraint failed: users.email
func isDuplicateError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "Duplicate entry") || strings.Contains(msg, "UNIQUE constraint failed")
}

// dbError 把数据库驱动错误包装为系统错误(50001),保留原始错误链
func dbError(err error, message string) error {
	return apperrors.WrapCode(err, apperrors.ErrCodeDatabaseError, message)
}

// normalizePage 页码从1开始,pageSize<=0时取默认值
func normalizePage(page, pageSize int) (offset, limit int) {
	if page < 1 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = 20
	}
	return (page - 1) * pageSize, pageSize
}

// exists 按主键判断记录是否存在(遵循软删除)
func exists(db *gorm.DB, model interface{}, id uint) (bool, error) {
	var count int64
	if err := db.Model(model).Where("id = ?", id).Count(&count).Error; err != nil {
		return false, dbError(err, "查询记录失败")
	}
	return count > 0, nil
}
