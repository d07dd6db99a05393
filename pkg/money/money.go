// Package money 金额以"分"(int64)存储和计算,只在展示时换算为元
package money

import "github.com/shopspring/decimal"

// FormatYuan 分 → 元字符串,固定两位小数(5900 → "59.00")
// 用decimal移位而不是float64除法,大金额也不会出现0.1+0.2式的误差
func FormatYuan(fen int64) string {
	return decimal.New(fen, -2).StringFixed(2)
}
