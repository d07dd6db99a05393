package order

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// GenerateOrderNo 生成订单号
// 教学要点:订单号设计原则
// 1. 全局唯一(并发下单也不能冲突)
// 2. 时间有序(便于按时间排查、分库分表)
// 3. 不可预测(防止恶意遍历)
//
// 格式:ORD + 时间(秒级,yyyyMMddHHmmss) + UUID前12位(大写十六进制)
// 示例:ORD20261016153045A1B2C3D4E5F6
//
// 随机部分取自UUIDv4的122位随机数,12位十六进制即48位熵,同一秒内冲突概率可以忽略;
// 数据库order_no唯一索引兜底
func GenerateOrderNo() string {
	return generateOrderNo(time.Now(), uuid.New())
}

func generateOrderNo(now time.Time, id uuid.UUID) string {
	random := strings.ReplaceAll(id.String(), "-", "")[:12]
	return "ORD" + now.Format("20060102150405") + strings.ToUpper(random)
}
