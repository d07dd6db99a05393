//go:build integration

// Package integration 端到端集成测试
//
// 教学说明：
// 1. 用testcontainers启动真实的MySQL 8和Redis 7，测试结束自动销毁
// 2. 服务端用 internal/app.New 在进程内组装，与 cmd/api 完全相同的依赖图
// 3. 请求经过真实的HTTP栈（httptest.Server），覆盖路由、中间件、事务、行锁
//
// 运行：go test -tags integration ./test/integration/...（需要本机Docker）
package integration

import (
	"bytes"
	"context"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"os"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/xiebiao/bookmall/internal/app"
	appbook "github.com/xiebiao/bookmall/internal/application/book"
	apporder "github.com/xiebiao/bookmall/internal/application/order"
	appuser "github.com/xiebiao/bookmall/internal/application/user"
	"github.com/xiebiao/bookmall/internal/infrastructure/config"
	"github.com/xiebiao/bookmall/internal/interface/http/handler"
)

const (
	// Timeout HTTP请求超时时间
	Timeout = 10 * time.Second

	// AdminEmail 配置文件中的管理员邮箱
	AdminEmail = "admin@bookmall.dev"

	testPassword  = "Test1234"
	webhookSecret = "integration-webhook-secret"
)

// BaseURL API基础URL，TestMain启动服务后赋值
var BaseURL string

// Response 统一响应结构
type Response struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func TestMain(m *testing.M) {
	code, err := run(m)
	if err != nil {
		log.Printf("集成测试环境启动失败: %v", err)
		os.Exit(1)
	}
	os.Exit(code)
}

func run(m *testing.M) (int, error) {
	ctx := context.Background()

	mysqlC, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "mysql:8.0",
			ExposedPorts: []string{"3306/tcp"},
			Env: map[string]string{
				"MYSQL_ROOT_PASSWORD": "root123",
				"MYSQL_DATABASE":      "bookmall",
			},
			// 初始化阶段的临时实例也会打印一次ready，第二次才是正式实例
			WaitingFor: wait.ForAll(
				wait.ForLog("ready for connections").WithOccurrence(2),
				wait.ForListeningPort("3306/tcp"),
			).WithDeadline(3 * time.Minute),
		},
		Started: true,
	})
	if err != nil {
		return 0, fmt.Errorf("启动MySQL容器失败: %w", err)
	}
	defer func() { _ = mysqlC.Terminate(ctx) }()

	redisC, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "redis:7-alpine",
			ExposedPorts: []string{"6379/tcp"},
			WaitingFor:   wait.ForLog("Ready to accept connections"),
		},
		Started: true,
	})
	if err != nil {
		return 0, fmt.Errorf("启动Redis容器失败: %w", err)
	}
	defer func() { _ = redisC.Terminate(ctx) }()

	cfg, err := config.LoadFrom("../../config/config.yaml")
	if err != nil {
		return 0, err
	}
	if err := pointAt(ctx, cfg, mysqlC, redisC); err != nil {
		return 0, err
	}

	a, err := app.New(ctx, cfg, zap.NewNop())
	if err != nil {
		return 0, fmt.Errorf("组装服务失败: %w", err)
	}
	defer func() { _ = a.Close() }()

	srv := httptest.NewServer(a.Engine)
	defer srv.Close()
	BaseURL = srv.URL + "/api/v1"

	return m.Run(), nil
}

// pointAt 把配置指向容器，并关闭测试不需要的外部依赖
func pointAt(ctx context.Context, cfg *config.Config, mysqlC, redisC testcontainers.Container) error {
	host, err := mysqlC.Host(ctx)
	if err != nil {
		return err
	}
	port, err := mysqlC.MappedPort(ctx, "3306/tcp")
	if err != nil {
		return err
	}
	cfg.Database.Host = host
	cfg.Database.Port = port.Int()
	cfg.Database.User = "root"
	cfg.Database.Password = "root123"
	cfg.Database.DBName = "bookmall"
	cfg.Database.Loc = "Local"
	cfg.Database.AutoMigrate = true

	host, err = redisC.Host(ctx)
	if err != nil {
		return err
	}
	port, err = redisC.MappedPort(ctx, "6379/tcp")
	if err != nil {
		return err
	}
	cfg.Redis.Host = host
	cfg.Redis.Port = port.Int()
	cfg.Redis.Password = ""

	cfg.Server.Mode = gin.TestMode
	cfg.Auth.AdminEmails = []string{AdminEmail}
	cfg.Auth.BcryptCost = bcrypt.MinCost
	cfg.Limit.Enabled = false
	cfg.MQ.Enabled = false
	cfg.Tracing.Enabled = false
	cfg.Payment.WebhookEnabled = true
	cfg.Payment.WebhookSecret = webhookSecret
	return nil
}

// DoJSON 发送请求并解析统一响应
//
// 教学说明：
// - 使用*testing.T参数，可以在失败时立即终止测试
// - 业务错误也是HTTP 200，断言code而不是状态码
func DoJSON(t *testing.T, method, url string, data interface{}, token string) *Response {
	t.Helper()

	var body io.Reader = http.NoBody
	if data != nil {
		jsonData, err := json.Marshal(data)
		require.NoError(t, err, "JSON序列化失败")
		body = bytes.NewReader(jsonData)
	}

	req, err := http.NewRequest(method, url, body)
	require.NoError(t, err, "创建HTTP请求失败")
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return send(t, req)
}

// PostJSON 发送POST请求
func PostJSON(t *testing.T, url string, data interface{}, token string) *Response {
	t.Helper()
	return DoJSON(t, http.MethodPost, url, data, token)
}

// GetJSON 发送GET请求
func GetJSON(t *testing.T, url string, token string) *Response {
	t.Helper()
	return DoJSON(t, http.MethodGet, url, nil, token)
}

func send(t *testing.T, req *http.Request) *Response {
	t.Helper()

	client := &http.Client{Timeout: Timeout}
	resp, err := client.Do(req)
	require.NoError(t, err, "发送HTTP请求失败")
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err, "读取响应体失败")
	require.Equal(t, http.StatusOK, resp.StatusCode, string(raw))

	var result Response
	require.NoError(t, json.Unmarshal(raw, &result), "解析JSON响应失败: %s", string(raw))
	return &result
}

// MustData 断言成功并把data解析到out
func MustData(t *testing.T, resp *Response, out interface{}) {
	t.Helper()
	require.Equal(t, 0, resp.Code, resp.Message)
	if out != nil {
		require.NoError(t, json.Unmarshal(resp.Data, out), "解析data失败")
	}
}

// =========================================
// 测试数据
// =========================================

var seq atomic.Int64

// GenerateTestEmail 生成唯一的测试邮箱
func GenerateTestEmail(prefix string) string {
	return fmt.Sprintf("%s_%d_%d@test.com", prefix, time.Now().UnixNano(), seq.Add(1))
}

// GenerateTestISBN 生成唯一的测试ISBN（13位数字）
// 每次运行都是新容器，进程内计数即可保证唯一
func GenerateTestISBN() string {
	return fmt.Sprintf("978%010d", seq.Add(1))
}

// RegisterTestUser 注册并登录普通用户，返回邮箱和Access Token
func RegisterTestUser(t *testing.T, nickname string) (email string, token string) {
	t.Helper()

	email = GenerateTestEmail(nickname)
	MustData(t, PostJSON(t, BaseURL+"/users/register", map[string]string{
		"email":    email,
		"password": testPassword,
		"nickname": nickname,
	}, ""), nil)

	return email, Login(t, email)
}

// Login 登录并返回Access Token
func Login(t *testing.T, email string) string {
	t.Helper()

	var data appuser.LoginResponse
	MustData(t, PostJSON(t, BaseURL+"/users/login", map[string]string{
		"email":    email,
		"password": testPassword,
	}, ""), &data)
	require.NotEmpty(t, data.AccessToken)
	return data.AccessToken
}

var adminOnce sync.Once

// AdminToken 管理员Token，管理员账号只注册一次
func AdminToken(t *testing.T) string {
	t.Helper()
	adminOnce.Do(func() {
		MustData(t, PostJSON(t, BaseURL+"/users/register", map[string]string{
			"email":    AdminEmail,
			"password": testPassword,
			"nickname": "管理员",
		}, ""), nil)
	})
	return Login(t, AdminEmail)
}

// PublishTestBook 上架测试图书，discount为0表示不打折
func PublishTestBook(t *testing.T, token, title string, price, discount int64, stock int) appbook.BookView {
	t.Helper()

	var view appbook.BookView
	MustData(t, PostJSON(t, BaseURL+"/books", map[string]interface{}{
		"isbn":           GenerateTestISBN(),
		"title":          title,
		"author":         "测试作者",
		"publisher":      "测试出版社",
		"price":          price,
		"discount_price": discount,
		"stock":          stock,
		"description":    "集成测试用图书",
	}, token), &view)
	return view
}

// OrderItem 下单明细
type OrderItem struct {
	BookID   uint `json:"book_id"`
	Quantity int  `json:"quantity"`
}

// OrderRequest 构造下单请求体
func OrderRequest(items ...OrderItem) map[string]interface{} {
	return map[string]interface{}{
		"items": items,
		"shipping_address": map[string]string{
			"street":   "中关村大街1号",
			"city":     "北京",
			"state":    "北京",
			"country":  "中国",
			"zip_code": "100080",
		},
		"payment_method": "credit_card",
	}
}

// PlaceOrder 下单并返回订单
func PlaceOrder(t *testing.T, token string, items ...OrderItem) apporder.OrderView {
	t.Helper()
	var view apporder.OrderView
	MustData(t, PostJSON(t, BaseURL+"/orders", OrderRequest(items...), token), &view)
	return view
}

// BookStock 查询当前库存
func BookStock(t *testing.T, bookID uint) int {
	t.Helper()
	var view appbook.BookView
	MustData(t, GetJSON(t, fmt.Sprintf("%s/books/%d", BaseURL, bookID), ""), &view)
	return view.Stock
}

// SetOrderStatus 管理员更新订单状态
func SetOrderStatus(t *testing.T, adminToken string, orderID uint, status string) *Response {
	t.Helper()
	return DoJSON(t, http.MethodPatch, fmt.Sprintf("%s/admin/orders/%d/status", BaseURL, orderID),
		map[string]string{"status": status}, adminToken)
}

// SendWebhook 以支付网关的身份发送签名回调
func SendWebhook(t *testing.T, eventID, eventType, orderNo string) *Response {
	t.Helper()

	body, err := json.Marshal(map[string]string{
		"event_id": eventID,
		"type":     eventType,
		"order_no": orderNo,
	})
	require.NoError(t, err)

	req, err := http.NewRequest(http.MethodPost, BaseURL+"/payments/webhook", bytes.NewReader(body))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(handler.SignatureHeader, hex.EncodeToString(handler.Sign([]byte(webhookSecret), body)))
	return send(t, req)
}
