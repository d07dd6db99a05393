package handler

import (
	"github.com/gin-gonic/gin"

	apporder "github.com/xiebiao/bookmall/internal/application/order"
	"github.com/xiebiao/bookmall/internal/domain/order"
	"github.com/xiebiao/bookmall/internal/interface/http/dto"
	"github.com/xiebiao/bookmall/internal/interface/http/middleware"
	"github.com/xiebiao/bookmall/pkg/response"
)

// OrderHandler 订单HTTP处理器
type OrderHandler struct {
	createOrder  *apporder.CreateOrderUseCase
	cancelOrder  *apporder.CancelOrderUseCase
	updateStatus *apporder.UpdateOrderStatusUseCase
	query        *apporder.QueryOrderUseCase
}

// NewOrderHandler 创建订单处理器
func NewOrderHandler(
	createOrder *apporder.CreateOrderUseCase,
	cancelOrder *apporder.CancelOrderUseCase,
	updateStatus *apporder.UpdateOrderStatusUseCase,
	query *apporder.QueryOrderUseCase,
) *OrderHandler {
	return &OrderHandler{
		createOrder:  createOrder,
		cancelOrder:  cancelOrder,
		updateStatus: updateStatus,
		query:        query,
	}
}

// CreateOrder 创建订单
// @Summary      创建订单
// @Description  用户下单购买图书（需要登录），单价按图书当前折扣价/原价快照，库存原子扣减
// @Tags         订单
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request body dto.CreateOrderRequest true "订单信息"
// @Success      200 {object} response.Response{data=apporder.OrderView} "下单成功"
// @Failure      200 {object} response.Response "40001库存不足 / 40402图书不存在 / 40900参数错误"
// @Router       /api/v1/orders [post]
//
// 教学说明：防超卖
// 校验全部在事务外完成，事务内逐本执行 UPDATE ... WHERE stock >= ?，
// 校验后库存被并发买走时扣减失败，已扣减的部分由Saga逆序归还。
//
// 测试方法：
// 1. 创建库存为10的图书
// 2. 启动10个并发请求，每个购买5本
// 3. 预期结果：只有2个请求成功，其他8个返回库存不足
func (h *OrderHandler) CreateOrder(c *gin.Context) {
	var req dto.CreateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindFailed(c, err)
		return
	}

	items := make([]apporder.CreateOrderItem, len(req.Items))
	for i, item := range req.Items {
		items[i] = apporder.CreateOrderItem{
			BookID:   item.BookID,
			Quantity: item.Quantity,
		}
	}

	view, err := h.createOrder.Execute(c.Request.Context(), apporder.CreateOrderRequest{
		UserID: middleware.GetUserID(c),
		Items:  items,
		ShippingAddress: order.ShippingAddress{
			Street:  req.ShippingAddress.Street,
			City:    req.ShippingAddress.City,
			State:   req.ShippingAddress.State,
			Country: req.ShippingAddress.Country,
			ZipCode: req.ShippingAddress.ZipCode,
		},
		PaymentMethod: req.PaymentMethod,
		Notes:         req.Notes,
		IsGift:        req.IsGift,
		GiftMessage:   req.GiftMessage,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, view)
}

// ListMyOrders 我的订单
// @Summary      我的订单
// @Tags         订单
// @Produce      json
// @Security     BearerAuth
// @Param        page      query int false "页码"
// @Param        page_size query int false "每页条数"
// @Success      200 {object} response.Response{data=apporder.OrderPage}
// @Router       /api/v1/orders [get]
func (h *OrderHandler) ListMyOrders(c *gin.Context) {
	var q dto.PageQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		bindFailed(c, err)
		return
	}

	page, err := h.query.ListMyOrders(c.Request.Context(), middleware.GetUserID(c), q.Page, q.PageSize)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, page)
}

// GetOrder 订单详情(本人或管理员)
// @Summary      订单详情
// @Tags         订单
// @Produce      json
// @Security     BearerAuth
// @Param        id path int true "订单ID"
// @Success      200 {object} response.Response{data=apporder.OrderView}
// @Router       /api/v1/orders/{id} [get]
func (h *OrderHandler) GetOrder(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	view, err := h.query.GetOrder(c.Request.Context(), id, middleware.Actor(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, view)
}

// CancelOrder 取消订单(本人或管理员)
// @Summary      取消订单
// @Description  仅待处理/处理中的订单可取消，归还库存，已支付的订单标记为已退款
// @Tags         订单
// @Produce      json
// @Security     BearerAuth
// @Param        id path int true "订单ID"
// @Success      200 {object} response.Response{data=apporder.OrderView}
// @Failure      200 {object} response.Response "40002状态不允许 / 40104无权限 / 40403订单不存在"
// @Router       /api/v1/orders/{id}/cancel [post]
func (h *OrderHandler) CancelOrder(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	view, err := h.cancelOrder.Execute(c.Request.Context(), id, middleware.Actor(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, view)
}

// ListAllOrders 管理员订单列表
// @Summary      订单列表(管理员)
// @Tags         订单管理
// @Produce      json
// @Security     BearerAuth
// @Param        page      query int    false "页码"
// @Param        page_size query int    false "每页条数"
// @Param        status    query string false "pending | processing | shipped | delivered | cancelled"
// @Param        user_id   query int    false "买家ID"
// @Success      200 {object} response.Response{data=apporder.OrderPage}
// @Router       /api/v1/admin/orders [get]
func (h *OrderHandler) ListAllOrders(c *gin.Context) {
	var req dto.ListOrdersRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		bindFailed(c, err)
		return
	}

	page, err := h.query.ListAllOrders(c.Request.Context(), middleware.Actor(c), apporder.ListAllOrdersRequest{
		Page:     req.Page,
		PageSize: req.PageSize,
		Status:   req.Status,
		UserID:   req.UserID,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, page)
}

// UpdateOrderStatus 管理员推进订单状态
// @Summary      更新订单状态(管理员)
// @Description  只能向前推进；发货时可填写运单号和预计送达时间；目标为cancelled时等同取消并归还库存
// @Tags         订单管理
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id      path int                          true "订单ID"
// @Param        request body dto.UpdateOrderStatusRequest true "目标状态"
// @Success      200 {object} response.Response{data=apporder.OrderView}
// @Failure      200 {object} response.Response "40002状态不允许"
// @Router       /api/v1/admin/orders/{id}/status [patch]
func (h *OrderHandler) UpdateOrderStatus(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req dto.UpdateOrderStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindFailed(c, err)
		return
	}

	view, err := h.updateStatus.Execute(c.Request.Context(), middleware.Actor(c), apporder.UpdateOrderStatusRequest{
		OrderID:               id,
		Status:                req.Status,
		TrackingNumber:        req.TrackingNumber,
		EstimatedDeliveryDate: req.EstimatedDeliveryDate,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, view)
}
