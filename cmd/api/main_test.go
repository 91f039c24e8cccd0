package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/xiebiao/storefront/internal/bootstrap"
	"github.com/xiebiao/storefront/internal/infrastructure/config"
	apperrors "github.com/xiebiao/storefront/pkg/errors"
	"github.com/xiebiao/storefront/pkg/jwt"
)

// envelope 统一响应结构
type envelope struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

type testServer struct {
	t      *testing.T
	engine *gin.Engine
	jwt    *jwt.Manager
}

func testConfig() *config.Config {
	return &config.Config{
		Server:   config.ServerConfig{Port: 8080, Mode: gin.TestMode},
		Database: config.DatabaseConfig{Driver: "memory"},
		JWT:      config.JWTConfig{Secret: "test-secret", Issuer: "storefront", AccessTokenExpire: time.Hour},
		Checkout: config.CheckoutConfig{
			TaxRate:        "0.08",
			ShippingBase:   "5.00",
			ShippingPerKg:  "2.00",
			SagaTimeout:    5 * time.Second,
			PendingTimeout: 30 * time.Minute,
			CartMaxAge:     720 * time.Hour,
		},
		Jobs: config.JobsConfig{BatchSize: 100},
	}
}

// newTestServer 内存仓储 + 演示数据(商品1:59.00/0.6kg/库存100;商品2:库存5;商品3:已下架)
func newTestServer(t *testing.T) *testServer {
	t.Helper()
	log := zaptest.NewLogger(t)
	cfg := testConfig()

	infra, cleanup, err := bootstrap.NewInfrastructure(cfg, log)
	require.NoError(t, err)
	t.Cleanup(cleanup)

	app, err := InitializeApp(cfg, infra, log)
	require.NoError(t, err)
	return &testServer{t: t, engine: app.Engine, jwt: app.JWT}
}

func (s *testServer) token(userID uint, role string) string {
	s.t.Helper()
	token, err := s.jwt.GenerateToken(userID, role)
	require.NoError(s.t, err)
	return token
}

func (s *testServer) do(method, path, token string, body interface{}) (int, envelope) {
	s.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(s.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	s.engine.ServeHTTP(w, req)

	var env envelope
	if w.Header().Get("Content-Type") != "" && bytes.HasPrefix(w.Body.Bytes(), []byte("{")) {
		require.NoError(s.t, json.Unmarshal(w.Body.Bytes(), &env))
	}
	return w.Code, env
}

func decode(t *testing.T, raw json.RawMessage, v interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(raw, v))
}

type orderBody struct {
	ID            uint   `json:"id"`
	OrderNo       string `json:"order_no"`
	Status        string `json:"status"`
	PaymentStatus string `json:"payment_status"`
	Subtotal      string `json:"subtotal"`
	TaxAmount     string `json:"tax_amount"`
	ShippingCost  string `json:"shipping_cost"`
	TotalPrice    string `json:"total_price"`
	Items         []struct {
		ProductID uint   `json:"product_id"`
		Quantity  int    `json:"quantity"`
		UnitPrice string `json:"unit_price"`
	} `json:"items"`
}

type inventoryBody struct {
	QtyAvailable     int  `json:"qty_available"`
	QtyReserved      int  `json:"qty_reserved"`
	AvailableForSale int  `json:"available_for_sale"`
	IsLowStock       bool `json:"is_low_stock"`
}

func TestPingAndMetrics(t *testing.T) {
	s := newTestServer(t)

	code, env := s.do(http.MethodGet, "/ping", "", nil)
	assert.Equal(t, http.StatusOK, code)
	assert.Zero(t, env.Code)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	w := httptest.NewRecorder()
	s.engine.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "http_requests_total")
}

func TestAuth(t *testing.T) {
	s := newTestServer(t)

	code, env := s.do(http.MethodGet, "/api/v1/cart", "", nil)
	assert.Equal(t, http.StatusUnauthorized, code)
	assert.Equal(t, apperrors.ErrCodeUnauthorized, env.Code)

	code, env = s.do(http.MethodGet, "/api/v1/cart", "not-a-jwt", nil)
	assert.Equal(t, http.StatusUnauthorized, code)
	assert.Equal(t, apperrors.ErrCodeInvalidToken, env.Code)

	// 买家不能访问管理接口
	code, env = s.do(http.MethodGet, "/api/v1/admin/inventory/1", s.token(1, jwt.RoleCustomer), nil)
	assert.Equal(t, http.StatusForbidden, code)
	assert.Equal(t, apperrors.ErrCodeForbidden, env.Code)

	code, _ = s.do(http.MethodPost, "/api/v1/payments/callback", s.token(1, jwt.RoleCustomer),
		map[string]interface{}{"order_id": 1, "status": "PAID"})
	assert.Equal(t, http.StatusForbidden, code)
}

func TestCheckoutFlow(t *testing.T) {
	s := newTestServer(t)
	buyer := s.token(1, jwt.RoleCustomer)
	admin := s.token(9000, jwt.RoleAdmin)

	// 1. 加购
	code, _ := s.do(http.MethodPost, "/api/v1/cart/items", buyer, map[string]interface{}{"product_id": 1, "quantity": 2})
	require.Equal(t, http.StatusCreated, code)

	code, env := s.do(http.MethodGet, "/api/v1/cart/validate", buyer, nil)
	require.Equal(t, http.StatusOK, code)
	var validation struct {
		Valid bool `json:"valid"`
	}
	decode(t, env.Data, &validation)
	assert.True(t, validation.Valid)

	// 2. 结账:小计118.00,税9.44,运费5.00+2.00×1.2=7.40
	code, env = s.do(http.MethodPost, "/api/v1/checkout", buyer, map[string]interface{}{
		"shipping_address": "上海市浦东新区世纪大道100号",
		"payment_method":   "alipay",
	})
	require.Equal(t, http.StatusCreated, code, env.Message)
	var o orderBody
	decode(t, env.Data, &o)
	assert.Equal(t, "PENDING", o.Status)
	assert.Equal(t, "118.00", o.Subtotal)
	assert.Equal(t, "9.44", o.TaxAmount)
	assert.Equal(t, "7.40", o.ShippingCost)
	assert.Equal(t, "134.84", o.TotalPrice)
	require.Len(t, o.Items, 1)
	assert.Equal(t, "59.00", o.Items[0].UnitPrice)

	// 购物车已清空,库存已预留
	code, env = s.do(http.MethodGet, "/api/v1/cart", buyer, nil)
	require.Equal(t, http.StatusOK, code)
	var cart struct {
		Lines []json.RawMessage `json:"lines"`
	}
	decode(t, env.Data, &cart)
	assert.Empty(t, cart.Lines)

	_, env = s.do(http.MethodGet, "/api/v1/admin/inventory/1", admin, nil)
	var inv inventoryBody
	decode(t, env.Data, &inv)
	assert.Equal(t, 2, inv.QtyReserved)
	assert.Equal(t, 98, inv.AvailableForSale)

	// 3. 查询:自己的订单可见,别人的订单按不存在处理
	orderPath := fmt.Sprintf("/api/v1/orders/%d", o.ID)
	code, _ = s.do(http.MethodGet, orderPath, buyer, nil)
	assert.Equal(t, http.StatusOK, code)
	code, env = s.do(http.MethodGet, orderPath, s.token(77, jwt.RoleCustomer), nil)
	assert.Equal(t, http.StatusNotFound, code)
	assert.Equal(t, apperrors.ErrCodeOrderNotFound, env.Code)

	code, env = s.do(http.MethodGet, "/api/v1/orders?page=1&page_size=10", buyer, nil)
	require.Equal(t, http.StatusOK, code)
	var page struct {
		Total int64 `json:"total"`
	}
	decode(t, env.Data, &page)
	assert.Equal(t, int64(1), page.Total)

	// 4. 支付回调:PENDING → CONFIRMED
	code, env = s.do(http.MethodPost, "/api/v1/payments/callback", admin,
		map[string]interface{}{"order_id": o.ID, "status": "PAID", "transaction_id": "tx-1"})
	require.Equal(t, http.StatusOK, code, env.Message)
	decode(t, env.Data, &o)
	assert.Equal(t, "CONFIRMED", o.Status)
	assert.Equal(t, "PAID", o.PaymentStatus)

	// 5. 买家取消:预留释放
	code, env = s.do(http.MethodPost, orderPath+"/cancel", buyer, nil)
	require.Equal(t, http.StatusOK, code, env.Message)
	decode(t, env.Data, &o)
	assert.Equal(t, "CANCELLED", o.Status)

	_, env = s.do(http.MethodGet, "/api/v1/admin/inventory/1", admin, nil)
	decode(t, env.Data, &inv)
	assert.Zero(t, inv.QtyReserved)
	assert.Equal(t, 100, inv.QtyAvailable)

	// 终态不能再流转
	code, env = s.do(http.MethodPut, fmt.Sprintf("/api/v1/admin/orders/%d/status", o.ID), admin,
		map[string]string{"status": "SHIPPED"})
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, apperrors.ErrCodeInvalidOrderStatus, env.Code)
}

func TestCheckoutRejections(t *testing.T) {
	s := newTestServer(t)
	buyer := s.token(1, jwt.RoleCustomer)
	checkout := map[string]string{"shipping_address": "北京市海淀区"}

	// 空购物车
	code, env := s.do(http.MethodPost, "/api/v1/checkout", buyer, checkout)
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, apperrors.ErrCodeCartEmpty, env.Code)

	// 已下架商品不能加购
	code, env = s.do(http.MethodPost, "/api/v1/cart/items", buyer, map[string]interface{}{"product_id": 3, "quantity": 1})
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, apperrors.ErrCodeProductInactive, env.Code)

	// 数量超过库存:409,库存不变
	code, _ = s.do(http.MethodPost, "/api/v1/cart/items", buyer, map[string]interface{}{"product_id": 2, "quantity": 6})
	require.Equal(t, http.StatusCreated, code)
	code, env = s.do(http.MethodPost, "/api/v1/checkout", buyer, checkout)
	assert.Equal(t, http.StatusConflict, code)
	assert.Equal(t, apperrors.ErrCodeInsufficientStock, env.Code)

	// 同步后数量被压到可售数量,可以结账
	code, env = s.do(http.MethodPost, "/api/v1/cart/sync", buyer, nil)
	require.Equal(t, http.StatusOK, code)
	var sync struct {
		Adjustments []struct {
			Action string `json:"action"`
			To     int    `json:"to"`
		} `json:"adjustments"`
	}
	decode(t, env.Data, &sync)
	require.Len(t, sync.Adjustments, 1)
	assert.Equal(t, 5, sync.Adjustments[0].To)

	code, env = s.do(http.MethodPost, "/api/v1/checkout", buyer, checkout)
	assert.Equal(t, http.StatusCreated, code, env.Message)

	// 停用用户
	code, env = s.do(http.MethodPost, "/api/v1/checkout", s.token(2, jwt.RoleCustomer), checkout)
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, apperrors.ErrCodeUserInactive, env.Code)

	// 参数校验
	code, env = s.do(http.MethodPost, "/api/v1/checkout", buyer, map[string]string{})
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, apperrors.ErrCodeInvalidParams, env.Code)
}

func TestAdminOrderQueries(t *testing.T) {
	s := newTestServer(t)
	buyer := s.token(1, jwt.RoleCustomer)
	admin := s.token(9000, jwt.RoleAdmin)

	code, _ := s.do(http.MethodPost, "/api/v1/cart/items", buyer, map[string]interface{}{"product_id": 1, "quantity": 1})
	require.Equal(t, http.StatusCreated, code)
	code, env := s.do(http.MethodPost, "/api/v1/checkout", buyer, map[string]string{"shipping_address": "杭州市西湖区"})
	require.Equal(t, http.StatusCreated, code, env.Message)
	var placed orderBody
	decode(t, env.Data, &placed)
	require.NotEmpty(t, placed.OrderNo)

	// 按订单号查询
	code, env = s.do(http.MethodGet, "/api/v1/admin/orders/no/"+placed.OrderNo, admin, nil)
	require.Equal(t, http.StatusOK, code, env.Message)
	var found orderBody
	decode(t, env.Data, &found)
	assert.Equal(t, placed.ID, found.ID)

	code, env = s.do(http.MethodGet, "/api/v1/admin/orders/no/ORD-MISSING", admin, nil)
	assert.Equal(t, http.StatusNotFound, code)
	assert.Equal(t, apperrors.ErrCodeOrderNotFound, env.Code)

	// 按状态查询,状态名大小写不敏感
	var page struct {
		Total int64 `json:"total"`
		List  []struct {
			OrderNo string `json:"order_no"`
		} `json:"list"`
	}
	code, env = s.do(http.MethodGet, "/api/v1/admin/orders?status=pending", admin, nil)
	require.Equal(t, http.StatusOK, code, env.Message)
	decode(t, env.Data, &page)
	assert.Equal(t, int64(1), page.Total)
	require.Len(t, page.List, 1)
	assert.Equal(t, placed.OrderNo, page.List[0].OrderNo)

	code, env = s.do(http.MethodGet, "/api/v1/admin/orders?status=SHIPPED", admin, nil)
	require.Equal(t, http.StatusOK, code)
	decode(t, env.Data, &page)
	assert.Zero(t, page.Total)

	code, env = s.do(http.MethodGet, "/api/v1/admin/orders?status=LOST", admin, nil)
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, apperrors.ErrCodeInvalidParams, env.Code)

	// 买家不能访问
	code, env = s.do(http.MethodGet, "/api/v1/admin/orders?status=PENDING", buyer, nil)
	assert.Equal(t, http.StatusForbidden, code)
	assert.Equal(t, apperrors.ErrCodeForbidden, env.Code)
}

func TestAdminInventory(t *testing.T) {
	s := newTestServer(t)
	admin := s.token(9000, jwt.RoleAdmin)
	base := "/api/v1/admin/inventory/10"

	code, env := s.do(http.MethodPost, base, admin, map[string]interface{}{"quantity": 8, "reorder_level": 5})
	require.Equal(t, http.StatusCreated, code, env.Message)

	code, env = s.do(http.MethodPost, base, admin, map[string]interface{}{"quantity": 8})
	assert.Equal(t, http.StatusConflict, code)
	assert.Equal(t, apperrors.ErrCodeInventoryAlreadyExists, env.Code)

	code, env = s.do(http.MethodPost, base+"/stock", admin, map[string]interface{}{"quantity": 0})
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, apperrors.ErrCodeInvalidParams, env.Code)

	code, env = s.do(http.MethodPut, base+"/stock", admin, map[string]interface{}{"quantity": 3, "remark": "盘点"})
	require.Equal(t, http.StatusOK, code, env.Message)
	var inv inventoryBody
	decode(t, env.Data, &inv)
	assert.Equal(t, 3, inv.QtyAvailable)
	assert.True(t, inv.IsLowStock)

	code, env = s.do(http.MethodGet, "/api/v1/admin/inventory/low-stock", admin, nil)
	require.Equal(t, http.StatusOK, code)
	var low []inventoryBody
	decode(t, env.Data, &low)
	// 演示商品2(5<=10)、商品3(0<=0)和新建的商品10(3<=5)
	assert.Len(t, low, 3)

	code, env = s.do(http.MethodPut, base+"/reorder-level", admin, map[string]interface{}{"reorder_level": 0})
	require.Equal(t, http.StatusOK, code, env.Message)
	decode(t, env.Data, &inv)
	assert.False(t, inv.IsLowStock)

	code, env = s.do(http.MethodGet, base+"/history", admin, nil)
	require.Equal(t, http.StatusOK, code)
	var history struct {
		Total int64 `json:"total"`
	}
	decode(t, env.Data, &history)
	assert.Equal(t, int64(2), history.Total) // 初始库存 + 盘点

	code, _ = s.do(http.MethodGet, "/api/v1/admin/inventory/999", admin, nil)
	assert.Equal(t, http.StatusNotFound, code)

	code, _ = s.do(http.MethodGet, "/api/v1/admin/inventory/abc", admin, nil)
	assert.Equal(t, http.StatusBadRequest, code)
}
