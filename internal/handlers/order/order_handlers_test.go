package order_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	orderhandler "github.com/parikart/storefront/internal/handlers/order"
	"github.com/parikart/storefront/internal/models"
	ordersvc "github.com/parikart/storefront/internal/service/order"
	"github.com/parikart/storefront/internal/testutil"
)

var testSecret = []byte("test-secret")

type env struct {
	e       *echo.Echo
	db      *gorm.DB
	h       *orderhandler.OrderHandler
	variant models.ProductVariant
}

// newEnv seeds a product with a 5-unit variant and a cart holding 2 of it
// for user 1.
func newEnv(t *testing.T) *env {
	t.Helper()

	db := testutil.NewDB(t)
	rec := &testutil.EventRecorder{}

	ev := &env{
		e:  echo.New(),
		db: db,
		h: &orderhandler.OrderHandler{
			DB:        db,
			Svc:       &ordersvc.Service{DB: db, Producer: rec},
			JWTSecret: testSecret,
		},
	}

	p := models.Product{Name: "Test Product", Price: decimal.RequireFromString("50.00"), Category: "test"}
	require.NoError(t, db.Create(&p).Error)

	ev.variant = models.ProductVariant{ProductID: p.ID, Size: "M", Color: "Red", Stock: 5}
	require.NoError(t, db.Create(&ev.variant).Error)

	uid := uint(1)
	cart := models.Cart{UserID: &uid}
	require.NoError(t, db.Create(&cart).Error)
	require.NoError(t, db.Create(&models.CartItem{
		CartID: cart.ID, ProductID: p.ID, VariantID: ev.variant.ID, Quantity: 2,
	}).Error)

	return ev
}

func (ev *env) do(t *testing.T, handler echo.HandlerFunc, method, target, body string, userID uint, params map[string]string) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	if userID != 0 {
		req.AddCookie(&http.Cookie{Name: "accessToken", Value: testutil.AccessToken(t, testSecret, userID)})
	}

	rec := httptest.NewRecorder()
	c := ev.e.NewContext(req, rec)
	if len(params) > 0 {
		names := make([]string, 0, len(params))
		values := make([]string, 0, len(params))
		for k, v := range params {
			names = append(names, k)
			values = append(values, v)
		}
		c.SetParamNames(names...)
		c.SetParamValues(values...)
	}

	if err := handler(c); err != nil {
		ev.e.HTTPErrorHandler(err, c)
	}
	return rec
}

func (ev *env) checkout(t *testing.T, body string, userID uint) *httptest.ResponseRecorder {
	t.Helper()
	return ev.do(t, ev.h.Checkout, http.MethodPost, "/", body, userID, nil)
}

func TestCheckoutCOD(t *testing.T) {
	ev := newEnv(t)

	rec := ev.checkout(t, `{"shipping_address": "123 Test Street", "phone": "9999", "payment_method": "cod"}`, 1)
	require.Equal(t, http.StatusCreated, rec.Code)

	var body struct {
		Order           models.Order `json:"order"`
		PaymentRequired bool         `json:"payment_required"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.False(t, body.PaymentRequired)
	require.Equal(t, models.OrderStatusPending, body.Order.Status)
	require.NotEmpty(t, body.Order.OrderID)

	var v models.ProductVariant
	require.NoError(t, ev.db.First(&v, ev.variant.ID).Error)
	require.Equal(t, 3, v.Stock)
}

func TestCheckoutGatewayMethodNeedsPayment(t *testing.T) {
	ev := newEnv(t)

	rec := ev.checkout(t, `{"shipping_address": "123 Test Street", "payment_method": "razorpay"}`, 1)
	require.Equal(t, http.StatusCreated, rec.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Equal(t, true, body["payment_required"])
}

func TestCheckoutRequiresAuth(t *testing.T) {
	ev := newEnv(t)

	rec := ev.checkout(t, `{"shipping_address": "123 Test Street"}`, 0)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestCheckoutMissingAddress(t *testing.T) {
	ev := newEnv(t)

	rec := ev.checkout(t, `{"payment_method": "cod"}`, 1)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCheckoutEmptyCart(t *testing.T) {
	ev := newEnv(t)
	require.NoError(t, ev.db.Where("1 = 1").Delete(&models.CartItem{}).Error)

	rec := ev.checkout(t, `{"shipping_address": "123 Test Street"}`, 1)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCheckoutInsufficientStock(t *testing.T) {
	ev := newEnv(t)
	require.NoError(t, ev.db.Model(&models.CartItem{}).Where("1 = 1").UpdateColumn("quantity", 10).Error)

	rec := ev.checkout(t, `{"shipping_address": "123 Test Street"}`, 1)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Equal(t, "insufficient stock", body["error"])
	require.EqualValues(t, ev.variant.ID, body["variant_id"])
	require.EqualValues(t, 10, body["requested"])
	require.EqualValues(t, 5, body["available"])
}

func TestCheckoutUnknownPaymentMethod(t *testing.T) {
	ev := newEnv(t)

	rec := ev.checkout(t, `{"shipping_address": "123 Test Street", "payment_method": "barter"}`, 1)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCancelFlow(t *testing.T) {
	ev := newEnv(t)

	rec := ev.checkout(t, `{"shipping_address": "123 Test Street", "payment_method": "cod"}`, 1)
	require.Equal(t, http.StatusCreated, rec.Code)
	var created struct {
		Order models.Order `json:"order"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))

	params := map[string]string{"order_id": created.Order.OrderID}

	rec = ev.do(t, ev.h.Cancel, http.MethodPost, "/", "", 1, params)
	require.Equal(t, http.StatusOK, rec.Code)
	var cancelled models.Order
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &cancelled))
	require.Equal(t, models.OrderStatusCancelled, cancelled.Status)

	// Already cancelled.
	rec = ev.do(t, ev.h.Cancel, http.MethodPost, "/", "", 1, params)
	require.Equal(t, http.StatusConflict, rec.Code)

	// Someone else's order.
	rec = ev.do(t, ev.h.Cancel, http.MethodPost, "/", "", 2, params)
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestListAndDetail(t *testing.T) {
	ev := newEnv(t)

	rec := ev.checkout(t, `{"shipping_address": "123 Test Street", "payment_method": "cod"}`, 1)
	require.Equal(t, http.StatusCreated, rec.Code)
	var created struct {
		Order models.Order `json:"order"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))

	rec = ev.do(t, ev.h.List, http.MethodGet, "/?page=1&size=10", "", 1, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var list struct {
		Data []models.Order `json:"data"`
		Meta map[string]any `json:"meta"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	require.Len(t, list.Data, 1)
	require.EqualValues(t, 1, list.Meta["total"])

	rec = ev.do(t, ev.h.Detail, http.MethodGet, "/", "", 1, map[string]string{"order_id": created.Order.OrderID})
	require.Equal(t, http.StatusOK, rec.Code)
	var detail models.Order
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &detail))
	require.Equal(t, created.Order.OrderID, detail.OrderID)
	require.Len(t, detail.Items, 1)

	rec = ev.do(t, ev.h.Detail, http.MethodGet, "/", "", 1, map[string]string{"order_id": "ORD-MISSING1"})
	require.Equal(t, http.StatusNotFound, rec.Code)
}
