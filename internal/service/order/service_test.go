package order_test

import (
	"context"
	"regexp"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/parikart/storefront/internal/inventory"
	"github.com/parikart/storefront/internal/models"
	"github.com/parikart/storefront/internal/service/order"
	"github.com/parikart/storefront/internal/testutil"
)

type fixture struct {
	db      *gorm.DB
	rec     *testutil.EventRecorder
	svc     *order.Service
	product models.Product
	variant models.ProductVariant
	cart    models.Cart
}

const testUserID uint = 1

// newFixture seeds a product (50.00) with one variant (stock 5) and a cart
// holding 2 units of it for user 1.
func newFixture(t *testing.T) *fixture {
	t.Helper()

	db := testutil.NewDB(t)
	rec := &testutil.EventRecorder{}

	f := &fixture{
		db:  db,
		rec: rec,
		svc: &order.Service{DB: db, Producer: rec},
	}

	f.product = models.Product{
		Name:        "Test Product",
		Description: "desc",
		Price:       decimal.RequireFromString("50.00"),
		Category:    "test",
	}
	require.NoError(t, db.Create(&f.product).Error)

	f.variant = models.ProductVariant{ProductID: f.product.ID, Size: "M", Color: "Red", Stock: 5}
	require.NoError(t, db.Create(&f.variant).Error)

	uid := testUserID
	f.cart = models.Cart{UserID: &uid}
	require.NoError(t, db.Create(&f.cart).Error)

	item := models.CartItem{CartID: f.cart.ID, ProductID: f.product.ID, VariantID: f.variant.ID, Quantity: 2}
	require.NoError(t, db.Create(&item).Error)

	return f
}

func (f *fixture) cartItemCount(t *testing.T) int64 {
	t.Helper()
	var n int64
	require.NoError(t, f.db.Model(&models.CartItem{}).Where("cart_id = ?", f.cart.ID).Count(&n).Error)
	return n
}

func (f *fixture) stock(t *testing.T) int {
	t.Helper()
	var v models.ProductVariant
	require.NoError(t, f.db.First(&v, f.variant.ID).Error)
	return v.Stock
}

func TestCreateOrderCOD(t *testing.T) {
	f := newFixture(t)

	o, err := f.svc.Create(context.Background(), testUserID, order.CreateRequest{
		ShippingAddress: "123 Test Street",
		Phone:           "9999",
		PaymentMethod:   models.PaymentMethodCOD,
	})
	require.NoError(t, err)

	require.Regexp(t, regexp.MustCompile(`^ORD-[A-Z0-9]{8}$`), o.OrderID)
	require.Equal(t, models.OrderStatusPending, o.Status)
	require.Equal(t, models.PaymentStatusPending, o.PaymentStatus)
	require.Equal(t, models.PaymentMethodCOD, o.PaymentMethod)
	require.True(t, o.TotalPrice.Equal(decimal.RequireFromString("100.00")), "total was %s", o.TotalPrice)

	require.Equal(t, 3, f.stock(t), "stock must drop by ordered quantity")
	require.EqualValues(t, 0, f.cartItemCount(t), "cart must be emptied")

	require.Len(t, o.Items, 1)
	require.Equal(t, 2, o.Items[0].Quantity)
	require.True(t, o.Items[0].Price.Equal(decimal.RequireFromString("50.00")))

	require.Equal(t, 1, f.rec.CountTopic("order_events"))
}

func TestCreateOrderInsufficientStock(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.db.Model(&models.CartItem{}).
		Where("cart_id = ?", f.cart.ID).
		UpdateColumn("quantity", 10).Error)

	_, err := f.svc.Create(context.Background(), testUserID, order.CreateRequest{
		ShippingAddress: "123 Test Street",
		PaymentMethod:   models.PaymentMethodCOD,
	})

	var stockErr *inventory.InsufficientStockError
	require.ErrorAs(t, err, &stockErr)
	require.Equal(t, 5, stockErr.Available)

	// Nothing may leak out of the rolled-back transaction.
	var orders int64
	require.NoError(t, f.db.Model(&models.Order{}).Count(&orders).Error)
	require.EqualValues(t, 0, orders)
	require.EqualValues(t, 1, f.cartItemCount(t), "cart must be unchanged")
	require.Equal(t, 5, f.stock(t), "stock must be unchanged")
	require.Equal(t, 0, f.rec.CountTopic("order_events"))
}

func TestCreateOrderEmptyCart(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.db.Where("cart_id = ?", f.cart.ID).Delete(&models.CartItem{}).Error)

	_, err := f.svc.Create(context.Background(), testUserID, order.CreateRequest{
		ShippingAddress: "123 Test Street",
	})
	require.ErrorIs(t, err, order.ErrEmptyCart)
}

func TestCreateOrderNoCartAtAll(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.Create(context.Background(), 42, order.CreateRequest{
		ShippingAddress: "123 Test Street",
	})
	require.ErrorIs(t, err, order.ErrEmptyCart)
}

func TestCreateOrderMissingAddress(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.Create(context.Background(), testUserID, order.CreateRequest{
		ShippingAddress: "   ",
	})
	require.ErrorIs(t, err, order.ErrMissingAddress)
	require.EqualValues(t, 1, f.cartItemCount(t))
}

func TestCreateOrderUnknownPaymentMethod(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.Create(context.Background(), testUserID, order.CreateRequest{
		ShippingAddress: "123 Test Street",
		PaymentMethod:   "barter",
	})
	require.ErrorIs(t, err, order.ErrInvalidPaymentMethod)
}

func TestCreateOrderDefaultsToCOD(t *testing.T) {
	f := newFixture(t)

	o, err := f.svc.Create(context.Background(), testUserID, order.CreateRequest{
		ShippingAddress: "123 Test Street",
	})
	require.NoError(t, err)
	require.Equal(t, models.PaymentMethodCOD, o.PaymentMethod)
}

// The order total and item prices are frozen at creation time.
func TestOrderTotalSurvivesPriceChange(t *testing.T) {
	f := newFixture(t)

	o, err := f.svc.Create(context.Background(), testUserID, order.CreateRequest{
		ShippingAddress: "123 Test Street",
		PaymentMethod:   models.PaymentMethodCOD,
	})
	require.NoError(t, err)

	require.NoError(t, f.db.Model(&models.Product{}).
		Where("id = ?", f.product.ID).
		UpdateColumn("price", decimal.RequireFromString("999.00")).Error)

	var reloaded models.Order
	require.NoError(t, f.db.Preload("Items").First(&reloaded, o.ID).Error)
	require.True(t, reloaded.TotalPrice.Equal(decimal.RequireFromString("100.00")))
	require.True(t, reloaded.Items[0].Price.Equal(decimal.RequireFromString("50.00")))
}

func TestCancelRestoresStock(t *testing.T) {
	f := newFixture(t)

	o, err := f.svc.Create(context.Background(), testUserID, order.CreateRequest{
		ShippingAddress: "123 Test Street",
		PaymentMethod:   models.PaymentMethodCOD,
	})
	require.NoError(t, err)
	require.Equal(t, 3, f.stock(t))

	cancelled, err := f.svc.Cancel(context.Background(), testUserID, o.OrderID)
	require.NoError(t, err)
	require.Equal(t, models.OrderStatusCancelled, cancelled.Status)
	require.Equal(t, 5, f.stock(t), "cancellation must restore the snapshot quantities")
}

// Cancellation restores the frozen snapshot even if the variant's stock
// moved for other reasons since the order was placed.
func TestCancelRestoresSnapshotNotCurrentCart(t *testing.T) {
	f := newFixture(t)

	o, err := f.svc.Create(context.Background(), testUserID, order.CreateRequest{
		ShippingAddress: "123 Test Street",
		PaymentMethod:   models.PaymentMethodCOD,
	})
	require.NoError(t, err)

	// Ledger fluctuates in between.
	require.NoError(t, f.db.Model(&models.ProductVariant{}).
		Where("id = ?", f.variant.ID).
		UpdateColumn("stock", 40).Error)

	_, err = f.svc.Cancel(context.Background(), testUserID, o.OrderID)
	require.NoError(t, err)
	require.Equal(t, 42, f.stock(t))
}

func TestCancelShippedOrderRejected(t *testing.T) {
	f := newFixture(t)

	o, err := f.svc.Create(context.Background(), testUserID, order.CreateRequest{
		ShippingAddress: "123 Test Street",
		PaymentMethod:   models.PaymentMethodCOD,
	})
	require.NoError(t, err)

	require.NoError(t, f.db.Model(&models.Order{}).
		Where("id = ?", o.ID).
		UpdateColumn("status", models.OrderStatusShipped).Error)

	_, err = f.svc.Cancel(context.Background(), testUserID, o.OrderID)
	require.ErrorIs(t, err, order.ErrCannotCancel)

	var reloaded models.Order
	require.NoError(t, f.db.First(&reloaded, o.ID).Error)
	require.Equal(t, models.OrderStatusShipped, reloaded.Status)
	require.Equal(t, 3, f.stock(t), "rejected cancellation must not touch stock")
}

func TestCancelOtherUsersOrder(t *testing.T) {
	f := newFixture(t)

	o, err := f.svc.Create(context.Background(), testUserID, order.CreateRequest{
		ShippingAddress: "123 Test Street",
		PaymentMethod:   models.PaymentMethodCOD,
	})
	require.NoError(t, err)

	_, err = f.svc.Cancel(context.Background(), 42, o.OrderID)
	require.ErrorIs(t, err, order.ErrNotFound)
}

func TestGetAndList(t *testing.T) {
	f := newFixture(t)

	o, err := f.svc.Create(context.Background(), testUserID, order.CreateRequest{
		ShippingAddress: "123 Test Street",
		PaymentMethod:   models.PaymentMethodCOD,
	})
	require.NoError(t, err)

	got, err := f.svc.Get(context.Background(), testUserID, o.OrderID)
	require.NoError(t, err)
	require.Equal(t, o.ID, got.ID)
	require.Len(t, got.Items, 1)

	_, err = f.svc.Get(context.Background(), 42, o.OrderID)
	require.ErrorIs(t, err, order.ErrNotFound)

	orders, total, err := f.svc.List(context.Background(), testUserID, 0, 10)
	require.NoError(t, err)
	require.EqualValues(t, 1, total)
	require.Len(t, orders, 1)
}
