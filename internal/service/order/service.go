package order

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/parikart/storefront/internal/inventory"
	"github.com/parikart/storefront/internal/logging"
	"github.com/parikart/storefront/internal/models"
	"github.com/parikart/storefront/internal/mykafka"
)

var (
	ErrEmptyCart            = errors.New("cart is empty")
	ErrMissingAddress       = errors.New("shipping address required")
	ErrNotFound             = errors.New("order not found")
	ErrCannotCancel         = errors.New("order can no longer be cancelled")
	ErrInvalidPaymentMethod = errors.New("unsupported payment method")
)

const createAttempts = 3

type Service struct {
	DB       *gorm.DB
	Producer mykafka.Publisher
}

type CreateRequest struct {
	ShippingAddress string `json:"shipping_address"`
	Phone           string `json:"phone"`
	PaymentMethod   string `json:"payment_method"`
}

// Create turns the user's cart into an immutable order. Total computation,
// order and item rows, stock reservation and cart clearing all happen in one
// transaction, so a failed reservation leaves no trace.
func (s *Service) Create(ctx context.Context, userID uint, req CreateRequest) (*models.Order, error) {
	if strings.TrimSpace(req.ShippingAddress) == "" {
		return nil, ErrMissingAddress
	}

	method := req.PaymentMethod
	if method == "" {
		method = models.PaymentMethodCOD
	}
	switch method {
	case models.PaymentMethodCOD, models.PaymentMethodRazorpay, models.PaymentMethodStripe:
	default:
		return nil, fmt.Errorf("%w: %q", ErrInvalidPaymentMethod, req.PaymentMethod)
	}

	var created *models.Order
	for attempt := 0; attempt < createAttempts; attempt++ {
		o, err := s.createOnce(ctx, userID, req, method, NewOrderID())
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			// Order id collision: regenerate and retry with a fresh
			// transaction, since the failed insert aborted the last one.
			continue
		}
		if err != nil {
			return nil, err
		}
		created = o
		break
	}
	if created == nil {
		return nil, fmt.Errorf("create order: exhausted %d order id attempts", createAttempts)
	}

	s.publish(ctx, map[string]any{
		"type":           "order_created",
		"user_id":        created.UserID,
		"order_id":       created.OrderID,
		"total_price":    created.TotalPrice,
		"payment_method": created.PaymentMethod,
	})
	return created, nil
}

func (s *Service) createOnce(ctx context.Context, userID uint, req CreateRequest, method, orderID string) (*models.Order, error) {
	var order models.Order

	txErr := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var cart models.Cart
		err := tx.Preload("Items").Where("user_id = ?", userID).First(&cart).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrEmptyCart
		}
		if err != nil {
			return fmt.Errorf("load cart: %w", err)
		}
		if len(cart.Items) == 0 {
			return ErrEmptyCart
		}

		total := decimal.Zero
		prices := make(map[uint]decimal.Decimal, len(cart.Items))
		for _, it := range cart.Items {
			var p models.Product
			if err := tx.First(&p, it.ProductID).Error; err != nil {
				return fmt.Errorf("load product %d: %w", it.ProductID, err)
			}
			prices[it.ProductID] = p.Price
			total = total.Add(p.Price.Mul(decimal.NewFromInt(int64(it.Quantity))))
		}

		order = models.Order{
			UserID:          userID,
			OrderID:         orderID,
			TotalPrice:      total,
			Status:          models.OrderStatusPending,
			PaymentStatus:   models.PaymentStatusPending,
			PaymentMethod:   method,
			ShippingAddress: req.ShippingAddress,
			Phone:           req.Phone,
		}
		if err := tx.Create(&order).Error; err != nil {
			return err
		}

		for _, it := range cart.Items {
			oi := models.OrderItem{
				OrderID:   order.ID,
				ProductID: it.ProductID,
				VariantID: it.VariantID,
				Quantity:  it.Quantity,
				Price:     prices[it.ProductID],
			}
			if err := tx.Create(&oi).Error; err != nil {
				return fmt.Errorf("create order item: %w", err)
			}
			order.Items = append(order.Items, oi)

			if it.VariantID != 0 {
				if err := inventory.Reserve(tx, it.VariantID, it.Quantity); err != nil {
					return err
				}
			}
		}

		if err := tx.Where("cart_id = ?", cart.ID).Delete(&models.CartItem{}).Error; err != nil {
			return fmt.Errorf("clear cart: %w", err)
		}
		return nil
	})
	if txErr != nil {
		return nil, txErr
	}
	return &order, nil
}

// Cancel moves a pending or processing order to cancelled and puts back
// exactly the quantities frozen in its order items.
func (s *Service) Cancel(ctx context.Context, userID uint, orderRef string) (*models.Order, error) {
	var order models.Order

	txErr := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Preload("Items").Where("order_id = ? AND user_id = ?", orderRef, userID).First(&order).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("load order: %w", err)
		}

		if !CanCancel(order.Status) {
			return fmt.Errorf("%w: status %s", ErrCannotCancel, order.Status)
		}

		for _, it := range order.Items {
			if it.VariantID == 0 {
				continue
			}
			if err := inventory.Release(tx, it.VariantID, it.Quantity); err != nil {
				return err
			}
		}

		return Transition(tx, &order, models.OrderStatusCancelled)
	})
	if txErr != nil {
		return nil, txErr
	}

	s.publish(ctx, map[string]any{
		"type":     "order_cancelled",
		"user_id":  order.UserID,
		"order_id": order.OrderID,
	})
	return &order, nil
}

// Get returns one of the user's orders by its public reference.
func (s *Service) Get(ctx context.Context, userID uint, orderRef string) (*models.Order, error) {
	var order models.Order
	err := s.DB.WithContext(ctx).Preload("Items").
		Where("order_id = ? AND user_id = ?", orderRef, userID).
		First(&order).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load order: %w", err)
	}
	return &order, nil
}

// List returns the user's orders newest first.
func (s *Service) List(ctx context.Context, userID uint, offset, limit int) ([]models.Order, int64, error) {
	q := s.DB.WithContext(ctx).Model(&models.Order{}).Where("user_id = ?", userID)

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("count orders: %w", err)
	}

	var orders []models.Order
	if err := q.Order("created_at DESC, id DESC").Offset(offset).Limit(limit).Find(&orders).Error; err != nil {
		return nil, 0, fmt.Errorf("list orders: %w", err)
	}
	return orders, total, nil
}

func (s *Service) publish(ctx context.Context, event map[string]any) {
	if s.Producer == nil {
		return
	}
	pubCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if err := s.Producer.PublishEvent(pubCtx, "order_events", fmt.Sprint(event["user_id"]), event); err != nil {
		logging.FromContext(ctx).Error("order event publish failed", "error", err)
	}
}
