package payment

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/parikart/storefront/internal/gateway/stripe"
	"github.com/parikart/storefront/internal/logging"
	"github.com/parikart/storefront/internal/models"
	"github.com/parikart/storefront/internal/mykafka"
	"github.com/parikart/storefront/internal/service/order"
)

var (
	ErrOrderNotFound      = errors.New("order not found")
	ErrVerificationFailed = errors.New("payment verification failed")
	ErrGatewayUnavailable = errors.New("payment gateway not configured")
	ErrGateway            = errors.New("payment gateway error")
)

// SignatureVerifier is the slice of the razorpay client the reconciler uses.
type SignatureVerifier interface {
	VerifySignature(orderID, paymentID, signature string) bool
}

// SessionRetriever is the slice of the stripe client the reconciler uses.
type SessionRetriever interface {
	RetrieveSession(ctx context.Context, sessionID string) (*stripe.CheckoutSession, error)
}

// Reconciler confirms gateway payments and drives the order state machine.
// Gateway clients are injected at startup; a nil client means the gateway is
// not configured.
type Reconciler struct {
	DB       *gorm.DB
	Razorpay SignatureVerifier
	Stripe   SessionRetriever
	Producer mykafka.Publisher
}

// ConfirmRazorpay handles the gateway callback. The order is located by the
// gateway-assigned order reference; the signature must verify before any
// state moves.
func (r *Reconciler) ConfirmRazorpay(ctx context.Context, rzpOrderID, paymentID, signature string) (*models.Order, error) {
	if r.Razorpay == nil {
		return nil, ErrGatewayUnavailable
	}

	var o models.Order
	err := r.DB.WithContext(ctx).Where("razorpay_order_id = ?", rzpOrderID).First(&o).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrOrderNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load order: %w", err)
	}

	if !r.Razorpay.VerifySignature(rzpOrderID, paymentID, signature) {
		return nil, ErrVerificationFailed
	}

	return r.complete(ctx, &o, paymentID)
}

// ConfirmStripe handles the success redirect. The order is the user's own,
// located by primary key; payment status comes from a round-trip to the
// gateway, never from the client.
func (r *Reconciler) ConfirmStripe(ctx context.Context, userID, orderPK uint, sessionID string) (*models.Order, error) {
	if r.Stripe == nil {
		return nil, ErrGatewayUnavailable
	}

	var o models.Order
	err := r.DB.WithContext(ctx).Where("id = ? AND user_id = ?", orderPK, userID).First(&o).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrOrderNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load order: %w", err)
	}

	sess, err := r.Stripe.RetrieveSession(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrGateway, err)
	}
	if sess.PaymentStatus != "paid" {
		return nil, fmt.Errorf("%w: session %s is %q", ErrVerificationFailed, sessionID, sess.PaymentStatus)
	}

	return r.complete(ctx, &o, sess.PaymentIntent)
}

// complete is idempotent: gateways retry callbacks, and stock moved at
// order creation, so a re-confirmation must not mutate anything again.
func (r *Reconciler) complete(ctx context.Context, o *models.Order, paymentID string) (*models.Order, error) {
	if o.PaymentStatus == models.PaymentStatusCompleted {
		return o, nil
	}

	txErr := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		updates := map[string]any{
			"payment_id":     paymentID,
			"payment_status": models.PaymentStatusCompleted,
		}
		if err := tx.Model(o).Updates(updates).Error; err != nil {
			return fmt.Errorf("record payment: %w", err)
		}
		o.PaymentID = paymentID
		o.PaymentStatus = models.PaymentStatusCompleted

		if o.Status == models.OrderStatusPending {
			if err := order.Transition(tx, o, models.OrderStatusProcessing); err != nil {
				return err
			}
		}

		// Clearing an already-empty cart is a no-op.
		var cart models.Cart
		err := tx.Where("user_id = ?", o.UserID).First(&cart).Error
		if err == nil {
			if err := tx.Where("cart_id = ?", cart.ID).Delete(&models.CartItem{}).Error; err != nil {
				return fmt.Errorf("clear cart: %w", err)
			}
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("load cart: %w", err)
		}
		return nil
	})
	if txErr != nil {
		return nil, txErr
	}

	r.publish(ctx, map[string]any{
		"type":       "payment_completed",
		"user_id":    o.UserID,
		"order_id":   o.OrderID,
		"payment_id": o.PaymentID,
	})
	return o, nil
}

func (r *Reconciler) publish(ctx context.Context, event map[string]any) {
	if r.Producer == nil {
		return
	}
	pubCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if err := r.Producer.PublishEvent(pubCtx, "order_events", fmt.Sprint(event["user_id"]), event); err != nil {
		logging.FromContext(ctx).Error("payment event publish failed", "error", err)
	}
}
