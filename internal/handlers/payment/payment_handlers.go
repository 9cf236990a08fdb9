package payment

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/parikart/storefront/internal/gateway/razorpay"
	"github.com/parikart/storefront/internal/gateway/stripe"
	"github.com/parikart/storefront/internal/handlers/identity"
	"github.com/parikart/storefront/internal/models"
	paymentsvc "github.com/parikart/storefront/internal/service/payment"
)

type PaymentHandler struct {
	DB         *gorm.DB
	Razorpay   *razorpay.Client
	Stripe     *stripe.Client
	Reconciler *paymentsvc.Reconciler
	JWTSecret  []byte

	// BaseURL is this service's public address, used to build the stripe
	// redirect targets.
	BaseURL string
}

// InitiateRazorpay registers the order with the gateway and returns what the
// browser widget needs. The gateway's order reference is stored for the
// callback to correlate on.
func (h *PaymentHandler) InitiateRazorpay(c echo.Context) error {
	if h.Razorpay == nil {
		return echo.NewHTTPError(http.StatusServiceUnavailable, "razorpay gateway not configured")
	}

	order, err := h.userOrder(c)
	if err != nil {
		return err
	}

	amount := minorUnits(order.TotalPrice)
	rzpOrder, err := h.Razorpay.CreateOrder(c.Request().Context(), amount, "INR", fmt.Sprintf("receipt_%d", order.ID))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadGateway, err.Error())
	}

	updates := map[string]any{
		"razorpay_order_id": rzpOrder.ID,
		"payment_method":    models.PaymentMethodRazorpay,
	}
	if err := h.DB.Model(order).Updates(updates).Error; err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	return c.JSON(http.StatusOK, echo.Map{
		"key_id":            h.Razorpay.KeyID(),
		"razorpay_order_id": rzpOrder.ID,
		"amount":            amount,
		"currency":          "INR",
		"order_id":          order.OrderID,
	})
}

// RazorpayCallback is the unauthenticated server-to-server confirmation.
func (h *PaymentHandler) RazorpayCallback(c echo.Context) error {
	paymentID := c.FormValue("razorpay_payment_id")
	rzpOrderID := c.FormValue("razorpay_order_id")
	signature := c.FormValue("razorpay_signature")
	if paymentID == "" || rzpOrderID == "" || signature == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "missing payment fields")
	}

	order, err := h.Reconciler.ConfirmRazorpay(c.Request().Context(), rzpOrderID, paymentID, signature)
	if err != nil {
		return mapConfirmError(err)
	}
	return c.JSON(http.StatusOK, order)
}

// InitiateStripe opens a hosted checkout session and returns its redirect
// URL; success and cancel come back on separate endpoints.
func (h *PaymentHandler) InitiateStripe(c echo.Context) error {
	if h.Stripe == nil {
		return echo.NewHTTPError(http.StatusServiceUnavailable, "stripe gateway not configured")
	}

	order, err := h.userOrder(c)
	if err != nil {
		return err
	}

	params := stripe.CheckoutParams{
		AmountMinor: minorUnits(order.TotalPrice),
		Currency:    "inr",
		Name:        "Order " + order.OrderID,
		Description: "Purchase from Pari kart",
		SuccessURL:  fmt.Sprintf("%s/api/v1/payments/stripe/success?session_id={CHECKOUT_SESSION_ID}&order_id=%d", h.BaseURL, order.ID),
		CancelURL:   h.BaseURL + "/api/v1/payments/stripe/cancel",
	}
	sess, err := h.Stripe.CreateCheckoutSession(c.Request().Context(), params)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadGateway, err.Error())
	}

	if err := h.DB.Model(order).Update("payment_method", models.PaymentMethodStripe).Error; err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	return c.JSON(http.StatusOK, echo.Map{
		"session_id":   sess.ID,
		"checkout_url": sess.URL,
	})
}

// StripeSuccess verifies the session against the gateway before trusting it.
func (h *PaymentHandler) StripeSuccess(c echo.Context) error {
	userID, err := identity.GetID(c, h.JWTSecret)
	if err != nil {
		return err
	}

	sessionID := c.QueryParam("session_id")
	orderPK, convErr := strconv.Atoi(c.QueryParam("order_id"))
	if sessionID == "" || convErr != nil || orderPK <= 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "missing session or order id")
	}

	order, err := h.Reconciler.ConfirmStripe(c.Request().Context(), userID, uint(orderPK), sessionID)
	if err != nil {
		return mapConfirmError(err)
	}
	return c.JSON(http.StatusOK, order)
}

func (h *PaymentHandler) StripeCancel(c echo.Context) error {
	return c.JSON(http.StatusOK, echo.Map{"status": "cancelled", "detail": "payment was cancelled, please try again"})
}

// userOrder loads the order named by the :id path param, scoped to the
// caller. Gateway initiation uses the numeric primary key, not the public
// order reference.
func (h *PaymentHandler) userOrder(c echo.Context) (*models.Order, error) {
	userID, err := identity.GetID(c, h.JWTSecret)
	if err != nil {
		return nil, err
	}

	id, err := strconv.Atoi(c.Param("id"))
	if err != nil || id <= 0 {
		return nil, echo.NewHTTPError(http.StatusBadRequest, "invalid order id")
	}

	var order models.Order
	dbErr := h.DB.Where("id = ? AND user_id = ?", id, userID).First(&order).Error
	if errors.Is(dbErr, gorm.ErrRecordNotFound) {
		return nil, echo.NewHTTPError(http.StatusNotFound, "order not found")
	}
	if dbErr != nil {
		return nil, echo.NewHTTPError(http.StatusInternalServerError, dbErr.Error())
	}
	return &order, nil
}

func mapConfirmError(err error) error {
	switch {
	case errors.Is(err, paymentsvc.ErrOrderNotFound):
		return echo.NewHTTPError(http.StatusNotFound, "order not found")
	case errors.Is(err, paymentsvc.ErrVerificationFailed):
		return echo.NewHTTPError(http.StatusBadRequest, "payment verification failed")
	case errors.Is(err, paymentsvc.ErrGatewayUnavailable):
		return echo.NewHTTPError(http.StatusServiceUnavailable, "payment gateway not configured")
	case errors.Is(err, paymentsvc.ErrGateway):
		return echo.NewHTTPError(http.StatusBadGateway, err.Error())
	default:
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
}

func minorUnits(d decimal.Decimal) int64 {
	return d.Mul(decimal.NewFromInt(100)).Round(0).IntPart()
}
