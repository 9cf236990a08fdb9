package models

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	OrderStatusPending    = "pending"
	OrderStatusProcessing = "processing"
	OrderStatusShipped    = "shipped"
	OrderStatusDelivered  = "delivered"
	OrderStatusCancelled  = "cancelled"
)

const (
	PaymentMethodCOD      = "cod"
	PaymentMethodRazorpay = "razorpay"
	PaymentMethodStripe   = "stripe"
)

const (
	PaymentStatusPending   = "pending"
	PaymentStatusCompleted = "completed"
)

type Product struct {
	ID          uint             `gorm:"primaryKey;autoIncrement"    json:"id"`
	Name        string           `gorm:"not null"                    json:"name"`
	Description string           `gorm:"not null"                    json:"description"`
	Price       decimal.Decimal  `gorm:"type:numeric(10,2);not null" json:"price"`
	Category    string           `gorm:"index"                       json:"category"`
	CreatedAt   time.Time        `json:"created_at"`
	Variants    []ProductVariant `json:"variants,omitempty"`
}

type ProductVariant struct {
	ID        uint   `gorm:"primaryKey;autoIncrement"  json:"id"`
	ProductID uint   `gorm:"index;not null"            json:"product_id"`
	Size      string `json:"size"`
	Color     string `json:"color"`
	Stock     int    `gorm:"not null;check:stock >= 0" json:"stock"`
}

// Cart belongs either to a user or to an anonymous session key.
type Cart struct {
	ID         uint       `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID     *uint      `gorm:"index"                    json:"user_id,omitempty"`
	SessionKey string     `gorm:"index"                    json:"session_key,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
	Items      []CartItem `json:"items,omitempty"`
}

// CartItem keys on (cart, product, variant); VariantID 0 means the product
// has no size/color variants. The composite unique index backs the atomic
// insert-or-increment in AddToCart.
type CartItem struct {
	ID        uint      `gorm:"primaryKey;autoIncrement"                       json:"id"`
	CartID    uint      `gorm:"uniqueIndex:idx_cart_product_variant;not null"  json:"cart_id"`
	ProductID uint      `gorm:"uniqueIndex:idx_cart_product_variant;not null"  json:"product_id"`
	VariantID uint      `gorm:"uniqueIndex:idx_cart_product_variant;default:0" json:"variant_id,omitempty"`
	Quantity  int       `gorm:"not null;check:quantity > 0"                    json:"quantity"`
	CreatedAt time.Time `json:"created_at"`
}

type Wishlist struct {
	ID        uint      `gorm:"primaryKey;autoIncrement"              json:"id"`
	UserID    uint      `gorm:"uniqueIndex:idx_user_product;not null" json:"user_id"`
	ProductID uint      `gorm:"uniqueIndex:idx_user_product;not null" json:"product_id"`
	CreatedAt time.Time `json:"created_at"`
}

// Order is immutable after creation except for status, payment_status and
// the gateway correlation fields.
type Order struct {
	ID              uint            `gorm:"primaryKey;autoIncrement"    json:"id"`
	UserID          uint            `gorm:"index;not null"              json:"user_id"`
	OrderID         string          `gorm:"uniqueIndex;not null"        json:"order_id"`
	TotalPrice      decimal.Decimal `gorm:"type:numeric(10,2);not null" json:"total_price"`
	Status          string          `gorm:"not null;default:pending"    json:"status"`
	PaymentID       string          `json:"payment_id,omitempty"`
	RazorpayOrderID string          `gorm:"index"                       json:"razorpay_order_id,omitempty"`
	PaymentStatus   string          `gorm:"not null;default:pending"    json:"payment_status"`
	PaymentMethod   string          `gorm:"not null;default:cod"        json:"payment_method"`
	ShippingAddress string          `gorm:"not null"                    json:"shipping_address"`
	Phone           string          `json:"phone"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
	Items           []OrderItem     `gorm:"foreignKey:OrderID;references:ID" json:"items,omitempty"`
}

// OrderItem freezes the unit price at order-creation time.
type OrderItem struct {
	ID        uint            `gorm:"primaryKey;autoIncrement"    json:"id"`
	OrderID   uint            `gorm:"index;not null"              json:"order_id"`
	ProductID uint            `gorm:"not null"                    json:"product_id"`
	VariantID uint            `gorm:"default:0"                   json:"variant_id,omitempty"`
	Quantity  int             `gorm:"not null;check:quantity > 0" json:"quantity"`
	Price     decimal.Decimal `gorm:"type:numeric(10,2);not null" json:"price"`
}

// All lists every model for AutoMigrate.
func All() []any {
	return []any{
		&Product{},
		&ProductVariant{},
		&Cart{},
		&CartItem{},
		&Wishlist{},
		&Order{},
		&OrderItem{},
	}
}
