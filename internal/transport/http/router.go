package httpserver

import (
	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"github.com/parikart/storefront/internal/handlers"
	"github.com/parikart/storefront/internal/handlers/cart"
	"github.com/parikart/storefront/internal/handlers/order"
	"github.com/parikart/storefront/internal/handlers/payment"
)

type Deps struct {
	DB             *gorm.DB
	ProductHandler *handlers.ProductHandler
	SearchHandler  *handlers.SearchHandler
	CartHandler    *cart.CartHandler
	OrderHandler   *order.OrderHandler
	PaymentHandler *payment.PaymentHandler
}

func Register(e *echo.Echo, d *Deps) {
	e.GET("/health/live", func(c echo.Context) error { return c.NoContent(200) })
	e.GET("/health/ready", func(c echo.Context) error { return c.NoContent(200) })

	v1 := e.Group("/api/v1")

	products := v1.Group("/products")
	products.GET("", d.ProductHandler.GetProducts)
	products.GET("/:id", d.ProductHandler.GetProduct)

	v1.GET("/search", d.SearchHandler.Search)

	cartGroup := v1.Group("/cart")
	cartGroup.GET("", d.CartHandler.GetCart)
	cartGroup.POST("", d.CartHandler.AddToCart)
	cartGroup.DELETE("", d.CartHandler.ClearCart)
	cartGroup.POST("/items/:id/:action", d.CartHandler.UpdateItem)
	cartGroup.DELETE("/items/:id", d.CartHandler.RemoveItem)

	wishlist := v1.Group("/wishlist")
	wishlist.GET("", d.CartHandler.GetWishlist)
	wishlist.POST("", d.CartHandler.AddToWishlist)
	wishlist.DELETE("/:id", d.CartHandler.RemoveFromWishlist)

	orders := v1.Group("/orders")
	orders.POST("", d.OrderHandler.Checkout)
	orders.GET("", d.OrderHandler.List)
	orders.GET("/:order_id", d.OrderHandler.Detail)
	orders.POST("/:order_id/cancel", d.OrderHandler.Cancel)

	payments := v1.Group("/payments")
	payments.POST("/razorpay/initiate/:id", d.PaymentHandler.InitiateRazorpay)
	payments.POST("/razorpay/callback", d.PaymentHandler.RazorpayCallback)
	payments.POST("/stripe/initiate/:id", d.PaymentHandler.InitiateStripe)
	payments.GET("/stripe/success", d.PaymentHandler.StripeSuccess)
	payments.GET("/stripe/cancel", d.PaymentHandler.StripeCancel)
}
