package order

import (
	"crypto/rand"
	"fmt"
)

const orderIDAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// NewOrderID returns "ORD-" plus 8 random uppercase alphanumerics. The
// unique constraint on orders.order_id is the backstop; Create regenerates
// on a collision.
func NewOrderID() string {
	buf := make([]byte, 8)
	if _, err := rand.Read(buf); err != nil {
		panic(fmt.Sprintf("order id entropy: %v", err))
	}
	for i, b := range buf {
		buf[i] = orderIDAlphabet[int(b)%len(orderIDAlphabet)]
	}
	return "ORD-" + string(buf)
}
