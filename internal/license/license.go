// Package license renders the license text issued with a completed order.
package license

import (
	"fmt"
	"time"
)

// Text returns the license for an order. The output depends only on its
// arguments, so re-rendering an order's license yields the same string.
func Text(sellerName, buyerName, orderID string, issuedAt time.Time) string {
	return fmt.Sprintf("Copyright © %d %s, Licensed to: %s (License ID: %s)",
		issuedAt.Year(), sellerName, buyerName, orderID)
}

// DownloadURL is the path a buyer fetches the licensed font from.
func DownloadURL(orderID string) string {
	return "/api/download/" + orderID
}
