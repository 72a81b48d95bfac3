package domain

import (
	"fmt"
	"html"
	"strings"
	"time"
)

// ExtensionName identifies this service in operator alerts.
const ExtensionName = "Avalara Tax Extension"

// Notification is an operator alert.
type Notification struct {
	Subject  string
	BodyHTML string
	OrderID  string
}

// NewFailureNotification describes a failed calculation for the storefront operators.
func NewFailureNotification(storefront string, err *CalculationError, at time.Time) Notification {
	subject := fmt.Sprintf("Storefront: %q had an ERROR occur in the %s", storefront, err.Stage.Activity())

	var body strings.Builder
	body.WriteString(html.EscapeString(subject))
	body.WriteString(" <br>")
	fmt.Fprintf(&body, "Date: %s  Time: %s <br>", at.Format("01022006"), at.Format("15:04:05 PM"))
	fmt.Fprintf(&body, "Extension: %s <br>", ExtensionName)
	fmt.Fprintf(&body, "Reason: %s <br>", html.EscapeString(string(err.Kind)))
	if err.Err != nil {
		fmt.Fprintf(&body, "Detail: %s <br>", html.EscapeString(err.Err.Error()))
	}
	fmt.Fprintf(&body, "ERROR occurred with Order ID: %s", html.EscapeString(err.OrderID))

	return Notification{
		Subject:  subject,
		BodyHTML: body.String(),
		OrderID:  err.OrderID,
	}
}

// CheckoutStep is the storefront module the host is currently running.
type CheckoutStep string

const (
	StepShipping CheckoutStep = "Shipping"
	StepPayment  CheckoutStep = "Payment"
)

// IsTaxStep reports whether tax is calculated on the given step. Orders without a
// shipping step reach payment directly, so both qualify.
func IsTaxStep(step string) bool {
	switch CheckoutStep(step) {
	case StepShipping, StepPayment:
		return true
	default:
		return false
	}
}
