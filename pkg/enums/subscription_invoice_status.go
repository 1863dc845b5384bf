package enums

import "fmt"

// SubscriptionInvoiceStatus reflects the payment state of a billing invoice
// mirrored from the gateway.
type SubscriptionInvoiceStatus string

const (
	SubscriptionInvoiceStatusPaid    SubscriptionInvoiceStatus = "paid"
	SubscriptionInvoiceStatusPending SubscriptionInvoiceStatus = "pending"
	SubscriptionInvoiceStatusFailed  SubscriptionInvoiceStatus = "failed"
)

var validSubscriptionInvoiceStatuses = []SubscriptionInvoiceStatus{
	SubscriptionInvoiceStatusPaid,
	SubscriptionInvoiceStatusPending,
	SubscriptionInvoiceStatusFailed,
}

// String implements fmt.Stringer.
func (s SubscriptionInvoiceStatus) String() string {
	return string(s)
}

// IsValid reports whether the value is known.
func (s SubscriptionInvoiceStatus) IsValid() bool {
	for _, candidate := range validSubscriptionInvoiceStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// ParseSubscriptionInvoiceStatus converts raw input into a status value.
func ParseSubscriptionInvoiceStatus(value string) (SubscriptionInvoiceStatus, error) {
	for _, candidate := range validSubscriptionInvoiceStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid subscription invoice status %q", value)
}
