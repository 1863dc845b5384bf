package stripewebhook

// EventKind is the closed set of gateway events the reconciler acts on.
// Anything else parses to EventKindUnknown and is acknowledged without
// side effects, so new gateway event types never break delivery.
type EventKind string

const (
	EventKindCheckoutCompleted       EventKind = "checkout.session.completed"
	EventKindSubscriptionUpdated     EventKind = "customer.subscription.updated"
	EventKindSubscriptionDeleted     EventKind = "customer.subscription.deleted"
	EventKindInvoicePaymentSucceeded EventKind = "invoice.payment_succeeded"
	EventKindInvoicePaymentFailed    EventKind = "invoice.payment_failed"
	EventKindUnknown                 EventKind = "unknown"
)

var knownEventKinds = []EventKind{
	EventKindCheckoutCompleted,
	EventKindSubscriptionUpdated,
	EventKindSubscriptionDeleted,
	EventKindInvoicePaymentSucceeded,
	EventKindInvoicePaymentFailed,
}

func (k EventKind) String() string {
	return string(k)
}

// ParseEventKind maps a raw gateway event type onto the handled set.
func ParseEventKind(raw string) EventKind {
	for _, candidate := range knownEventKinds {
		if raw == string(candidate) {
			return candidate
		}
	}
	return EventKindUnknown
}
