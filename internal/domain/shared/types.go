package shared

// OutboxStatus defines message publishing states
type OutboxStatus string

const (
	OutboxStatusPending         OutboxStatus = "PENDING"
	OutboxStatusProcessed       OutboxStatus = "PROCESSED"
	OutboxStatusFailedToPublish OutboxStatus = "FAILED_TO_PUBLISH"
)

// PaymentProvider names the external capture that funded a coin purchase
type PaymentProvider string

const (
	PaymentProviderStoreKit PaymentProvider = "storekit"
	PaymentProviderPayPal   PaymentProvider = "paypal"
)

// Valid reports whether the provider is one the ledger accepts callbacks from
func (p PaymentProvider) Valid() bool {
	return p == PaymentProviderStoreKit || p == PaymentProviderPayPal
}
