package ledger

// EntryType classifies a balance-affecting event
type EntryType string

const (
	EntryTypePurchase         EntryType = "purchase"
	EntryTypeDailyBonus       EntryType = "dailyBonus"
	EntryTypeAdminGrant       EntryType = "adminGrant"
	EntryTypeAdminRemove      EntryType = "adminRemove"
	EntryTypeKeyRedemption    EntryType = "keyRedemption"
	EntryTypeCourseUnlock     EntryType = "courseUnlock"
	EntryTypeRefund           EntryType = "refund"
	EntryTypePromotion        EntryType = "promotion"
	EntryTypeReferral         EntryType = "referral"
	EntryTypeCashback         EntryType = "cashback"
	EntryTypeBookingCharge    EntryType = "bookingCharge"
	EntryTypeBookingRefund    EntryType = "bookingRefund"
	EntryTypePlanCharge       EntryType = "planCharge"
	EntryTypePlanRefund       EntryType = "planRefund"
	EntryTypeReviewCharge     EntryType = "reviewCharge"
	EntryTypeReviewRefund     EntryType = "reviewRefund"
	EntryTypeCommissionPayout EntryType = "commissionPayout"
)

// direction is true for credits
var directions = map[EntryType]bool{
	EntryTypePurchase:         true,
	EntryTypeDailyBonus:       true,
	EntryTypeAdminGrant:       true,
	EntryTypeKeyRedemption:    true,
	EntryTypeRefund:           true,
	EntryTypePromotion:        true,
	EntryTypeReferral:         true,
	EntryTypeCashback:         true,
	EntryTypeBookingRefund:    true,
	EntryTypePlanRefund:       true,
	EntryTypeReviewRefund:     true,
	EntryTypeCommissionPayout: true,
	EntryTypeAdminRemove:      false,
	EntryTypeCourseUnlock:     false,
	EntryTypeBookingCharge:    false,
	EntryTypePlanCharge:       false,
	EntryTypeReviewCharge:     false,
}

var refundTypes = map[EntryType]EntryType{
	EntryTypeCourseUnlock:  EntryTypeRefund,
	EntryTypeBookingCharge: EntryTypeBookingRefund,
	EntryTypePlanCharge:    EntryTypePlanRefund,
	EntryTypeReviewCharge:  EntryTypeReviewRefund,
	EntryTypeAdminRemove:   EntryTypeAdminGrant,
}

// Valid reports whether t is a known entry type
func (t EntryType) Valid() bool {
	_, ok := directions[t]
	return ok
}

// IsCredit reports whether entries of type t increase the balance
func (t EntryType) IsCredit() bool {
	return directions[t]
}

// RefundType returns the compensating credit type for a debit type
func (t EntryType) RefundType() (EntryType, bool) {
	rt, ok := refundTypes[t]
	return rt, ok
}
