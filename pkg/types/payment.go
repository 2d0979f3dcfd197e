package types

type PaymentProvider string

const (
	PaymentProviderStripe PaymentProvider = "stripe"
	PaymentProviderInner  PaymentProvider = "inner"
)

// PaymentType classifies what a purchased unit gives access to.
type PaymentType string

const (
	PaymentTypeAnalysis    PaymentType = "analysis"
	PaymentTypeCapsule     PaymentType = "capsule"
	PaymentTypePack        PaymentType = "pack"
	PaymentTypeEbook       PaymentType = "ebook"
	PaymentTypeAbonnement  PaymentType = "abonnement"
	PaymentTypeCoaching    PaymentType = "coaching"
	PaymentTypeMasterclass PaymentType = "masterclass"
)

type PaymentStatus string

const (
	PaymentStatusSucceeded PaymentStatus = "succeeded"
	PaymentStatusPending   PaymentStatus = "pending"
	PaymentStatusFailed    PaymentStatus = "failed"
)

// Catalog categories as stored in the product table.
const (
	CategoryAnalysis    = "analyse-financiere"
	CategoryPack        = "pack"
	CategoryEbook       = "ebook"
	CategoryAbonnement  = "abonnement"
	CategoryCoaching    = "coaching"
	CategoryMasterclass = "masterclass"
	CategoryCapsules    = "capsules"
)

// GrantsEntitlement reports whether a purchase of the given category shows up
// in the user's purchased-items view. Subscriptions and financial analyses
// never do.
func GrantsEntitlement(category string) bool {
	return category != CategoryAbonnement && category != CategoryAnalysis
}
