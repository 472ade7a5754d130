package constants

// Public link path prefixes used when building client-facing URLs
const (
	PublicInvoicePath = "/i/"
	PublicReviewPath  = "/r/"
)
