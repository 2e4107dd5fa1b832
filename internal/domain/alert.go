package domain

// Alert is a rendered notification and its delivery target.
// Delivered at most once; failed deliveries are not retried.
type Alert struct {
	ChatID string
	Text   string
}
