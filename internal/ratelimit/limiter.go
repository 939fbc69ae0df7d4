package ratelimit

// RateLimiter controls outbound delivery volume per destination endpoint.
type RateLimiter interface {
	// TryReserve admits count deliveries for the endpoint, or refuses without
	// mutating any state.
	TryReserve(endpoint string, count int) bool
	// Reset drops all recorded deliveries.
	Reset()
	// Snapshot reports the number of deliveries currently inside each
	// endpoint's window.
	Snapshot() map[string]int
}
