package port

import "time"

// AuthMetrics records authentication outcomes.
type AuthMetrics interface {
	ObserveLogin(outcome string)
	ObserveRefresh(source, outcome string)
	ObserveAuthentication(outcome string)
	ObservePasswordHash(operation string, elapsed time.Duration)
}
