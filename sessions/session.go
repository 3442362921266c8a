package sessions

import "time"

// Session is the local proof that the user recently authenticated.
// It is stored as JSON under vault.KeySession; at most one exists per device.
type Session struct {
	ID           string    `json:"id"`           // Unique session identifier (UUID)
	CreatedAt    time.Time `json:"createdAt"`    // When the session was created
	LastActivity time.Time `json:"lastActivity"` // Last user interaction, never before CreatedAt
}

// IdleFor returns how long the session has been inactive at now.
func (s *Session) IdleFor(now time.Time) time.Duration {
	return now.Sub(s.LastActivity)
}

// Expired reports whether the session reached the inactivity timeout at now.
// A session idle for exactly the timeout is expired.
func (s *Session) Expired(now time.Time, timeout time.Duration) bool {
	return s.IdleFor(now) >= timeout
}
