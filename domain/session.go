package domain

import "time"

// Session is the server-side record of a signed-in user. LastActivity is kept
// in its stored string form; a missing or corrupt value is reseeded by the
// activity tracker instead of failing the request.
type Session struct {
	ID           string    `json:"id" redis:"-"`
	UserID       string    `json:"user_id" redis:"user_id"`
	LastActivity string    `json:"last_activity,omitempty" redis:"last_activity"`
	IPAddress    string    `json:"ip_address,omitempty" redis:"ip_address"`
	UserAgent    string    `json:"user_agent,omitempty" redis:"user_agent"`
	CreatedAt    time.Time `json:"created_at" redis:"-"`
}

// LastActivityLayout is the wire format of Session.LastActivity.
const LastActivityLayout = time.RFC3339Nano

// FormatActivity renders t in the stored LastActivity format.
func FormatActivity(t time.Time) string {
	return t.UTC().Format(LastActivityLayout)
}

// ParseActivity parses a stored LastActivity value. ok is false when the value
// is absent or unparsable.
func ParseActivity(raw string) (t time.Time, ok bool) {
	if raw == "" {
		return time.Time{}, false
	}
	parsed, err := time.Parse(LastActivityLayout, raw)
	if err != nil {
		return time.Time{}, false
	}
	return parsed, true
}
