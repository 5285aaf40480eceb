package model

import "time"

// Link is one shortened-link record. Records are created once, mutated only by
// click appends and never deleted.
type Link struct {
	ID        string    `json:"id"`
	LongURL   string    `json:"longUrl"`
	ShortCode string    `json:"shortCode"`
	CreatedAt time.Time `json:"createdAt"`
	Expiry    time.Time `json:"expiry"`
	Clicks    []Click   `json:"clicks"`
}

// IsExpired reports whether the link stopped resolving at the given time.
func (l *Link) IsExpired(now time.Time) bool {
	return now.After(l.Expiry)
}

// Clone returns a deep copy so callers never share the click slice with the store.
func (l *Link) Clone() Link {
	out := *l
	out.Clicks = make([]Click, len(l.Clicks))
	copy(out.Clicks, l.Clicks)
	return out
}
