package model

import "time"

// Click records one redirect-time visit to a short link.
type Click struct {
	Time     time.Time `json:"time"`
	Source   string    `json:"source"`
	Location string    `json:"location"`
}

const (
	DefaultClickSource   = "direct"
	DefaultClickLocation = "Unknown"
)

// LinkEventType names what happened to a link.
type LinkEventType string

const (
	LinkCreated LinkEventType = "link.created"
	LinkClicked LinkEventType = "link.clicked"
)

// LinkEvent is the message published to the event stream for every store mutation.
type LinkEvent struct {
	ID         string        `json:"id"`
	Type       LinkEventType `json:"type"`
	ShortCode  string        `json:"shortCode"`
	LongURL    string        `json:"longUrl"`
	Clicks     int           `json:"clicks"`
	OccurredAt time.Time     `json:"occurredAt"`
}

const (
	LinkStreamName    = "LINKS"
	LinkStreamSubject = "links.events"
	LinkStreamMaxAge  = 7 * 24 * time.Hour
)
