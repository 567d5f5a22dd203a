package models

import "time"

// CursorSession is a captured pointer trace for one client session.
type CursorSession struct {
	SessionID string           `json:"sessionId"`
	Events    []MovementSample `json:"events"`
	CreatedAt time.Time        `json:"createdAt"`
}
