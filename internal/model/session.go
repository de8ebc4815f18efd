package model

import "time"

type SessionID string

type Session struct {
	SessionID    SessionID `db:"SessionID" json:"sessionId"`
	AuthToken    string    `db:"AuthToken" json:"authToken"`
	UserID       UserID    `db:"UserID" json:"userId"`
	ClientAesKey string    `db:"ClientAesKey" json:"clientAesKey"`
	CreatedTime  time.Time `db:"CreatedTime" json:"createdTime"`
	ExpTime      time.Time `db:"ExpTime" json:"expTime"`
}

func (s *Session) Expired(now time.Time) bool {
	return !now.Before(s.ExpTime)
}
