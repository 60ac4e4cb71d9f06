package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"time"

	"github.com/google/uuid"
)

// SessionMaxAge is how long a recorded session stays valid.
const SessionMaxAge = 48 * time.Hour

// Session binds a bearer token (stored only as its hash) to a user.
type Session struct {
	ID        string    `json:"id" dynamodbav:"ID"`
	TokenHash string    `json:"tokenHash" dynamodbav:"TokenHash"`
	UserID    string    `json:"userId" dynamodbav:"UserID"`
	Pseudo    string    `json:"pseudo" dynamodbav:"Pseudo"`
	CreatedAt time.Time `json:"createdAt" dynamodbav:"CreatedAt"`
}

// NewSession records token for the given user. Only the hash of the token is kept.
func NewSession(userID, pseudo, token string, now time.Time) Session {
	return Session{
		ID:        uuid.New().String(),
		TokenHash: HashToken(token),
		UserID:    userID,
		Pseudo:    pseudo,
		CreatedAt: now,
	}
}

// Expired reports whether the session is older than SessionMaxAge at now.
func (s Session) Expired(now time.Time) bool {
	return now.Sub(s.CreatedAt) > SessionMaxAge
}

// HashToken returns the lowercase hex SHA-256 of a token.
func HashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
