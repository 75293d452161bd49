package models

import (
	"time"
)

type IssuedToken struct {
	Value     string
	ExpiresAt time.Time
}

// TokenPair issued by the token manager on login and on every rotation
type TokenPair struct {
	Access  IssuedToken
	Refresh IssuedToken
}
