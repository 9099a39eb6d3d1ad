package storage

import "time"

// User is a registered account for the optional sync/auth API.
type User struct {
	ID           string
	Username     string
	PasswordHash string
	CreatedAt    time.Time
}

// BlockedDomain is a domain the user wants closed automatically.
type BlockedDomain struct {
	Domain    string
	CreatedAt time.Time
}

// Stats holds aggregate statistics about the tempo database.
type Stats struct {
	Keys           int64
	Users          int64
	BlockedDomains int64
}
