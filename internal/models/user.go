package models

import (
	"strconv"
	"time"
)

// TokenTimeLayout is the creation timestamp format inside token content.
// Changing it invalidates every issued access token.
const TokenTimeLayout = "2006-01-02 15:04:05"

type User struct {
	ID         int64     `json:"-"`
	Created    time.Time `json:"-"`
	Updated    time.Time `json:"-"`
	Email      string    `json:"email"`
	Name       string    `json:"name"`
	PictureURL string    `json:"pictureUrl"`
}

// TokenContent is the canonical string hashed into the access token: id, creation time (UTC), email.
func (u User) TokenContent() string {
	return strconv.FormatInt(u.ID, 10) + u.Created.UTC().Format(TokenTimeLayout) + u.Email
}
