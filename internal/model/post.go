package model

import "time"

// Post is a captioned image uploaded by a user.
//
// UserID references the author; it is stored alongside the post but posts are
// never updated or deleted through the API.
type Post struct {
	ID        string    `json:"id"`
	Caption   string    `json:"caption"`
	ImageURL  string    `json:"imageUrl"`
	UserID    string    `json:"userId"`
	CreatedAt time.Time `json:"createdAt"`
}
