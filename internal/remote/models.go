package remote

import "time"

// User is a directory entry as the records API returns it.
type User struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Phone string `json:"phone"`
}

// Record is one unit of contributed work. Category, status, and timestamp
// are passed through for export; the core only groups by OwnerID and
// counts by MediaType.
type Record struct {
	OwnerID   string    `json:"user_id"`
	Category  string    `json:"category"`
	MediaType string    `json:"media_type"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
}

type page[T any] struct {
	Items   []T  `json:"items"`
	HasMore bool `json:"has_more"`
}

type loginRequest struct {
	ID       string `json:"id"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token string `json:"token"`
}
