package models

// Identity is one entry in the upstream directory snapshot. The ID is the
// only field the directory guarantees; name and phone are operator-entered
// and may be empty, duplicated, or malformed.
type Identity struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Phone string `json:"phone"`
}
