package models

// User identity as referenced by the messaging core. Account management is
// owned by another service; only lookup fields live here.
type User struct {
	ID        int64   `db:"id" json:"id"`
	Email     string  `db:"email" json:"email"`
	FirstName string  `db:"first_name" json:"first_name"`
	LastName  string  `db:"last_name" json:"last_name"`
	PhotoURL  *string `db:"photo_url" json:"photo_url,omitempty"`
}
