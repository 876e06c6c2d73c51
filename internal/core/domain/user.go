package domain

import "time"

type User struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	BusinessName string    `json:"business_name"`
	OwnerName    string    `json:"owner_name"`
	Phone        string    `json:"phone"`
	CreatedAt    time.Time `json:"created_at"`
}
