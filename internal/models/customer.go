package models

import "time"

// Customer is a registered buyer. Orders reference customers by id; the
// customer record never embeds its orders.
type Customer struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Email       string    `json:"email"`
	PhoneNumber string    `json:"phone_number,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

type RegisterCustomerRequest struct {
	Name        string `json:"name" validate:"notblank"`
	Email       string `json:"email" validate:"notblank,email"`
	PhoneNumber string `json:"phone_number"`
}

// CustomerFilter narrows a customer search. Nil fields are ignored.
type CustomerFilter struct {
	NamePrefix   *string
	Email        *string
	CreatedAfter *time.Time
}
