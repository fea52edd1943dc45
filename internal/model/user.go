package model

import "time"

// User is keyed by the email reported by the primary provider. Created on
// the first successful Drive callback, never deleted by this service.
type User struct {
	ID         string    `db:"id" json:"id"`
	Email      string    `db:"email" json:"email"`
	EtsyShopID *string   `db:"etsy_shop_id" json:"etsyShopId,omitempty"`
	CreatedAt  time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt  time.Time `db:"updated_at" json:"updatedAt"`
}

type CreateUserParams struct {
	Email string
}
