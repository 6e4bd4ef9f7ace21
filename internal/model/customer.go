package model

import (
	"strings"
	"time"
)

// CustomerInfo is the contact data supplied with a booking request.  The
// e-mail address is the natural key used to upsert the customer record.
type CustomerInfo struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Phone string `json:"phone,omitempty"`
}

// Normalized returns a copy with trimmed fields and a lower-cased e-mail.
func (c CustomerInfo) Normalized() CustomerInfo {
	return CustomerInfo{
		Name:  strings.TrimSpace(c.Name),
		Email: strings.ToLower(strings.TrimSpace(c.Email)),
		Phone: strings.TrimSpace(c.Phone),
	}
}

// Customer mirrors the `customers` table.
type Customer struct {
	ID        uint64
	Email     string
	Name      string
	Phone     string
	CreatedAt time.Time
	UpdatedAt time.Time
}
