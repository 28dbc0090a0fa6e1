// Package model holds the data shared by the cart, catalog and order components.
// Entities reference each other by id only; lookups go through the owning store.
package model

import (
	"time"

	"github.com/google/uuid"
)

// Role is the privilege level of a caller.
type Role string

const (
	RoleStandard   Role = "standard"
	RolePrivileged Role = "privileged"
)

// Identity is the resolved caller of an operation.
type Identity struct {
	ID    uuid.UUID
	Email string
	Role  Role
}

// IsPrivileged reports whether the identity bypasses ownership checks.
func (i Identity) IsPrivileged() bool {
	return i.Role == RolePrivileged
}

// User is a record of the external user directory.
type User struct {
	ID    uuid.UUID `json:"id"`
	Email string    `json:"email"`
}

// Item is a catalog entry. UnitPrice is in cents.
type Item struct {
	ID            uuid.UUID `json:"id"`
	Name          string    `json:"name"`
	UnitPrice     int64     `json:"unit_price"`
	StockQuantity int32     `json:"stock_quantity"`
}

// Cart is the single live cart of an owner.
// Total is derived from current catalog prices and is never read back from storage.
type Cart struct {
	ID      uuid.UUID `json:"id"`
	OwnerID uuid.UUID `json:"owner_id"`
	Lines   LineSet   `json:"lines"`
	Total   int64     `json:"total"`
}

// PaymentUnspecified is recorded when checkout gets a blank payment method.
const PaymentUnspecified = "UNSPECIFIED"

// Order is created by checkout. Lines is a snapshot and never changes afterwards;
// only Status (and the derived Details/Total view) does.
type Order struct {
	ID            uuid.UUID    `json:"id"`
	OwnerID       uuid.UUID    `json:"owner_id"`
	Lines         LineSet      `json:"lines"`
	OrderDate     time.Time    `json:"order_date"`
	Status        Status       `json:"status"`
	PaymentMethod string       `json:"payment_method"`
	Version       int32        `json:"version"`
	Details       []LineDetail `json:"details,omitempty"`
	Total         int64        `json:"total"`
}

// LineDetail is the read-time join of a snapshot line with the current catalog item.
type LineDetail struct {
	ItemID    uuid.UUID `json:"item_id"`
	ItemName  string    `json:"item_name"`
	Quantity  int32     `json:"quantity"`
	UnitPrice int64     `json:"unit_price"`
	Subtotal  int64     `json:"subtotal"`
}
