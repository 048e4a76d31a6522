package domain

import "time"

// Address is a durable shipping address belonging to one user.
type Address struct {
	ID          string    `json:"id"`
	UserID      string    `json:"user_id"`
	FullName    string    `json:"full_name"`
	Phone       string    `json:"phone"`
	AddressLine string    `json:"address_line"`
	Ward        string    `json:"ward"`
	District    string    `json:"district"`
	City        string    `json:"city"`
	IsDefault   bool      `json:"is_default"`
	CreatedAt   time.Time `json:"created_at"`
}

// ShippingInfo returns the snapshot stored on an order.
func (a *Address) ShippingInfo() ShippingInfo {
	return ShippingInfo{
		FullName:    a.FullName,
		Phone:       a.Phone,
		AddressLine: a.AddressLine,
		Ward:        a.Ward,
		District:    a.District,
		City:        a.City,
	}
}

// IsComplete reports whether all required address fields are filled.
func (a *Address) IsComplete() bool {
	return a.FullName != "" && a.Phone != "" && a.AddressLine != "" && a.City != ""
}
