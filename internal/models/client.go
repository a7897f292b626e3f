package models

import (
	"time"
)

// Client represents a billable party
type Client struct {
	ID            uint      `gorm:"primaryKey" json:"id"`
	CompanyName   string    `gorm:"size:150;not null" json:"company_name"`
	ContactPerson string    `gorm:"size:100" json:"contact_person"`
	MobileNumber  string    `gorm:"size:30" json:"mobile_number"`
	Address       string    `gorm:"type:text" json:"address"`
	City          string    `gorm:"size:100" json:"city"`
	IsActive      bool      `gorm:"not null;index" json:"is_active"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// TableName specifies the table name for Client
func (Client) TableName() string {
	return "clients"
}

// ClientResponse is the JSON response format for clients
type ClientResponse struct {
	ID            uint      `json:"id"`
	CompanyName   string    `json:"company_name"`
	ContactPerson string    `json:"contact_person"`
	MobileNumber  string    `json:"mobile_number"`
	Address       string    `json:"address"`
	City          string    `json:"city"`
	IsActive      bool      `json:"is_active"`
	CreatedAt     time.Time `json:"created_at"`
}

// ToResponse converts Client to ClientResponse
func (c *Client) ToResponse() ClientResponse {
	return ClientResponse{
		ID:            c.ID,
		CompanyName:   c.CompanyName,
		ContactPerson: c.ContactPerson,
		MobileNumber:  c.MobileNumber,
		Address:       c.Address,
		City:          c.City,
		IsActive:      c.IsActive,
		CreatedAt:     c.CreatedAt,
	}
}
