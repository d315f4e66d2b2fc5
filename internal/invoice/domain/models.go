package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

// Invoice is the durable receipt of a completed payment. It is written once.
type Invoice struct {
	ID        snowflake.ID `json:"id" gorm:"primaryKey"`
	PaymentID string       `json:"payment_id"`
	BookingID string       `json:"booking_id"`
	Number    string       `json:"number"`
	Amount    int64        `json:"amount"`
	Currency  string       `json:"currency"`
	FileURL   *string      `json:"file_url,omitempty"`
	IssuedAt  time.Time    `json:"issued_at"`
	CreatedAt time.Time    `json:"created_at"`
}

func (Invoice) TableName() string { return "invoices" }

type IssueRequest struct {
	PaymentID string
	BookingID string
	Amount    int64
	Currency  string
}

// Document is a rendered invoice ready for storage.
type Document struct {
	Key         string
	ContentType string
	Body        []byte
}
