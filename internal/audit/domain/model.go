package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

type ActorType string

const (
	ActorTypeSystem   ActorType = "system"
	ActorTypeAdmin    ActorType = "admin"
	ActorTypeProvider ActorType = "provider"
	ActorTypePayout   ActorType = "payout"
)

const (
	TargetPayment         = "payment"
	TargetPaymentSplit    = "payment_split"
	TargetPaymentAnomaly  = "payment_anomaly"
	TargetProviderAccount = "venue_provider_account"
)

// Entry is one mutation to record. An empty ActorType falls back to the actor
// carried on the context, then to system.
type Entry struct {
	ActorType  ActorType
	ActorID    string
	Action     string
	TargetType string
	TargetID   string
	Metadata   map[string]any
}

// AuditLog is the stored form of an Entry plus request provenance.
type AuditLog struct {
	ID         snowflake.ID      `json:"id" gorm:"primaryKey"`
	ActorType  string            `json:"actor_type"`
	ActorID    *string           `json:"actor_id,omitempty"`
	Action     string            `json:"action"`
	TargetType string            `json:"target_type"`
	TargetID   *string           `json:"target_id,omitempty"`
	Metadata   datatypes.JSONMap `json:"metadata,omitempty"`
	IPAddress  *string           `json:"ip_address,omitempty"`
	UserAgent  *string           `json:"user_agent,omitempty"`
	CreatedAt  time.Time         `json:"created_at"`
}

func (AuditLog) TableName() string { return "audit_logs" }

type ListFilter struct {
	Action     string
	TargetType string
	TargetID   string
	Since      *time.Time
	Until      *time.Time

	// keyset position: rows strictly older than (BeforeAt, BeforeID)
	BeforeAt *time.Time
	BeforeID snowflake.ID
	Limit    int
}
