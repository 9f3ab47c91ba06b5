package domain

import "time"

// RiskLevel is the derived classification of a user's recent sending
// activity. It is advisory and never client-writable.
type RiskLevel string

const (
	RiskLow    RiskLevel = "low"
	RiskMedium RiskLevel = "medium"
	RiskHigh   RiskLevel = "high"
)

// ParseRiskLevel maps a stored string onto a RiskLevel, defaulting to low
// for anything unrecognised.
func ParseRiskLevel(value string) RiskLevel {
	switch RiskLevel(value) {
	case RiskMedium:
		return RiskMedium
	case RiskHigh:
		return RiskHigh
	default:
		return RiskLow
	}
}

// User aggregates the canonical user node data.
type User struct {
	ID               string
	Subject          string // external identity subject, unique and immutable
	Name             string
	Balance          float64
	RiskScore        RiskLevel
	ProfileImage     string
	Reserve          bool
	CreatedAt        time.Time
	LastBonusClaimAt *time.Time
}

// UserRef is the counterparty summary embedded in feed items.
type UserRef struct {
	ID           string
	Name         string
	ProfileImage string
}
