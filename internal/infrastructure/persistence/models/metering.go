package models

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"

	"github.com/vicemeter/backend/internal/domain/metering"
)

// UsageBucketModel is the persistence model for one (user, day) usage
// counter. The per-category and per-domain maps are stored as JSON columns;
// their shapes are small and never queried by key.
type UsageBucketModel struct {
	ID             uint      `gorm:"primaryKey;autoIncrement"`
	UserID         string    `gorm:"type:varchar(100);not null;uniqueIndex:idx_bucket_user_day,priority:1"`
	Day            string    `gorm:"type:varchar(10);not null;uniqueIndex:idx_bucket_user_day,priority:2"`
	ByCategoryJSON string    `gorm:"column:by_category;type:jsonb;not null;default:'{}'"`
	ByDomainJSON   string    `gorm:"column:by_domain;type:jsonb;not null;default:'{}'"`
	UpdatedAt      time.Time `gorm:"not null"`
}

// TableName returns the table name for GORM
func (UsageBucketModel) TableName() string {
	return "usage_buckets"
}

// ToDomain converts the persistence model to a domain UsageBucket
func (m *UsageBucketModel) ToDomain() (*metering.UsageBucket, error) {
	bucket := metering.NewUsageBucket(m.UserID, m.Day)
	bucket.UpdatedAt = m.UpdatedAt

	if m.ByCategoryJSON != "" {
		if err := json.Unmarshal([]byte(m.ByCategoryJSON), &bucket.ByCategory); err != nil {
			return nil, err
		}
	}
	if m.ByDomainJSON != "" {
		if err := json.Unmarshal([]byte(m.ByDomainJSON), &bucket.ByDomain); err != nil {
			return nil, err
		}
	}
	return bucket, nil
}

// FromDomain populates the persistence model from a domain UsageBucket
func (m *UsageBucketModel) FromDomain(bucket *metering.UsageBucket) error {
	byCategory, err := json.Marshal(bucket.ByCategory)
	if err != nil {
		return err
	}
	byDomain, err := json.Marshal(bucket.ByDomain)
	if err != nil {
		return err
	}

	m.UserID = bucket.UserID
	m.Day = bucket.Day
	m.ByCategoryJSON = string(byCategory)
	m.ByDomainJSON = string(byDomain)
	m.UpdatedAt = bucket.UpdatedAt
	return nil
}

// ConsentModel is the persistence model for a consent snapshot. One row per
// user; re-consent replaces the row.
type ConsentModel struct {
	UserID              string    `gorm:"type:varchar(100);primaryKey"`
	GraceJSON           string    `gorm:"column:grace;type:jsonb;not null;default:'{}'"`
	RatesJSON           string    `gorm:"column:rates;type:jsonb;not null;default:'{}'"`
	CategoriesJSON      string    `gorm:"column:categories_on;type:jsonb;not null;default:'{}'"`
	TOSHash             string    `gorm:"type:varchar(128)"`
	Timestamp           time.Time `gorm:"not null"`
	ProcessorCustomerID string    `gorm:"type:varchar(100)"`
	PaymentMethodID     string    `gorm:"type:varchar(100)"`
	UpdatedAt           time.Time `gorm:"not null"`
}

// TableName returns the table name for GORM
func (ConsentModel) TableName() string {
	return "consent_snapshots"
}

// ToDomain converts the persistence model to a domain ConsentSnapshot
func (m *ConsentModel) ToDomain() (*metering.ConsentSnapshot, error) {
	snapshot := &metering.ConsentSnapshot{
		UserID:              m.UserID,
		TOSHash:             m.TOSHash,
		Timestamp:           m.Timestamp,
		ProcessorCustomerID: m.ProcessorCustomerID,
		PaymentMethodID:     m.PaymentMethodID,
	}

	if m.GraceJSON != "" && m.GraceJSON != "null" {
		if err := json.Unmarshal([]byte(m.GraceJSON), &snapshot.Grace); err != nil {
			return nil, err
		}
	}
	if m.RatesJSON != "" && m.RatesJSON != "null" {
		rates := make(map[metering.Category]decimal.Decimal)
		if err := json.Unmarshal([]byte(m.RatesJSON), &rates); err != nil {
			return nil, err
		}
		snapshot.Rates = rates
	}
	if m.CategoriesJSON != "" && m.CategoriesJSON != "null" {
		categoriesOn := make(map[metering.Category]bool)
		if err := json.Unmarshal([]byte(m.CategoriesJSON), &categoriesOn); err != nil {
			return nil, err
		}
		snapshot.CategoriesOn = categoriesOn
	}
	return snapshot, nil
}

// FromDomain populates the persistence model from a domain ConsentSnapshot
func (m *ConsentModel) FromDomain(snapshot *metering.ConsentSnapshot) error {
	grace, err := json.Marshal(snapshot.Grace)
	if err != nil {
		return err
	}
	rates, err := json.Marshal(snapshot.Rates)
	if err != nil {
		return err
	}
	categoriesOn, err := json.Marshal(snapshot.CategoriesOn)
	if err != nil {
		return err
	}

	m.UserID = snapshot.UserID
	m.GraceJSON = string(grace)
	m.RatesJSON = string(rates)
	m.CategoriesJSON = string(categoriesOn)
	m.TOSHash = snapshot.TOSHash
	m.Timestamp = snapshot.Timestamp
	m.ProcessorCustomerID = snapshot.ProcessorCustomerID
	m.PaymentMethodID = snapshot.PaymentMethodID
	return nil
}

// RolloverModel is the persistence model for the carried cents between
// settlement attempts. One row per user; Set replaces the value.
type RolloverModel struct {
	UserID    string    `gorm:"type:varchar(100);primaryKey"`
	Cents     int64     `gorm:"not null;default:0"`
	UpdatedAt time.Time `gorm:"not null"`
}

// TableName returns the table name for GORM
func (RolloverModel) TableName() string {
	return "rollovers"
}
