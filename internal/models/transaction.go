package models

import (
	"time"
)

// TransactionKind distinguishes the two structurally parallel transaction
// tables. Sale and lease rows share the matching-relevant columns; only the
// amount columns differ, and the engine never inspects those.
type TransactionKind string

const (
	KindSale  TransactionKind = "sale"
	KindLease TransactionKind = "lease"
)

// Valid reports whether the kind names a known transaction table.
func (k TransactionKind) Valid() bool {
	return k == KindSale || k == KindLease
}

// SaleTransaction is a reported apartment sale from the government feed.
// ComplexID is NULL at ingestion time and is written exactly once by the
// matching engine (or cleared again by an explicit unlink).
type SaleTransaction struct {
	CreatedAt   time.Time `gorm:"column:created_at" json:"createdAt"`
	UpdatedAt   time.Time `gorm:"column:updated_at" json:"updatedAt"`
	DealDate    time.Time `gorm:"index;column:deal_date" json:"dealDate"`
	ComplexID   *int64    `gorm:"index;column:complex_id" json:"complexId,omitempty"`
	AptName     string    `gorm:"size:200;column:apt_name" json:"aptName"`
	RegionCode  string    `gorm:"size:10;index;column:region_code" json:"regionCode"`
	LegalDong   string    `gorm:"size:100;index;column:legal_dong" json:"legalDong"`
	Jibun       string    `gorm:"size:50;column:jibun" json:"jibun"`
	DealAmount  int64     `gorm:"column:deal_amount" json:"dealAmount"`
	ID          int64     `gorm:"primaryKey" json:"id"`
	MatchFailed bool      `gorm:"default:false;column:match_failed" json:"matchFailed"`
}

// TableName specifies the table name for GORM migrations on the ingestion side.
func (SaleTransaction) TableName() string {
	return "sale_transactions"
}

// LeaseTransaction is a reported apartment lease (jeonse or monthly rent).
type LeaseTransaction struct {
	CreatedAt   time.Time `gorm:"column:created_at" json:"createdAt"`
	UpdatedAt   time.Time `gorm:"column:updated_at" json:"updatedAt"`
	DealDate    time.Time `gorm:"index;column:deal_date" json:"dealDate"`
	ComplexID   *int64    `gorm:"index;column:complex_id" json:"complexId,omitempty"`
	AptName     string    `gorm:"size:200;column:apt_name" json:"aptName"`
	RegionCode  string    `gorm:"size:10;index;column:region_code" json:"regionCode"`
	LegalDong   string    `gorm:"size:100;index;column:legal_dong" json:"legalDong"`
	Jibun       string    `gorm:"size:50;column:jibun" json:"jibun"`
	Deposit     int64     `gorm:"column:deposit" json:"deposit"`
	MonthlyRent int64     `gorm:"column:monthly_rent" json:"monthlyRent"`
	ID          int64     `gorm:"primaryKey" json:"id"`
	MatchFailed bool      `gorm:"default:false;column:match_failed" json:"matchFailed"`
}

// TableName specifies the table name for GORM migrations on the ingestion side.
func (LeaseTransaction) TableName() string {
	return "lease_transactions"
}

// TransactionRecord is the kind-neutral view of a transaction that the
// matching engine operates on. It carries exactly the columns matching needs;
// amounts stay behind in the kind-specific structs.
type TransactionRecord struct {
	ComplexID   *int64          `json:"complexId,omitempty"`
	AptName     string          `json:"aptName"`
	RegionCode  string          `json:"regionCode"`
	LegalDong   string          `json:"legalDong"`
	Jibun       string          `json:"jibun"`
	Kind        TransactionKind `json:"kind"`
	ID          int64           `json:"id"`
	MatchFailed bool            `json:"matchFailed"`
}

// Record converts a sale row into the engine's kind-neutral view.
func (t *SaleTransaction) Record() TransactionRecord {
	return TransactionRecord{
		ComplexID:   t.ComplexID,
		AptName:     t.AptName,
		RegionCode:  t.RegionCode,
		LegalDong:   t.LegalDong,
		Jibun:       t.Jibun,
		Kind:        KindSale,
		ID:          t.ID,
		MatchFailed: t.MatchFailed,
	}
}

// Record converts a lease row into the engine's kind-neutral view.
func (t *LeaseTransaction) Record() TransactionRecord {
	return TransactionRecord{
		ComplexID:   t.ComplexID,
		AptName:     t.AptName,
		RegionCode:  t.RegionCode,
		LegalDong:   t.LegalDong,
		Jibun:       t.Jibun,
		Kind:        KindLease,
		ID:          t.ID,
		MatchFailed: t.MatchFailed,
	}
}
