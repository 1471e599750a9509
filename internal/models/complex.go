package models

import (
	"time"
)

// Complex is a canonical apartment-complex record. Rows are created and
// refreshed by the ingestion pipeline; the matching engine only reads them
// and links transactions to them via complex_id.
// All nullable fields use pointers to distinguish between zero values and NULL.
type Complex struct {
	CreatedAt   time.Time `gorm:"column:created_at" json:"createdAt"`
	UpdatedAt   time.Time `gorm:"column:updated_at" json:"updatedAt"`
	ComplexCode *string   `gorm:"size:50;uniqueIndex;column:complex_code" json:"complexCode,omitempty"`
	RoadAddress *string   `gorm:"size:500;column:road_address" json:"roadAddress,omitempty"`
	Jibun       *string   `gorm:"size:50;column:jibun" json:"jibun,omitempty"`
	HoCnt       *int      `gorm:"column:ho_cnt" json:"hoCnt,omitempty"`
	Name        string    `gorm:"size:200;index;not null;column:name" json:"name"`
	Address     string    `gorm:"size:500;column:address" json:"address"`
	RegionCode  string    `gorm:"size:10;index;not null;column:region_code" json:"regionCode"`
	LegalDong   string    `gorm:"size:100;index;column:legal_dong" json:"legalDong"`
	ID          int64     `gorm:"primaryKey" json:"id"`
}

// TableName specifies the table name for GORM migrations on the ingestion side.
func (Complex) TableName() string {
	return "complexes"
}

// LotNumber returns the text the jibun scorer should compare for this complex.
// Older feed rows lack a dedicated jibun column; the lot number is then still
// embedded in the address, and digit-run extraction works on either form.
func (c *Complex) LotNumber() string {
	if c.Jibun != nil && *c.Jibun != "" {
		return *c.Jibun
	}
	return c.Address
}
