package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTransactionKind_Valid(t *testing.T) {
	assert.True(t, KindSale.Valid())
	assert.True(t, KindLease.Valid())
	assert.False(t, TransactionKind("auction").Valid())
	assert.False(t, TransactionKind("").Valid())
	assert.False(t, TransactionKind("SALE").Valid())
}

func TestSaleTransaction_Record(t *testing.T) {
	complexID := int64(7)
	sale := SaleTransaction{
		ID:          42,
		AptName:     "센트럴파크아파트",
		RegionCode:  "1168010100",
		LegalDong:   "역삼동",
		Jibun:       "123-45",
		ComplexID:   &complexID,
		DealAmount:  185000,
		MatchFailed: true,
	}

	record := sale.Record()

	assert.Equal(t, KindSale, record.Kind)
	assert.Equal(t, int64(42), record.ID)
	assert.Equal(t, "센트럴파크아파트", record.AptName)
	assert.Equal(t, "1168010100", record.RegionCode)
	assert.Equal(t, "역삼동", record.LegalDong)
	assert.Equal(t, "123-45", record.Jibun)
	assert.Equal(t, &complexID, record.ComplexID)
	assert.True(t, record.MatchFailed)
}

func TestLeaseTransaction_Record(t *testing.T) {
	lease := LeaseTransaction{
		ID:          43,
		AptName:     "래미안강남",
		RegionCode:  "1168010100",
		LegalDong:   "대치동",
		Jibun:       "77",
		Deposit:     50000,
		MonthlyRent: 120,
	}

	record := lease.Record()

	assert.Equal(t, KindLease, record.Kind)
	assert.Equal(t, int64(43), record.ID)
	assert.Equal(t, "래미안강남", record.AptName)
	assert.Nil(t, record.ComplexID)
	assert.False(t, record.MatchFailed)
}

func TestTableNames(t *testing.T) {
	assert.Equal(t, "sale_transactions", SaleTransaction{}.TableName())
	assert.Equal(t, "lease_transactions", LeaseTransaction{}.TableName())
	assert.Equal(t, "complexes", Complex{}.TableName())
}

func TestComplex_LotNumber(t *testing.T) {
	jibun := "123-45"
	empty := ""

	tests := []struct {
		name     string
		complex  Complex
		expected string
	}{
		{
			name:     "dedicated jibun column wins",
			complex:  Complex{Jibun: &jibun, Address: "서울특별시 강남구 역삼동 99"},
			expected: "123-45",
		},
		{
			name:     "nil jibun falls back to address",
			complex:  Complex{Address: "서울특별시 강남구 역삼동 99"},
			expected: "서울특별시 강남구 역삼동 99",
		},
		{
			name:     "empty jibun falls back to address",
			complex:  Complex{Jibun: &empty, Address: "서울특별시 강남구 역삼동 99"},
			expected: "서울특별시 강남구 역삼동 99",
		},
		{
			name:     "no lot information",
			complex:  Complex{},
			expected: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.complex.LotNumber())
		})
	}
}
