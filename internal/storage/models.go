package storage

import (
	"time"

	"github.com/shopspring/decimal"
)

// StraddleSample is one persisted straddle observation. Rows are append
// only; nothing in this system updates or deletes them.
type StraddleSample struct {
	ID            int64
	IndexID       string
	AtmStrike     int64
	CallPrice     decimal.Decimal
	PutPrice      decimal.Decimal
	StraddlePrice decimal.Decimal
	LTP           decimal.Decimal
	CreatedAt     time.Time
}
