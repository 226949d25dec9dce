package entity

import "time"

type PosConfigLink struct {
	PaymentMethodID uint64
	PosConfigID     uint64
	CreatedAt       time.Time
}
