package models

import "time"

// Holder is a dividend recipient
type Holder struct {
	Share          float64 `json:"share"`
	AncestralLevel int     `json:"ancestral_level"`
}

// Allocation is the split of a fixed token supply
type Allocation struct {
	TotalSupply       float64 `json:"total_supply"`
	Outer             float64 `json:"outer"`              // one outer partition
	Inner             float64 `json:"inner"`              // inner partition, retired by burning
	Burned            float64 `json:"burned"`
	CommunityMineable float64 `json:"community_mineable"` // both outer partitions
}

// OracleReading is an external price observation, stored as a segment payload
type OracleReading struct {
	ID        string    `json:"id"`
	Price     float64   `json:"price"`
	Timestamp time.Time `json:"timestamp"`
	Source    string    `json:"source"`
}
