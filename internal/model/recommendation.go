package model

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

type RecordStatus string

const (
	RecordStatusPending   RecordStatus = "pending"
	RecordStatusCompleted RecordStatus = "completed"
	RecordStatusSaved     RecordStatus = "saved"
)

// Recommendation is one persisted crop-recommendation request together
// with the advisory result produced for it. Rows are written once by the
// recommendation handler and never mutated there afterwards.
type Recommendation struct {
	ID          uuid.UUID       `db:"id" json:"id"`
	UserID      uuid.UUID       `db:"user_id" json:"userId"`
	SoilType    string          `db:"soil_type" json:"soilType"`
	Season      string          `db:"season" json:"season"`
	Location    string          `db:"location" json:"location"`
	Preferences string          `db:"preferences" json:"preferences,omitempty"`
	Latitude    *float64        `db:"latitude" json:"latitude,omitempty"`
	Longitude   *float64        `db:"longitude" json:"longitude,omitempty"`
	Result      json.RawMessage `db:"result" json:"result"`
	Status      RecordStatus    `db:"status" json:"status"`
	CreatedAt   time.Time       `db:"created_at" json:"createdAt"`
}

// CropAdvice is the handler's public result shape, remapped from the
// provider's JSON before it leaves the upstream boundary.
type CropAdvice struct {
	Name             string   `json:"name"`
	Suitability      string   `json:"suitability"`
	Timing           string   `json:"timing"`
	ExpectedYield    string   `json:"expectedYield"`
	CareInstructions string   `json:"careInstructions"`
	WaterNeeds       string   `json:"waterNeeds,omitempty"`
	MarketDemand     string   `json:"marketDemand,omitempty"`
	Risks            []string `json:"risks,omitempty"`
}
