package model

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Diagnosis is one persisted pest-diagnosis request and its result.
type Diagnosis struct {
	ID        uuid.UUID       `db:"id" json:"id"`
	UserID    uuid.UUID       `db:"user_id" json:"userId"`
	ImageURL  string          `db:"image_url" json:"imageUrl"`
	CropType  string          `db:"crop_type" json:"cropType,omitempty"`
	Result    json.RawMessage `db:"result" json:"result"`
	Status    RecordStatus    `db:"status" json:"status"`
	CreatedAt time.Time       `db:"created_at" json:"createdAt"`
}

// Treatment is one recommended treatment inside a diagnosis result.
type Treatment struct {
	Method      string `json:"method"`
	Description string `json:"description"`
	Timing      string `json:"timing"`
	Precautions string `json:"precautions"`
}

// PestReport is the structured diagnosis returned to the caller.
type PestReport struct {
	Pest               string      `json:"pest"`
	Confidence         float64     `json:"confidence"`
	Severity           string      `json:"severity"`
	Description        string      `json:"description"`
	Symptoms           []string    `json:"symptoms"`
	Causes             []string    `json:"causes"`
	Treatments         []Treatment `json:"treatments"`
	PreventiveMeasures []string    `json:"preventiveMeasures"`
	AffectedParts      []string    `json:"affectedParts"`
	SpreadRisk         string      `json:"spreadRisk"`
}
