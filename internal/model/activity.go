package model

import (
	"time"

	"github.com/google/uuid"
)

type ActivityKind string

const (
	ActivityKindRecommendation ActivityKind = "recommendation"
	ActivityKindDiagnosis      ActivityKind = "diagnosis"
)

// Activity is one immutable audit-trail entry. Exactly one is appended
// per completed domain action; read-only actions never produce one.
type Activity struct {
	ID          uuid.UUID    `db:"id" json:"id"`
	UserID      uuid.UUID    `db:"user_id" json:"userId"`
	Kind        ActivityKind `db:"kind" json:"kind"`
	Title       string       `db:"title" json:"title"`
	Description string       `db:"description" json:"description"`
	ReferenceID uuid.UUID    `db:"reference_id" json:"referenceId"`
	CreatedAt   time.Time    `db:"created_at" json:"createdAt"`
}
