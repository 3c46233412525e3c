package storage

import "crocPlanner/internal/model"

// Storage defines a sink for plan records.
type Storage interface {
	PutPlanBatch(records []model.PlanRecord) error
}
