// Package testutils holds shared entity fixtures for tests
package testutils

import (
	"time"

	"github.com/google/uuid"
)

// Widget supports soft deletion through its DeletedAt column
type Widget struct {
	ID        int64      `db:"id"`
	Name      string     `db:"name"`
	DeletedAt *time.Time `db:"deleted_at"`
}

// Gadget has no deletion timestamp and is never filtered
type Gadget struct {
	ID   int64  `db:"id"`
	Name string `db:"name"`
}

// Asset is a soft-deletable entity with UUID identifiers
type Asset struct {
	ID        uuid.UUID  `db:"id"`
	Label     string     `db:"label"`
	DeletedAt *time.Time `db:"deleted_at"`
}
