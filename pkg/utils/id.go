package utils

import "github.com/google/uuid"

// NewID returns a UUIDv7. Ids from one process sort in creation order, which
// breaks created_at ties when the column resolution is coarse.
func NewID() string { return uuid.Must(uuid.NewV7()).String() }
