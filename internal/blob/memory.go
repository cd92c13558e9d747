package blob

import (
	memorystore "penguindash/internal/infra/blob/memory"
)

// NewMemory returns an in-process store.
func NewMemory() Store { return memorystore.New() }
