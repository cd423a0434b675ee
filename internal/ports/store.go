package ports

import (
	"context"

	"github.com/greenfuze/rig/internal/rig"
)

// Store persists a frozen graph. Implementations write the whole graph in a
// single transaction; a failed write leaves the store unchanged.
type Store interface {
	Persist(ctx context.Context, g *rig.Graph) error
	Close() error
}
