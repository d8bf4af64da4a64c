package layout

import (
	"context"

	"github.com/grindlemire/graft"
)

// NodeID is the unique identifier for the layout engine Graft node.
const NodeID graft.ID = "engine.layout"

func init() {
	graft.Register(graft.Node[*Engine]{
		ID:        NodeID,
		Cacheable: true,
		Run: func(_ context.Context) (*Engine, error) {
			return NewEngine(), nil
		},
	})
}
