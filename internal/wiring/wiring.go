// Package wiring registers all Graft nodes for the application.
package wiring

import (
	// Register adapter nodes.
	_ "go.trai.ch/claimgraph/internal/adapters/config"
	_ "go.trai.ch/claimgraph/internal/adapters/logger"
	// Register app and engine nodes.
	_ "go.trai.ch/claimgraph/internal/app"
	_ "go.trai.ch/claimgraph/internal/engine/layout"
)
