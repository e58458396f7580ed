package http

import (
	"github.com/nats-io/nats.go"

	"github.com/samirrijal/canopyviz/internal/adapters/postgres"
	"github.com/samirrijal/canopyviz/internal/adapters/valkey"
	"github.com/samirrijal/canopyviz/internal/core/domain"
	"github.com/samirrijal/canopyviz/internal/core/usecases"
)

// Dependencies holds all services needed by HTTP handlers.
// Only Viz is required; the rest may be nil.
type Dependencies struct {
	Viz   *usecases.VisualizationService
	View  domain.MapView
	NATS  *nats.Conn
	DB    *postgres.DB
	Cache *valkey.Cache
}
