//go:build wireinject
// +build wireinject

// The build tag makes sure the stub is not built in the final build.

package app

import (
	"github.com/google/wire"
	"github.com/l1jgo/tickworld/internal/config"
	"github.com/l1jgo/tickworld/internal/persist"
	"go.uber.org/zap"
)

// Build assembles the App from configuration, an open database and a logger.
// The returned cleanup stops the listener, the save queue, the Lua VM and
// the worker pool.
func Build(cfg *config.Config, db *persist.DB, log *zap.Logger) (*App, func(), error) {
	wire.Build(ProviderSet)
	return nil, nil, nil
}
