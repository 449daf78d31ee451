//go:build wireinject
// +build wireinject

// The build tag makes sure the stub is not built in the final build.

package injector

import (
	"github.com/google/wire"

	"github.com/zeusync/corestate/internal/core/config"
	"github.com/zeusync/corestate/internal/core/session"
	"github.com/zeusync/corestate/internal/core/trace"
)

func InitializeSession(cfg config.Config, replayer *trace.Replayer) (*session.Session, error) {
	wire.Build(SessionSet)
	return nil, nil
}
