package injector

import (
	"github.com/google/wire"

	"github.com/zeusync/corestate/internal/core/aggregator"
	"github.com/zeusync/corestate/internal/core/config"
	"github.com/zeusync/corestate/internal/core/cpu"
	"github.com/zeusync/corestate/internal/core/observability/log"
	"github.com/zeusync/corestate/internal/core/session"
	"github.com/zeusync/corestate/internal/core/sink"
	"github.com/zeusync/corestate/internal/core/trace"
)

// SessionSet builds a session around a trace replayer.
var SessionSet = wire.NewSet(
	ProvideLogger,
	ProvideSink,
	aggregator.New,
	session.New,
	wire.Bind(new(cpu.Probe), new(*trace.Replayer)),
	wire.Bind(new(session.Source), new(*trace.Replayer)),
)

func ProvideLogger(cfg config.Config) log.Log {
	logger := log.Provide()
	logger.SetLevel(log.ParseLevel(cfg.LogLevel))
	return logger
}

func ProvideSink(cfg config.Config) (sink.Sink, error) {
	return sink.New(cfg.OutputFormat, cfg.OutputDir)
}
