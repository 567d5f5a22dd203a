//go:build wireinject
// +build wireinject

package di

import (
	"RiskScore/pkg/config"
	"RiskScore/pkg/server"

	"github.com/google/wire"
)

// InitializeApp wires up all dependencies and returns the application.
// Wire will generate the implementation of this function.
func InitializeApp(cfg *config.Config) (*server.App, error) {
	wire.Build(
		// Ambient
		ProvideLogger,
		ProvideMetrics,

		// Artifacts and model clients
		ProvideArtifacts,
		ProvideModelService,
		ProvideMouseModel,
		ProvideFraudModel,
		ProvideTabularModel,

		// Infrastructure clients
		ProvideKafkaProducer,
		ProvideKafkaConsumer,
		ProvideClickHouseClient,
		ProvideVerdictCache,

		// Repositories and pipelines
		ProvideCursorStore,
		ProvideAuditPipeline,

		// Use cases
		ProvideDispatcher,
		ProvideCursorSessions,
		ProvideKafkaCursorHandler,

		// Transport
		ProvideHTTPHandler,
		ProvideHTTPServer,

		// Application server
		ProvideApp,
	)
	return &server.App{}, nil
}
