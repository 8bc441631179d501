//go:build wireinject
// +build wireinject

package main

import (
	"github.com/google/wire"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/yanqian/malina-auth/internal/bootstrap"
	"github.com/yanqian/malina-auth/internal/domain/auth"
	"github.com/yanqian/malina-auth/internal/infra/config"
	httpiface "github.com/yanqian/malina-auth/internal/interface/http"
	"github.com/yanqian/malina-auth/pkg/logger"
	"github.com/yanqian/malina-auth/pkg/metrics"
)

func initializeApp() (*bootstrap.App, func(), error) {
	wire.Build(
		config.Load,
		logger.New,
		provideAuthConfig,
		provideGoogleConfig,
		provideClock,
		provideKeyManager,
		provideRegistry,
		wire.Bind(new(prometheus.Registerer), new(*prometheus.Registry)),
		wire.Bind(new(prometheus.Gatherer), new(*prometheus.Registry)),
		metrics.NewAuthMetrics,
		wire.Bind(new(auth.OutcomeRecorder), new(*metrics.AuthMetrics)),
		provideHashPool,
		provideHasher,
		auth.NewTokenIssuer,
		auth.NewTokenVerifier,
		provideCredentialStore,
		provideLoginThrottle,
		auth.NewService,
		provideSessionTransport,
		httpiface.NewAuthHandler,
		httpiface.NewRouter,
		bootstrap.NewApp,
	)
	return nil, nil, nil
}
