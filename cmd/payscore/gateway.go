package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/LerianStudio/lib-payscore/payscore"
	"github.com/LerianStudio/lib-payscore/payscore/certificate"
	"github.com/LerianStudio/lib-payscore/payscore/client"
	"github.com/LerianStudio/lib-payscore/payscore/log"
	libRedis "github.com/LerianStudio/lib-payscore/payscore/redis"
	libZap "github.com/LerianStudio/lib-payscore/payscore/zap"
)

// gateway holds the collaborators built from the environment for commands
// that talk to the API.
type gateway struct {
	cfg    payscore.Config
	logger log.Logger
	client *client.Client
	certs  *certificate.Manager
	redis  *libRedis.Client
}

func newGateway(ctx context.Context) (*gateway, error) {
	cfg, err := payscore.LoadConfig()
	if err != nil {
		return nil, err
	}

	logCfg := libZap.ConfigFrom(cfg)
	logCfg.OTelLibraryName = "github.com/LerianStudio/lib-payscore/cmd/payscore"

	logger, err := libZap.New(logCfg)
	if err != nil {
		return nil, err
	}

	g := &gateway{cfg: cfg, logger: logger}

	c, err := client.NewFromConfig(cfg, client.Options{Logger: logger})
	if err != nil {
		return nil, err
	}

	g.client = c

	if cfg.APIv3Key == "" {
		return g, nil
	}

	opts := []certificate.Option{certificate.WithLogger(logger)}

	if cfg.RedisAddress != "" {
		conn, err := libRedis.New(ctx, libRedis.Config{
			Addresses: strings.Split(cfg.RedisAddress, ","),
			Logger:    logger,
		})
		if err != nil {
			return nil, fmt.Errorf("redis: %w", err)
		}

		g.redis = conn

		cache, err := certificate.NewRedisCache(conn)
		if err != nil {
			return nil, err
		}

		locker, err := libRedis.NewLockManager(conn, libRedis.LockOptions{})
		if err != nil {
			return nil, err
		}

		opts = append(opts, certificate.WithCache(cache), certificate.WithLocker(locker))
	}

	certs, err := certificate.NewManager(c, []byte(cfg.APIv3Key), opts...)
	if err != nil {
		return nil, err
	}

	c.SetVerifier(certs)
	g.certs = certs

	return g, nil
}

func (g *gateway) close(ctx context.Context) {
	if g.redis != nil {
		if err := g.redis.Close(); err != nil {
			g.logger.Log(ctx, log.LevelWarn, "redis close failed", log.Err(err))
		}
	}

	_ = g.logger.Sync(ctx)
}
