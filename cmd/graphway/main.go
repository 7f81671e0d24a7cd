package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os/signal"
	"syscall"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/sync/errgroup"

	"graphway/config"
	"graphway/contest"
	"graphway/external/judge"
	"graphway/poller"
	"graphway/server"
	"graphway/utils"
)

var logger *zap.Logger

const warmupRetryInterval = time.Second * 2

func main() {
	confPath := flag.String("conf", "", "path to the configuration file")
	flag.Parse()

	conf, err := config.LoadConf(*confPath)
	if err != nil {
		log.Fatalln("load config failed ", err)
	}
	initLogger(conf)
	sugar := logger.Sugar()
	defer func() { _ = logger.Sync() }()

	adminToken := conf.Server.AdminToken
	if adminToken == "" {
		adminToken = utils.NewAdminToken()
	}
	sugar.Infof("admin token: %s", adminToken)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Live contest: snapshot if present, fresh default otherwise.
	manager := contest.NewManager(logger.Named("contest"), conf.Contest.SnapshotPath)
	manager.StartContest()

	judgeCli := judge.NewHTTPClient(
		logger.Named("judge"),
		conf.Judge.BaseURL,
		time.Duration(conf.Judge.TimeoutSeconds)*time.Second,
		time.Duration(conf.Judge.CacheTTLSeconds)*time.Second,
	)
	warmCatalog(ctx, sugar, judgeCli)

	p := poller.New(
		logger.Named("poller"), manager, judgeCli,
		time.Duration(conf.Poller.IntervalSeconds)*time.Second,
		int(conf.Poller.BatchSize),
	)

	addr := fmt.Sprintf("%s:%d", conf.Server.Addr, conf.Server.Port)
	srv := server.New(logger.Named("server"), addr, adminToken, manager, judgeCli)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return p.Run(ctx) })
	g.Go(func() error { return srv.Run(ctx) })
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Second*10)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	err = g.Wait()

	sugar.Info("shutting down...")
	err = multierr.Append(err, manager.SaveState())
	if err != nil {
		sugar.Errorf("shutdown finished with errors: %+v", err)
		return
	}
	sugar.Info("shutdown finished")
}

// warmCatalog primes the judge's problem-catalog cache so the first
// random-problem draw does not eat the fetch latency. Best effort; the cache
// refreshes lazily afterwards either way.
func warmCatalog(ctx context.Context, sugar *zap.SugaredLogger, cli *judge.HTTPClient) {
	err := backoff.Retry(func() error {
		_, err := cli.Problems(ctx)
		return err
	}, backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewConstantBackOff(warmupRetryInterval), 3), ctx,
	))
	if err != nil {
		sugar.Warnf("failed to warm the problem catalog: %v", err)
	}
}

func initLogger(conf *config.Config) {
	var err error
	if conf.Release {
		logger, err = zap.NewProduction()
	} else {
		cfg := zap.NewDevelopmentConfig()
		cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		logger, err = cfg.Build()
	}
	if err != nil {
		log.Fatalln("failed to initialize logger: ", err)
	}
}
