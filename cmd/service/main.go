package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/exec"
	"os/signal"
	"syscall"

	"github.com/sethvargo/go-envconfig"
	log "github.com/sirupsen/logrus"

	"github.com/bloghub/bloghub/internal"
	"github.com/bloghub/bloghub/internal/config"
	"github.com/bloghub/bloghub/internal/logging"
	"github.com/bloghub/bloghub/pkg"
)

type secrets struct {
	SentryDSN           string `env:"SENTRY_DSN"`
	RedisPassword       string `env:"BLOGHUB_REDIS_PASS"`
	PostgresPassword    string `env:"BLOGHUB_POSTGRES_PASS"`
	MediaStoreAPIKey    string `env:"BLOGHUB_MEDIA_API_KEY"`
	MediaStoreAPISecret string `env:"BLOGHUB_MEDIA_API_SECRET"`
	HoneycombEnabled    bool   `env:"HONEYCOMB_ENABLED"`
}

func main() {
	fmt.Println("starting ...")

	env := flag.String("env", "development", "environment [prod | production | dev | development]")
	configPath := flag.String("config", "./config.toml", "path for the TOML config file")
	flag.Parse()

	log.Warnf("---->> running in [%s] environment", *env)

	cfg, err := config.Load(*env, *configPath)
	if err != nil {
		panic(err)
	}

	ctx, cancel := context.WithCancel(context.Background())

	var sec secrets
	if err := envconfig.Process(ctx, &sec); err != nil {
		log.Fatalf("process env secrets: %s", err)
	}

	logging.Setup(logging.LoggerSetupParams{
		LogFileName:      cfg.LogsPath,
		LogToStdout:      cfg.LogToStdout,
		LogLevel:         cfg.LogLevel,
		LogFormatJSON:    false,
		Environment:      cfg.Environment,
		SentryEnabled:    cfg.SentryEnabled,
		SentryDSN:        sec.SentryDSN,
		SentryServerName: "bloghub-service",
	})

	log.Debugf("using port: %d", cfg.Port)
	log.Debugf("using server logs path: [%s]", cfg.LogsPath)

	if sec.MediaStoreAPIKey == "" || sec.MediaStoreAPISecret == "" {
		log.Errorf("media store credentials not set, use BLOGHUB_MEDIA_API_KEY and BLOGHUB_MEDIA_API_SECRET")
	}
	if sec.RedisPassword == "" {
		log.Errorf("redis password not set, use BLOGHUB_REDIS_PASS")
	}

	if sec.HoneycombEnabled {
		if honeycombApiKey := os.Getenv("HONEYCOMB_API_KEY"); honeycombApiKey == "" {
			log.Warnln("HONEYCOMB_API_KEY env var not set")
		}
	} else {
		log.Debugln("honeycomb tracing disabled")
	}

	versionInfo, err := tryGetLastCommitHash()
	if err != nil {
		log.Tracef("failed to get last commit hash / version info: %s", err)
	} else {
		log.Tracef("running version: %s", versionInfo)
	}

	chOsInterrupt := make(chan os.Signal, 1)
	signal.Notify(chOsInterrupt, os.Interrupt, syscall.SIGTERM)

	server, err := internal.NewServer(
		ctx,
		internal.NewServerParams{
			Config:                  cfg,
			VersionInfo:             versionInfo,
			RedisPassword:           sec.RedisPassword,
			PostgresPassword:        sec.PostgresPassword,
			MediaStoreAPIKey:        sec.MediaStoreAPIKey,
			MediaStoreAPISecret:     sec.MediaStoreAPISecret,
			HoneycombTracingEnabled: sec.HoneycombEnabled,
		},
	)
	if err != nil {
		log.Fatalf("new server: %s", err)
	}

	server.Serve(cfg.Host, cfg.Port)

	receivedSig := <-chOsInterrupt
	log.Warnf("signal [%s] received, killing everything ...", receivedSig)
	cancel()

	server.GracefulShutdown()
}

// tryGetLastCommitHash will try to get the last commit hash
// assumes that the built main executable is in project root
func tryGetLastCommitHash() (string, error) {
	cmd := exec.Command("/usr/bin/git", "rev-parse", "HEAD")
	stdout, err := cmd.Output()
	if err != nil {
		return "", err
	}
	return pkg.BytesToString(stdout), nil
}
