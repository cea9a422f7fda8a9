package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/getsentry/raven-go"
	"github.com/sirupsen/logrus"

	"justapengu.in/f1bot"
	"justapengu.in/f1bot/internal/cache"
	"justapengu.in/f1bot/pkg/openf1"
)

var configPath string

func init() {
	flag.StringVar(&configPath, "c", "./config.yml", "config path")
	flag.Parse()
}

func main() {
	config, err := f1bot.ReadConfig(configPath)

	if err != nil {
		logrus.WithError(err).Fatalf("Could not read config at %s", configPath)
	}

	logFile, err := f1bot.SetupLogging(config.Log)

	if err != nil {
		logrus.WithError(err).Fatal("Could not set up logging")
	}

	defer logFile.Close()

	logrus.Infof("Starting f1bot")

	responseCache, err := cache.Open(config.Cache.Dir, config.Cache.TTL)

	if err != nil {
		logrus.WithError(err).Fatal("Could not open response cache")
	}

	defer responseCache.Close()

	provider := openf1.New(
		config.OpenF1.BaseURL,
		openf1.WithHTTPClient(&http.Client{Timeout: config.OpenF1.RequestTimeout}),
		openf1.WithCache(responseCache),
		openf1.WithMaxConcurrentRequests(config.OpenF1.MaxConcurrentRequests),
		openf1.WithLogger(logrus.WithField("component", "openf1")),
	)

	var sentry *raven.Client

	if config.SentryDSN != "" {
		sentry, err = raven.New(config.SentryDSN)

		if err != nil {
			logrus.WithError(err).Error("Could not initialise sentry, errors will not be reported")
		}
	}

	artifacts, err := f1bot.NewArtifacts(config.ArtifactDir)

	if err != nil {
		logrus.WithError(err).Fatal("Could not set up artifacts")
	}

	bot, err := f1bot.NewBot(
		config,
		provider,
		f1bot.NewScheduleService(config.Data),
		f1bot.NewStandingsService(config.Standings),
		artifacts,
		sentry,
	)

	if err != nil {
		logrus.WithError(err).Fatal("Could not create bot")
	}

	var statusServer *f1bot.StatusServer

	if config.HTTP.Port > 0 {
		statusServer = f1bot.NewStatusServer(config.HTTP.Port, bot.Connected)

		if err := statusServer.Listen(); err != nil {
			logrus.WithError(err).Fatal("Could not start status server")
		}
	}

	if err := bot.Open(); err != nil {
		logrus.WithError(err).Fatal("Could not start bot")
	}

	logrus.Infof("Bot is running. Press Ctrl-C to exit.")

	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)
	<-c

	logrus.Infof("Shutting down")

	if err := bot.Close(); err != nil {
		logrus.WithError(err).Error("Could not close discord session")
	}

	if statusServer != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := statusServer.Shutdown(ctx); err != nil {
			logrus.WithError(err).Error("Could not shut down status server")
		}
	}
}
