package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/10axl/Vortex/automod"
	"github.com/10axl/Vortex/discord"
	"github.com/10axl/Vortex/notifier"
	"github.com/10axl/Vortex/resolver"
	"github.com/10axl/Vortex/settings"
	"github.com/10axl/Vortex/strikes"
)

type Server struct {
	logger  *slog.Logger
	session *discordgo.Session
	engine  *automod.Engine
	gateway *discord.Gateway
	sweeper *strikes.Sweeper
}

type Config struct {
	DiscordToken    string
	RedisURL        string
	SlackWebhookURL string
	ReferralDomains []string
	SafeDomains     []string
	CopypastasJSON  string
	ResolveTimeout  time.Duration
	SweepInterval   time.Duration
	DedupeCacheSize int
	AsyncWorkers    int
	Logger          *slog.Logger
}

func NewServer(config Config) (*Server, error) {
	logger := config.Logger
	if logger == nil {
		logger = slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
			Level: slog.LevelInfo,
		}))
	}

	session, err := discordgo.New("Bot " + config.DiscordToken)
	if err != nil {
		return nil, fmt.Errorf("creating discord session: %w", err)
	}
	self, err := session.User("@me")
	if err != nil {
		return nil, fmt.Errorf("fetching bot identity: %w", err)
	}

	var settingsStore settings.Store
	var strikeStore strikes.Store
	if config.RedisURL != "" {
		ss, err := settings.NewRedisStore(config.RedisURL)
		if err != nil {
			return nil, fmt.Errorf("initializing redis settings store: %w", err)
		}
		settingsStore = ss

		ls, err := strikes.NewRedisStore(config.RedisURL)
		if err != nil {
			return nil, fmt.Errorf("initializing redis strike store: %w", err)
		}
		strikeStore = ls
	} else {
		settingsStore = settings.NewMemStore()
		strikeStore = strikes.NewMemStore()
	}
	settingsStore = settings.NewCachedStore(settingsStore, 5_000, 30*time.Second)

	var notif notifier.Notifier = notifier.Noop{}
	if config.SlackWebhookURL != "" {
		notif = &notifier.SlackNotifier{SlackWebhookURL: config.SlackWebhookURL}
	}

	pastas := resolver.NewCopypastas()
	if config.CopypastasJSON != "" {
		if err := pastas.LoadFromFileJSON(config.CopypastasJSON); err != nil {
			return nil, fmt.Errorf("initializing copypasta catalog: %w", err)
		}
		logger.Info("loaded copypasta catalog from JSON", "path", config.CopypastasJSON)
	}

	redirects := resolver.NewHTTPRedirectResolver(config.ResolveTimeout)
	redirects.LoadSafeDomains(config.SafeDomains)

	actions := discord.NewActions(session, logger)
	strikeHandler := strikes.NewHandler(logger, strikeStore, actions, notif)

	engine := automod.New(automod.Config{
		Logger:          logger,
		Settings:        settingsStore,
		Strikes:         strikeHandler,
		Actions:         actions,
		Invites:         resolver.NewCachedInviteResolver(&discord.InviteFetcher{Session: session}, 5_000, 6*time.Hour),
		Redirects:       redirects,
		Copypastas:      pastas,
		Notifier:        notif,
		SelfID:          self.ID,
		ReferralDomains: config.ReferralDomains,
		ResolveTimeout:  config.ResolveTimeout,
		DedupeCacheSize: config.DedupeCacheSize,
		AsyncWorkers:    config.AsyncWorkers,
	})

	s := &Server{
		logger:  logger,
		session: session,
		engine:  engine,
		gateway: discord.NewGateway(session, engine, notif, logger),
		sweeper: &strikes.Sweeper{
			Logger:   logger,
			Store:    strikeStore,
			Actions:  actions,
			Interval: config.SweepInterval,
		},
	}
	return s, nil
}

func (s *Server) RunMetrics(listen string) error {
	http.Handle("/metrics", promhttp.Handler())
	return http.ListenAndServe(listen, nil)
}

// Run connects to the gateway and blocks until ctx is cancelled.
func (s *Server) Run(ctx context.Context) error {
	s.gateway.Hook()
	if err := s.session.Open(); err != nil {
		return fmt.Errorf("opening discord gateway: %w", err)
	}
	defer func() {
		if err := s.session.Close(); err != nil {
			s.logger.Error("failed to close discord session", "err", err)
		}
	}()

	go s.engine.Run(ctx)
	go s.sweeper.RunBanSweep(ctx)
	go s.sweeper.RunMuteSweep(ctx)

	s.logger.Info("moderation service running")
	<-ctx.Done()
	s.logger.Info("shutting down")
	return nil
}
