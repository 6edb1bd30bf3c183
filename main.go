package main

import (
	"net/http"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/aman-1511/Facebook-Helpdesk/auth"
	"github.com/aman-1511/Facebook-Helpdesk/config"
	"github.com/aman-1511/Facebook-Helpdesk/facebook"
	"github.com/aman-1511/Facebook-Helpdesk/processor"
	"github.com/aman-1511/Facebook-Helpdesk/profile"
	"github.com/aman-1511/Facebook-Helpdesk/realtime"
	"github.com/aman-1511/Facebook-Helpdesk/server"
	"github.com/aman-1511/Facebook-Helpdesk/store"
)

const tokenTTL = 24 * time.Hour

func main() {
	cfg := config.Load()

	httpClient := http.Client{Timeout: 15 * time.Second}

	st, err := store.NewSQLiteStore(cfg.DatabasePath)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize store")
	}
	defer st.Close()

	fbClient := facebook.NewClient(
		cfg.GraphAPIBaseURL,
		cfg.FacebookAppID,
		cfg.FacebookAppSecret,
		httpClient,
	)

	cache := profile.NewRedisCache(
		cfg.RedisAddr,
		cfg.RedisPassword,
		cfg.RedisDB,
		time.Duration(cfg.ProfileCacheTTLMins)*time.Minute,
	)
	resolver := profile.NewResolver(&fbClient, cache)

	hub := realtime.NewHub()
	defer hub.Close()

	engine := processor.NewEngine(st, resolver, &fbClient, hub)

	tokens := auth.NewTokenManager(cfg.JWTSecret, tokenTTL)

	srv := server.New(st, engine, &fbClient, hub, tokens, cfg.WebhookVerifyToken, cfg.ClientURL)
	srv.Start(cfg.Port)
}
