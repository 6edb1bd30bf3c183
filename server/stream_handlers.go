package server

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/rs/zerolog/log"
)

// heartbeatInterval paces the SSE keep-alive comments; a failed flush is
// how a dead client is detected.
const heartbeatInterval = 30 * time.Second

// streamHandler is the live-session endpoint. The authenticated account
// joins its own fanout channel and receives new-message events as
// server-sent events until it disconnects. Missed events are not replayed;
// clients reconcile through the normal read endpoints.
func (s *Server) streamHandler(c fiber.Ctx) error {
	accountID := userID(c)

	c.Set("Content-Type", "text/event-stream")
	c.Set("Cache-Control", "no-cache")
	c.Set("Connection", "keep-alive")

	log.Info().Str("account_id", accountID).Msg("Live session connected")

	return c.SendStreamWriter(func(w *bufio.Writer) {
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		events, _ := s.hub.Subscribe(ctx, accountID)

		fmt.Fprint(w, ": connected\n\n")
		if err := w.Flush(); err != nil {
			return
		}

		heartbeat := time.NewTicker(heartbeatInterval)
		defer heartbeat.Stop()

		for {
			select {
			case event, ok := <-events:
				if !ok {
					return
				}

				data, err := json.Marshal(event)
				if err != nil {
					log.Error().Err(err).Msg("Error marshaling stream event")
					continue
				}

				fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event.Type, data)
				if err := w.Flush(); err != nil {
					log.Info().Str("account_id", accountID).Msg("Live session disconnected")
					return
				}

			case <-heartbeat.C:
				fmt.Fprint(w, ": ping\n\n")
				if err := w.Flush(); err != nil {
					log.Info().Str("account_id", accountID).Msg("Live session disconnected")
					return
				}
			}
		}
	})
}
