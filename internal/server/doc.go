// Package server runs the bot's operational HTTP endpoint: Prometheus
// metrics and a health check, shut down gracefully with the bot.
//
// Basic usage:
//
//	srv := server.New(server.Routes(reg, health, logger), server.WithHost(":9090"))
//	if err := srv.Run(ctx); err != nil {
//		return err
//	}
//
// Run returns once ctx ends and in-flight requests have drained.
package server
