package main

import (
	"context"
	"time"

	"github.com/desertthunder/mixtape/internal/repositories"
	"github.com/desertthunder/mixtape/internal/server"
	"github.com/desertthunder/mixtape/internal/services"
	"github.com/urfave/cli/v3"
)

// Serve wires repositories, clients and the expander into the HTTP API and serves until ctx is cancelled.
func (r *Runner) Serve(ctx context.Context, cmd *cli.Command) error {
	config := r.configure(cmd)
	if port := cmd.Int("port"); port > 0 {
		config.Server.Port = int(port)
	}

	if err := config.Validate(); err != nil {
		return err
	}

	issuer, err := server.NewTokenIssuer(config.Auth.JWTSecret, time.Duration(config.Auth.TokenTTLHours)*time.Hour)
	if err != nil {
		return err
	}

	db, err := r.database()
	if err != nil {
		return err
	}

	catalog, err := r.catalogClient()
	if err != nil {
		return err
	}
	completer, err := r.completerClient()
	if err != nil {
		return err
	}

	queue := repositories.NewQueueRepository(db)
	expander, err := r.expander(queue)
	if err != nil {
		return err
	}

	srv := server.New(server.Deps{
		Users:       repositories.NewUserRepository(db),
		Queue:       queue,
		Revocations: repositories.NewTokenRepository(db),
		Analyzer:    services.NewPromptAnalyzer(completer, r.logger),
		Catalog:     catalog,
		Expander:    expander,
		Tokens:      issuer,
		Logger:      r.logger,
	}, server.Options{
		Addr:           config.Server.Addr(),
		ReadTimeout:    time.Duration(config.Server.ReadTimeout) * time.Second,
		WriteTimeout:   time.Duration(config.Server.WriteTimeout) * time.Second,
		AllowedOrigins: config.Server.AllowedOrigins,
	})

	return srv.ListenAndServe(ctx)
}
