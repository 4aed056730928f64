package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/labstack/echo/v5"
	"github.com/labstack/echo/v5/middleware"
	"github.com/urfave/cli/v3"

	"github.com/samcharles93/finsent/internal/api"
)

func serveCmd() *cli.Command {
	return &cli.Command{
		Name:   "serve",
		Usage:  "Load the model and serve POST /classify (default command)",
		Action: serveAction,
	}
}

func serveAction(ctx context.Context, cmd *cli.Command) error {
	ctx, log, err := setup(ctx, cmd)
	if err != nil {
		return err
	}

	p, err := newLoader(log).Load(ctx)
	if err != nil {
		log.Error("error loading classifier", "error", err)
		return cli.Exit("", 1)
	}
	defer func() { _ = p.Close() }()

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	server := api.NewServer(p, p.Model(), api.NewMetrics())
	e := echo.New()
	e.Use(api.RequestID(log))
	e.Use(middleware.RequestLogger())
	e.Use(middleware.Recover())
	server.Register(e)

	log.Info("starting server", "address", addr, "model", p.Model(), "backend", p.Backend())
	sc := echo.StartConfig{
		Address:         addr,
		GracefulTimeout: shutdownTimeout,
		BeforeServeFunc: func(srv *http.Server) error {
			srv.ReadHeaderTimeout = readHeaderTimeout
			return nil
		},
	}
	if err := sc.Start(ctx, e); err != nil {
		return err
	}
	log.Info("server stopped")
	return nil
}
