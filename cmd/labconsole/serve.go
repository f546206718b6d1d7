package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/BrandonDHaskell/Portunus/labconsole/internal/console"
	"github.com/BrandonDHaskell/Portunus/labconsole/internal/grpcapi"
	"github.com/BrandonDHaskell/Portunus/labconsole/internal/httpapi"
	"github.com/BrandonDHaskell/Portunus/labconsole/internal/lab/service"
)

type services struct {
	roster       *service.RosterService
	registration *service.RegistrationService
	rfid         *service.RFIDService
}

func newServices(a *app, b *backends) services {
	rfid := service.NewRFIDService(b.credentials, a.logger.Named("rfid"), service.WithLocation(a.cfg.Location()))
	roster := service.NewRosterService(b.users)
	return services{
		roster:       roster,
		registration: service.NewRegistrationService(roster, rfid, a.cfg.ScanDelay, a.logger.Named("registration")),
		rfid:         rfid,
	}
}

func newServeCmd(a *app) *cobra.Command {
	var httpAddr, grpcAddr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the console, JSON API and gRPC health service",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if cmd.Flags().Changed("http-addr") {
				a.cfg.HTTPAddr = httpAddr
			}
			if cmd.Flags().Changed("grpc-addr") {
				a.cfg.GRPCAddr = grpcAddr
			}
			return serve(cmd.Context(), a)
		},
	}
	cmd.Flags().StringVar(&httpAddr, "http-addr", "", "HTTP listen address (default from LABCONSOLE_HTTP_ADDR)")
	cmd.Flags().StringVar(&grpcAddr, "grpc-addr", "", "gRPC listen address; empty disables")
	return cmd
}

func serve(parent context.Context, a *app) error {
	logger := a.logger
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	b, err := openBackends(ctx, a.cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := b.close(); err != nil {
			logger.Warn("closing backends", zap.Error(err))
		}
	}()

	svc := newServices(a, b)

	pruner := service.NewAccessLogPruner(b.credentials, service.PrunerConfig{
		RetentionDays: a.cfg.AccessLogRetentionDays,
		IntervalHours: a.cfg.PruneIntervalHours,
	}, logger.Named("pruner"))
	pruner.Start(ctx)
	defer pruner.Stop()

	srv := httpapi.NewServer(httpapi.Dependencies{
		Logger:         logger.Named("http"),
		Addr:           a.cfg.HTTPAddr,
		Roster:         svc.roster,
		Registration:   svc.registration,
		RFID:           svc.rfid,
		AllowedOrigins: a.cfg.AllowedOrigins,
		Console:        console.NewHandler(svc.roster, svc.registration, svc.rfid, logger.Named("console")).Routes(),
	})

	var lis net.Listener
	if a.cfg.GRPCAddr != "" {
		if lis, err = net.Listen("tcp", a.cfg.GRPCAddr); err != nil {
			return err
		}
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("http listening", zap.String("addr", a.cfg.HTTPAddr), zap.Duration("scan_delay", a.cfg.ScanDelay))
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	var grpcSrv *grpcapi.Server
	if lis != nil {
		grpcSrv = grpcapi.NewServer(logger.Named("grpc"))
		g.Go(func() error { return grpcSrv.Serve(lis) })
		g.Go(func() error {
			grpcSrv.Probe(gctx, 30*time.Second, svc.rfid.Ping)
			return nil
		})
	}

	g.Go(func() error {
		<-gctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if grpcSrv != nil {
			grpcSrv.Shutdown(shutdownCtx)
		}
		return srv.Shutdown(shutdownCtx)
	})

	err = g.Wait()

	// Accepted scans outlive their requests; let them land before the
	// stores close underneath them.
	drainCtx, cancel := context.WithTimeout(context.Background(), a.cfg.ScanDelay+5*time.Second)
	defer cancel()
	if derr := svc.registration.Drain(drainCtx); derr != nil {
		logger.Warn("registration scan abandoned at shutdown", zap.Error(derr))
	}

	logger.Info("shutdown complete")
	return err
}
