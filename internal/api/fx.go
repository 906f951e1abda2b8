package api

import (
	"context"
	"errors"
	"net"
	"net/http"

	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/youruser/certapp/internal/config"
	imagepkg "github.com/youruser/certapp/internal/image"
)

var Module = fx.Module("api",
	fx.Provide(
		func(r *imagepkg.Renderer, cfg config.Config, log *zap.Logger) *Registry {
			return NewRegistry(r, cfg.Session.TTL, log.Named("sessions"))
		},
		NewEngine,
		NewServer,
	),
	fx.Invoke(
		func(s *Server) { s.RegisterRoutes() },
		runSweeper,
		RunHTTP,
	),
)

func runSweeper(lc fx.Lifecycle, registry *Registry, cfg config.Config) {
	ctx, cancel := context.WithCancel(context.Background())
	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			go registry.RunSweeper(ctx, cfg.Session.SweepInterval)
			return nil
		},
		OnStop: func(context.Context) error {
			cancel()
			return nil
		},
	})
}

// RunHTTP serves the API on cfg.Port for the lifetime of the fx app.
func RunHTTP(lc fx.Lifecycle, s *Server, cfg config.Config, log *zap.Logger) {
	srv := &http.Server{Addr: ":" + cfg.Port, Handler: s.Handler()}
	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			ln, err := net.Listen("tcp", srv.Addr)
			if err != nil {
				return err
			}
			log.Info("starting server", zap.String("addr", "http://localhost:"+cfg.Port))
			go func() {
				if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
					log.Error("server stopped", zap.Error(err))
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			return srv.Shutdown(ctx)
		},
	})
}
