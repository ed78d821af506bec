package httpapi

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/dropDatabas3/authkit/internal/observability/logger"
)

// ServerOptions son los knobs del listener. No van en el config store
// porque son del proceso, no del dominio: los fija el comando serve.
type ServerOptions struct {
	Addr            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
}

func (o *ServerOptions) fill() {
	if o.Addr == "" {
		o.Addr = ":8080"
	}
	if o.ReadTimeout <= 0 {
		o.ReadTimeout = 10 * time.Second
	}
	if o.WriteTimeout <= 0 {
		o.WriteTimeout = 15 * time.Second
	}
	if o.ShutdownTimeout <= 0 {
		o.ShutdownTimeout = 10 * time.Second
	}
}

// Server envuelve http.Server con arranque y apagado ordenado.
type Server struct {
	srv             *http.Server
	shutdownTimeout time.Duration
}

func NewServer(opts ServerOptions, handler http.Handler) *Server {
	opts.fill()
	return &Server{
		srv: &http.Server{
			Addr:              opts.Addr,
			Handler:           handler,
			ReadHeaderTimeout: 5 * time.Second,
			ReadTimeout:       opts.ReadTimeout,
			WriteTimeout:      opts.WriteTimeout,
			IdleTimeout:       60 * time.Second,
		},
		shutdownTimeout: opts.ShutdownTimeout,
	}
}

// Run sirve hasta que llega SIGINT/SIGTERM o el listener falla, y después
// drena las conexiones en vuelo dentro del timeout configurado.
func (s *Server) Run(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	log := logger.With(logger.Layer("http"), logger.Component("server"))

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Info("servidor escuchando", logger.String("addr", s.srv.Addr))
		if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.shutdownTimeout)
		defer cancel()
		log.Info("apagando servidor")
		return s.srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		return err
	}
	log.Info("servidor detenido")
	return nil
}
