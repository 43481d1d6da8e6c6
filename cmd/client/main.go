package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/DoyleJ11/ludo-sync/internal/board"
	"github.com/DoyleJ11/ludo-sync/internal/config"
	"github.com/DoyleJ11/ludo-sync/internal/events"
	"github.com/DoyleJ11/ludo-sync/internal/httpapi"
	"github.com/DoyleJ11/ludo-sync/internal/identity"
	"github.com/DoyleJ11/ludo-sync/internal/logging"
	"github.com/DoyleJ11/ludo-sync/internal/session"
	"github.com/DoyleJ11/ludo-sync/internal/transport"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "ludo-sync:", err)
		os.Exit(1)
	}
}

func run() (err error) {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	log, err := logging.New(cfg.LogLevel, cfg.Debug)
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	id, closeIdentity, err := loadIdentity(cfg, log)
	if err != nil {
		return err
	}
	defer func() { err = multierr.Append(err, closeIdentity()) }()
	log = log.With(zap.String("player_id", id.PlayerID()))

	tr := newTransport(cfg, id, log)
	sess := session.New(ctx, session.Config{
		ActionTimeout:     cfg.ActionTimeout,
		ResyncDelay:       cfg.ResyncDelay,
		AdvisoryDelay:     cfg.AdvisoryDelay,
		TurnAnnounceDelay: cfg.TurnAnnounceDelay,
		MoveRevealDelay:   cfg.MoveRevealDelay,
		ReconnectDelay:    cfg.ReconnectDelay,
		AnimationWatchdog: cfg.AnimationWatchdog,
		ActionRate:        cfg.ActionRate,
		ActionBurst:       cfg.ActionBurst,
	}, tr, id, session.WithLogger(log.Named("session")), session.WithPaths(board.Grid{}))
	defer func() { err = multierr.Append(err, sess.Close()) }()

	out, unsubscribe := sess.Subscribe(256)
	defer unsubscribe()
	go logEvents(out, log.Named("events"))

	var srv *http.Server
	if cfg.StatusAddr != "" {
		srv = &http.Server{Addr: cfg.StatusAddr, Handler: httpapi.SetupRoutes(sess, log.Named("http"))}
		go func() {
			log.Info("status server listening", zap.String("addr", cfg.StatusAddr))
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Error("status server failed", zap.Error(err))
				stop()
			}
		}()
	}

	connectCtx, cancel := context.WithTimeout(ctx, cfg.ActionTimeout)
	err = sess.Connect(connectCtx)
	cancel()
	if err != nil {
		// the session keeps retrying when a reconnect delay is configured
		log.Warn("initial connect failed", zap.Error(err))
	} else {
		switch {
		case cfg.AutoJoin != "":
			if err := sess.JoinGame(cfg.AutoJoin); err != nil {
				log.Warn("auto join failed", zap.Error(err))
			}
		case cfg.AutoCreate:
			if err := sess.CreateGame(); err != nil {
				log.Warn("auto create failed", zap.Error(err))
			}
		}
	}

	<-ctx.Done()
	log.Info("shutting down")
	if srv != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		err = multierr.Append(err, srv.Shutdown(shutdownCtx))
	}
	return err
}

func loadIdentity(cfg config.Config, log *zap.Logger) (identity.Provider, func() error, error) {
	if cfg.DatabaseURL == "" {
		f, err := identity.LoadFile(cfg.IdentityFile, log.Named("identity"))
		if err != nil {
			return nil, nil, err
		}
		return f, func() error { return nil }, nil
	}
	st, err := identity.OpenStore(cfg.DatabaseURL, log.Named("identity"))
	if err != nil {
		return nil, nil, err
	}
	p, err := st.Resolve(cfg.Profile)
	if err != nil {
		return nil, nil, multierr.Append(err, st.Close())
	}
	return p, st.Close, nil
}

func newTransport(cfg config.Config, id identity.Provider, log *zap.Logger) transport.Transport {
	switch cfg.Transport {
	case config.TransportNATS:
		return transport.NewNATS(transport.NATSConfig{
			URL:      cfg.NATSURL,
			Name:     cfg.ClientName,
			PlayerID: id.PlayerID(),
			Timeout:  cfg.ActionTimeout,
		}, log)
	default:
		return transport.NewSTOMP(transport.STOMPConfig{
			URL:       cfg.ServerURL,
			Host:      cfg.STOMPHost,
			Login:     id.PlayerID(),
			HeartBeat: cfg.HeartBeat,
		}, log)
	}
}

// logEvents is the headless presentation layer. It never reports animations,
// so move options reach it as soon as they arrive.
func logEvents(out <-chan events.Event, log *zap.Logger) {
	for ev := range out {
		switch e := ev.(type) {
		case events.UIMessage:
			switch e.Level {
			case events.LevelError:
				log.Error(e.Text)
			case events.LevelWarn:
				log.Warn(e.Text)
			default:
				log.Info(e.Text)
			}
		case events.PiecesMoved:
			log.Info(ev.Name(), zap.Int("moves", len(e.Moves)))
		case events.MovesAvailable:
			for _, o := range e.Options {
				log.Info("move option", zap.Int("number", o.Number), zap.String("description", o.Description))
			}
		case events.ActionFailed:
			log.Warn(ev.Name(), zap.String("action", e.Action), zap.Error(e.Err))
		case events.ActionTimedOut:
			log.Warn(ev.Name(), zap.String("action", e.Action), zap.Duration("after", e.After))
		case events.StateUpdated:
			log.Debug(ev.Name())
		default:
			log.Info(ev.Name(), zap.Any("event", ev))
		}
	}
}
