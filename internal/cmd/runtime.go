package cmd

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/Iron-Ham/cvcollab/internal/collab"
	"github.com/Iron-Ham/cvcollab/internal/config"
	"github.com/Iron-Ham/cvcollab/internal/event"
	"github.com/Iron-Ham/cvcollab/internal/logging"
	"github.com/Iron-Ham/cvcollab/internal/tui"
)

// runtime is the process-wide wiring shared by commands that run a session.
type runtime struct {
	cfg    *config.Config
	logger *logging.Logger
	bus    *event.Bus
	cc     *collab.Context
}

// newRuntime builds the logger, event bus and collaboration context
// described by cfg. extra options are applied after the configured ones.
func newRuntime(cfg *config.Config, extra ...collab.Option) (*runtime, error) {
	logger, err := newLogger(cfg)
	if err != nil {
		return nil, err
	}

	eventLog := logger.WithComponent("event")
	bus := event.NewBus(event.WithLogger(eventLog))
	bus.SubscribeAll(func(e event.Event) {
		eventLog.Debug("event", "type", e.EventType())
	})

	opts := []collab.Option{
		collab.WithLockTTL(cfg.Collaboration.LockTTL()),
		collab.WithLiveChangeTTL(cfg.Collaboration.LiveChangeTTL()),
		collab.WithLiveChangeLimit(cfg.Collaboration.LiveChangeLimit),
		collab.WithActivityLimit(cfg.Collaboration.ActivityLogSize),
		collab.WithMergeLatency(cfg.Collaboration.MergeLatency()),
		collab.WithInviteOrigin(cfg.Collaboration.InviteOrigin),
	}
	cc, err := collab.New(collab.Config{Bus: bus, Logger: logger}, append(opts, extra...)...)
	if err != nil {
		_ = logger.Close()
		return nil, err
	}

	return &runtime{cfg: cfg, logger: logger, bus: bus, cc: cc}, nil
}

func newLogger(cfg *config.Config) (*logging.Logger, error) {
	if !cfg.Logging.Enabled {
		return logging.NopLogger(), nil
	}
	logger, err := logging.NewRotatingLogger(cfg.Logging.ResolveDir(), cfg.Logging.Level, logging.RotationConfig{
		MaxSizeMB:  cfg.Logging.MaxSizeMB,
		MaxBackups: cfg.Logging.MaxBackups,
		Compress:   cfg.Logging.Compress,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open log: %w", err)
	}
	return logger, nil
}

// forwardEvents calls send once for each burst of bus events until ctx is
// done. Publishers never block on send: events arriving while a send is
// pending are coalesced into the next one.
func forwardEvents(ctx context.Context, bus *event.Bus, send func(tea.Msg)) {
	pending := make(chan event.Event, 1)
	id := bus.SubscribeAll(func(e event.Event) {
		select {
		case pending <- e:
		default:
		}
	})
	go func() {
		defer bus.Unsubscribe(id)
		for {
			select {
			case <-ctx.Done():
				return
			case e := <-pending:
				send(tui.EventMsg{Type: e.EventType()})
			}
		}
	}()
}

// Close ends any active session and closes the log.
func (r *runtime) Close() {
	if r.cc.Active() {
		r.cc.EndSession()
	}
	r.bus.Clear()
	_ = r.logger.Close()
}
