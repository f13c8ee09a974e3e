package cmd

import (
	"context"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/fsnotify/fsnotify"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/Iron-Ham/cvcollab/internal/config"
	"github.com/Iron-Ham/cvcollab/internal/session"
	"github.com/Iron-Ham/cvcollab/internal/simulate"
	"github.com/Iron-Ham/cvcollab/internal/tui"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Open the live collaboration dashboard",
	Long: `Start a session with simulated participants and open a dashboard showing
the roster, edit locks, typing indicators, comment threads and the
activity feed as they change.

The simulated participants run their scripts in the background and the
activity loop draws every simulation.interval_ms. Editing the config file
while the dashboard is open applies the new tui settings immediately.`,
	RunE: runWatch,
}

var (
	watchName         string
	watchParticipants int
)

func init() {
	rootCmd.AddCommand(watchCmd)

	watchCmd.Flags().StringVar(&watchName, "name", "You", "Your display name")
	watchCmd.Flags().IntVarP(&watchParticipants, "participants", "p", -1, "Number of simulated participants (default from config)")
}

func runWatch(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	rt, err := newRuntime(cfg)
	if err != nil {
		return err
	}
	defer rt.Close()

	cc := rt.cc
	self := session.Participant{ID: uuid.NewString(), Name: watchName, Color: session.OwnerColor}
	if _, err := cc.StartSession(self); err != nil {
		return err
	}

	n := cfg.Simulation.Participants
	if watchParticipants >= 0 {
		n = watchParticipants
	}
	participants := simulate.DemoParticipants(n)
	for _, p := range participants {
		if err := cc.AddParticipant(p); err != nil {
			return err
		}
	}
	if _, err := simulate.SeedComments(cc, "Experience"); err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	sim := simulate.New(cc,
		simulate.WithInterval(cfg.Simulation.Interval()),
		simulate.WithThreshold(cfg.Simulation.ActivityThreshold),
		simulate.WithLogger(rt.logger.WithComponent("simulate")),
	)
	if err := sim.Start(ctx); err != nil {
		return err
	}
	defer sim.Stop()

	// Scripts pause between edits so the dashboard has something to show.
	scripts := simulate.DemoScripts(participants, cfg.Simulation.Rounds, nil)
	for i := range scripts {
		scripts[i].Pause = cfg.Collaboration.LiveChangeTTL() / 2
	}
	scriptsDone := make(chan struct{})
	go func() {
		defer close(scriptsDone)
		if err := simulate.RunParticipants(ctx, cc, scripts, cfg.Simulation.MaxConcurrent); err != nil && ctx.Err() == nil {
			rt.logger.Warn("simulated participants stopped", "error", err.Error())
		}
	}()

	model := tui.New(cc,
		tui.WithSimulator(sim),
		tui.WithRefreshInterval(cfg.TUI.RefreshInterval()),
		tui.WithActivityLines(cfg.TUI.ActivityLines),
	)
	p := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx))
	forwardEvents(ctx, rt.bus, p.Send)

	if viper.ConfigFileUsed() != "" {
		viper.OnConfigChange(func(e fsnotify.Event) {
			rt.logger.Info("config file changed", "file", e.Name, "op", e.Op.String())
			reloaded, err := config.Load()
			if err != nil {
				rt.logger.Warn("ignoring invalid config", "error", err.Error())
				return
			}
			p.Send(tui.ConfigReloadedMsg{
				RefreshInterval: reloaded.TUI.RefreshInterval(),
				ActivityLines:   reloaded.TUI.ActivityLines,
			})
		})
		viper.WatchConfig()
	}

	_, err = p.Run()
	cancel()
	<-scriptsDone
	return err
}
