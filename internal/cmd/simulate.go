package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math/rand/v2"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/Iron-Ham/cvcollab/internal/activity"
	"github.com/Iron-Ham/cvcollab/internal/collab"
	"github.com/Iron-Ham/cvcollab/internal/comments"
	"github.com/Iron-Ham/cvcollab/internal/config"
	"github.com/Iron-Ham/cvcollab/internal/cvstore"
	"github.com/Iron-Ham/cvcollab/internal/merge"
	"github.com/Iron-Ham/cvcollab/internal/session"
	"github.com/Iron-Ham/cvcollab/internal/simulate"
)

var simulateCmd = &cobra.Command{
	Use:   "simulate",
	Short: "Run a scripted collaboration session and print the result",
	Long: `Run a collaboration session to completion without a UI.

A session is started (or joined with --join), simulated participants are
added, seeded comments are posted, and every participant runs a short
script of edits and comments concurrently. The background activity loop
is then stepped a few times. The final roster, shared snapshot, comment
threads and activity feed are printed.

Examples:
  # Default run, human-readable
  cvcollab simulate

  # Reproducible run as YAML
  cvcollab simulate --seed 42 --format yaml

  # Fold the edited contact name into the stored CV
  cvcollab simulate --name "Ada Lovelace" --save`,
	RunE: runSimulate,
}

var (
	simName         string
	simJoin         string
	simParticipants int
	simRounds       int
	simSteps        int
	simSeed         uint64
	simFormat       string
	simSave         bool
)

func init() {
	rootCmd.AddCommand(simulateCmd)

	simulateCmd.Flags().StringVar(&simName, "name", "You", "Your display name; also written to the CV's name field")
	simulateCmd.Flags().StringVar(&simJoin, "join", "", "Join with this 6-character code instead of starting a session")
	simulateCmd.Flags().IntVarP(&simParticipants, "participants", "p", -1, "Number of simulated participants (default from config)")
	simulateCmd.Flags().IntVar(&simRounds, "rounds", -1, "Edits per participant (default from config)")
	simulateCmd.Flags().IntVar(&simSteps, "steps", 5, "Background activity draws after the scripts finish")
	simulateCmd.Flags().Uint64Var(&simSeed, "seed", 0, "Random seed (0 picks one)")
	simulateCmd.Flags().StringVarP(&simFormat, "format", "o", "text", "Output format: text, yaml, json")
	simulateCmd.Flags().BoolVar(&simSave, "save", false, "Apply the shared snapshot to the stored CV")
}

// Report is the outcome of a simulated session.
type Report struct {
	Code         string                        `json:"code" yaml:"code"`
	InviteLink   string                        `json:"invite_link" yaml:"invite_link"`
	Participants []session.Participant         `json:"participants" yaml:"participants"`
	Snapshot     merge.Snapshot                `json:"snapshot" yaml:"snapshot"`
	Comments     map[string][]comments.Comment `json:"comments" yaml:"comments"`
	Activity     []activity.Entry              `json:"activity" yaml:"activity"`
	SavedTo      string                        `json:"saved_to,omitempty" yaml:"saved_to,omitempty"`
}

func runSimulate(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if !slices.Contains([]string{"text", "yaml", "json"}, simFormat) {
		return fmt.Errorf("unsupported format %q (supported: text, yaml, json)", simFormat)
	}

	seed := simSeed
	if seed == 0 {
		seed = rand.Uint64()
	}
	src := rand.New(rand.NewPCG(seed, seed))

	rt, err := newRuntime(cfg, collab.WithRandom(src.IntN))
	if err != nil {
		return err
	}
	defer rt.Close()
	rt.logger.Info("simulation starting", "seed", seed)

	report, err := simulateSession(cmd.Context(), rt, src, cfg)
	if err != nil {
		return err
	}

	if simSave {
		path, err := saveSnapshot(cmd.Context(), cfg, rt, report.Snapshot)
		if err != nil {
			return err
		}
		report.SavedTo = path
	}

	return writeReport(cmd.OutOrStdout(), report, simFormat)
}

// simulateSession drives one full session on rt.cc and returns its outcome.
func simulateSession(ctx context.Context, rt *runtime, src *rand.Rand, cfg *config.Config) (*Report, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	cc := rt.cc

	self := session.Participant{ID: uuid.NewString(), Name: simName, Email: "you@example.com"}
	if simJoin != "" {
		self.Color = session.JoinerColor
		if err := cc.JoinSession(strings.ToUpper(simJoin), self); err != nil {
			return nil, err
		}
	} else {
		self.Color = session.OwnerColor
		if _, err := cc.StartSession(self); err != nil {
			return nil, err
		}
	}
	s, _ := cc.Session()
	rt.logger.WithSession(s.Code).Info("session ready", "self", self.ID)

	n := cfg.Simulation.Participants
	if simParticipants >= 0 {
		n = simParticipants
	}
	rounds := cfg.Simulation.Rounds
	if simRounds >= 0 {
		rounds = simRounds
	}

	participants := simulate.DemoParticipants(n)
	for _, p := range participants {
		if err := cc.AddParticipant(p); err != nil {
			return nil, err
		}
	}
	if _, err := simulate.SeedComments(cc, "Experience"); err != nil {
		return nil, err
	}

	// The local user edits the contact name through a field binding, the
	// way a form input would.
	field := cc.Field(cvstore.GeneralInfoSection, "name", self)
	field.Focus()
	if f := field.Blur(simName, ""); f != nil {
		if err := f.Wait(ctx); err != nil {
			return nil, err
		}
	}

	scripts := simulate.DemoScripts(participants, rounds, src)
	if err := simulate.RunParticipants(ctx, cc, scripts, cfg.Simulation.MaxConcurrent); err != nil {
		return nil, err
	}

	sim := simulate.New(cc,
		simulate.WithThreshold(cfg.Simulation.ActivityThreshold),
		simulate.WithSource(src),
		simulate.WithLogger(rt.logger.WithComponent("simulate")),
	)
	for range simSteps {
		sim.Step()
	}
	sim.SimulateEdit()

	link, _ := cc.InviteLink()
	report := &Report{
		Code:         s.Code,
		InviteLink:   link,
		Participants: cc.Roster(),
		Snapshot:     cc.Snapshot(),
		Comments:     make(map[string][]comments.Comment),
		Activity:     cc.Activity(),
	}
	for _, section := range cc.CommentSections() {
		report.Comments[section] = cc.Thread(section)
	}
	return report, nil
}

func saveSnapshot(ctx context.Context, cfg *config.Config, rt *runtime, snap merge.Snapshot) (string, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	path := cfg.Storage.ResolvePath()
	store, err := cvstore.Open(ctx, path,
		cvstore.WithNamespace(cfg.Storage.Namespace),
		cvstore.WithLogger(rt.logger.WithComponent("cvstore")),
	)
	if err != nil {
		return "", err
	}
	defer store.Close()

	cv, err := store.LoadCV(ctx)
	if err != nil {
		return "", err
	}
	if err := store.SaveCV(ctx, cvstore.ApplySnapshot(cv, snap)); err != nil {
		return "", err
	}
	return path, nil
}

func writeReport(w io.Writer, r *Report, format string) error {
	switch format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(r)
	case "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(r); err != nil {
			return err
		}
		return enc.Close()
	}

	fmt.Fprintf(w, "Session %s\n", r.Code)
	fmt.Fprintf(w, "Invite link: %s\n\n", r.InviteLink)

	fmt.Fprintln(w, "Participants:")
	for _, p := range r.Participants {
		role := ""
		if p.IsOwner {
			role = " (owner)"
		}
		fmt.Fprintf(w, "  %s%s\n", p.Name, role)
	}

	fmt.Fprintln(w, "\nShared edits:")
	sections := make([]string, 0, len(r.Snapshot))
	for section := range r.Snapshot {
		sections = append(sections, section)
	}
	slices.Sort(sections)
	for _, section := range sections {
		fields := make([]string, 0, len(r.Snapshot[section]))
		for field := range r.Snapshot[section] {
			fields = append(fields, field)
		}
		slices.Sort(fields)
		for _, field := range fields {
			fmt.Fprintf(w, "  %s.%s = %v\n", section, field, r.Snapshot[section][field])
		}
	}

	fmt.Fprintln(w, "\nComments:")
	sections = sections[:0]
	for section := range r.Comments {
		sections = append(sections, section)
	}
	slices.Sort(sections)
	for _, section := range sections {
		for _, c := range r.Comments[section] {
			mark := " "
			if c.Resolved {
				mark = "x"
			}
			fmt.Fprintf(w, "  [%s] %s - %s: %s\n", mark, section, c.Author.Name, c.Text)
		}
	}

	fmt.Fprintln(w, "\nRecent activity:")
	for _, e := range r.Activity {
		fmt.Fprintf(w, "  %s  %s\n", e.Timestamp.Format(time.TimeOnly), e.String())
	}

	if r.SavedTo != "" {
		fmt.Fprintf(w, "\nSaved CV to %s\n", r.SavedTo)
	}
	return nil
}
