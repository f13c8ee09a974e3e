package simulate

import (
	"context"
	"fmt"
	"time"

	"github.com/sourcegraph/conc/pool"

	"github.com/Iron-Ham/cvcollab/internal/collab"
	"github.com/Iron-Ham/cvcollab/internal/comments"
	"github.com/Iron-Ham/cvcollab/internal/session"
)

// Edit is one scripted interaction with a field: focus, type, blur, and
// optionally leave a comment on the section.
type Edit struct {
	Section string `yaml:"section"`
	Field   string `yaml:"field"`
	Value   string `yaml:"value"`
	Comment string `yaml:"comment,omitempty"`
}

// Script is the sequence of edits one participant performs.
type Script struct {
	Participant session.Participant
	Edits       []Edit
	// Pause is how long the participant keeps a field focused.
	Pause time.Duration
}

// DemoParticipants returns n remote participants with distinct IDs, names
// and colors.
func DemoParticipants(n int) []session.Participant {
	names := []string{"Sarah Wilson", "Mike Chen", "Priya Patel", "Tom Becker", "Lena Novak"}
	out := make([]session.Participant, 0, n)
	for i := range n {
		name := names[i%len(names)]
		if i >= len(names) {
			name = fmt.Sprintf("%s %d", name, i/len(names)+1)
		}
		out = append(out, session.Participant{
			ID:    fmt.Sprintf("sim_%d", i+1),
			Name:  name,
			Color: session.Palette[(i+1)%len(session.Palette)],
		})
	}
	return out
}

// DemoScripts builds rounds random edits for each participant.
func DemoScripts(participants []session.Participant, rounds int, src Source) []Script {
	if src == nil {
		src = globalSource{}
	}
	scripts := make([]Script, 0, len(participants))
	for _, p := range participants {
		edits := make([]Edit, 0, rounds)
		for r := range rounds {
			e := Edit{
				Section: Sections[src.IntN(len(Sections))],
				Field:   Fields[src.IntN(len(Fields))],
				Value:   fmt.Sprintf("%s draft %d", p.Name, r+1),
			}
			if src.Float64() > DefaultThreshold {
				e.Comment = fmt.Sprintf("%s: please double-check this", p.Name)
			}
			edits = append(edits, e)
		}
		scripts = append(scripts, Script{Participant: p, Edits: edits})
	}
	return scripts
}

// RunParticipants plays every script concurrently against cc, one goroutine
// per participant, at most maxConcurrent at a time (0 means unlimited).
// Each edit waits for its value to reach the shared snapshot before the next
// one starts. The first error cancels the remaining scripts.
func RunParticipants(ctx context.Context, cc *collab.Context, scripts []Script, maxConcurrent int) error {
	p := pool.New().WithContext(ctx).WithCancelOnError()
	if maxConcurrent > 0 {
		p = p.WithMaxGoroutines(maxConcurrent)
	}
	for _, script := range scripts {
		p.Go(func(ctx context.Context) error {
			return runScript(ctx, cc, script)
		})
	}
	return p.Wait()
}

func runScript(ctx context.Context, cc *collab.Context, script Script) error {
	for _, e := range script.Edits {
		if err := ctx.Err(); err != nil {
			return err
		}

		field := cc.Field(e.Section, e.Field, script.Participant)
		field.Focus()
		if script.Pause > 0 {
			select {
			case <-ctx.Done():
				field.Blur("", "")
				return ctx.Err()
			case <-cc.Clock().After(script.Pause):
			}
		}

		original := ""
		if v, ok := cc.Snapshot()[e.Section][e.Field].(string); ok {
			original = v
		}
		if future := field.Blur(e.Value, original); future != nil {
			if err := future.Wait(ctx); err != nil {
				return fmt.Errorf("%s editing %s.%s: %w", script.Participant.Name, e.Section, e.Field, err)
			}
		}

		if e.Comment != "" {
			if _, err := cc.AddComment(e.Section, e.Comment, script.Participant); err != nil {
				return err
			}
		}
	}
	return nil
}

// SeedComments adds the two sample comments a fresh comment thread is shown
// with, the second already resolved.
func SeedComments(cc *collab.Context, section string) ([]comments.Comment, error) {
	reviewers := []struct {
		p        session.Participant
		text     string
		resolved bool
	}{
		{
			p:    session.Participant{ID: "reviewer_1", Name: "Sarah Wilson", Color: "#10B981"},
			text: "Consider adding more specific achievements here. Numbers and metrics would make this stronger.",
		},
		{
			p:        session.Participant{ID: "reviewer_2", Name: "Mike Chen", Color: "#F59E0B"},
			text:     "Great improvement! The formatting looks much cleaner now.",
			resolved: true,
		},
	}

	out := make([]comments.Comment, 0, len(reviewers))
	for _, r := range reviewers {
		c, err := cc.AddComment(section, r.text, r.p)
		if err != nil {
			return out, err
		}
		if r.resolved && cc.ToggleResolved(section, c.ID) {
			c.Resolved = true
		}
		out = append(out, c)
	}
	return out, nil
}
