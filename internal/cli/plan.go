package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pablasso/routeright/internal/geo"
	"github.com/pablasso/routeright/internal/logging"
	"github.com/pablasso/routeright/internal/plan"
	"github.com/pablasso/routeright/internal/session"
	"github.com/pablasso/routeright/internal/tui/components"
)

// progressBarWidth is the width of the bar in headless progress lines.
const progressBarWidth = 20

func newPlanCmd(a *app) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "plan <errands...>",
		Short: "Plan a route without the interactive UI",
		Long: `Plan a route for the given errands and print it. Progress is reported
one line per stage; with --json the plan is written to stdout as JSON and
progress goes to stderr.`,
		Example: `  routeright plan "need milk, cash and a prescription" --lat 37.77 --lng -122.42
  routeright plan --demo --json "coffee and gas"`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			text := strings.TrimSpace(strings.Join(args, " "))

			return a.withRuntime(cmd, false, func(ctx context.Context, rt *runtime, logger *logging.Logger) error {
				progressOut := cmd.OutOrStdout()
				if asJSON {
					progressOut = rt.stderr
				}

				coords, err := rt.locator.CurrentLocation(ctx)
				if err != nil {
					return locationError(err)
				}

				req := plan.PlanRequest{FreeText: text, Lat: coords.Lat, Lng: coords.Lng}
				final, err := runPlan(ctx, rt.controller, req, progressOut)
				if err != nil {
					return err
				}

				if asJSON {
					return writePlanJSON(cmd.OutOrStdout(), final.Plan)
				}
				writeRoute(cmd.OutOrStdout(), final.Plan)
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "print the plan as JSON")
	return cmd
}

// planner is the part of the session controller the headless command uses.
type planner interface {
	Generate(ctx context.Context, req plan.PlanRequest) (uint64, error)
	Subscribe() (<-chan session.Session, func())
}

// runPlan starts a generation and prints a line whenever its progress
// changes. It returns the final session of a completed generation.
func runPlan(ctx context.Context, p planner, req plan.PlanRequest, out io.Writer) (session.Session, error) {
	updates, unsubscribe := p.Subscribe()
	defer unsubscribe()

	gen, err := p.Generate(ctx, req)
	if err != nil {
		return session.Session{}, err
	}

	fmt.Fprintf(out, "Planning: %s\n", req.FreeText)

	var last session.Session
	for {
		select {
		case s, ok := <-updates:
			if !ok {
				return session.Session{}, errors.New("session closed before the plan finished")
			}
			if s.GenerationID != gen {
				continue
			}
			if s.Status == session.StatusRunning && (s.Percent != last.Percent || s.Message != last.Message) {
				fmt.Fprintf(out, "  %s  %s\n", components.NewBar(s.Percent, progressBarWidth).View(), progressMessage(s))
			}
			last = s

			switch s.Status {
			case session.StatusCompleted:
				if s.Plan == nil {
					return s, errors.New(plan.ErrMissingPlan.Message)
				}
				return s, nil
			case session.StatusFailed:
				return s, fmt.Errorf("plan failed: %s", s.ErrorMessage)
			}

		case <-ctx.Done():
			return last, ctx.Err()
		}
	}
}

func progressMessage(s session.Session) string {
	if s.Message != "" {
		return s.Message
	}
	return s.Stage.Message()
}

// locationError explains how to recover from a failed lookup headlessly.
func locationError(err error) error {
	msg := plan.UserMessage(err)
	if geo.ReasonOf(err) != geo.PermissionDenied {
		msg += " Pass --lat and --lng, or set location.lookup_url."
	}
	return plan.NewError(plan.KindLocation, msg, nil)
}

func writePlanJSON(w io.Writer, p *plan.Plan) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(plan.FromPlan(p))
}

func writeRoute(w io.Writer, p *plan.Plan) {
	summary := fmt.Sprintf("%d stops · %s", len(p.Stops), p.TotalTime)
	if p.TotalDistanceKm != nil {
		summary += fmt.Sprintf(" · %.1f km", *p.TotalDistanceKm)
	}
	fmt.Fprintf(w, "\nYour route (%s)\n", summary)

	for i, s := range p.Stops {
		line := fmt.Sprintf("  %d. %s %s", i+1, s.CategoryIcon(), s.Name)
		if s.Rating != nil {
			line += fmt.Sprintf(" ★ %.1f", *s.Rating)
		}
		fmt.Fprintln(w, line)
		if s.Address != "" {
			fmt.Fprintf(w, "     %s\n", s.Address)
		}
		if s.ETA != "" {
			fmt.Fprintf(w, "     ETA %s\n", s.ETA)
		}
		if s.MapsURL != "" {
			fmt.Fprintf(w, "     %s\n", s.MapsURL)
		}
	}
	if p.MapPreviewURL != "" {
		fmt.Fprintf(w, "\nMap: %s\n", p.MapPreviewURL)
	}
	fmt.Fprintf(w, "\nPlan ID: %s\n", p.ID)
}
