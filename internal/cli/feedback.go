package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pablasso/routeright/internal/feedback"
	"github.com/pablasso/routeright/internal/logging"
	"github.com/pablasso/routeright/internal/plan"
)

func newFeedbackCmd(a *app) *cobra.Command {
	var (
		rating   int
		comments string
		stops    []string
	)

	cmd := &cobra.Command{
		Use:   "feedback <plan-id>",
		Short: "Rate a plan",
		Long: `Send a 1-5 rating for a plan, with optional comments. Each stop passed
with --stop receives the same rating and is marked visited.`,
		Example: `  routeright feedback 3f2c9a1e-... --rating 4 --comments "great route" --stop grocery-a1b2c3`,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if rating < feedback.MinRating || rating > feedback.MaxRating {
				return feedback.ErrNoRating
			}

			p := &plan.Plan{ID: args[0]}
			for _, id := range stops {
				p.Stops = append(p.Stops, plan.Stop{ID: id})
			}

			return a.withRuntime(cmd, false, func(ctx context.Context, rt *runtime, logger *logging.Logger) error {
				resp, err := rt.feedback.Submit(ctx, p, rating, comments)
				if err != nil {
					return err
				}
				msg := resp.Message
				if msg == "" {
					msg = "Feedback received"
				}
				fmt.Fprintf(cmd.OutOrStdout(), "✓ %s\n", msg)
				return nil
			})
		},
	}

	cmd.Flags().IntVarP(&rating, "rating", "r", 0, "overall rating from 1 to 5")
	cmd.Flags().StringVar(&comments, "comments", "", "optional comments")
	cmd.Flags().StringSliceVar(&stops, "stop", nil, "stop id to include (repeatable)")
	return cmd
}

func newHealthCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Check that the planning service is reachable",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withRuntime(cmd, false, func(ctx context.Context, rt *runtime, logger *logging.Logger) error {
				h, err := rt.client.Health(ctx)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Service: %s\n", rt.baseURL)
				fmt.Fprintf(out, "Status:  %s\n", h.Status)
				if h.Timestamp != "" {
					fmt.Fprintf(out, "Time:    %s\n", h.Timestamp)
				}
				if !h.Healthy() {
					return fmt.Errorf("service reported status %q", h.Status)
				}
				return nil
			})
		},
	}
}
