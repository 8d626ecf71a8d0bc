package cli

import (
	"github.com/spf13/cobra"
)

func newMatchesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "matches",
		Short: "List open matches",
		RunE: func(cmd *cobra.Command, args []string) error {
			var matches MatchList
			if err := client.Get("/api/v1/matches", &matches); err != nil {
				return err
			}

			out := NewOutput(cfg.Output, cmd.OutOrStdout())
			out.Print(matches)
			return nil
		},
	}
}
