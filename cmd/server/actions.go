package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/aristath/papertrader/internal/modules/coordinator"
)

var actionHelp = map[string]string{
	coordinator.ActionRun:      "Run a full cycle: analyze, buy, stop-loss sweep and report",
	coordinator.ActionAnalyze:  "Refresh market data and store each strategy's plan",
	coordinator.ActionBuy:      "Execute today's plans for strategies without positions",
	coordinator.ActionStopLoss: "Sweep every ledger for stop-loss breaches",
	coordinator.ActionReport:   "Compare strategies and print the ranked report",
}

func actionCmds(a *app) []*cobra.Command {
	var cmds []*cobra.Command
	for _, action := range coordinator.Actions() {
		action := action
		cmds = append(cmds, &cobra.Command{
			Use:   action,
			Short: actionHelp[action],
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				_, container, _, err := a.setup(cmd.Context(), true)
				if err != nil {
					return err
				}
				defer container.Close()

				result, err := container.Coordinator.RunAction(cmd.Context(), action)
				if err != nil {
					return err
				}
				return printResult(result)
			},
		})
	}
	return cmds
}

// printResult renders summaries as the text report and anything else as JSON
func printResult(result interface{}) error {
	if summary, ok := result.(*coordinator.Summary); ok && summary != nil {
		fmt.Println(coordinator.RenderReport(summary))
		return nil
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(result)
}
