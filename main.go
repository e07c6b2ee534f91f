package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/intagaming/tic-tac-toe-worker-node/cmd"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "worker-node",
		Short: "Tic-tac-toe room scheduler and event worker",
		Long: `Worker node for the tic-tac-toe realtime backend.

Rooms live in Redis and are driven from two sides: the worker consumes
realtime queue events (presence and client messages) and applies game
transitions, while the ticker schedules time-driven transitions through
a shared due-timer queue. Both commands are stateless and scale
horizontally; instances coordinate through optimistic score updates and
per-room lease locks.`,
	}

	rootCmd.AddCommand(cmd.TickerCmd())
	rootCmd.AddCommand(cmd.WorkerCmd())
	rootCmd.AddCommand(cmd.RedisDebugCmd())
	rootCmd.AddCommand(cmd.VersionCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
