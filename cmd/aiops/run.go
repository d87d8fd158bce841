package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/rahul/aiops/internal/agent"
)

var (
	runJSON    bool
	runTimeout time.Duration
)

var runCmd = &cobra.Command{
	Use:   "run <task>",
	Short: "Run a single task and print the result",
	Long: `Run one task through plan, execute and verify, then exit.

Example:
  aiops run "Weather in Delhi and top MERN repos"

By default a coloured summary is printed; --json prints the combined
result exactly as POST /task returns it.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		task := strings.TrimSpace(strings.Join(args, " "))
		if task == "" {
			return errors.New("task must not be empty")
		}

		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		ctx := cmd.Context()
		if ctx == nil {
			ctx = context.Background()
		}
		timeout := runTimeout
		if timeout <= 0 {
			timeout = cfg.Server.RequestTimeout
		}
		ctx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()

		a, err := buildApp(ctx, cfg)
		if err != nil {
			return err
		}
		defer a.Close()

		result := a.orchestrator.Run(ctx, task)

		out := cmd.OutOrStdout()
		if runJSON {
			enc := json.NewEncoder(out)
			enc.SetIndent("", "  ")
			if err := enc.Encode(result); err != nil {
				return err
			}
		} else {
			printSummary(out, result)
		}

		if result.Failed() {
			return errors.New(result.Error)
		}
		return nil
	},
}

func init() {
	runCmd.Flags().BoolVar(&runJSON, "json", false, "print the combined result as JSON")
	runCmd.Flags().DurationVar(&runTimeout, "timeout", 0, "overall deadline (default server.request_timeout)")
}

// printSummary renders a result for a terminal. Colours are off when
// stdout is not a terminal.
func printSummary(out io.Writer, r agent.CombinedResult) {
	bold := color.New(color.Bold)
	green := color.New(color.FgGreen)
	red := color.New(color.FgRed)

	bold.Fprintf(out, "Task: %s\n", r.Task)
	if r.Failed() {
		red.Fprintf(out, "✗ %s\n", r.Error)
		return
	}

	fmt.Fprintln(out)
	bold.Fprintln(out, "Steps")
	for i, s := range r.Execution {
		mark, c := "✓", green
		if s.Status != agent.StatusSuccess {
			mark, c = "✗", red
		}
		c.Fprintf(out, "  %s ", mark)
		fmt.Fprintf(out, "%d. %s [%s]\n", i+1, s.Step, s.Tool)
		for _, line := range strings.Split(s.Output, "\n") {
			fmt.Fprintf(out, "       %s\n", line)
		}
	}

	if r.Verification != nil {
		fmt.Fprintln(out)
		bold.Fprintln(out, "Result")
		fmt.Fprintf(out, "  %s\n", r.Verification.Result)
		if len(r.Verification.Sources) > 0 {
			fmt.Fprintf(out, "  Sources: %s\n", strings.Join(r.Verification.Sources, ", "))
		}
	}
}
