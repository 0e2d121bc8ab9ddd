// Package main is the entry point for the skilltrace CLI.
// skilltrace records skill invocations, aggregates outcome metrics,
// scores skill performance, and produces advisory suggestions.
package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
	"github.com/spf13/cobra"

	"github.com/normanking/skilltrace/internal/advisor"
	"github.com/normanking/skilltrace/internal/config"
	"github.com/normanking/skilltrace/internal/data"
	"github.com/normanking/skilltrace/internal/logging"
	"github.com/normanking/skilltrace/internal/scorer"
	"github.com/normanking/skilltrace/internal/tracker"
	"github.com/normanking/skilltrace/pkg/types"
)

var (
	version = "0.1.0"
	cfgPath string
	dataDir string
	verbose bool
	cfg     *config.Config
)

var (
	warnStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("11")).Bold(true)
	infoStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("12"))
	okStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	titleStyle = lipgloss.NewStyle().Bold(true)
)

func main() {
	lipgloss.SetColorProfile(termenv.ColorProfile())

	rootCmd := &cobra.Command{
		Use:   "skilltrace",
		Short: "skilltrace - skill performance telemetry and recommendations",
		Long: `skilltrace records every skill invocation, aggregates outcome
metrics per skill, and turns the history into composite performance
scores, trend detection, and pre-call recommendations.

Start tracking a call:   skilltrace start <skill> -q "user question"
Record its outcome:      skilltrace end <session-id> --success-rate 0.9 --turns 3
Performance report:      skilltrace report <skill>
Pre-call check:          skilltrace check <skill>`,
		Version:           version,
		PersistentPreRunE: initApp,
		SilenceUsage:      true,
	}

	rootCmd.PersistentFlags().StringVar(&cfgPath, "config", "", "config file path (default ~/.skilltrace/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&dataDir, "data-dir", "", "data directory (default ~/.skilltrace)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")

	rootCmd.AddCommand(
		startCmd(),
		endCmd(),
		analyzeCmd(),
		reportCmd(),
		checkCmd(),
		bestCmd(),
		metricsCmd(),
		exportCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// initApp loads configuration and wires up logging before any command runs.
func initApp(cmd *cobra.Command, args []string) error {
	var err error
	if cfgPath != "" {
		cfg, err = config.LoadFromPath(cfgPath)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	if dataDir != "" {
		cfg.Storage.DataDir = dataDir
	}

	logging.Setup(cfg.Logging, verbose)
	return nil
}

// openCollector opens the store and builds the tracking stack.
// Callers must Close the returned store.
func openCollector() (*data.Store, *tracker.Collector, error) {
	store, err := data.Open(cfg.Storage.DataDir)
	if err != nil {
		return nil, nil, fmt.Errorf("open store: %w", err)
	}

	var collector *tracker.Collector
	if cfg.Tracking.PersistentSessions {
		collector = tracker.NewWithSessions(store, store)
	} else {
		collector = tracker.New(store)
	}

	return store, collector, nil
}

// ═══════════════════════════════════════════════════════════════════════════════
// TRACKING COMMANDS
// ═══════════════════════════════════════════════════════════════════════════════

func startCmd() *cobra.Command {
	var question, contextSummary string

	cmd := &cobra.Command{
		Use:   "start <skill>",
		Short: "Start tracking a skill call and print its session ID",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, collector, err := openCollector()
			if err != nil {
				return err
			}
			defer store.Close()

			sessionID, err := collector.StartTracking(context.Background(), args[0], question, contextSummary)
			if err != nil {
				return err
			}

			fmt.Println(sessionID)
			return nil
		},
	}

	cmd.Flags().StringVarP(&question, "question", "q", "", "the user's question")
	cmd.Flags().StringVarP(&contextSummary, "context", "c", "", "context summary")
	return cmd
}

func endCmd() *cobra.Command {
	var successRate, rating float64
	var turns, followUps, accepted int

	cmd := &cobra.Command{
		Use:   "end <session-id>",
		Short: "Record the outcome of a tracked skill call",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, collector, err := openCollector()
			if err != nil {
				return err
			}
			defer store.Close()

			result := types.TrackingResult{
				SuccessRate:         successRate,
				Turns:               turns,
				FollowUpQuestions:   followUps,
				AcceptedSuggestions: accepted,
			}
			if cmd.Flags().Changed("rating") {
				result.UserRating = &rating
			}

			if err := collector.EndTracking(context.Background(), args[0], result); err != nil {
				return err
			}

			fmt.Println(okStyle.Render("result recorded"))
			return nil
		},
	}

	cmd.Flags().Float64Var(&successRate, "success-rate", 0, "success rate in [0,1]")
	cmd.Flags().Float64Var(&rating, "rating", 0, "user rating in [1,5]")
	cmd.Flags().IntVar(&turns, "turns", 0, "conversation turns consumed")
	cmd.Flags().IntVar(&followUps, "follow-ups", 0, "follow-up question count")
	cmd.Flags().IntVar(&accepted, "accepted", 0, "accepted suggestion count")
	cmd.MarkFlagRequired("success-rate")
	return cmd
}

func analyzeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "analyze [file]",
		Short: "Extract tracking features from a conversation transcript",
		Long: `Reads a transcript (one message per line, each prefixed with
"user:" or "assistant:") from a file or stdin and prints the extracted
features as JSON.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var reader io.Reader = os.Stdin
			if len(args) == 1 {
				f, err := os.Open(args[0])
				if err != nil {
					return fmt.Errorf("open transcript: %w", err)
				}
				defer f.Close()
				reader = f
			}

			var messages []string
			scanner := bufio.NewScanner(reader)
			for scanner.Scan() {
				line := strings.TrimSpace(scanner.Text())
				if line != "" {
					messages = append(messages, line)
				}
			}
			if err := scanner.Err(); err != nil {
				return fmt.Errorf("read transcript: %w", err)
			}

			analysis := tracker.AnalyzeConversation(messages)
			payload, err := json.MarshalIndent(analysis, "", "  ")
			if err != nil {
				return fmt.Errorf("marshal analysis: %w", err)
			}

			fmt.Println(string(payload))
			return nil
		},
	}
}

// ═══════════════════════════════════════════════════════════════════════════════
// ANALYSIS COMMANDS
// ═══════════════════════════════════════════════════════════════════════════════

func reportCmd() *cobra.Command {
	var raw bool

	cmd := &cobra.Command{
		Use:   "report <skill>",
		Short: "Render the Markdown performance report for a skill",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, _, err := openCollector()
			if err != nil {
				return err
			}
			defer store.Close()

			suggester := advisor.New(store, scorer.New(store))
			report, err := suggester.GeneratePerformanceReport(context.Background(), args[0])
			if err != nil {
				return err
			}

			if raw {
				fmt.Print(report)
				return nil
			}

			rendered, err := glamour.Render(report, "auto")
			if err != nil {
				// Fall back to the raw Markdown when the terminal
				// renderer is unavailable
				fmt.Print(report)
				return nil
			}

			fmt.Print(rendered)
			return nil
		},
	}

	cmd.Flags().BoolVar(&raw, "raw", false, "print raw Markdown instead of rendering")
	return cmd
}

func checkCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "check <skill>",
		Short: "Check a skill's track record before invoking it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, _, err := openCollector()
			if err != nil {
				return err
			}
			defer store.Close()

			suggester := advisor.New(store, scorer.New(store))
			suggestion, err := suggester.CheckBeforeSkillCall(context.Background(), args[0])
			if err != nil {
				return err
			}

			if !suggestion.ShouldSuggest {
				fmt.Println(okStyle.Render(fmt.Sprintf("%q looks fine - no concerns", args[0])))
				return nil
			}

			style := infoStyle
			if suggestion.Type == types.SuggestionWarning {
				style = warnStyle
			}
			fmt.Println(style.Render(suggestion.Message))

			for _, alt := range suggestion.Alternatives {
				fmt.Printf("  • %s\n", alt)
			}
			return nil
		},
	}
}

func bestCmd() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "best",
		Short: "List the best performing skills",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, _, err := openCollector()
			if err != nil {
				return err
			}
			defer store.Close()

			scores, err := scorer.New(store).GetBestSkills(context.Background(), limit)
			if err != nil {
				return err
			}

			if len(scores) == 0 {
				fmt.Println("no scored skills yet")
				return nil
			}

			fmt.Println(titleStyle.Render("Best performing skills"))
			for i, score := range scores {
				fmt.Printf("%2d. %-30s %3d/100  (%s)\n", i+1, score.SkillName, score.OverallScore, score.Trend)
			}
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 3, "maximum number of skills to list")
	return cmd
}

func metricsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "metrics [skill]",
		Short: "Show the metrics rollup for one skill or all skills",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, _, err := openCollector()
			if err != nil {
				return err
			}
			defer store.Close()

			ctx := context.Background()
			var all []*types.SkillMetrics

			if len(args) == 1 {
				m, err := store.GetSkillMetrics(ctx, args[0])
				if err != nil {
					return err
				}
				if m == nil {
					fmt.Printf("no metrics recorded for %q\n", args[0])
					return nil
				}
				all = append(all, m)
			} else {
				all, err = store.GetAllMetrics(ctx)
				if err != nil {
					return err
				}
				if len(all) == 0 {
					fmt.Println("no metrics recorded yet")
					return nil
				}
			}

			for _, m := range all {
				fmt.Printf("%-30s calls=%-5d success=%.2f rating=%s turns=%.1f\n",
					m.SkillName, m.TotalCalls, m.AvgSuccessRate, formatRating(m.AvgRating), m.AvgTurns)
			}
			return nil
		},
	}
}

func exportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "export <skill> <output.json>",
		Short: "Export a skill's metrics and recent calls to a JSON file",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, collector, err := openCollector()
			if err != nil {
				return err
			}
			defer store.Close()

			if err := collector.ExportMetrics(context.Background(), args[0], args[1]); err != nil {
				return err
			}

			fmt.Println(okStyle.Render("exported to " + args[1]))
			return nil
		},
	}
}

// formatRating renders an average rating, showing "-" when no result
// ever carried one.
func formatRating(rating float64) string {
	if rating == 0 {
		return "-"
	}
	return strconv.FormatFloat(rating, 'f', 2, 64)
}
