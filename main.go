// Command chisel runs brush categorization scenarios and writes preview
// meshes.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"

	"github.com/spf13/cobra"

	"github.com/radicalcsg/chisel/pkg/config"
)

var (
	rootCmd = &cobra.Command{
		Use:   "chisel",
		Short: "Categorize the surfaces of a CSG brush tree",
		Long: `chisel builds an operation tree of convex brushes, finds the brushes
that touch, routes every polygon through its routing table and reports
which surfaces end up on the outside of the combined solid.`,
		SilenceUsage:      true,
		PersistentPreRunE: loadConfig,
	}
	runCmd = &cobra.Command{
		Use:   "run",
		Short: "Run one update pass over a scenario and print the fragments",
		RunE:  runScenario,
	}
	previewCmd = &cobra.Command{
		Use:   "preview",
		Short: "Mesh a scenario with the SDF kernel and write it as JSON",
		RunE:  runPreview,
	}
	scenariosCmd = &cobra.Command{
		Use:   "scenarios",
		Short: "List the built-in scenarios",
		Run:   listScenarios,
	}

	configPath   string
	scenarioName string
	jsonOutput   bool
	visibleOnly  bool
	outPath      string

	cfg    config.Config
	logger *slog.Logger
)

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to a YAML config file")

	rootCmd.AddCommand(runCmd)
	runCmd.Flags().StringVarP(&scenarioName, "scenario", "s", "union",
		"scenario to run ("+strings.Join(scenarioNames(), ", ")+")")
	runCmd.Flags().BoolVar(&jsonOutput, "json", false, "print the result as JSON")
	runCmd.Flags().BoolVar(&visibleOnly, "visible", false, "print only visible fragments")

	rootCmd.AddCommand(previewCmd)
	previewCmd.Flags().StringVarP(&scenarioName, "scenario", "s", "union",
		"scenario to mesh ("+strings.Join(scenarioNames(), ", ")+")")
	previewCmd.Flags().StringVarP(&outPath, "out", "o", "mesh.json", "output file, - for stdout")

	rootCmd.AddCommand(scenariosCmd)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func loadConfig(cmd *cobra.Command, _ []string) error {
	cfg = config.DefaultConfig()
	if configPath != "" {
		var err error
		if cfg, err = config.Load(configPath); err != nil {
			return err
		}
	}
	var err error
	logger, err = cfg.Log.NewLogger(cmd.ErrOrStderr())
	return err
}

func runScenario(cmd *cobra.Command, _ []string) error {
	app := NewApp(cfg, logger)
	res, err := app.Run(cmd.Context(), scenarioName)
	if err != nil {
		return err
	}
	if visibleOnly {
		visible := res.Fragments[:0]
		for _, f := range res.Fragments {
			if f.Visible {
				visible = append(visible, f)
			}
		}
		res.Fragments = visible
	}
	if jsonOutput {
		return writeJSON(cmd.OutOrStdout(), res)
	}
	return printRun(cmd.OutOrStdout(), res)
}

func printRun(w io.Writer, res RunResult) error {
	fmt.Fprintf(w, "scenario %s  pass %s  pairs %d  invalid pairs %d\n",
		res.Scenario, res.PassID, res.Pairs, res.InvalidPairs)
	if len(res.Excluded) > 0 {
		fmt.Fprintf(w, "excluded: %s\n", strings.Join(res.Excluded, ", "))
	}
	if len(res.Unrouted) > 0 {
		fmt.Fprintf(w, "unrouted: %s\n", strings.Join(res.Unrouted, ", "))
	}

	const row = "%-8s %-7v %-16s %-22s %v\n"
	if _, err := fmt.Fprintf(w, row, "BRUSH", "POLYGON", "NORMAL", "CATEGORY", "VISIBLE"); err != nil {
		return err
	}
	for _, f := range res.Fragments {
		normal := fmt.Sprintf("(%g, %g, %g)", f.Normal[0], f.Normal[1], f.Normal[2])
		if _, err := fmt.Fprintf(w, row, f.Brush, f.Polygon, normal, f.Category, f.Visible); err != nil {
			return err
		}
	}
	return nil
}

func runPreview(cmd *cobra.Command, _ []string) error {
	app := NewApp(cfg, logger)
	res, err := app.Preview(scenarioName)
	if err != nil {
		return err
	}
	if outPath == "-" {
		return writeJSON(cmd.OutOrStdout(), res)
	}

	f, err := os.Create(outPath)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", outPath, err)
	}
	if err := writeJSON(f, res); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	logger.Info("preview written", "scenario", scenarioName, "path", outPath,
		"triangles", len(res.Solid.Indices)/3, "brushes", len(res.Brushes))
	return nil
}

func listScenarios(cmd *cobra.Command, _ []string) {
	for _, name := range scenarioNames() {
		fmt.Fprintf(cmd.OutOrStdout(), "%-10s %s\n", name, scenarios[name].description)
	}
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
