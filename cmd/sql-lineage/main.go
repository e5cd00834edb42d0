package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"sql-lineage/internal/config"
	"sql-lineage/internal/lineage"
	"sql-lineage/internal/reporter"
	"sql-lineage/internal/scanner"
	"sql-lineage/internal/watch"
)

var (
	cfgFile        string
	queriesDir     string
	extensions     []string
	excludes       []string
	useGitignore   bool
	mappingsFile   string
	relationsFile  string
	outputDir      string
	diagramName    string
	format         string
	unparsableFile string
	rankDir        string
	verbose        bool
	logFormat      string
)

var rootCmd = &cobra.Command{
	Use:   "sql-lineage [display-types]",
	Short: "Draw table lineage from a directory of SQL artifacts",
	Long: `sql-lineage scans a directory of SQL scripts, works out which tables
each statement reads and writes, and renders the result as a Graphviz diagram.

The optional display-types argument is a string of one-letter codes
(i=INSERT, d=DELETE, u=UPDATE, s=SELECT). Without it every type is drawn.`,
	Args:          cobra.MaximumNArgs(1),
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, display, err := setup(cmd, args)
		if err != nil {
			return err
		}
		logger := cfg.Logger()
		_, err = runAnalysis(cmd.Context(), cfg, display, logger, reporter.NewConsoleReporter(cmd.OutOrStdout()))
		return err
	},
}

var watchCmd = &cobra.Command{
	Use:   "watch [display-types]",
	Short: "Re-draw the diagram whenever a query or resource file changes",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, display, err := setup(cmd, args)
		if err != nil {
			return err
		}
		logger := cfg.Logger()

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		walker := scanner.NewFileWalker(cfg.Extensions, cfg.Excludes)
		walker.UseGitignore = cfg.Gitignore
		w := watch.New(cfg.QueriesDir, walker, []string{cfg.MappingsFile, cfg.RelationsFile}, logger)
		rpt := reporter.NewConsoleReporter(cmd.OutOrStdout())
		return w.Run(ctx, func(ctx context.Context) error {
			_, err := runAnalysis(ctx, cfg, display, logger, rpt)
			return err
		})
	},
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVarP(&cfgFile, "config", "c", "", "Config file (default: sql-lineage.yaml in the working directory)")
	pf.StringVarP(&queriesDir, "queries-dir", "q", config.DefaultQueriesDir, "Directory holding the SQL artifacts")
	pf.StringSliceVarP(&extensions, "extensions", "x", config.DefaultExtensions, "File extensions to scan")
	pf.StringSliceVarP(&excludes, "excludes", "e", config.DefaultExcludes, "Patterns to exclude from the scan")
	pf.BoolVar(&useGitignore, "gitignore", true, "Honour the .gitignore at the root of the queries dir")
	pf.StringVar(&mappingsFile, "mappings-file", config.DefaultMappingsFile, "CSV of table,label display mappings")
	pf.StringVar(&relationsFile, "relations-file", config.DefaultRelationsFile, "CSV of statically declared relations")
	pf.StringVarP(&outputDir, "output-dir", "o", config.DefaultOutputDir, "Directory for the diagram and reports")
	pf.StringVar(&diagramName, "diagram-name", config.DefaultDiagramName, "Diagram file name without extension")
	pf.StringVarP(&format, "format", "f", config.DefaultFormat, "Diagram format (dot, svg, png, pdf)")
	pf.StringVar(&unparsableFile, "unparsable-file", config.DefaultUnparsableFile, "File name of the unparsable statements report")
	pf.StringVar(&rankDir, "rankdir", config.DefaultRankDir, "Graphviz rank direction (LR, TB, ...)")
	pf.BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")
	pf.StringVar(&logFormat, "log-format", config.DefaultLogFormat, "Log format (text, json)")

	rootCmd.AddCommand(watchCmd)
}

// setup loads the layered configuration and parses the display-types argument.
func setup(cmd *cobra.Command, args []string) (*config.Config, lineage.DisplayTypes, error) {
	cfg, used, err := config.Load(cfgFile, cmd.Flags())
	if err != nil {
		return nil, nil, err
	}

	display := lineage.AllDisplayTypes()
	if len(args) == 1 {
		display = lineage.ParseDisplayTypes(args[0])
	}

	logger := cfg.Logger()
	if used != "" {
		logger.Debug("loaded config file", "path", used)
	}
	logger.Debug("displaying query types", "types", display.String())
	return cfg, display, nil
}

func main() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
