package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"

	"gradtrends/adapters/excel"
	"gradtrends/adapters/postgres"
	"gradtrends/app"
	"gradtrends/domain/core"
	"gradtrends/internal"
	"gradtrends/internal/cleaning"
	"gradtrends/internal/config"
	"gradtrends/internal/derive"
	"gradtrends/internal/testkit"
	"gradtrends/ports"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

// globalFlags override the environment configuration
type globalFlags struct {
	dataDir  string
	sources  string
	finAid   string
	logLevel string
}

func main() {
	_ = godotenv.Load()

	var flags globalFlags
	rootCmd := &cobra.Command{
		Use:          "gradtrends",
		Short:        "Turn published wide tables into one tidy institution-year table",
		SilenceUsage: true,
	}
	rootCmd.PersistentFlags().StringVar(&flags.dataDir, "data-dir", "", "Directory holding the source files (overrides DATA_DIR)")
	rootCmd.PersistentFlags().StringVar(&flags.sources, "sources", "", "YAML source catalogue (overrides SOURCES_FILE)")
	rootCmd.PersistentFlags().StringVar(&flags.finAid, "fin-aid-mode", "", "strict or coalesce (overrides FIN_AID_MODE)")
	rootCmd.PersistentFlags().StringVar(&flags.logLevel, "log-level", "", "ERROR, WARN, INFO, DEBUG or TRACE (overrides LOG_LEVEL)")

	rootCmd.AddCommand(
		newBuildCmd(&flags),
		newReportCmd(&flags),
		newNamesCmd(&flags),
		newSourcesCmd(&flags),
		newDemoCmd(&flags),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func (f *globalFlags) config() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if f.dataDir != "" {
		cfg.Data.Dir = f.dataDir
	}
	if f.sources != "" {
		cfg.Data.SourcesFile = f.sources
	}
	if f.finAid != "" {
		mode, err := derive.ParseFinAidMode(f.finAid)
		if err != nil {
			return nil, err
		}
		cfg.Filter.FinAidMode = mode
	}
	return cfg, nil
}

func (f *globalFlags) logger() (*internal.Logger, error) {
	if f.logLevel == "" {
		return internal.DefaultLogger, nil
	}
	level, err := internal.ParseLogLevel(f.logLevel)
	if err != nil {
		return nil, err
	}
	return internal.NewLogger(level), nil
}

// service wires a BuildService. withDB opens the configured database; the
// returned cleanup closes it.
func (f *globalFlags) service(ctx context.Context, withDB bool) (*app.BuildService, func(), error) {
	cfg, err := f.config()
	if err != nil {
		return nil, nil, err
	}
	logger, err := f.logger()
	if err != nil {
		return nil, nil, err
	}
	cat, err := app.LoadCatalogue(cfg)
	if err != nil {
		return nil, nil, err
	}

	cleanup := func() {}
	var repo ports.ObservationRepository
	if withDB {
		db, err := app.OpenDatabase(ctx, cfg.Database)
		if err != nil {
			return nil, nil, err
		}
		cleanup = func() { db.Close() }
		repo = postgres.NewObservationRepository(db)
	}
	return app.NewBuildService(cfg, cat, app.NewExcelLoader(cfg), repo, logger), cleanup, nil
}

func newBuildCmd(flags *globalFlags) *cobra.Command {
	var out string
	var save bool

	cmd := &cobra.Command{
		Use:   "build",
		Short: "Build the tidy table and write it to a workbook or CSV",
		Long: `Load every declared source, merge them on (institution, year), derive
percent_accepted, fin_aid and fin_aid_ratio and write the result.

Example: gradtrends build --data-dir datasets --out tidy.xlsx --save`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, cleanup, err := flags.service(cmd.Context(), save)
			if err != nil {
				return err
			}
			defer cleanup()

			result, err := svc.Build(cmd.Context())
			if err != nil {
				return err
			}
			path, err := svc.Export(result, out)
			if err != nil {
				return err
			}

			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "run %s\n", result.RunID)
			fmt.Fprintf(w, "rows: %d  columns: %s\n", result.Stats.Rows, strings.Join(result.Stats.Columns, ", "))
			fmt.Fprintf(w, "fingerprint: %s\n", result.Fingerprint.Short())
			for _, step := range result.Stats.MergeSteps {
				fmt.Fprintf(w, "  merge %-16s %5d records, +%d keys\n", step.Source, step.Records, step.KeysAdded)
				for from, to := range step.Renamed {
					fmt.Fprintf(w, "    renamed %s -> %s\n", from, to)
				}
			}
			if len(result.Stats.Ambiguous) > 0 {
				fmt.Fprintf(w, "listed as public and private: %s\n", strings.Join(result.Stats.Ambiguous, ", "))
			}
			fmt.Fprintf(w, "wrote %s\n", path)

			if save {
				rec, err := svc.Save(cmd.Context(), result)
				if err != nil {
					return err
				}
				fmt.Fprintf(w, "stored run %s (%d rows)\n", rec.RunID, rec.Rows)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&out, "out", "", "Output .xlsx or .csv (defaults to OUTPUT_FILE under the data dir)")
	cmd.Flags().BoolVar(&save, "save", false, "Also store the run in DATABASE_URL")

	return cmd
}

func newReportCmd(flags *globalFlags) *cobra.Command {
	var htmlOut string

	cmd := &cobra.Command{
		Use:   "report",
		Short: "Build the table and print the analysis report as Markdown",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, cleanup, err := flags.service(cmd.Context(), false)
			if err != nil {
				return err
			}
			defer cleanup()

			result, err := svc.Build(cmd.Context())
			if err != nil {
				return err
			}
			rep, err := svc.Report(result)
			if err != nil {
				return err
			}
			if htmlOut != "" {
				if err := os.WriteFile(htmlOut, rep.HTML(), 0o644); err != nil {
					return fmt.Errorf("failed to write %s: %w", htmlOut, err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", htmlOut)
				return nil
			}
			fmt.Fprint(cmd.OutOrStdout(), rep.Markdown())
			return nil
		},
	}

	cmd.Flags().StringVar(&htmlOut, "html", "", "Write an HTML page instead of printing Markdown")

	return cmd
}

func newNamesCmd(flags *globalFlags) *cobra.Command {
	var sourceID, sheet string
	var prefix, suffix, headerRow int

	cmd := &cobra.Command{
		Use:   "names [file]",
		Short: "Print the institution names parsed from a file's headers",
		Long: `Print the institution name each value column header parses to.

Either name a catalogue source (--source grad_rate) or give a file with
explicit token counts.

Example: gradtrends names datasets/graduation_rates.xlsx --prefix 2 --suffix 6 --header-row 2`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := flags.config()
			if err != nil {
				return err
			}

			var path string
			rule := cleaning.HeaderRule{PrefixLen: prefix, SuffixLen: suffix}
			switch {
			case sourceID != "":
				cat, err := app.LoadCatalogue(cfg)
				if err != nil {
					return err
				}
				id, err := core.ParseSourceID(sourceID)
				if err != nil {
					return err
				}
				spec, ok := cat.Source(id)
				if !ok {
					return fmt.Errorf("no source %q in the catalogue", sourceID)
				}
				path = app.NewExcelLoader(cfg).Path(spec)
				rule = cleaning.RuleFor(spec)
				sheet, headerRow = spec.Sheet, spec.HeaderRow
			case len(args) == 1:
				path = args[0]
			default:
				return fmt.Errorf("give a file or --source")
			}

			table, err := excel.NewDataReader(path).ReadTable(sheet, headerRow)
			if err != nil {
				return err
			}
			names, err := rule.Names(table)
			if err != nil {
				return err
			}
			for i, name := range names {
				fmt.Fprintf(cmd.OutOrStdout(), "%-60s  <- %s\n", name, table.ValueHeaders()[i])
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&sourceID, "source", "", "Catalogue source to take the file and rule from")
	cmd.Flags().IntVar(&prefix, "prefix", 0, "Leading boilerplate tokens")
	cmd.Flags().IntVar(&suffix, "suffix", 0, "Trailing boilerplate tokens")
	cmd.Flags().StringVar(&sheet, "sheet", "", "Sheet name (default first sheet)")
	cmd.Flags().IntVar(&headerRow, "header-row", 0, "Title rows above the header")

	return cmd
}

func newSourcesCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "sources",
		Short: "Print the source catalogue as YAML",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := flags.config()
			if err != nil {
				return err
			}
			cat, err := app.LoadCatalogue(cfg)
			if err != nil {
				return err
			}
			data, err := cat.Marshal()
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(data)
			return err
		},
	}
}

func newDemoCmd(flags *globalFlags) *cobra.Command {
	var seed int64

	cmd := &cobra.Command{
		Use:   "demo",
		Short: "Write synthetic source workbooks and a catalogue into the data dir",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := flags.config()
			if err != nil {
				return err
			}
			cat := config.DefaultSources()

			gc := testkit.DefaultCampusConfig()
			gc.Seed = seed
			tables, err := testkit.NewCampusDataGenerator(gc).Generate(cat.Sources)
			if err != nil {
				return err
			}
			if err := os.MkdirAll(cfg.Data.Dir, 0o755); err != nil {
				return err
			}
			if err := app.NewExcelLoader(cfg).WriteSources(cat.Sources, tables); err != nil {
				return err
			}

			data, err := cat.Marshal()
			if err != nil {
				return err
			}
			catPath := filepath.Join(cfg.Data.Dir, "sources.yaml")
			if err := os.WriteFile(catPath, data, 0o644); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %d sources and %s (%s)\n", len(cat.Sources), catPath, gc.Describe())
			return nil
		},
	}

	cmd.Flags().Int64Var(&seed, "seed", 42, "Random seed for the synthetic data")

	return cmd
}
