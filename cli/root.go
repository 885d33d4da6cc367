// Package cli wires the scraper engine into the mapscraper command line.
package cli

import (
	"github.com/spf13/cobra"

	"maps-scraper/config"
	"maps-scraper/services"
)

// flags holds raw command-line values; only the ones the user set are applied
// over the environment-derived config.
type flags struct {
	queries  []string
	max      int
	workers  int
	headless bool
	out      string
	csv      string
	db       string
	dsn      string
	verifyMX bool
	verbose  bool
}

// acquire is swapped in tests.
var acquire services.AcquireFunc = services.AcquireChrome

// NewRootCmd builds the mapscraper command tree. Running the root without a
// subcommand behaves like `run`.
func NewRootCmd() *cobra.Command {
	root, _ := newRootCmd()
	return root
}

func newRootCmd() (*cobra.Command, *flags) {
	f := &flags{}

	root := &cobra.Command{
		Use:   "mapscraper [query...]",
		Short: "Extract business listings from map search results",
		Long: `Searches the map directory for each query, walks the result feed and
extracts name, phone, email, website, address, rating, review count and
category for up to --max listings per query.`,
		Args:          cobra.ArbitraryArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runScrape(cmd, f, args)
		},
	}

	pf := root.PersistentFlags()
	pf.StringArrayVarP(&f.queries, "query", "q", nil, "search query (repeatable)")
	pf.IntVarP(&f.max, "max", "n", config.Default().Target, "maximum listings per query (1-200)")
	pf.IntVarP(&f.workers, "workers", "w", config.Default().Workers, "queries processed concurrently")
	pf.BoolVar(&f.headless, "headless", true, "run Chrome headless (false = visible window)")
	pf.StringVarP(&f.out, "out", "o", config.Default().OutFile, "output JSON filename")
	pf.StringVar(&f.csv, "csv", "", "also write a CSV file")
	pf.StringVar(&f.db, "db", "", "store listings in a database (pgx, mysql, sqlite)")
	pf.StringVar(&f.dsn, "dsn", "", "database connection string for --db")
	pf.BoolVar(&f.verifyMX, "verify-email-mx", false, "drop emails whose domain has no MX record")
	pf.BoolVarP(&f.verbose, "verbose", "v", false, "debug logging")

	runCmd := &cobra.Command{
		Use:   "run [query...]",
		Short: "Run one extraction batch per query",
		Args:  cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runScrape(cmd, f, args)
		},
	}

	doctorCmd := &cobra.Command{
		Use:   "doctor",
		Short: "Check that a browser session can be started",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runDoctor(cmd, f)
		},
	}

	root.AddCommand(runCmd, doctorCmd)
	return root, f
}

// Execute runs the command tree against os.Args.
func Execute() error {
	return NewRootCmd().Execute()
}

// resolveConfig layers explicitly set flags over config.Load().
func resolveConfig(cmd *cobra.Command, f *flags, args []string) config.Config {
	cfg := config.Load()
	fl := cmd.Flags()

	if queries := append(append([]string{}, f.queries...), args...); len(queries) > 0 {
		cfg.Queries = queries
	}
	if fl.Changed("max") {
		cfg.Target = f.max
	}
	if fl.Changed("workers") {
		cfg.Workers = f.workers
	}
	if fl.Changed("headless") {
		cfg.Headless = f.headless
	}
	if fl.Changed("out") {
		cfg.OutFile = f.out
	}
	if fl.Changed("csv") {
		cfg.CSVFile = f.csv
	}
	if fl.Changed("db") {
		cfg.DBDriver = f.db
	}
	if fl.Changed("dsn") {
		cfg.DBDSN = f.dsn
	}
	if fl.Changed("verify-email-mx") {
		cfg.VerifyEmailMX = f.verifyMX
	}
	if fl.Changed("verbose") {
		cfg.Verbose = f.verbose
	}
	return cfg
}
