package cmd

import (
	"errors"
	"os"

	"github.com/spf13/cobra"

	"github.com/Digital-Shane/kometa-resolve/internal/logging"
	"github.com/Digital-Shane/kometa-resolve/internal/plan"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "kometa-resolve [root]",
	Short: "Resolve MediUX asset URLs into Kometa metadata files",
	Long: `kometa-resolve scans a directory of Kometa metadata YAML files for
MediUX set references, resolves each set's best asset through the MediUX
API, probes the resulting URLs, and fills in missing url_poster fields.

By default it performs a dry run and prints a JSON report of all
proposed changes. Pass --apply to rewrite files in place; every write is
preceded by a timestamped backup unless backups are disabled.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runScan,

	SilenceUsage: true,
}

// Execute runs the root command. Invalid roots and other usage mistakes
// exit with code 2; everything else non-zero is an internal failure.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		if errors.Is(err, plan.ErrInvalidRoot) {
			os.Exit(2)
		}
		os.Exit(1)
	}
}

var (
	flagAPIBase        string
	flagAPIKey         string
	flagOutput         string
	flagApply          bool
	flagNoBackup       bool
	flagRequireProbeOK bool
	flagCacheDB        string
	flagCacheTTL       int
	flagSchemaPath     string
	flagFile           string
	flagInteractive    bool
	flagVerbosity      int

	flagSonarrURL    string
	flagSonarrAPIKey string
	flagSonarrDays   int

	flagUseScrape        bool
	flagMediuxUsername   string
	flagMediuxPassword   string
	flagMediuxNickname   string
	flagProfilePath      string
	flagChromedriverPath string
	flagNoHeadless       bool
)

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&flagAPIBase, "api-base", "", "MediUX API base URL")
	pf.StringVar(&flagAPIKey, "api-key", "", "MediUX API key")
	pf.CountVarP(&flagVerbosity, "verbose", "v", "Increase log verbosity (-v info, -vv debug)")

	f := rootCmd.Flags()
	f.StringVarP(&flagOutput, "output", "o", "", "Write the JSON change report to a file instead of stdout")
	f.BoolVar(&flagApply, "apply", false, "Write planned changes to disk (default is dry run)")
	f.BoolVar(&flagNoBackup, "no-backup", false, "Skip creating .bak files before writes")
	f.BoolVar(&flagRequireProbeOK, "require-probe-ok", false, "Only apply changes whose probe saw an HTTP success")
	f.StringVar(&flagCacheDB, "cache-db", "", "Path to the probe cache database")
	f.IntVar(&flagCacheTTL, "cache-ttl", 0, "Probe cache entry lifetime in seconds")
	f.StringVar(&flagSchemaPath, "schema", "", "Path to a metadata JSON Schema (default: built-in)")
	f.StringVar(&flagFile, "file", "", "Restrict the scan to a single metadata file")
	f.BoolVarP(&flagInteractive, "interactive", "i", false, "Review planned changes in a TUI before applying")

	f.StringVar(&flagSonarrURL, "sonarr-url", "", "Sonarr base URL for scan prioritization and refresh notifications")
	f.StringVar(&flagSonarrAPIKey, "sonarr-api-key", "", "Sonarr API key")
	f.IntVar(&flagSonarrDays, "sonarr-days", 0, "Calendar window in days for prioritizing recently aired series")

	f.BoolVar(&flagUseScrape, "use-scrape", false, "Fall back to page scraping when the API returns no assets")
	f.StringVar(&flagMediuxUsername, "mediux-username", "", "MediUX account username for the scraper")
	f.StringVar(&flagMediuxPassword, "mediux-password", "", "MediUX account password for the scraper")
	f.StringVar(&flagMediuxNickname, "mediux-nickname", "", "MediUX profile nickname for the scraper")
	f.StringVar(&flagProfilePath, "profile-path", "", "Browser profile path for the scraper")
	f.StringVar(&flagChromedriverPath, "chromedriver-path", "", "Chromedriver binary path for the scraper")
	f.BoolVar(&flagNoHeadless, "no-headless", false, "Run the scraper browser with a visible window")
}

// initLogging applies the -v count to the stderr logger.
func initLogging() {
	switch {
	case flagVerbosity >= 2:
		logging.SetLevel(logging.LevelDebug)
	case flagVerbosity == 1:
		logging.SetLevel(logging.LevelInfo)
	default:
		logging.SetLevel(logging.LevelQuiet)
	}
}
