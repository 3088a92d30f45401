package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/Digital-Shane/kometa-resolve/internal/activity"
	"github.com/Digital-Shane/kometa-resolve/internal/apply"
	"github.com/Digital-Shane/kometa-resolve/internal/audit"
	"github.com/Digital-Shane/kometa-resolve/internal/config"
	"github.com/Digital-Shane/kometa-resolve/internal/kometa"
	"github.com/Digital-Shane/kometa-resolve/internal/logging"
	"github.com/Digital-Shane/kometa-resolve/internal/mediux"
	"github.com/Digital-Shane/kometa-resolve/internal/plan"
	"github.com/Digital-Shane/kometa-resolve/internal/probe"
	"github.com/Digital-Shane/kometa-resolve/internal/scrape"
	"github.com/Digital-Shane/kometa-resolve/internal/sonarr"
	"github.com/Digital-Shane/kometa-resolve/internal/tui"
	tea "github.com/charmbracelet/bubbletea"
)

// settings is the effective configuration after merging the config
// file with command-line flags. Flags win when both are set.
type settings struct {
	Root           string
	APIBase        string
	APIKey         string
	CacheDB        string
	CacheTTL       time.Duration
	CreateBackup   bool
	RequireProbeOK bool
	SchemaPath     string
	Sonarr         sonarr.Config
	Scrape         scrape.Options
	UseScrape      bool

	EnableAuditLog     bool
	AuditRetentionDays int
}

// resolveSettings loads the config file under root and layers flag
// values over it.
func resolveSettings(cmd *cobra.Command, args []string) settings {
	root := "."
	if len(args) > 0 {
		root = args[0]
	}

	cfg := config.Load(root)
	s := settings{
		Root:           root,
		APIBase:        cfg.APIBase,
		APIKey:         cfg.APIKey,
		CacheDB:        cfg.CacheDB,
		CacheTTL:       time.Duration(cfg.CacheTTLSeconds) * time.Second,
		CreateBackup:   cfg.CreateBackup,
		RequireProbeOK: cfg.RequireProbeOK,
		SchemaPath:     cfg.SchemaPath,
		Sonarr: sonarr.Config{
			URL:    cfg.Sonarr.URL,
			APIKey: cfg.Sonarr.APIKey,
			Days:   cfg.Sonarr.Days,
		},
		Scrape: scrape.Options{
			Username:         cfg.Mediux.Username,
			Password:         cfg.Mediux.Password,
			Nickname:         cfg.Mediux.Nickname,
			Headless:         cfg.Mediux.Headless,
			ProfilePath:      cfg.Mediux.ProfilePath,
			ChromedriverPath: cfg.Mediux.ChromedriverPath,
		},
		UseScrape:          cfg.Mediux.UseScrape,
		EnableAuditLog:     cfg.EnableAuditLog,
		AuditRetentionDays: cfg.AuditRetentionDays,
	}

	// A schema dropped beside the config file overrides the built-in
	// one, unless a path was configured explicitly.
	if s.SchemaPath == "" {
		candidate := filepath.Join(filepath.Dir(config.Path(root)), "kometa_metadata_schema.json")
		if _, err := os.Stat(candidate); err == nil {
			s.SchemaPath = candidate
		}
	}

	if flagAPIBase != "" {
		s.APIBase = flagAPIBase
	}
	if flagAPIKey != "" {
		s.APIKey = flagAPIKey
	}
	if flagCacheDB != "" {
		s.CacheDB = flagCacheDB
	}
	if flagCacheTTL > 0 {
		s.CacheTTL = time.Duration(flagCacheTTL) * time.Second
	}
	if flagNoBackup {
		s.CreateBackup = false
	}
	if flagRequireProbeOK {
		s.RequireProbeOK = true
	}
	if flagSchemaPath != "" {
		s.SchemaPath = flagSchemaPath
	}
	if flagSonarrURL != "" {
		s.Sonarr.URL = flagSonarrURL
	}
	if flagSonarrAPIKey != "" {
		s.Sonarr.APIKey = flagSonarrAPIKey
	}
	if flagSonarrDays > 0 {
		s.Sonarr.Days = flagSonarrDays
	}
	if flagUseScrape {
		s.UseScrape = true
	}
	if flagMediuxUsername != "" {
		s.Scrape.Username = flagMediuxUsername
	}
	if flagMediuxPassword != "" {
		s.Scrape.Password = flagMediuxPassword
	}
	if flagMediuxNickname != "" {
		s.Scrape.Nickname = flagMediuxNickname
	}
	if flagProfilePath != "" {
		s.Scrape.ProfilePath = flagProfilePath
	}
	if flagChromedriverPath != "" {
		s.Scrape.ChromedriverPath = flagChromedriverPath
	}
	if flagNoHeadless {
		s.Scrape.Headless = false
	}

	return s
}

// scrapingFetcher routes set lookups through the scrape fallback.
type scrapingFetcher struct {
	client *mediux.Client
	opts   scrape.Options
}

func (f scrapingFetcher) FetchSetAssets(ctx context.Context, setID string) []mediux.Asset {
	return f.client.FetchSetAssetsWithScrape(ctx, setID, scrape.Noop{}, f.opts, true)
}

func runScan(cmd *cobra.Command, args []string) error {
	initLogging()
	s := resolveSettings(cmd, args)
	ctx := cmd.Context()

	audit.Initialize(s.EnableAuditLog, s.AuditRetentionDays)
	if err := audit.StartSession("scan", os.Args[1:]); err != nil {
		logging.Warn("audit: %v", err)
	}
	defer func() {
		if err := audit.EndSession(); err != nil {
			logging.Warn("audit: %v", err)
		}
	}()

	cache, err := probe.Open(s.CacheDB)
	if err != nil {
		logging.Warn("probe cache unavailable, continuing without: %v", err)
		cache = nil
	} else {
		defer cache.Close()
	}

	client := mediux.NewClient(s.APIBase, s.APIKey)
	var fetcher plan.AssetFetcher = client
	if s.UseScrape {
		fetcher = scrapingFetcher{client: client, opts: s.Scrape}
	}

	var recentIDs []int
	sonarrClient := sonarr.NewClient(s.Sonarr)
	if s.Sonarr.Enabled() {
		recentIDs = sonarrClient.RecentlyAired(ctx)
		logging.Info("sonarr: %d recently aired series", len(recentIDs))
	}

	tracker := &activity.Tracker{}
	planner := plan.NewPlanner(fetcher, probe.NewProber(), cache, tracker,
		client.APIBase(), s.APIKey, s.CacheTTL)

	plans, err := planner.ScanRoot(ctx, s.Root, plan.ScanOptions{
		File:            flagFile,
		RecentSeriesIDs: recentIDs,
	})
	if err != nil {
		return err
	}

	if err := writeReport(plans, flagOutput); err != nil {
		return err
	}

	validator, err := kometa.NewValidator(s.SchemaPath)
	if err != nil {
		return fmt.Errorf("schema: %w", err)
	}

	var notifier apply.Notifier
	if s.Sonarr.Enabled() {
		notifier = sonarrClient
	}
	engine := apply.NewEngine(validator, notifier)
	opts := apply.Options{
		Apply:          flagApply,
		CreateBackup:   s.CreateBackup,
		RequireProbeOK: s.RequireProbeOK,
	}

	if flagInteractive && len(plans) > 0 {
		applyOpts := opts
		applyOpts.Apply = true
		model := tui.NewReviewModel(plans, func() apply.Result {
			return engine.Run(ctx, plans, applyOpts)
		})
		p := tea.NewProgram(model, tea.WithAltScreen())
		_, err := p.Run()
		return err
	}

	result := engine.Run(ctx, plans, opts)
	applied, skipped, failed := result.Counts()
	mode := "dry run"
	if flagApply {
		mode = "apply"
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s: %d file(s) planned, %d applied, %d skipped, %d failed\n",
		mode, len(plans), applied, skipped, failed)
	return nil
}

// writeReport emits the JSON change report to path, or stdout when
// path is empty.
func writeReport(plans []plan.FilePlan, path string) error {
	if plans == nil {
		plans = []plan.FilePlan{}
	}
	data, err := json.MarshalIndent(plans, "", "  ")
	if err != nil {
		return fmt.Errorf("encode report: %w", err)
	}
	data = append(data, '\n')

	if path == "" {
		_, err = os.Stdout.Write(data)
		return err
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write report: %w", err)
	}
	return nil
}
