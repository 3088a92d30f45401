package cmd

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/Digital-Shane/kometa-resolve/internal/config"
	"github.com/Digital-Shane/kometa-resolve/internal/plan"
	"github.com/google/go-cmp/cmp"
)

func resetFlags(t *testing.T) {
	t.Helper()
	t.Cleanup(func() {
		flagAPIBase = ""
		flagAPIKey = ""
		flagCacheDB = ""
		flagCacheTTL = 0
		flagNoBackup = false
		flagRequireProbeOK = false
		flagSchemaPath = ""
		flagSonarrURL = ""
		flagSonarrAPIKey = ""
		flagSonarrDays = 0
		flagUseScrape = false
		flagNoHeadless = false
	})
}

func TestResolveSettingsDefaults(t *testing.T) {
	resetFlags(t)
	root := t.TempDir()

	s := resolveSettings(rootCmd, []string{root})

	want := config.DefaultConfig()
	if s.Root != root {
		t.Errorf("Root = %q, want %q", s.Root, root)
	}
	if s.APIBase != want.APIBase {
		t.Errorf("APIBase = %q, want %q", s.APIBase, want.APIBase)
	}
	if got := s.CacheTTL; got != time.Duration(want.CacheTTLSeconds)*time.Second {
		t.Errorf("CacheTTL = %v, want %v", got, time.Duration(want.CacheTTLSeconds)*time.Second)
	}
	if !s.CreateBackup {
		t.Error("CreateBackup = false, want true by default")
	}
	if !s.Scrape.Headless {
		t.Error("Scrape.Headless = false, want true by default")
	}
}

func TestResolveSettingsFlagsWin(t *testing.T) {
	resetFlags(t)
	root := t.TempDir()

	cfg := config.DefaultConfig()
	cfg.APIBase = "https://config.example"
	cfg.Sonarr.URL = "https://sonarr.config.example"
	if err := cfg.Save(root); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	flagAPIBase = "https://flag.example"
	flagCacheTTL = 60
	flagNoBackup = true
	flagRequireProbeOK = true
	flagSonarrDays = 3
	flagNoHeadless = true

	s := resolveSettings(rootCmd, []string{root})

	if s.APIBase != "https://flag.example" {
		t.Errorf("APIBase = %q, want flag value", s.APIBase)
	}
	if s.Sonarr.URL != "https://sonarr.config.example" {
		t.Errorf("Sonarr.URL = %q, want config value", s.Sonarr.URL)
	}
	if s.CacheTTL != 60*time.Second {
		t.Errorf("CacheTTL = %v, want 60s", s.CacheTTL)
	}
	if s.CreateBackup {
		t.Error("CreateBackup = true, want false with --no-backup")
	}
	if !s.RequireProbeOK {
		t.Error("RequireProbeOK = false, want true with --require-probe-ok")
	}
	if s.Sonarr.Days != 3 {
		t.Errorf("Sonarr.Days = %d, want 3", s.Sonarr.Days)
	}
	if s.Scrape.Headless {
		t.Error("Scrape.Headless = true, want false with --no-headless")
	}
}

func TestResolveSettingsDefaultRoot(t *testing.T) {
	resetFlags(t)

	s := resolveSettings(rootCmd, nil)
	if s.Root != "." {
		t.Errorf("Root = %q, want %q", s.Root, ".")
	}
}

func TestWriteReportToFile(t *testing.T) {
	plans := []plan.FilePlan{
		{
			File:   "/library/show.yml",
			SetIDs: []string{"12345"},
			Changes: []plan.Change{
				{
					Path: []string{"metadata", "123456"},
					Add:  map[string]string{"url_poster": "https://api.mediux.pro/assets/a1"},
				},
			},
		},
	}

	path := filepath.Join(t.TempDir(), "report.json")
	if err := writeReport(plans, path); err != nil {
		t.Fatalf("writeReport() error = %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}

	var got []plan.FilePlan
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if diff := cmp.Diff(plans, got); diff != "" {
		t.Errorf("report round trip diff (-want +got):\n%s", diff)
	}
}

func TestWriteReportNilPlans(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.json")
	if err := writeReport(nil, path); err != nil {
		t.Fatalf("writeReport() error = %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}

	var got []plan.FilePlan
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if len(got) != 0 {
		t.Errorf("report length = %d, want 0", len(got))
	}
}
