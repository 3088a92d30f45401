// Package apply writes planned changes to disk with backups, schema
// validation, and restore-on-failure.
package apply

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/Digital-Shane/kometa-resolve/internal/audit"
	"github.com/Digital-Shane/kometa-resolve/internal/kometa"
	"github.com/Digital-Shane/kometa-resolve/internal/logging"
	"github.com/Digital-Shane/kometa-resolve/internal/plan"
)

// Options controls how planned changes are committed.
type Options struct {
	// Apply enables filesystem mutation. False is a dry run, the
	// default safety posture.
	Apply bool
	// CreateBackup copies each file aside before rewriting it.
	CreateBackup bool
	// RequireProbeOK drops any change whose recorded probe did not
	// see a success status.
	RequireProbeOK bool
}

// Outcome classifies what happened to one file.
type Outcome string

const (
	OutcomeDryRun  Outcome = "dry-run"
	OutcomeApplied Outcome = "applied"
	OutcomeSkipped Outcome = "skipped"
	OutcomeFailed  Outcome = "failed"
)

// FileResult reports the outcome for one planned file.
type FileResult struct {
	File    string  `json:"file"`
	Outcome Outcome `json:"outcome"`
	Changes int     `json:"changes"`
	Backup  string  `json:"backup,omitempty"`
	Err     string  `json:"error,omitempty"`
}

// Result summarizes an apply run.
type Result struct {
	Files []FileResult `json:"files"`
}

// Counts tallies outcomes across the run.
func (r Result) Counts() (applied, skipped, failed int) {
	for _, f := range r.Files {
		switch f.Outcome {
		case OutcomeApplied, OutcomeDryRun:
			applied++
		case OutcomeSkipped:
			skipped++
		case OutcomeFailed:
			failed++
		}
	}
	return applied, skipped, failed
}

// Notifier is told about each successfully rewritten file.
type Notifier interface {
	Notify(ctx context.Context, path string) bool
}

// Engine commits file plans. Validator and Notifier are optional.
type Engine struct {
	Validator *kometa.Validator
	Notifier  Notifier

	// now stamps backup filenames; swapped in tests.
	now func() time.Time
}

func NewEngine(validator *kometa.Validator, notifier Notifier) *Engine {
	return &Engine{Validator: validator, Notifier: notifier, now: time.Now}
}

// Run processes every plan. Per-file problems are logged and recorded
// in the result; the run always continues to the next file.
func (e *Engine) Run(ctx context.Context, plans []plan.FilePlan, opts Options) Result {
	var result Result
	for _, fp := range plans {
		if err := ctx.Err(); err != nil {
			break
		}
		result.Files = append(result.Files, e.applyFile(ctx, fp, opts))
	}
	applied, skipped, failed := result.Counts()
	logging.Info("apply: %d applied, %d skipped, %d failed", applied, skipped, failed)
	return result
}

func (e *Engine) applyFile(ctx context.Context, fp plan.FilePlan, opts Options) FileResult {
	res := FileResult{File: fp.File, Outcome: OutcomeSkipped}

	raw, err := os.ReadFile(fp.File)
	if err != nil {
		logging.Warn("apply: read %s: %v", fp.File, err)
		audit.Record(audit.OpSkip, fp.File, "unreadable", false, err)
		res.Err = err.Error()
		return res
	}

	doc, err := kometa.Parse(fp.File, raw)
	if err != nil {
		logging.Warn("apply: %v", err)
		audit.Record(audit.OpSkip, fp.File, "unparseable", false, err)
		res.Err = err.Error()
		return res
	}

	// Re-validate each change against the current on-disk content;
	// anything already satisfied or stale drops out here.
	applicable := applicableChanges(doc, fp.Changes, opts.RequireProbeOK)
	if len(applicable) == 0 {
		logging.Debug("apply: %s: nothing to do", fp.File)
		return res
	}
	res.Changes = len(applicable)

	if !opts.Apply {
		logging.Info("apply: %s: dry run, %d change(s) pending", fp.File, len(applicable))
		res.Outcome = OutcomeDryRun
		return res
	}

	backupPath := ""
	if opts.CreateBackup {
		backupPath = fmt.Sprintf("%s.bak.%d", fp.File, e.now().UnixNano())
		if err := os.WriteFile(backupPath, raw, 0644); err != nil {
			logging.Warn("apply: backup %s: %v", fp.File, err)
			audit.Record(audit.OpBackup, fp.File, backupPath, false, err)
			backupPath = ""
		} else {
			audit.Record(audit.OpBackup, fp.File, backupPath, true, nil)
			res.Backup = backupPath
		}
	}

	for _, c := range applicable {
		node, _ := doc.Lookup(c.Path)
		for field, value := range c.Add {
			if _, has := node[field]; !has {
				node[field] = value
			}
		}
	}

	if e.Validator != nil {
		if err := e.Validator.Validate(doc); err != nil {
			logging.Warn("apply: %v", err)
			audit.Record(audit.OpSkip, fp.File, "schema validation failed", false, err)
			res.Outcome = OutcomeSkipped
			res.Err = err.Error()
			return res
		}
	}

	out, err := doc.Marshal()
	if err != nil {
		logging.Warn("apply: marshal %s: %v", fp.File, err)
		res.Outcome = OutcomeFailed
		res.Err = err.Error()
		return res
	}

	if err := os.WriteFile(fp.File, out, 0644); err != nil {
		logging.Warn("apply: write %s: %v", fp.File, err)
		audit.Record(audit.OpWrite, fp.File, "", false, err)
		res.Outcome = OutcomeFailed
		res.Err = err.Error()
		e.restore(fp.File, backupPath)
		return res
	}
	audit.Record(audit.OpWrite, fp.File, fmt.Sprintf("%d change(s)", len(applicable)), true, nil)
	logging.Info("apply: %s: wrote %d change(s)", fp.File, len(applicable))
	res.Outcome = OutcomeApplied

	if e.Notifier != nil {
		e.Notifier.Notify(ctx, fp.File)
	}
	return res
}

// applicableChanges keeps changes whose path still resolves to a
// mapping missing the target field, honoring the probe gate.
func applicableChanges(doc *kometa.Document, changes []plan.Change, requireProbeOK bool) []plan.Change {
	var out []plan.Change
	for _, c := range changes {
		if requireProbeOK && (c.Probe == nil || !c.Probe.OK()) {
			logging.Info("apply: %v: probe not ok, change skipped", c.Path)
			continue
		}
		node, ok := doc.Lookup(c.Path)
		if !ok {
			continue
		}
		stillNeeded := false
		for field := range c.Add {
			if _, has := node[field]; !has {
				stillNeeded = true
			}
		}
		if stillNeeded {
			out = append(out, c)
		}
	}
	return out
}

// restore copies the backup's content back over the original after a
// failed write. The backup itself is kept.
func (e *Engine) restore(path, backupPath string) {
	if backupPath == "" {
		return
	}
	raw, err := os.ReadFile(backupPath)
	if err != nil {
		logging.Warn("apply: restore %s: read backup: %v", path, err)
		audit.Record(audit.OpRestore, path, backupPath, false, err)
		return
	}
	if err := os.WriteFile(path, raw, 0644); err != nil {
		logging.Warn("apply: restore %s: %v", path, err)
		audit.Record(audit.OpRestore, path, backupPath, false, err)
		return
	}
	audit.Record(audit.OpRestore, path, backupPath, true, nil)
	logging.Info("apply: %s: restored from backup after failed write", path)
}
