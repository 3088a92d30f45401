package tui

import (
	"bytes"
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/Digital-Shane/kometa-resolve/internal/apply"
	"github.com/Digital-Shane/kometa-resolve/internal/plan"
	"github.com/Digital-Shane/kometa-resolve/internal/probe"
	"github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/x/exp/teatest"
	"github.com/google/go-cmp/cmp"
)

func sendKey(tm *teatest.TestModel, key tea.KeyType) {
	tm.Send(tea.KeyMsg{Type: key})
}

func sendRune(tm *teatest.TestModel, r rune) {
	tm.Send(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}})
}

func newChange(idx int) plan.Change {
	var result *probe.Result
	switch idx % 3 {
	case 0:
		result = &probe.Result{Status: 200}
	case 1:
		result = &probe.Result{Status: 404}
	}
	return plan.Change{
		Path:  []string{"metadata", fmt.Sprintf("%06d", idx), "seasons", "1"},
		Add:   map[string]string{"url_poster": fmt.Sprintf("https://api.mediux.pro/assets/asset-%02d", idx)},
		Probe: result,
	}
}

func newFilePlan(name string, changeCount int) plan.FilePlan {
	changes := make([]plan.Change, changeCount)
	for i := range changes {
		changes[i] = newChange(i)
	}
	return plan.FilePlan{
		File:    fmt.Sprintf("/library/%s.yml", name),
		SetIDs:  []string{"12345", "67890"},
		Changes: changes,
	}
}

func noopApply() apply.Result {
	return apply.Result{}
}

func newReviewModel(t *testing.T, applyFn ApplyFunc, plans ...plan.FilePlan) *ReviewModel {
	t.Helper()
	model := NewReviewModel(plans, applyFn)
	if nodes := model.Tree.Nodes(); len(nodes) > 0 {
		if _, err := model.Tree.SetFocusedID(context.Background(), nodes[0].ID()); err != nil {
			t.Fatalf("SetFocusedID(%q) error = %v", nodes[0].ID(), err)
		}
	}
	return model
}

func startReviewTestModel(t *testing.T, model *ReviewModel, opts ...teatest.TestOption) *teatest.TestModel {
	t.Helper()
	options := append([]teatest.TestOption{teatest.WithInitialTermSize(80, 16)}, opts...)
	tm := teatest.NewTestModel(t, model, options...)
	t.Cleanup(func() {
		_ = tm.Quit()
	})
	return tm
}

func finalReviewModel(t *testing.T, tm *teatest.TestModel) *ReviewModel {
	t.Helper()
	final := tm.FinalModel(t, teatest.WithFinalTimeout(2*time.Second))
	model, ok := final.(*ReviewModel)
	if !ok {
		t.Fatalf("Final model type = %T, want *ReviewModel", final)
	}
	return model
}

// waitForReviewOutput is the only mid-run synchronization point: model
// state is inspected exclusively on the final model after the program
// goroutine has stopped.
func waitForReviewOutput(t *testing.T, tm *teatest.TestModel, contains string) {
	t.Helper()
	teatest.WaitFor(t, tm.Output(), func(b []byte) bool {
		return bytes.Contains(b, []byte(contains))
	}, teatest.WithDuration(2*time.Second), teatest.WithCheckInterval(25*time.Millisecond))
}

func TestReviewModelQuitKeys(t *testing.T) {
	tests := []struct {
		name string
		key  tea.KeyType
	}{
		{name: "esc", key: tea.KeyEsc},
		{name: "ctrl_c", key: tea.KeyCtrlC},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			model := newReviewModel(t, noopApply, newFilePlan("quit", 4))
			tm := startReviewTestModel(t, model, teatest.WithInitialTermSize(80, 14))

			tm.Send(tea.WindowSizeMsg{Width: 80, Height: 14})
			tm.Send(tea.KeyMsg{Type: tc.key})
			tm.WaitFinished(t, teatest.WithFinalTimeout(2*time.Second))

			final := finalReviewModel(t, tm)
			if final.applyInProgress {
				t.Error("applyInProgress = true, want false after quitting")
			}
			if final.confirming {
				t.Error("confirming = true, want false after quitting")
			}
		})
	}
}

func TestReviewModelTabFocusAndScrolling(t *testing.T) {
	t.Run("scroll_down", func(t *testing.T) {
		model := newReviewModel(t, noopApply, newFilePlan("scroll", 18))
		tm := startReviewTestModel(t, model, teatest.WithInitialTermSize(90, 12))

		tm.Send(tea.WindowSizeMsg{Width: 90, Height: 12})
		waitForReviewOutput(t, tm, "[Tab to scroll]")

		sendKey(tm, tea.KeyTab)
		waitForReviewOutput(t, tm, "[Use Tab+↑↓]")

		sendKey(tm, tea.KeyPgDown)
		sendKey(tm, tea.KeyDown)

		sendKey(tm, tea.KeyCtrlC)
		tm.WaitFinished(t, teatest.WithFinalTimeout(2*time.Second))
		final := finalReviewModel(t, tm)
		if !final.detailsFocused {
			t.Error("detailsFocused = false, want true at exit")
		}
		if final.detailsViewport.YOffset == 0 {
			t.Error("detailsViewport.YOffset = 0, want >0 after PgDown and Down")
		}
	})

	t.Run("scroll_back_up", func(t *testing.T) {
		model := newReviewModel(t, noopApply, newFilePlan("scroll", 18))
		tm := startReviewTestModel(t, model, teatest.WithInitialTermSize(90, 12))

		tm.Send(tea.WindowSizeMsg{Width: 90, Height: 12})
		waitForReviewOutput(t, tm, "[Tab to scroll]")

		sendKey(tm, tea.KeyTab)
		waitForReviewOutput(t, tm, "[Use Tab+↑↓]")

		sendKey(tm, tea.KeyPgDown)
		sendKey(tm, tea.KeyDown)
		sendKey(tm, tea.KeyPgUp)
		sendKey(tm, tea.KeyUp)
		sendKey(tm, tea.KeyUp)

		sendKey(tm, tea.KeyCtrlC)
		tm.WaitFinished(t, teatest.WithFinalTimeout(2*time.Second))
		final := finalReviewModel(t, tm)
		if final.detailsViewport.YOffset != 0 {
			t.Errorf("detailsViewport.YOffset = %d, want 0 after scrolling back up", final.detailsViewport.YOffset)
		}
	})
}

func TestReviewModelTreeNavigationRespectsFocus(t *testing.T) {
	model := newReviewModel(t, noopApply,
		newFilePlan("first", 6), newFilePlan("second", 6), newFilePlan("third", 6))
	nodes := model.Tree.Nodes()
	tm := startReviewTestModel(t, model, teatest.WithInitialTermSize(80, 14))

	tm.Send(tea.WindowSizeMsg{Width: 80, Height: 14})
	waitForReviewOutput(t, tm, "[Tab to scroll]")

	// Down moves the tree, Tab hands focus to the details pane where
	// Down must scroll instead, and the second Tab hands it back so Up
	// returns the tree to the first node. A Down leaking through while
	// details are focused would leave the tree on the third node.
	sendKey(tm, tea.KeyDown)
	sendKey(tm, tea.KeyTab)
	waitForReviewOutput(t, tm, "[Use Tab+↑↓]")
	sendKey(tm, tea.KeyDown)
	sendKey(tm, tea.KeyTab)
	sendKey(tm, tea.KeyUp)

	sendKey(tm, tea.KeyCtrlC)
	tm.WaitFinished(t, teatest.WithFinalTimeout(2*time.Second))
	final := finalReviewModel(t, tm)

	got := final.TuiTreeModel.Tree.GetFocusedNode()
	if got == nil || got.ID() != nodes[0].ID() {
		id := "<nil>"
		if got != nil {
			id = got.ID()
		}
		t.Errorf("final tree focus = %s, want %s", id, nodes[0].ID())
	}
	if final.detailsViewport.YOffset == 0 {
		t.Error("detailsViewport.YOffset = 0, want >0 from the details-focused Down")
	}
	if final.detailsFocused {
		t.Error("detailsFocused = true, want false after second Tab")
	}
}

func TestReviewModelCancelConfirmation(t *testing.T) {
	t.Run("enter_opens_confirmation", func(t *testing.T) {
		model := newReviewModel(t, noopApply, newFilePlan("cancel", 5))
		tm := startReviewTestModel(t, model, teatest.WithInitialTermSize(80, 14))

		tm.Send(tea.WindowSizeMsg{Width: 80, Height: 14})
		sendKey(tm, tea.KeyEnter)
		waitForReviewOutput(t, tm, "Confirm Apply")

		sendKey(tm, tea.KeyCtrlC)
		tm.WaitFinished(t, teatest.WithFinalTimeout(2*time.Second))
		if final := finalReviewModel(t, tm); !final.confirming {
			t.Error("confirming = false, want true after Enter")
		}
	})

	cancels := []struct {
		name string
		key  rune
	}{
		{name: "lowercase_n_cancels", key: 'n'},
		{name: "uppercase_n_cancels", key: 'N'},
	}
	for _, tc := range cancels {
		t.Run(tc.name, func(t *testing.T) {
			model := newReviewModel(t, noopApply, newFilePlan("cancel", 5))
			tm := startReviewTestModel(t, model, teatest.WithInitialTermSize(80, 14))

			tm.Send(tea.WindowSizeMsg{Width: 80, Height: 14})
			sendKey(tm, tea.KeyEnter)
			waitForReviewOutput(t, tm, "Confirm Apply")
			sendRune(tm, tc.key)

			sendKey(tm, tea.KeyCtrlC)
			tm.WaitFinished(t, teatest.WithFinalTimeout(2*time.Second))
			final := finalReviewModel(t, tm)
			if final.confirming {
				t.Errorf("confirming = true, want false after %q", string(tc.key))
			}
			if final.applyInProgress || final.applyComplete {
				t.Error("cancel must not start an apply run")
			}
		})
	}
}

func TestReviewModelApplyFlow(t *testing.T) {
	called := make(chan struct{})
	release := make(chan struct{})
	var releaseOnce sync.Once
	t.Cleanup(func() {
		releaseOnce.Do(func() { close(release) })
	})

	applyFn := func() apply.Result {
		close(called)
		<-release
		return apply.Result{Files: []apply.FileResult{
			{File: "/library/a.yml", Outcome: apply.OutcomeApplied, Changes: 2},
			{File: "/library/b.yml", Outcome: apply.OutcomeApplied, Changes: 1},
			{File: "/library/c.yml", Outcome: apply.OutcomeDryRun, Changes: 1},
			{File: "/library/d.yml", Outcome: apply.OutcomeSkipped},
		}}
	}

	model := newReviewModel(t, applyFn, newFilePlan("perform", 7))
	tm := startReviewTestModel(t, model, teatest.WithInitialTermSize(90, 16))
	tm.Send(tea.WindowSizeMsg{Width: 90, Height: 16})

	sendKey(tm, tea.KeyEnter)
	waitForReviewOutput(t, tm, "Confirm Apply")
	sendKey(tm, tea.KeyEnter)

	select {
	case <-called:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for apply function to be invoked")
	}

	waitForReviewOutput(t, tm, "Applying changes...")
	releaseOnce.Do(func() { close(release) })

	waitForReviewOutput(t, tm, "Apply completed: 3 applied, 1 skipped, 0 failed")

	sendKey(tm, tea.KeyCtrlC)
	tm.WaitFinished(t, teatest.WithFinalTimeout(2*time.Second))
	final := finalReviewModel(t, tm)
	if !final.applyComplete {
		t.Error("applyComplete = false in final model, want true")
	}
	if final.applyInProgress {
		t.Error("applyInProgress = true in final model, want false")
	}
	if diff := cmp.Diff(3, final.applied); diff != "" {
		t.Errorf("applied diff (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(1, final.skipped); diff != "" {
		t.Errorf("skipped diff (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(0, final.failed); diff != "" {
		t.Errorf("failed diff (-want +got):\n%s", diff)
	}
}

func TestReviewModelWindowResizeUpdatesLayout(t *testing.T) {
	tests := []struct {
		name          string
		width, height int
		wantViewportW int
		wantViewportH int
	}{
		{name: "wide", width: 120, height: 40, wantViewportW: 56, wantViewportH: 32},
		{name: "narrow", width: 60, height: 20, wantViewportW: 26, wantViewportH: 12},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			model := newReviewModel(t, noopApply, newFilePlan("resize", 8))
			tm := startReviewTestModel(t, model)

			tm.Send(tea.WindowSizeMsg{Width: tc.width, Height: tc.height})
			sendKey(tm, tea.KeyCtrlC)
			tm.WaitFinished(t, teatest.WithFinalTimeout(2*time.Second))

			final := finalReviewModel(t, tm)
			if diff := cmp.Diff(tc.width, final.width); diff != "" {
				t.Errorf("width diff (-want +got):\n%s", diff)
			}
			if diff := cmp.Diff(tc.height, final.height); diff != "" {
				t.Errorf("height diff (-want +got):\n%s", diff)
			}
			if diff := cmp.Diff(tc.wantViewportW, final.detailsViewport.Width); diff != "" {
				t.Errorf("viewport width diff (-want +got):\n%s", diff)
			}
			if diff := cmp.Diff(tc.wantViewportH, final.detailsViewport.Height); diff != "" {
				t.Errorf("viewport height diff (-want +got):\n%s", diff)
			}
		})
	}
}
