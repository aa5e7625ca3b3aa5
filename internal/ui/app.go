// Package ui is the desktop front-end: it collects constraints, runs a
// search in the background and lists the seeds it recovers.
package ui

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/layout"
	"fyne.io/fyne/v2/storage"
	"fyne.io/fyne/v2/widget"
	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"

	"github.com/phpmtseed/phpmtseed/internal/backend"
	"github.com/phpmtseed/phpmtseed/internal/config"
	"github.com/phpmtseed/phpmtseed/internal/constraint"
	"github.com/phpmtseed/phpmtseed/internal/report"
	"github.com/phpmtseed/phpmtseed/internal/result"
	"github.com/phpmtseed/phpmtseed/internal/search"
	"github.com/phpmtseed/phpmtseed/internal/shard"
	"github.com/phpmtseed/phpmtseed/internal/sysinfo"
	"github.com/phpmtseed/phpmtseed/internal/version"
)

var backendOptions = []string{"Auto", "GPU", "CPU"}

// App holds the UI state.
type App struct {
	window fyne.Window
	cfg    config.Config
	log    *logrus.Logger

	constraintsEntry *widget.Entry
	validation       *widget.Label
	backendSelect    *widget.Select
	workerSelect     *widget.Select
	startBtn         *widget.Button
	saveBtn          *widget.Button
	bar              *widget.ProgressBar
	statusLabel      *widget.Label
	speedLabel       *widget.Label
	seedList         *widget.List

	mu       sync.Mutex
	searcher *search.Searcher
	running  bool
	seeds    []uint32
	last     *report.Report
}

// New creates the main window. Settings come from the same layered
// configuration the command line uses; an invalid file falls back to the
// defaults.
func New(app fyne.App) *App {
	app.Settings().SetTheme(darkTheme{})
	w := app.NewWindow("PHP mt_rand Seed Finder")
	w.Resize(fyne.NewSize(560, 560))

	log := logrus.New()
	log.SetOutput(os.Stderr)
	cfg, err := config.Load(viper.New(), "")
	if err != nil {
		log.WithError(err).Warn("ignoring invalid configuration")
		v := viper.New()
		config.SetDefaults(v)
		cfg = &config.Config{}
		_ = v.Unmarshal(cfg)
	}
	if lvl, err := logrus.ParseLevel(cfg.LogLevel); err == nil {
		log.SetLevel(lvl)
	}

	a := &App{window: w, cfg: *cfg, log: log}
	a.buildUI()
	return a
}

// Show displays the window.
func (a *App) Show() {
	a.window.ShowAndRun()
}

func (a *App) buildUI() {
	a.constraintsEntry = widget.NewEntry()
	a.constraintsEntry.SetPlaceHolder("e.g. 1178568022 or 7505 7505 1000 10000")
	a.validation = widget.NewLabel("")
	a.constraintsEntry.OnChanged = func(s string) {
		if strings.TrimSpace(s) == "" {
			a.validation.SetText("")
			return
		}
		if _, err := parseConstraints(s); err != nil {
			a.validation.SetText(err.Error())
			return
		}
		a.validation.SetText("")
	}

	a.backendSelect = widget.NewSelect(backendOptions, nil)
	a.backendSelect.SetSelected(backendLabel(a.cfg.Backend))

	maxCores := sysinfo.Workers()
	coreOptions := make([]string, maxCores)
	for i := range coreOptions {
		coreOptions[i] = strconv.Itoa(i + 1)
	}
	a.workerSelect = widget.NewSelect(coreOptions, nil)
	workers := a.cfg.Workers
	if workers <= 0 || workers > maxCores {
		workers = maxCores
	}
	a.workerSelect.SetSelected(strconv.Itoa(workers))

	a.statusLabel = widget.NewLabel("Idle")
	a.speedLabel = widget.NewLabel("")
	a.bar = widget.NewProgressBar()

	a.seedList = widget.NewList(
		func() int {
			a.mu.Lock()
			defer a.mu.Unlock()
			return len(a.seeds)
		},
		func() fyne.CanvasObject {
			return widget.NewLabelWithStyle("", fyne.TextAlignLeading, fyne.TextStyle{Monospace: true})
		},
		func(id widget.ListItemID, o fyne.CanvasObject) {
			a.mu.Lock()
			seed := a.seeds[id]
			a.mu.Unlock()
			o.(*widget.Label).SetText(fmt.Sprintf("seed = %#x = %d", seed, seed))
		},
	)

	a.saveBtn = widget.NewButton("Save Report", a.saveReport)
	a.saveBtn.Disable()

	a.startBtn = widget.NewButton("Start", func() {
		if a.isRunning() {
			a.stop()
			return
		}
		a.start()
	})

	header := container.NewVBox(
		widget.NewLabelWithStyle("PHP mt_rand() Seed Finder", fyne.TextAlignCenter, fyne.TextStyle{Bold: true}),
		widget.NewLabelWithStyle("PHP 7.1.0+ / "+version.Version, fyne.TextAlignCenter, fyne.TextStyle{Italic: true}),
		widget.NewSeparator(),

		widget.NewForm(
			widget.NewFormItem("Outputs", a.constraintsEntry),
			widget.NewFormItem("", a.validation),
			widget.NewFormItem("Backend", a.backendSelect),
			widget.NewFormItem("CPU Workers", a.workerSelect),
		),

		widget.NewSeparator(),
		container.NewHBox(a.startBtn, layout.NewSpacer(), a.saveBtn),
		widget.NewSeparator(),

		widget.NewLabelWithStyle("Status", fyne.TextAlignLeading, fyne.TextStyle{Bold: true}),
		a.bar,
		a.statusLabel,
		a.speedLabel,

		widget.NewSeparator(),
		widget.NewLabelWithStyle("Seeds", fyne.TextAlignLeading, fyne.TextStyle{Bold: true}),
	)

	a.window.SetContent(container.NewPadded(container.NewBorder(header, nil, nil, nil, a.seedList)))
}

func (a *App) isRunning() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.running
}

// start validates the form, opens a backend and launches the search.
func (a *App) start() {
	set, err := parseConstraints(a.constraintsEntry.Text)
	if err != nil {
		a.validation.SetText(err.Error())
		return
	}

	cfg := a.cfg
	cfg.Backend = strings.ToLower(a.backendSelect.Selected)
	cfg.Workers, _ = strconv.Atoi(a.workerSelect.Selected)
	if err := cfg.Validate(); err != nil {
		dialog.ShowError(err, a.window)
		return
	}
	b, err := backend.Open(&cfg, set, a.log)
	if err != nil {
		dialog.ShowError(err, a.window)
		return
	}

	s := search.New(b, cfg.Plan(), search.WithLogger(a.log))
	a.mu.Lock()
	a.searcher = s
	a.running = true
	a.seeds = nil
	a.last = nil
	a.mu.Unlock()

	a.seedList.Refresh()
	a.saveBtn.Disable()
	a.startBtn.SetText("Stop")
	a.statusLabel.SetText("Searching on " + b.Name())
	a.speedLabel.SetText("")
	a.bar.SetValue(0)
	a.constraintsEntry.Disable()
	a.backendSelect.Disable()
	a.workerSelect.Disable()

	started := time.Now()
	seedCh, statsCh := s.Start(context.Background())

	go func() {
		for st := range statsCh {
			fyne.Do(func() { a.showStats(st) })
		}
	}()

	go func() {
		for seed := range seedCh {
			a.mu.Lock()
			a.seeds = append(a.seeds, seed)
			a.mu.Unlock()
			fyne.Do(a.seedList.Refresh)
		}
		rep, runErr := s.Wait()
		name := b.Name()
		b.Close()

		meta := report.Meta{Version: version.Version, StartedAt: started, Backend: name}
		r := report.Build(meta, set, rep, runErr)
		fyne.Do(func() { a.finish(rep, runErr, &r) })
	}()
}

func (a *App) showStats(st search.Stats) {
	p := st.Progress
	a.bar.SetValue(float64(p.Completed) / float64(p.Total))
	a.statusLabel.SetText(fmt.Sprintf("%s | found %d", p, st.Found))
	text := fmt.Sprintf("Speed: %s seeds/sec | Elapsed: %s", formatNumber(st.SeedsPerSec), formatDuration(st.Elapsed))
	if eta, ok := remaining(st); ok {
		text += " | Remaining: ~" + formatDuration(eta)
	}
	a.speedLabel.SetText(text)
}

// finish updates the widgets, then marks the run as over.
func (a *App) finish(rep search.Report, err error, r *report.Report) {
	var oe *result.OverflowError
	switch {
	case err == nil:
		a.bar.SetValue(1)
		a.statusLabel.SetText(fmt.Sprintf("Finished: %d seed(s) in %s", len(rep.Seeds), formatDuration(rep.Elapsed)))
	case errors.As(err, &oe):
		a.statusLabel.SetText(fmt.Sprintf("Too many matches in shard %d (%d, kept %d). Add outputs or use openwall php_mt_seed.",
			oe.Shard, oe.Total, oe.Captured))
	case errors.Is(err, context.Canceled):
		a.statusLabel.SetText(fmt.Sprintf("Stopped after %d / %d shards", rep.Shards, shard.Count))
	default:
		a.statusLabel.SetText("Failed: " + err.Error())
	}

	a.seedList.Refresh()
	a.startBtn.SetText("Start")
	a.saveBtn.Enable()
	a.constraintsEntry.Enable()
	a.backendSelect.Enable()
	a.workerSelect.Enable()

	a.mu.Lock()
	a.running = false
	a.last = r
	a.mu.Unlock()
}

func (a *App) stop() {
	a.mu.Lock()
	s := a.searcher
	a.mu.Unlock()
	if s != nil {
		s.Stop()
	}
	a.statusLabel.SetText("Stopping after the current shard...")
}

func (a *App) saveReport() {
	a.mu.Lock()
	r := a.last
	a.mu.Unlock()
	if r == nil {
		return
	}
	d := dialog.NewFileSave(func(writer fyne.URIWriteCloser, err error) {
		if err != nil || writer == nil {
			return
		}
		werr := report.Write(writer, *r)
		if cerr := writer.Close(); werr == nil {
			werr = cerr
		}
		if werr != nil {
			dialog.ShowError(werr, a.window)
			return
		}
		dialog.ShowInformation("Saved", "Report saved to "+writer.URI().Path(), a.window)
	}, a.window)
	d.SetFileName("php-mt-seed-report.yaml")
	d.SetFilter(storage.NewExtensionFileFilter([]string{".yaml", ".yml"}))
	d.Show()
}

// parseConstraints reads whitespace-separated integers in the command-line
// grammar.
func parseConstraints(text string) (constraint.Set, error) {
	return constraint.Parse(strings.Fields(text))
}

func backendLabel(name string) string {
	switch name {
	case config.BackendGPU:
		return "GPU"
	case config.BackendCPU:
		return "CPU"
	}
	return "Auto"
}

// remaining extrapolates the time left from the shards completed so far.
func remaining(st search.Stats) (time.Duration, bool) {
	p := st.Progress
	if p.Completed == 0 || p.Completed >= p.Total {
		return 0, false
	}
	perShard := st.Elapsed / time.Duration(p.Completed)
	return perShard * time.Duration(p.Total-p.Completed), true
}

func formatNumber(n float64) string {
	if n >= 1_000_000_000 {
		return fmt.Sprintf("%.2fG", n/1_000_000_000)
	}
	if n >= 1_000_000 {
		return fmt.Sprintf("%.2fM", n/1_000_000)
	}
	if n >= 1_000 {
		return fmt.Sprintf("%.1fK", n/1_000)
	}
	return fmt.Sprintf("%.0f", n)
}

func formatDuration(d time.Duration) string {
	if d < time.Second {
		return "< 1s"
	}
	d = d.Round(time.Second)
	h := int(d.Hours())
	m := int(d.Minutes()) % 60
	s := int(d.Seconds()) % 60

	if h > 0 {
		return fmt.Sprintf("%dh %dm %ds", h, m, s)
	}
	if m > 0 {
		return fmt.Sprintf("%dm %ds", m, s)
	}
	return fmt.Sprintf("%ds", s)
}
