package cli

import (
	"errors"
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/spf13/cobra"

	"github.com/phpmtseed/phpmtseed/internal/backend"
	"github.com/phpmtseed/phpmtseed/internal/constraint"
	"github.com/phpmtseed/phpmtseed/internal/progress"
	"github.com/phpmtseed/phpmtseed/internal/report"
	"github.com/phpmtseed/phpmtseed/internal/result"
	"github.com/phpmtseed/phpmtseed/internal/search"
	"github.com/phpmtseed/phpmtseed/internal/sysinfo"
	"github.com/phpmtseed/phpmtseed/internal/version"
)

const seedLine = "seed = %#x = %d (PHP 7.1.0+)"

const overflowAdvice = "these constraints match too many seeds for this tool; " +
	"add more outputs or use openwall's php_mt_seed (https://www.openwall.com/php_mt_seed/)"

func (a *app) runSearch(cmd *cobra.Command, args []string) error {
	set, err := constraint.Parse(args)
	if err != nil {
		return err
	}
	cfg, log, err := a.load()
	if err != nil {
		return err
	}

	b, err := backend.Open(cfg, set, log)
	if err != nil {
		return err
	}
	defer b.Close()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	out := progress.NewPrinter(a.stdout)
	out.Line("Running on %s", b.Name())
	log.WithField("constraints", set.String()).Info("parsed constraints")

	started := time.Now()
	s := search.New(b, cfg.Plan(),
		search.WithLogger(log),
		search.WithFound(func(seed uint32) { out.Line(seedLine, seed, seed) }),
		search.WithProgress(out.Progress),
	)
	rep, runErr := s.Run(ctx)
	out.Finish()

	if a.reportFile != "" {
		host := ""
		if info, err := sysinfo.CPU(); err == nil {
			host = info.String()
		}
		meta := report.Meta{Version: version.Version, StartedAt: started, Backend: b.Name(), Host: host}
		if err := writeReport(a.reportFile, report.Build(meta, set, rep, runErr)); err != nil {
			return errors.Join(runErr, err)
		}
	}

	if !cfg.Plan().Full() {
		log.WithField("lanes", cfg.Lanes).Warn("partial search: only part of the seed space was tested")
	}

	var oe *result.OverflowError
	if errors.As(runErr, &oe) {
		return fmt.Errorf("%w\n%s", runErr, overflowAdvice)
	}
	return runErr
}

func writeReport(path string, r report.Report) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating report: %w", err)
	}
	if err := report.Write(f, r); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
