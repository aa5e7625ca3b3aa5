// Package cli implements the php-mt-seed command line.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/phpmtseed/phpmtseed/internal/config"
	"github.com/phpmtseed/phpmtseed/internal/constraint"
	"github.com/phpmtseed/phpmtseed/internal/result"
	"github.com/phpmtseed/phpmtseed/internal/shard"
	"github.com/phpmtseed/phpmtseed/internal/updater"
	"github.com/phpmtseed/phpmtseed/internal/version"
)

const longHelp = `Recover the seed of PHP's mt_rand() (PHP 7.1.0+) from observed outputs by
testing all 2^32 seeds.

Arguments are read in groups of four:

  MATCH_MIN MATCH_MAX RANGE_MIN RANGE_MAX

one group per successive mt_rand() call, up to 8 groups. The last group may
be shortened to VALUE (an exact mt_rand() result) or MATCH_MIN MATCH_MAX,
both implying mt_rand() without a range. Use 0 0 0 0 to skip an output.

The argument conventions follow openwall's php_mt_seed:
  https://www.openwall.com/php_mt_seed/README`

// releaseChecker is satisfied by *updater.Checker.
type releaseChecker interface {
	Check(ctx context.Context) (*updater.Release, error)
}

type app struct {
	v       *viper.Viper
	stdout  io.Writer
	stderr  io.Writer
	checker releaseChecker

	configFile string
	reportFile string
}

// Run executes the command line args and returns the process exit code.
func Run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	return run(ctx, args, stdout, stderr, &updater.Checker{})
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer, checker releaseChecker) int {
	a := &app{v: viper.New(), stdout: stdout, stderr: stderr, checker: checker}
	cmd := a.rootCommand()
	cmd.SetArgs(args)

	err := cmd.ExecuteContext(ctx)
	if err == nil {
		return 0
	}
	fmt.Fprintf(stderr, "Error: %v\n", err)
	if errors.Is(err, constraint.ErrInvalidConstraint) {
		fmt.Fprintf(stderr, "\n%s", cmd.UsageString())
	}
	return 1
}

func (a *app) rootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "php-mt-seed VALUE_OR_MATCH_MIN [MATCH_MAX [RANGE_MIN RANGE_MAX]] ...",
		Short:         "Brute-force the seed of PHP's mt_rand()",
		Long:          longHelp,
		Version:       version.Version,
		Args:          cobra.MinimumNArgs(1),
		SilenceErrors: true,
		SilenceUsage:  true,
		RunE:          a.runSearch,
	}
	cmd.SetOut(a.stdout)
	cmd.SetErr(a.stderr)

	pf := cmd.PersistentFlags()
	pf.StringVar(&a.configFile, "config", "", "config file (default $UserConfigDir/php-mt-seed/config.yaml)")
	pf.String("log-level", "warn", "log level: debug, info, warn or error")
	pf.String("backend", config.BackendAuto, "compute backend: auto, gpu or cpu")
	pf.Int("device", 0, "GPU device index, see the devices command")
	pf.Int("capacity", result.DefaultCapacity, "seeds transferred per shard before overflow")
	pf.Int("workers", 0, "goroutines for the CPU backend (0 = one per logical CPU)")
	pf.Uint32("lanes", shard.LanesPerShard, "lanes per shard; fewer than 16777216 searches only part of the seed space")
	cmd.Flags().StringVar(&a.reportFile, "report", "", "write a YAML run report to `FILE`")
	a.bindFlags(pf)

	cmd.AddCommand(
		a.devicesCommand(),
		a.verifyCommand(),
		a.versionCommand(),
		a.configCommand(),
	)
	return cmd
}

// bindFlags maps every persistent flag except --config onto its viper key.
func (a *app) bindFlags(fs *pflag.FlagSet) {
	fs.VisitAll(func(f *pflag.Flag) {
		if f.Name == "config" {
			return
		}
		// Binding only fails for a nil flag.
		_ = a.v.BindPFlag(strings.ReplaceAll(f.Name, "-", "_"), f)
	})
}

// load resolves the layered configuration and a logger for it.
func (a *app) load() (*config.Config, *logrus.Logger, error) {
	cfg, err := config.Load(a.v, a.configFile)
	if err != nil {
		return nil, nil, err
	}
	lvl, err := logrus.ParseLevel(cfg.LogLevel)
	if err != nil {
		return nil, nil, err
	}
	log := logrus.New()
	log.SetOutput(a.stderr)
	log.SetLevel(lvl)
	log.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02 15:04:05",
	})
	return cfg, log, nil
}
