package cli

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/phpmtseed/phpmtseed/internal/config"
	"github.com/phpmtseed/phpmtseed/internal/constraint"
	"github.com/phpmtseed/phpmtseed/internal/gpu"
	"github.com/phpmtseed/phpmtseed/internal/mt"
	"github.com/phpmtseed/phpmtseed/internal/sysinfo"
	"github.com/phpmtseed/phpmtseed/internal/version"
)

func (a *app) devicesCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "devices",
		Short: "List compute devices",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, log, err := a.load()
			if err != nil {
				return err
			}
			info, err := sysinfo.CPU()
			if err != nil {
				log.WithError(err).Debug("partial CPU info")
			}
			fmt.Fprintln(a.stdout, info)

			devs, err := gpu.ListDevices()
			if err != nil {
				return err
			}
			if len(devs) == 0 {
				fmt.Fprintln(a.stdout, "GPU: none found (OpenCL support needs the opencl build tag and cgo)")
				return nil
			}
			for i, d := range devs {
				fmt.Fprintf(a.stdout, "GPU %d: %s (%s), %s, max work group %d\n",
					i, d.Name, d.Vendor, d.Backend, d.MaxWorkGroupSize)
			}
			return nil
		},
	}
}

func (a *app) verifyCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "verify SEED VALUE_OR_MATCH_MIN [MATCH_MAX [RANGE_MIN RANGE_MAX]] ...",
		Short: "Check one seed against the constraints on the host",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			seed, err := parseSeed(args[0])
			if err != nil {
				return err
			}
			set, err := constraint.Parse(args[1:])
			if err != nil {
				return err
			}

			st := mt.New(seed)
			for i, c := range set {
				raw := st.Next()
				mark := "ok"
				if !c.Match(raw) {
					mark = "MISMATCH"
				}
				fmt.Fprintf(a.stdout, "output %d: %d, want [%d, %d] in range [%d, %d]: %s\n",
					i+1, c.Project(raw), c.MatchMin, c.MatchMax, c.RangeMin, c.RangeMax, mark)
			}
			if !set.Accepts(seed) {
				return fmt.Errorf("seed %#x does not reproduce the given outputs", seed)
			}
			fmt.Fprintf(a.stdout, seedLine+"\n", seed, seed)
			return nil
		},
	}
}

// parseSeed accepts decimal or 0x-prefixed hexadecimal.
func parseSeed(s string) (uint32, error) {
	base := 10
	digits := s
	if rest, ok := strings.CutPrefix(strings.ToLower(s), "0x"); ok {
		base, digits = 16, rest
	}
	v, err := strconv.ParseUint(digits, base, 32)
	if err != nil {
		return 0, fmt.Errorf("seed %q is not a 32-bit unsigned integer", s)
	}
	return uint32(v), nil
}

func (a *app) versionCommand() *cobra.Command {
	var check bool
	cmd := &cobra.Command{
		Use:   "version",
		Short: "Print the version and optionally check for a newer release",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			fmt.Fprintf(a.stdout, "php-mt-seed %s\n", version.Version)
			if !check {
				return nil
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), 10*time.Second)
			defer cancel()
			rel, err := a.checker.Check(ctx)
			if err != nil {
				return fmt.Errorf("checking for updates: %w", err)
			}
			if rel == nil {
				fmt.Fprintln(a.stdout, "up to date")
				return nil
			}
			fmt.Fprintf(a.stdout, "%s is available: %s\n", rel.TagName, rel.HTMLURL)
			return nil
		},
	}
	cmd.Flags().BoolVar(&check, "check", false, "query GitHub for a newer release")
	return cmd
}

func (a *app) configCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Show or persist the effective configuration",
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "show",
			Short: "Print the merged configuration as YAML",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				cfg, _, err := a.load()
				if err != nil {
					return err
				}
				if p, err := config.Path(); err == nil {
					fmt.Fprintf(a.stdout, "# %s\n", p)
				}
				enc := yaml.NewEncoder(a.stdout)
				enc.SetIndent(2)
				if err := enc.Encode(cfg); err != nil {
					return err
				}
				return enc.Close()
			},
		},
		&cobra.Command{
			Use:   "save",
			Short: "Write the merged configuration to the per-user config file",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				cfg, _, err := a.load()
				if err != nil {
					return err
				}
				if err := config.Save(cfg); err != nil {
					return fmt.Errorf("saving config: %w", err)
				}
				p, _ := config.Path()
				fmt.Fprintf(a.stdout, "saved %s\n", p)
				return nil
			},
		},
	)
	return cmd
}
