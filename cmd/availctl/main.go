package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/hackgods/provider-availability/internal/config"
	"github.com/hackgods/provider-availability/internal/fixtures"
	"github.com/hackgods/provider-availability/internal/logging"
	"github.com/hackgods/provider-availability/internal/schedule"
)

func main() {
	if err := newRootCmd(viper.New()).Execute(); err != nil {
		os.Exit(1)
	}
}

// newRootCmd wires the offline CLI. Every flag can also come from an
// AVAILCTL_-prefixed environment variable, e.g. AVAILCTL_SNAPSHOT.
func newRootCmd(v *viper.Viper) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:          "availctl",
		Short:        "Query provider availability from a JSON snapshot file",
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().String("snapshot", "snapshot.json", "Path to the snapshot file")
	rootCmd.PersistentFlags().Int("granularity", schedule.DefaultGranularity, "Slot size in minutes")
	rootCmd.PersistentFlags().String("date", "", "Date as YYYY-MM-DD (default today)")
	rootCmd.PersistentFlags().String("log-level", "warn", "Log level")

	v.SetEnvPrefix("AVAILCTL")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	_ = v.BindPFlags(rootCmd.PersistentFlags())

	rootCmd.AddCommand(slotsCmd(v))
	rootCmd.AddCommand(conflictsCmd(v))
	rootCmd.AddCommand(statsCmd(v))
	rootCmd.AddCommand(generateCmd(v))

	return rootCmd
}

func slotsCmd(v *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "slots <provider-id>",
		Short: "Print a provider's slots for one day or a range of days",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := loadService(v)
			if err != nil {
				return err
			}
			date, err := dateFlag(v)
			if err != nil {
				return err
			}

			days, _ := cmd.Flags().GetInt("days")
			if days <= 1 {
				day, err := svc.ProviderAvailability(cmd.Context(), args[0], date, v.GetInt("granularity"))
				if err != nil {
					return err
				}
				return writeOutput(cmd.OutOrStdout(), day)
			}

			result, err := svc.ProviderRange(cmd.Context(), args[0], date, days, v.GetInt("granularity"))
			if err != nil {
				return err
			}
			return writeOutput(cmd.OutOrStdout(), result)
		},
	}
	cmd.Flags().Int("days", 1, "Number of consecutive days")
	return cmd
}

func conflictsCmd(v *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "conflicts",
		Short: "List overlapping active appointments",
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := loadService(v)
			if err != nil {
				return err
			}
			date, err := dateFlag(v)
			if err != nil {
				return err
			}
			provider, _ := cmd.Flags().GetString("provider")

			report, err := svc.Conflicts(cmd.Context(), date, provider)
			if err != nil {
				return err
			}
			return writeOutput(cmd.OutOrStdout(), report)
		},
	}
	cmd.Flags().String("provider", "", "Restrict to one provider")
	return cmd
}

func statsCmd(v *viper.Viper) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Print dashboard statistics for a day",
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := loadService(v)
			if err != nil {
				return err
			}
			date, err := dateFlag(v)
			if err != nil {
				return err
			}

			stats, err := svc.Stats(cmd.Context(), date)
			if err != nil {
				return err
			}
			return writeOutput(cmd.OutOrStdout(), stats)
		},
	}
}

func generateCmd(v *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Write a synthetic snapshot to the snapshot path",
		RunE: func(cmd *cobra.Command, args []string) error {
			from, err := dateFlag(v)
			if err != nil {
				return err
			}
			providers, _ := cmd.Flags().GetInt("providers")
			days, _ := cmd.Flags().GetInt("days")
			perDay, _ := cmd.Flags().GetInt("per-day")
			overlap, _ := cmd.Flags().GetFloat64("overlap")
			seed, _ := cmd.Flags().GetInt64("seed")

			snap := fixtures.Generate(fixtures.Options{
				Providers:       providers,
				From:            from,
				Days:            days,
				AppointmentsDay: perDay,
				OverlapRatio:    overlap,
				LeaveRatio:      0.1,
				Seed:            seed,
			})

			data, err := json.MarshalIndent(snap, "", "  ")
			if err != nil {
				return err
			}
			path := v.GetString("snapshot")
			if err := os.WriteFile(path, data, 0o644); err != nil {
				return fmt.Errorf("write snapshot: %w", err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "wrote %d providers, %d appointments, %d leave requests to %s\n",
				len(snap.Providers), len(snap.Appointments), len(snap.Leave), path)
			return nil
		},
	}
	cmd.Flags().Int("providers", 5, "Number of providers")
	cmd.Flags().Int("days", 7, "Number of days starting at --date")
	cmd.Flags().Int("per-day", 10, "Upper bound of appointments per provider per day")
	cmd.Flags().Float64("overlap", 0.1, "Share of appointments placed over another")
	cmd.Flags().Int64("seed", 1, "Random seed")
	return cmd
}

// loadService reads the snapshot file into a memory store and wraps it in the
// same service the API uses, without a cache.
func loadService(v *viper.Viper) (*schedule.Service, error) {
	path := v.GetString("snapshot")
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read snapshot: %w", err)
	}

	var snap schedule.Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("decode snapshot %s: %w", path, err)
	}
	for _, p := range snap.Providers {
		if err := p.Validate(); err != nil {
			return nil, err
		}
	}

	granularity := v.GetInt("granularity")
	if err := schedule.ValidateGranularity(granularity); err != nil {
		return nil, err
	}

	logger := logging.NewTo(os.Stderr, "availctl", "dev").Level(parseLevel(v.GetString("log-level")))
	store := schedule.NewMemoryStoreFrom(snap)
	cfg := config.Config{Env: "dev", SlotGranularity: granularity}
	return schedule.NewService(store, store, store, nil, cfg, logger), nil
}

func dateFlag(v *viper.Viper) (schedule.Date, error) {
	raw := v.GetString("date")
	if raw == "" {
		return schedule.DateOf(time.Now()), nil
	}
	return schedule.ParseDate(raw)
}

func parseLevel(s string) zerolog.Level {
	lvl, err := zerolog.ParseLevel(s)
	if err != nil {
		return zerolog.WarnLevel
	}
	return lvl
}

func writeOutput(w io.Writer, value any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(value)
}

