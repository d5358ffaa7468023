package commands

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"chronicler/internal/store"
	"chronicler/pkg/chronometer"
	"chronicler/pkg/config"
	"chronicler/pkg/output"
	"chronicler/pkg/plants"
)

// NewPlantsCommand creates the plants command group.
func NewPlantsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "plants",
		Short: "Track watering and harvest timers",
		Long: `Track planted crops and their watering and harvest times. Timers
persist in the local store and the watch command announces them as
they come due.

A crop wants water at one and two growth intervals after planting and
is ready to harvest at three. The interval is the seed's difficulty
times the environment's stage time: 4h in a greenhouse, 8h outside,
80h indoors.`,
	}

	cmd.AddCommand(newPlantsAddCommand())
	cmd.AddCommand(newPlantsListCommand())
	cmd.AddCommand(newPlantsRemoveCommand())
	cmd.AddCommand(newPlantsSeedsCommand())

	return cmd
}

type plantsAddOptions struct {
	Config      string
	Seed        string
	Environment string
}

func newPlantsAddCommand() *cobra.Command {
	opts := &plantsAddOptions{}

	cmd := &cobra.Command{
		Use:   "add <description>",
		Short: "Start a plant timer",
		Example: `  chronicler plants add "north beds" --seed Cotton
  chronicler plants add "island row" --seed Coffee --environment outside`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPlantsAdd(cmd, args[0], opts)
		},
	}

	cmd.Flags().StringVar(&opts.Config, "config", "", "Config file (default $XDG_CONFIG_HOME/chronicler/config.yaml)")
	cmd.Flags().StringVarP(&opts.Seed, "seed", "s", "", "Seed name from the crop catalog")
	cmd.Flags().StringVarP(&opts.Environment, "environment", "e", "greenhouse", "greenhouse, outside or inside")
	_ = cmd.MarkFlagRequired("seed")

	return cmd
}

func runPlantsAdd(cmd *cobra.Command, description string, opts *plantsAddOptions) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	cfg, err := config.Load(opts.Config)
	if err != nil {
		return err
	}
	env, err := plants.ParseEnvironment(opts.Environment)
	if err != nil {
		return err
	}
	seed, ok := plants.FindSeed(opts.Seed)
	if !ok {
		return fmt.Errorf("unknown seed %q (see 'chronicler plants seeds')", opts.Seed)
	}

	st, err := store.Open(cfg.StorePath, nil)
	if err != nil {
		return err
	}
	defer st.Close()

	plant := plants.Plant{
		Description: description,
		SeedName:    seed.Name,
		SeedType:    seed.Type,
		Environment: env,
		PlantedAt:   time.Now(),
	}
	id, err := st.AddPlant(ctx, plant)
	if err != nil {
		return err
	}

	fmt.Printf("Added plant %d: %s (%s, %s)\n", id, description, seed.Name, env)
	fmt.Printf("Water in %s, harvest in %s\n",
		chronometer.FormatCountdown(plant.Interval()),
		chronometer.FormatCountdown(3*plant.Interval()))
	return nil
}

type plantsListOptions struct {
	Config  string
	Output  string
	Verbose bool
	Quiet   bool
}

func newPlantsListCommand() *cobra.Command {
	opts := &plantsListOptions{}

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List tracked plants and their next events",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPlantsList(cmd, opts)
		},
	}

	cmd.Flags().StringVar(&opts.Config, "config", "", "Config file (default $XDG_CONFIG_HOME/chronicler/config.yaml)")
	cmd.Flags().StringVarP(&opts.Output, "output", "o", "text", "Output format (text|json)")
	cmd.Flags().BoolVarP(&opts.Verbose, "verbose", "v", false, "Verbose output")
	cmd.Flags().BoolVarP(&opts.Quiet, "quiet", "q", false, "Quiet output")

	return cmd
}

func runPlantsList(cmd *cobra.Command, opts *plantsListOptions) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	cfg, err := config.Load(opts.Config)
	if err != nil {
		return err
	}
	st, err := store.Open(cfg.StorePath, nil)
	if err != nil {
		return err
	}
	defer st.Close()

	list, err := st.Plants(ctx)
	if err != nil {
		return err
	}

	formatter, err := createFormatter(opts.Output, opts.Verbose, opts.Quiet)
	if err != nil {
		return err
	}
	report := output.NewPlantsReport(list, time.Now(), reportMeta(""))
	if err := formatter.Format(ctx, report, os.Stdout); err != nil {
		return fmt.Errorf("formatting output: %w", err)
	}
	return nil
}

func newPlantsRemoveCommand() *cobra.Command {
	opts := &plantsListOptions{}

	cmd := &cobra.Command{
		Use:     "remove <id>",
		Aliases: []string{"rm"},
		Short:   "Drop a plant timer",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPlantsRemove(cmd, args[0], opts)
		},
	}

	cmd.Flags().StringVar(&opts.Config, "config", "", "Config file (default $XDG_CONFIG_HOME/chronicler/config.yaml)")

	return cmd
}

func runPlantsRemove(cmd *cobra.Command, idArg string, opts *plantsListOptions) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	id, err := strconv.ParseInt(idArg, 10, 64)
	if err != nil {
		return fmt.Errorf("invalid plant id %q", idArg)
	}

	cfg, err := config.Load(opts.Config)
	if err != nil {
		return err
	}
	st, err := store.Open(cfg.StorePath, nil)
	if err != nil {
		return err
	}
	defer st.Close()

	if err := st.RemovePlant(ctx, id); err != nil {
		return err
	}
	fmt.Printf("Removed plant %d\n", id)
	return nil
}

func newPlantsSeedsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "seeds",
		Short: "List the crop catalog",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			seeds, err := plants.Seeds()
			if err != nil {
				return err
			}
			for _, s := range seeds {
				fmt.Printf("%-24s difficulty %d\n", s.Name, s.Type)
			}
			return nil
		},
	}
}
