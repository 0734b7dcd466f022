package main

import (
	"github.com/spf13/cobra"

	"shrinkray/internal/config"
)

// scenarioFlags are shared by every command that builds a scenario.
// CLI flags override config file values, which override the preset.
type scenarioFlags struct {
	configPath string
	preset     string
	seed       uint32
	customers  int
	quantity   float64
	price      float64
	alpha      float64
}

func (f *scenarioFlags) register(cmd *cobra.Command) {
	flags := cmd.Flags()
	flags.StringVar(&f.configPath, "config", "", "path to YAML scenario file")
	flags.StringVar(&f.preset, "preset", "", "apply a named preset (see 'shrinkray presets')")
	flags.Uint32Var(&f.seed, "seed", 0, "random seed (0 is treated as 1)")
	flags.IntVar(&f.customers, "customers", 0, "number of simulated customers N")
	flags.Float64Var(&f.quantity, "quantity", 0, "box fill quantity Q in grams")
	flags.Float64Var(&f.price, "price", 0, "box price P")
	flags.Float64Var(&f.alpha, "alpha", 0, "informed share of customers")
}

func (f *scenarioFlags) load(cmd *cobra.Command) (*config.Config, error) {
	var cfg *config.Config
	if f.configPath != "" {
		var err error
		if cfg, err = config.LoadConfigWithPreset(f.configPath, f.preset); err != nil {
			return nil, err
		}
	} else {
		cfg = config.Defaults()
		if f.preset != "" {
			if err := cfg.ApplyPreset(f.preset); err != nil {
				return nil, err
			}
		}
	}

	flags := cmd.Flags()
	if flags.Changed("seed") {
		cfg.Run.Seed = f.seed
	}
	if flags.Changed("customers") {
		cfg.Model.N = f.customers
	}
	if flags.Changed("quantity") {
		cfg.Model.Q = f.quantity
	}
	if flags.Changed("price") {
		cfg.Model.P = f.price
	}
	if flags.Changed("alpha") {
		cfg.Model.Alpha = f.alpha
	}
	return cfg, nil
}
