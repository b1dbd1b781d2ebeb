// Package config loads the experiment description: which product sizes and
// worker counts to sweep and how each strategy is launched.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/weiihann/scalebench/experiment"
	"github.com/weiihann/scalebench/harness"
)

// Config is the experiment file format.
//
//	product_sizes: [200, 1190, 2180]
//	worker_counts: [1, 2, 4, 8]
//	input_dir: inputs
//	input_pattern: input_%d.txt
//	strategies:
//	  - name: openmpi
//	    command: mpirun
//	    args: ["-np", "{workers}", "./main_mpi", "{input}"]
//	    results: experiment_results_openmpi.txt
type Config struct {
	ProductSizes []int              `yaml:"product_sizes"`
	WorkerCounts []int              `yaml:"worker_counts"`
	InputDir     string             `yaml:"input_dir"`
	InputPattern string             `yaml:"input_pattern"`
	OutputDir    string             `yaml:"output_dir"`
	SourceDir    string             `yaml:"source_dir"`
	Strategies   []harness.Strategy `yaml:"strategies"`
}

// Default returns the reference sweep: product sizes 200 to 20000 in 20
// steps, 1 to 8 workers, both default strategies.
func Default() Config {
	return Config{
		ProductSizes: experiment.LinearRange(200, 20000, 20),
		WorkerCounts: []int{1, 2, 3, 4, 5, 6, 7, 8},
		InputPattern: experiment.DefaultInputPattern,
		OutputDir:    ".",
		SourceDir:    ".",
		Strategies:   harness.DefaultStrategies(),
	}
}

// Load reads a YAML file and overlays it on Default. Keys missing from the
// file keep their default values.
func Load(path string) (Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return Config{}, fmt.Errorf("open config: %w", err)
	}
	defer f.Close()

	cfg, err := Decode(f)
	if err != nil {
		return Config{}, fmt.Errorf("load %s: %w", path, err)
	}

	return cfg, nil
}

// Decode reads YAML from r and overlays it on Default.
func Decode(r io.Reader) (Config, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}

	cfg := Default()

	if len(bytes.TrimSpace(data)) == 0 {
		return cfg, nil
	}

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	if err := dec.Decode(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}

	return cfg, cfg.Validate()
}

// Validate reports the first problem that would make a sweep meaningless.
func (c Config) Validate() error {
	if len(c.ProductSizes) == 0 {
		return errors.New("no product sizes")
	}

	for _, p := range c.ProductSizes {
		if p < 0 {
			return fmt.Errorf("product size %d is negative", p)
		}
	}

	if len(c.WorkerCounts) == 0 {
		return errors.New("no worker counts")
	}

	for _, w := range c.WorkerCounts {
		if w < 1 {
			return fmt.Errorf("worker count %d is below 1", w)
		}
	}

	if len(c.Strategies) == 0 {
		return errors.New("no strategies")
	}

	seen := make(map[string]bool, len(c.Strategies))
	for _, s := range c.Strategies {
		switch {
		case s.Name == "":
			return errors.New("strategy without a name")
		case seen[s.Name]:
			return fmt.Errorf("duplicate strategy %q", s.Name)
		case s.Command == "":
			return fmt.Errorf("strategy %q has no command", s.Name)
		case s.Results == "":
			return fmt.Errorf("strategy %q has no results file", s.Name)
		}

		seen[s.Name] = true
	}

	return nil
}

// Select keeps only the named strategies, in the order given. Names not in
// the file resolve to the built-in strategy of the same name.
func (c Config) Select(names []string) (Config, error) {
	if len(names) == 0 {
		return c, nil
	}

	selected := make([]harness.Strategy, 0, len(names))

	for _, name := range names {
		s, ok := c.strategy(name)
		if !ok {
			return Config{}, fmt.Errorf("unknown strategy %q", name)
		}

		selected = append(selected, s)
	}

	c.Strategies = selected

	return c, nil
}

// strategy returns the configured strategy with the given name, falling
// back to the built-in defaults.
func (c Config) strategy(name string) (harness.Strategy, bool) {
	for _, s := range c.Strategies {
		if s.Name == name {
			return s, true
		}
	}

	return harness.LookupStrategy(name)
}

// Plans returns one experiment plan per strategy.
func (c Config) Plans() []experiment.Plan {
	plans := make([]experiment.Plan, 0, len(c.Strategies))

	for _, s := range c.Strategies {
		plans = append(plans, experiment.Plan{
			Strategy:     s,
			ProductSizes: c.ProductSizes,
			WorkerCounts: c.WorkerCounts,
			InputDir:     c.InputDir,
			InputPattern: c.InputPattern,
		})
	}

	return plans
}
