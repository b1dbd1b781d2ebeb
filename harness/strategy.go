// Package harness launches benchmark executables for a parallel execution
// strategy and measures their wall-clock time.
package harness

import (
	"strconv"
	"strings"
)

// Strategy describes how to launch (and optionally build) the benchmark
// executable for one execution strategy. Args and Env may contain the
// placeholders {workers} and {input}.
type Strategy struct {
	Name     string   `yaml:"name" json:"name"`
	Command  string   `yaml:"command" json:"command"`
	Args     []string `yaml:"args" json:"args"`
	Env      []string `yaml:"env,omitempty" json:"env,omitempty"`
	Results  string   `yaml:"results" json:"results"`
	Source   string   `yaml:"source,omitempty" json:"source,omitempty"`
	Binary   string   `yaml:"binary,omitempty" json:"binary,omitempty"`
	Compiler string   `yaml:"compiler,omitempty" json:"compiler,omitempty"`
	CFlags   []string `yaml:"cflags,omitempty" json:"cflags,omitempty"`
}

// CommandConfig holds the resolved command, arguments and extra
// environment variables for one run.
type CommandConfig struct {
	Binary string
	Args   []string
	Env    []string
}

// DefaultStrategies returns the distributed-process (openmpi) and hybrid
// shared-memory (openmp) strategies, both launched through mpirun.
func DefaultStrategies() []Strategy {
	return []Strategy{
		{
			Name:    "openmpi",
			Command: "mpirun",
			Args:    []string{"-np", "{workers}", "./main_mpi", "{input}"},
			Results: "experiment_results_openmpi.txt",
			Source:  "main_mpi.c",
			Binary:  "main_mpi",
		},
		{
			Name:    "openmp",
			Command: "mpirun",
			Args:    []string{"-np", "{workers}", "./main_openmp", "{input}"},
			Results: "experiment_results_openmp.txt",
			Source:  "main_mpi_openmp.c",
			Binary:  "main_openmp",
			CFlags:  []string{"-fopenmp"},
		},
	}
}

// LookupStrategy returns the default strategy with the given name.
func LookupStrategy(name string) (Strategy, bool) {
	for _, s := range DefaultStrategies() {
		if s.Name == name {
			return s, true
		}
	}

	return Strategy{}, false
}

// Expand substitutes the worker count and input path into the strategy's
// command line.
func Expand(s Strategy, workers int, input string) CommandConfig {
	r := strings.NewReplacer(
		"{workers}", strconv.Itoa(workers),
		"{input}", input,
	)

	cc := CommandConfig{
		Binary: r.Replace(s.Command),
		Args:   make([]string, len(s.Args)),
	}

	for i, a := range s.Args {
		cc.Args[i] = r.Replace(a)
	}

	if len(s.Env) > 0 {
		cc.Env = make([]string, len(s.Env))
		for i, e := range s.Env {
			cc.Env[i] = r.Replace(e)
		}
	}

	return cc
}
