/*
Copyright © 2020 NAME HERE <EMAIL ADDRESS>

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/
package cmd

import (
	"context"
	"fmt"
	"io"
	"io/ioutil"
	"os"
	"os/signal"

	"github.com/ghodss/yaml"
	"github.com/pkg/profile"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/notargets/growcfd/InputParameters"
	"github.com/notargets/growcfd/model_problems/Climate3D"
	"github.com/notargets/growcfd/utils"
)

type ClimateRun struct {
	ICFile       string
	Output       string // YAML summary, written to stdout when empty
	Profile      string // cpu | mem
	PerfCounters bool
	PrintEvery   int
}

const exampleClimateFile = `
########################################
Title: "Flower Room"
Domain:
  Size: [6, 4, 3]       # metres
  Cells: [24, 16, 12]
Solver:
  PressureSolver: sor   # or cg
  Turbulence: kepsilon  # or laminar
  MaxIterations: 2000
  WallClockLimit: 30m
Boundaries:
  - Type: supply
    Face: west
    Min: [1.5, 2.2]     # y, z
    Max: [2.5, 2.6]
    Velocity: [1.5, 0, 0]
    Temperature: 22
    Humidity: 0.009
  - Type: exhaust
    Face: east
    Min: [1.5, 0.2]
    Max: [2.5, 0.6]
Equipment:
  - Type: light
    Position: [3, 2, 2.4]
    Footprint: [1.2, 1.2]
    Wattage: 650
    Efficiency: 0.5
  - Type: canopy
    Min: [1, 1, 0]
    Max: [5, 3, 1]
    Porosity: 0.7
    SensibleHeat: 200
    Transpiration: 0.0002
########################################
`

// ClimateCmd represents the climate command
var ClimateCmd = &cobra.Command{
	Use:   "climate",
	Short: "Steady or transient air flow, temperature and humidity in a grow room",
	Long: `Reads a grow room case file, iterates the flow, temperature, humidity and
turbulence fields to a terminal state and writes a YAML summary of the result.
An interrupt stops the run and still writes the summary of the partial fields.`,
	RunE: func(cmd *cobra.Command, args []string) (err error) {
		cr := &ClimateRun{
			ICFile:       Cfg.GetString("inputConditionsFile"),
			Output:       Cfg.GetString("output"),
			Profile:      Cfg.GetString("profile"),
			PerfCounters: Cfg.GetBool("perfCounters"),
			PrintEvery:   Cfg.GetInt("printEvery"),
		}
		var ip *InputParameters.InputParametersClimate
		if ip, err = processClimateInput(cr, cmd.OutOrStdout()); err != nil {
			return
		}
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
		defer stop()
		_, err = RunClimate(ctx, cr, ip, cmd.OutOrStdout())
		return
	},
}

func init() {
	rootCmd.AddCommand(ClimateCmd)
	fl := ClimateCmd.Flags()
	fl.StringP("inputConditionsFile", "I", "", "YAML case file with the domain, solver, boundaries and equipment")
	fl.StringP("output", "o", "", "file for the YAML result summary, stdout when empty")
	fl.String("profile", "", "write a pprof profile of the run: cpu or mem")
	fl.Bool("perfCounters", false, "report hardware instruction and cycle counts of the solve (linux)")
	fl.Int("printEvery", 10, "iterations between residual table rows, 0 for none")
	bindFlags(fl.Lookup("inputConditionsFile"), fl.Lookup("output"), fl.Lookup("profile"),
		fl.Lookup("perfCounters"), fl.Lookup("printEvery"))
}

func processClimateInput(cr *ClimateRun, out io.Writer) (ip *InputParameters.InputParametersClimate, err error) {
	if len(cr.ICFile) == 0 {
		err = fmt.Errorf("must supply a case file (-I, --inputConditionsFile) in YAML format")
		fmt.Fprintf(out, "error: %s\n", err.Error())
		fmt.Fprintf(out, "Example File:%s\n", exampleClimateFile)
		return
	}
	var data []byte
	if data, err = ioutil.ReadFile(cr.ICFile); err != nil {
		return
	}
	ip = &InputParameters.InputParametersClimate{}
	if err = ip.Parse(data); err != nil {
		return
	}
	return
}

// RunClimate solves the case and writes the summary. A cancelled ctx ends
// the run early with Status Cancelled.
func RunClimate(ctx context.Context, cr *ClimateRun, ip *InputParameters.InputParametersClimate,
	out io.Writer) (sum Climate3D.Summary, err error) {
	cfg, g, bcs, equipment, err := ip.Build()
	if err != nil {
		return
	}
	switch cr.Profile {
	case "":
	case "cpu":
		defer profile.Start(profile.CPUProfile, profile.ProfilePath("."), profile.Quiet).Stop()
	case "mem":
		defer profile.Start(profile.MemProfile, profile.ProfilePath("."), profile.Quiet).Stop()
	default:
		err = fmt.Errorf("unknown profile %q, use cpu or mem", cr.Profile)
		return
	}
	ip.Print()
	rt := &residualTable{w: out, every: cr.PrintEvery}
	sr, err := Climate3D.NewSimulationRun(cfg, g, bcs, equipment,
		Climate3D.WithLogger(log.WithField("case", ip.Title)),
		Climate3D.WithObserver(rt))
	if err != nil {
		return
	}
	for _, w := range sr.Warnings() {
		fmt.Fprintf(out, "warning: %s\n", w)
	}
	rt.header(cfg.Transient)
	var (
		res      *Climate3D.Result
		solveErr error
	)
	if err = measure(cr.PerfCounters, out, func() error {
		res, solveErr = sr.Solve(ctx)
		return nil
	}); err != nil {
		return
	}
	fmt.Fprintf(out, "\nMemory: %s\n", utils.GetMemUsage())
	sum = res.Summary(ip.Title)
	if err = writeSummary(cr.Output, out, sum); err != nil {
		return
	}
	if res.Err != nil {
		fmt.Fprintf(out, "error: %s\n", res.Err.Error())
	}
	err = solveErr
	return
}

func writeSummary(path string, out io.Writer, sum Climate3D.Summary) (err error) {
	var data []byte
	if data, err = yaml.Marshal(sum); err != nil {
		return
	}
	if path == "" {
		_, err = out.Write(data)
		return
	}
	if err = ioutil.WriteFile(path, data, 0644); err != nil {
		return
	}
	fmt.Fprintf(out, "Summary written to [%s]\n", path)
	return
}

// residualTable prints one row every few iterations and one for the final
// state.
type residualTable struct {
	w         io.Writer
	every     int
	transient bool
}

func (rt *residualTable) header(transient bool) {
	rt.transient = transient
	if rt.every <= 0 {
		return
	}
	if transient {
		fmt.Fprintf(rt.w, "    iter    step      time")
	} else {
		fmt.Fprintf(rt.w, "    iter                  ")
	}
	fmt.Fprintf(rt.w, "   Residual  State\n")
}

func (rt *residualTable) IterationComplete(p Climate3D.Progress) {
	if rt.every <= 0 || (p.Iteration%rt.every != 0 && !p.State.Terminal()) {
		return
	}
	if rt.transient {
		fmt.Fprintf(rt.w, "%8d%8d%10.3f", p.Iteration, p.Step, p.Time)
	} else {
		fmt.Fprintf(rt.w, "%8d                  ", p.Iteration)
	}
	fmt.Fprintf(rt.w, "%11.4e  %s\n", p.Residual, p.State)
}
