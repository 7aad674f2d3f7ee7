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
	"fmt"
	"io"

	perf "github.com/hodgesds/perf-utils"
	log "github.com/sirupsen/logrus"
)

// measure runs fn, counting the instructions retired on its OS thread when
// enabled. Counters that cannot be opened are logged and fn runs unmeasured.
func measure(enabled bool, out io.Writer, fn func() error) (err error) {
	if !enabled {
		return fn()
	}
	var ran bool
	pv, err := perf.CPUInstructions(func() error {
		ran = true
		return fn()
	})
	if !ran {
		log.WithError(err).Warn("hardware performance counters unavailable")
		return fn()
	}
	if err != nil {
		return
	}
	fmt.Fprintf(out, "\nInstructions retired = %d over %8.5f s enabled\n",
		pv.Value, float64(pv.TimeEnabled)/1e9)
	return
}
