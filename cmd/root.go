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
	"os"
	"path/filepath"

	homedir "github.com/mitchellh/go-homedir"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Cfg holds the flag, environment and configuration file settings. It is
// created before any init so every command file can bind its flags.
var Cfg = viper.New()

var rootCmd = &cobra.Command{
	Use:   "growcfd",
	Short: "Air flow, temperature and humidity in indoor grow rooms",
	Long: `growcfd solves the air flow, temperature and humidity fields of an indoor
grow room on a structured grid, with lights, HVAC units, fans and plant canopies
as sources.

Configuration can be set with command line flags, with environment variables
named GROWCFD_<flag> or in a configuration file ($HOME/.growcfd.yaml unless
--config is given).`,
	SilenceUsage:      true,
	PersistentPreRunE: func(*cobra.Command, []string) error { return setConfig() },
}

// Execute adds all child commands to the root command and runs it.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	Cfg.SetEnvPrefix("GROWCFD")
	Cfg.AutomaticEnv()

	pf := rootCmd.PersistentFlags()
	pf.String("config", "", "configuration file (default $HOME/.growcfd.yaml)")
	pf.String("logLevel", "info", "log level: debug, info, warn or error")
	pf.Bool("logJSON", false, "log as JSON instead of text")
	bindFlags(pf.Lookup("config"), pf.Lookup("logLevel"), pf.Lookup("logJSON"))
}

func bindFlags(flags ...*pflag.Flag) {
	for _, f := range flags {
		if err := Cfg.BindPFlag(f.Name, f); err != nil {
			panic(err)
		}
	}
}

// setConfig reads the configuration file, if there is one, and configures
// logging.
func setConfig() (err error) {
	cfgPath := Cfg.GetString("config")
	if cfgPath == "" {
		var home string
		if home, err = homedir.Dir(); err != nil {
			return
		}
		if p := filepath.Join(home, ".growcfd.yaml"); fileExists(p) {
			cfgPath = p
		}
	}
	if cfgPath != "" {
		Cfg.SetConfigFile(cfgPath)
		if err = Cfg.ReadInConfig(); err != nil {
			return fmt.Errorf("growcfd: problem reading configuration file: %v", err)
		}
	}
	return setLogging()
}

func setLogging() (err error) {
	var lvl log.Level
	if lvl, err = log.ParseLevel(Cfg.GetString("logLevel")); err != nil {
		return
	}
	log.SetLevel(lvl)
	if Cfg.GetBool("logJSON") {
		log.SetFormatter(&log.JSONFormatter{})
	} else {
		log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	}
	return
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
