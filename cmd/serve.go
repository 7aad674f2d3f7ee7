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
	"net/http"
	"os"
	"os/signal"

	"github.com/gorilla/websocket"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/notargets/growcfd/server"
)

// ServeCmd represents the serve command
var ServeCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run grow room cases sent over a websocket and stream their progress",
	Long: `Listens for websocket connections on /ws. A client sends
  {"type": "start", "content": <case as JSON>}
and receives "started", one "progress" message per iteration and a "result"
with the summary. {"type": "stop"} cancels the running case.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
		defer stop()
		upgrader := websocket.Upgrader{
			ReadBufferSize:  1 << 12,
			WriteBufferSize: 1 << 12,
		}
		if Cfg.GetBool("allowAnyOrigin") {
			upgrader.CheckOrigin = func(*http.Request) bool { return true }
		}
		return server.NewServer(Cfg.GetString("addr"), upgrader, log.StandardLogger()).Serve(ctx)
	},
}

func init() {
	rootCmd.AddCommand(ServeCmd)
	fl := ServeCmd.Flags()
	fl.String("addr", "localhost:8080", "listen address")
	fl.Bool("allowAnyOrigin", false, "accept websocket connections from any origin")
	bindFlags(fl.Lookup("addr"), fl.Lookup("allowAnyOrigin"))
}
