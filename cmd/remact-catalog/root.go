// MIT License
//
// Copyright (c) 2022-2026 GoAkt Team
//
// Permission is hereby granted, free of charge, to any person obtaining a copy
// of this software and associated documentation files (the "Software"), to deal
// in the Software without restriction, including without limitation the rights
// to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
// copies of the Software, and to permit persons to whom the Software is
// furnished to do so, subject to the following conditions:
//
// The above copyright notice and this permission notice shall be included in all
// copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
// FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
// AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
// LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
// OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
// SOFTWARE.

package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/remactgo/remact/log"
)

// flags of the root command
type flags struct {
	host           string
	port           int
	scheme         string
	advertisedHost string
	name           string
	logLevel       string
	compression    bool
}

var options flags

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "remact-catalog",
	Short: "Catalog of Remact service ports",
	Long: `remact-catalog keeps the addresses of the Remact services of a network.
Services announce themselves periodically and proxies resolve them by name.`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&options.logLevel, "log-level", log.InfoLevel.String(),
		"log level: debug, info, warn, error")
}

// parseLevel maps a level name to a log level
func parseLevel(name string) (log.Level, error) {
	for _, level := range []log.Level{log.DebugLevel, log.InfoLevel, log.WarningLevel, log.ErrorLevel} {
		if strings.EqualFold(level.String(), name) {
			return level, nil
		}
	}
	return log.InvalidLevel, fmt.Errorf("unknown log level %q", name)
}
