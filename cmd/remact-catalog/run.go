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
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/multierr"

	"github.com/remactgo/remact/address"
	"github.com/remactgo/remact/catalog"
	"github.com/remactgo/remact/log"
	"github.com/remactgo/remact/remote"
)

// bounds opening and closing the service
const shutdownTimeout = 5 * time.Second

// runCmd represents the run command
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the catalog service until interrupted",
	RunE: func(cmd *cobra.Command, _ []string) error {
		level, err := parseLevel(options.logLevel)
		if err != nil {
			return err
		}
		logger := log.NewZap(level, os.Stdout)
		defer func() { _ = logger.Flush() }()

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()
		return run(ctx, logger)
	},
}

func init() {
	fs := runCmd.Flags()
	fs.StringVar(&options.host, "host", "0.0.0.0", "interface to listen on")
	fs.IntVar(&options.port, "port", catalog.DefaultPort, "port to listen on")
	fs.StringVar(&options.scheme, "scheme", address.SchemeTCP, "transport scheme: tcp or ws")
	fs.StringVar(&options.advertisedHost, "advertised-host", "", "host name used in the catalog URI")
	fs.StringVar(&options.name, "name", catalog.DefaultServiceName, "name of the catalog service port")
	fs.BoolVar(&options.compression, "compression", false, "compress outgoing frames")
	rootCmd.AddCommand(runCmd)
}

// run serves the catalog until ctx is done
func run(ctx context.Context, logger log.Logger) error {
	opts := []remote.Option{
		remote.WithLogger(logger),
		remote.WithScheme(options.scheme),
		remote.WithBindAddress(options.host, options.port),
	}
	if options.advertisedHost != "" {
		opts = append(opts, remote.WithAdvertisedHost(options.advertisedHost))
	}
	if options.compression {
		opts = append(opts, remote.WithCompression())
	}
	configurator := remote.NewConfigurator(opts...)

	service := catalog.NewService(
		catalog.WithLogger(logger),
		catalog.WithName(options.name),
		catalog.WithConfigurator(configurator))
	openCtx, cancelOpen := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancelOpen()
	if err := service.Open(openCtx); err != nil {
		return multierr.Append(err, configurator.Close())
	}

	<-ctx.Done()
	logger.Info("shutting down the catalog")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return multierr.Append(service.Close(shutdownCtx), configurator.Close())
}
