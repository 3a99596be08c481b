package main

import (
	"context"
	"strconv"

	"github.com/filswan/go-swan-lib/logs"
	"github.com/urfave/cli/v2"

	"github.com/PaulSpaurgen/interface-v2/internal/api"
	"github.com/PaulSpaurgen/interface-v2/util"
)

var runCmd = &cli.Command{
	Name:  "run",
	Usage: "Start the oyster node: keep the store in sync and serve the api",
	Action: func(cctx *cli.Context) error {
		logs.GetLogger().Info("Start in oyster client mode.")

		n, err := loadNode(cctx)
		if err != nil {
			return err
		}
		defer n.close()

		opts := []api.Option{api.WithMetrics(n.metrics)}
		if n.owner() != "" {
			service, err := n.service(cctx.Context)
			if err != nil {
				return err
			}
			opts = append(opts, api.WithService(service))
		} else {
			logs.GetLogger().Warn("no wallet configured, the api is read only")
		}
		server := api.NewServer(n.store, n.token(), opts...)

		syncCtx, stopSync := context.WithCancel(context.Background())
		syncDone := make(chan struct{})
		go func() {
			defer close(syncDone)
			n.syncer().Run(syncCtx)
		}()

		shutdownChan := make(chan struct{})
		httpStopper, errCh := util.ServeHttp(server.Engine(n.cfg.API.AllowOrigins), "oyster-api", ":"+strconv.Itoa(n.cfg.API.Port))
		go func() {
			if err := <-errCh; err != nil {
				close(shutdownChan)
			}
		}()

		finishCh := util.MonitorShutdown(shutdownChan,
			util.ShutdownHandler{Component: "oyster-api", StopFunc: httpStopper},
			util.ShutdownHandler{Component: "oyster-syncer", StopFunc: func(ctx context.Context) error {
				stopSync()
				select {
				case <-syncDone:
					return nil
				case <-ctx.Done():
					return ctx.Err()
				}
			}},
		)
		<-finishCh

		return nil
	},
}
