package util

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/filswan/go-swan-lib/logs"
)

type StopFunc func(context.Context) error

type ShutdownHandler struct {
	Component string
	StopFunc  StopFunc
}

func MonitorShutdown(triggerCh <-chan struct{}, handlers ...ShutdownHandler) <-chan struct{} {
	sigCh := make(chan os.Signal, 2)
	out := make(chan struct{})

	go func() {
		select {
		case sig := <-sigCh:
			logs.GetLogger().Warnf("received shutdown, signal: %s", sig)
		case <-triggerCh:
			logs.GetLogger().Warn("received shutdown")
		}

		logs.GetLogger().Warn("Shutting down...")

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		for _, h := range handlers {
			if err := h.StopFunc(ctx); err != nil {
				logs.GetLogger().Errorf("shutting down %s failed: %s", h.Component, err)
				continue
			}
			logs.GetLogger().Infof("%s shut down successfully ", h.Component)
		}

		logs.GetLogger().Warn("Graceful shutdown successful")

		close(out)
	}()

	signal.Reset(syscall.SIGTERM, syscall.SIGINT)
	signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT)
	return out
}

// ServeHttp starts h on addr in the background. A listen failure is sent on the returned
// channel, which is closed once the server stops.
func ServeHttp(h http.Handler, name string, addr string) (StopFunc, <-chan error) {
	srv := &http.Server{
		Addr:              addr,
		Handler:           h,
		ReadHeaderTimeout: 60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		defer close(errCh)
		logs.GetLogger().Infof("service: %s, listening on %s", name, addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logs.GetLogger().Errorf("service: %s, listen: %s", name, err)
			errCh <- err
		}
	}()

	return srv.Shutdown, errCh
}
