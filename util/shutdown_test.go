package util

import (
	"context"
	"errors"
	"net"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMonitorShutdownRunsHandlers(t *testing.T) {
	trigger := make(chan struct{})
	var stopped []string
	out := MonitorShutdown(trigger,
		ShutdownHandler{Component: "api", StopFunc: func(context.Context) error {
			stopped = append(stopped, "api")
			return nil
		}},
		ShutdownHandler{Component: "syncer", StopFunc: func(context.Context) error {
			stopped = append(stopped, "syncer")
			return errors.New("already stopped")
		}},
	)
	close(trigger)

	select {
	case <-out:
	case <-time.After(5 * time.Second):
		t.Fatal("shutdown did not finish")
	}
	assert.Equal(t, []string{"api", "syncer"}, stopped)
}

func TestServeHttpReportsListenError(t *testing.T) {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer l.Close()

	_, errCh := ServeHttp(http.NotFoundHandler(), "test", l.Addr().String())
	select {
	case err := <-errCh:
		assert.Error(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("expected a listen error")
	}
}
