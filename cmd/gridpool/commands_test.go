package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/goliatone/go-gridpool/pkg/config"
	"github.com/goliatone/go-gridpool/pkg/di"
	"github.com/goliatone/go-gridpool/pkg/testsupport"
	"github.com/goliatone/go-gridpool/pool"
)

const checkConfig = `
log:
  level: error
pools:
  - name: orders
    locators: ["locator-a:10334"]
  - name: sessions
    servers: ["cache-1:6379"]
`

func TestVersionCommand(t *testing.T) {
	var out bytes.Buffer
	root := newRootCommand(&out)
	root.SetArgs([]string{"version"})

	require.NoError(t, root.Execute())
	assert.Contains(t, out.String(), "gridpool v"+version)
}

func TestCheckCommand_RequiresConfig(t *testing.T) {
	root := newRootCommand(io.Discard)
	root.SetErr(io.Discard)
	root.SetArgs([]string{"check"})

	err := root.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "config")
}

func TestCheckCommand_MissingFile(t *testing.T) {
	root := newRootCommand(io.Discard)
	root.SetArgs([]string{"check", "-c", "does-not-exist.yaml"})

	require.Error(t, root.Execute())
}

func TestRunCheck_Table(t *testing.T) {
	cfg, err := config.Parse([]byte(checkConfig))
	require.NoError(t, err)

	factories := &testsupport.FactorySet{}
	var out bytes.Buffer
	err = runCheck(context.Background(), &out, cfg, time.Second, false, di.WithFactory(factories.Func()))
	require.NoError(t, err)

	text := out.String()
	assert.Contains(t, text, "NAME")
	assert.Regexp(t, `orders\s+created\s+true\s+locator-a:10334\s+-`, text)
	assert.Regexp(t, `sessions\s+created\s+true\s+-\s+cache-1:6379\s+cache-1:6379`, text)

	// check releases what it created
	for _, p := range factories.Pools() {
		assert.Equal(t, 1, p.DestroyCalls(), p.Name())
	}
}

func TestRunCheck_JSON(t *testing.T) {
	cfg, err := config.Parse([]byte(checkConfig))
	require.NoError(t, err)

	factories := &testsupport.FactorySet{}
	var out bytes.Buffer
	err = runCheck(context.Background(), &out, cfg, time.Second, true, di.WithFactory(factories.Func()))
	require.NoError(t, err)

	var snapshots []pool.Snapshot
	require.NoError(t, json.Unmarshal(out.Bytes(), &snapshots))
	require.Len(t, snapshots, 2)
	assert.Equal(t, "orders", snapshots[0].Name)
	assert.Equal(t, pool.StateCreated, snapshots[0].State)
}

func TestRunCheck_ReportsFailures(t *testing.T) {
	cfg, err := config.Parse([]byte(checkConfig))
	require.NoError(t, err)

	factories := &testsupport.FactorySet{CreateErr: errors.New("connection refused")}
	var out bytes.Buffer
	err = runCheck(context.Background(), &out, cfg, time.Second, false, di.WithFactory(factories.Func()))
	require.Error(t, err)
	assert.True(t, pool.IsNativeCreationError(err), err.Error())
	assert.Regexp(t, `orders\s+unresolved\s+false`, out.String())
}

func TestRunServe_StopsOnCancel(t *testing.T) {
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := listener.Addr().String()
	require.NoError(t, listener.Close())

	cfg, err := config.Parse([]byte(checkConfig))
	require.NoError(t, err)
	cfg.HTTP.Addr = addr
	cfg.HTTP.ShutdownTimeout = time.Second

	factories := &testsupport.FactorySet{}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- runServe(ctx, cfg, di.WithFactory(factories.Func()))
	}()

	require.Eventually(t, func() bool {
		resp, err := http.Post("http://"+addr+"/pools/orders/resolve", "application/json", nil)
		if err != nil {
			return false
		}
		resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 5*time.Second, 20*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("serve did not stop")
	}

	orders, ok := factories.Pool("orders")
	require.True(t, ok)
	assert.Equal(t, 1, orders.DestroyCalls(), "serve should release created pools on shutdown")
}
