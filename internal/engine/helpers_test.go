package engine

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"

	"github.com/roach88/rankvault/internal/ir"
	"github.com/roach88/rankvault/internal/metrics"
	"github.com/roach88/rankvault/internal/registry"
	"github.com/roach88/rankvault/internal/store"
)

const (
	admin    = "owner"
	account1 = "account_1"
	account2 = "account_2"
	day      = int64(registry.DefaultEpochsPerDay)
)

func testCollection() registry.Collection {
	return registry.Collection{
		Name:          "SolicyNFT",
		Symbol:        "HNFT",
		BaseURI:       "ipfs://QmBase/",
		Administrator: admin,
	}
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// openTestStore creates an initialized store with the default policy.
func openTestStore(t *testing.T) (*store.Store, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := store.Open(path)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	require.NoError(t, s.Init(context.Background(), registry.State{
		Collection: testCollection(),
		Policy:     registry.DefaultPolicy(),
		NextID:     1,
	}))
	return s, path
}

// newTestEngine returns an engine on a fresh store plus its metrics.
func newTestEngine(t *testing.T) (*Engine, *store.Store, *metrics.Metrics) {
	t.Helper()
	s, _ := openTestStore(t)
	m := metrics.New(prometheus.NewRegistry())
	e, err := Open(context.Background(), s,
		WithFlowGenerator(NewSequenceGenerator("test")),
		WithLogger(discardLogger()),
		WithMetrics(m),
	)
	require.NoError(t, err)
	return e, s, m
}

func call(action, caller string, epoch int64, args ir.Object) ir.Call {
	return ir.Call{Action: action, Caller: caller, Epoch: epoch, Args: args}
}

// mustExec runs a call and fails the test on a runtime error.
func mustExec(t *testing.T, e *Engine, c ir.Call) ir.Outcome {
	t.Helper()
	out, err := e.Execute(context.Background(), c)
	require.NoError(t, err)
	return out
}

func mint(t *testing.T, e *Engine, to, name string) int64 {
	t.Helper()
	out := mustExec(t, e, call("mint", admin, 0, ir.Object{
		"recipient": ir.String(to),
		"name":      ir.String(name),
	}))
	require.Equal(t, registry.CaseSuccess, out.Case, "mint: %v", out.Result)
	return int64(out.Result["id"].(ir.Int))
}
