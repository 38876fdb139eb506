package dagmetrics_test

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"

	"github.com/casperlabs/blockdag/dag/dagmetrics"
)

func TestRegistererRegistersEveryCollectorOnce(t *testing.T) {
	m := dagmetrics.New()
	reg := prometheus.NewRegistry()
	require.NoError(t, m.Registerer(reg))

	m.Inserts.Inc()
	m.Squashes.Inc()
	m.CRCMismatchesRecovered.Inc()
	m.CheckpointCacheHits.Inc()
	m.CheckpointCacheMisses.Inc()
	m.LiveTopoSortRows.Set(3)

	families, err := reg.Gather()
	require.NoError(t, err)
	require.Len(t, families, 6)
}

func TestRegistererRejectsDoubleRegistration(t *testing.T) {
	m := dagmetrics.New()
	reg := prometheus.NewRegistry()
	require.NoError(t, m.Registerer(reg))
	require.Error(t, m.Registerer(reg))
}
