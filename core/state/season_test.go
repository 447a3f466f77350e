package state

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/require"

	"beanchain/crypto"
	nativecommon "beanchain/native/common"
	"beanchain/native/season"
)

func TestSeasonStatusRoundTrip(t *testing.T) {
	mgr, _ := newTestManager(t)
	current, err := mgr.SeasonCurrent()
	require.NoError(t, err)
	require.Equal(t, uint64(1), current)

	status := &season.Status{Current: 7, GenesisTime: 1_700_000_000, Period: 3600, Raining: true, RainStart: 6}
	require.NoError(t, mgr.SeasonPutStatus(status))
	require.NoError(t, mgr.Commit())

	current, err = mgr.SeasonCurrent()
	require.NoError(t, err)
	require.Equal(t, uint64(7), current)
	loaded, err := mgr.SeasonGetStatus()
	require.NoError(t, err)
	require.Equal(t, status, loaded)
}

func TestFieldPlotIndexesStaySorted(t *testing.T) {
	mgr, _ := newTestManager(t)
	addr := crypto.BytesToAddress([]byte{0x01})
	for _, index := range []int64{500, 0, 250} {
		require.NoError(t, mgr.FieldPutPlot(addr, big.NewInt(index), big.NewInt(100)))
	}
	indexes, err := mgr.FieldPlotIndexes(addr)
	require.NoError(t, err)
	require.Len(t, indexes, 3)
	require.Equal(t, int64(0), indexes[0].Int64())
	require.Equal(t, int64(250), indexes[1].Int64())
	require.Equal(t, int64(500), indexes[2].Int64())

	require.NoError(t, mgr.FieldDeletePlot(addr, big.NewInt(250)))
	indexes, err = mgr.FieldPlotIndexes(addr)
	require.NoError(t, err)
	require.Len(t, indexes, 2)
	_, ok, err := mgr.FieldGetPlot(addr, big.NewInt(250))
	require.NoError(t, err)
	require.False(t, ok)
	pods, ok, err := mgr.FieldGetPlot(addr, big.NewInt(500))
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, int64(100), pods.Int64())
}

func TestConvertCapacityDefaultsToUnused(t *testing.T) {
	mgr, _ := newTestManager(t)
	usage, err := mgr.ConvertGetCapacity()
	require.NoError(t, err)
	require.Zero(t, usage.Season)

	require.NoError(t, mgr.ConvertPutCapacity(nativecommon.CapacityUsage{Season: 4, Used: big.NewInt(10)}))
	usage, err = mgr.ConvertGetCapacity()
	require.NoError(t, err)
	require.Equal(t, uint64(4), usage.Season)
	require.Equal(t, int64(10), usage.Used.Int64())
}
