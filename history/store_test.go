package history

import (
	"context"
	"math/big"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/xitongsys/parquet-go-source/local"
	"github.com/xitongsys/parquet-go/reader"

	"beanchain/crypto"
	"beanchain/native/season"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open("sqlite", filepath.Join(t.TempDir(), "history.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func sampleReport(number uint64, minted int64) *season.Report {
	return &season.Report{
		Season:    number,
		Timestamp: time.Date(2024, 1, 1, int(number), 0, 0, 0, time.UTC),
		Caller:    crypto.BytesToAddress([]byte{0x0a}),
		Evaluation: season.Evaluation{
			DeltaB:  big.NewInt(minted),
			Price:   big.NewInt(1_010_000),
			PodRate: big.NewInt(0),
			L2SR:    big.NewInt(500_000_000_000_000_000),
			CaseID:  99,
		},
		Minted: big.NewInt(minted),
		Shipments: []season.ShipmentResult{
			{Route: season.RouteSilo, Offered: big.NewInt(minted / 2), Accepted: big.NewInt(minted / 2)},
			{Route: season.RouteField, Offered: big.NewInt(minted / 2), Accepted: big.NewInt(0)},
		},
		Soil:        big.NewInt(10),
		Temperature: big.NewInt(1_000_000),
		Incentive:   big.NewInt(5_000_000),
		StalkTotal:  big.NewInt(0),
		RootsTotal:  big.NewInt(0),
		EarnedBeans: big.NewInt(minted / 2),
		Digest:      "ab",
	}
}

func TestSaveReportIsIdempotent(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.SaveReport(ctx, sampleReport(2, 1000)))
	require.NoError(t, store.SaveReport(ctx, sampleReport(2, 5000)))

	record, err := store.Get(ctx, 2)
	require.NoError(t, err)
	require.Equal(t, "1000", record.Minted)
	require.Equal(t, 99, record.CaseID)
	require.Len(t, record.Shipments, 2)
	require.Empty(t, record.FloodAmount)

	_, err = store.Get(ctx, 3)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestLatestAndRange(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	for i := uint64(2); i <= 6; i++ {
		require.NoError(t, store.SaveReport(ctx, sampleReport(i, int64(i)*100)))
	}

	latest, err := store.Latest(ctx, 2)
	require.NoError(t, err)
	require.Len(t, latest, 2)
	require.Equal(t, uint64(6), latest[0].Season)
	require.Equal(t, uint64(5), latest[1].Season)

	window, err := store.Range(ctx, 3, 5)
	require.NoError(t, err)
	require.Len(t, window, 3)
	require.Equal(t, uint64(3), window[0].Season)

	open, err := store.Range(ctx, 4, 0)
	require.NoError(t, err)
	require.Len(t, open, 3)
}

func TestExportParquet(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	for i := uint64(2); i <= 4; i++ {
		require.NoError(t, store.SaveReport(ctx, sampleReport(i, 1000)))
	}

	path := filepath.Join(t.TempDir(), "seasons.parquet")
	n, err := store.ExportParquet(ctx, path, 3, 0)
	require.NoError(t, err)
	require.Equal(t, 2, n)

	fr, err := local.NewLocalFileReader(path)
	require.NoError(t, err)
	defer fr.Close()
	pr, err := reader.NewParquetReader(fr, new(parquetRow), 1)
	require.NoError(t, err)
	defer pr.ReadStop()
	require.Equal(t, int64(2), pr.GetNumRows())

	rows := make([]parquetRow, 2)
	require.NoError(t, pr.Read(&rows))
	require.Equal(t, int64(3), rows[0].Season)
	require.Equal(t, "500", rows[0].SiloBeans)
	require.Equal(t, "0", rows[0].FieldBeans)
	require.Equal(t, crypto.BytesToAddress([]byte{0x0a}).String(), rows[0].Caller)
	require.Equal(t, "2024-01-01T03:00:00Z", rows[0].Timestamp)
	require.Equal(t, "ab", rows[1].Digest)
}

func TestOpenRejectsUnknownDriver(t *testing.T) {
	_, err := Open("mysql", "dsn")
	require.Error(t, err)
	_, err = Open("sqlite", " ")
	require.Error(t, err)
}
