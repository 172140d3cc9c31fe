package storage

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := NewStore(t.TempDir(), zerolog.Nop())
	require.NoError(t, err)
	return store
}

func TestLoadMissingSeriesIsEmpty(t *testing.T) {
	store := newTestStore(t)

	table := store.Load("never_written")
	require.True(t, table.Empty())
	require.Equal(t, DateColumn, table.KeyColumn)
}

func TestLoadCorruptFileDegradesToEmpty(t *testing.T) {
	store := newTestStore(t)
	path := filepath.Join(store.Dir(), "broken.csv")
	require.NoError(t, os.WriteFile(path, []byte("\"unterminated\nrate,5"), 0o644))

	table := store.Load("broken")
	require.True(t, table.Empty())
}

func TestAppendIsIdempotent(t *testing.T) {
	store := newTestStore(t)

	require.NoError(t, store.Append("sofr", NewRow("2026-08-27").SetFloat("rate", 4.31)))
	require.NoError(t, store.Append("sofr", NewRow("2026-08-27").SetFloat("rate", 9.99)))

	table := store.Load("sofr")
	require.Len(t, table.Rows, 1)

	value, ok := table.Rows[0].Get("rate")
	require.True(t, ok)
	require.True(t, value.Equal(decimal.NewFromFloat(4.31)), "original value must be retained, got %s", value)
}

func TestAppendKeepsRowsSortedByDate(t *testing.T) {
	store := newTestStore(t)

	for _, date := range []string{"2026-08-27", "2026-08-25", "2026-08-26"} {
		require.NoError(t, store.Append("sofr", NewRow(date).SetFloat("rate", 4.3)))
	}

	table := store.Load("sofr")
	require.Len(t, table.Rows, 3)
	for i := 1; i < len(table.Rows); i++ {
		require.Less(t, table.Rows[i-1].Key, table.Rows[i].Key)
	}
}

func TestAppendManyFiltersPersistedAndInBatchDuplicates(t *testing.T) {
	store := newTestStore(t)
	require.NoError(t, store.Append("fed_rates", NewRow("2026-08-25").SetFloat("rate", 4.33)))

	batch := []Row{
		NewRow("2026-08-25").SetFloat("rate", 8.88), // already persisted
		NewRow("2026-08-26").SetFloat("rate", 4.34),
		NewRow("2026-08-26").SetFloat("rate", 7.77), // duplicate within the batch
		NewRow("2026-08-27").SetFloat("rate", 4.35),
	}
	require.NoError(t, store.AppendMany("fed_rates", batch))

	table := store.Load("fed_rates")
	require.Len(t, table.Rows, 3)

	first, _ := table.Rows[0].Get("rate")
	require.True(t, first.Equal(decimal.NewFromFloat(4.33)))

	second, _ := table.Rows[1].Get("rate")
	require.True(t, second.Equal(decimal.NewFromFloat(4.34)), "first occurrence in batch must win")
}

func TestAppendManyEmptyBatchIsNoop(t *testing.T) {
	store := newTestStore(t)
	require.NoError(t, store.AppendMany("sofr", nil))
	require.NoFileExists(t, filepath.Join(store.Dir(), "sofr.csv"))
}

func TestUpsertByKeyPreservesUnspecifiedFields(t *testing.T) {
	store := newTestStore(t)

	initial := NewRow("2026-02").SetFloat("bonus_rate", 3).SetFloat("min_balance", 9)
	require.NoError(t, store.UpsertByKey("esaver_history", PromoMonthColumn, initial))

	update := NewRow("2026-02").SetFloat("bonus_rate", 5)
	require.NoError(t, store.UpsertByKey("esaver_history", PromoMonthColumn, update))

	table := store.Load("esaver_history")
	require.Len(t, table.Rows, 1)

	bonus, ok := table.Rows[0].Get("bonus_rate")
	require.True(t, ok)
	require.True(t, bonus.Equal(decimal.NewFromInt(5)))

	balance, ok := table.Rows[0].Get("min_balance")
	require.True(t, ok, "field absent from the update must be untouched")
	require.True(t, balance.Equal(decimal.NewFromInt(9)))
}

func TestUpsertByKeySortsByPromoMonth(t *testing.T) {
	store := newTestStore(t)

	require.NoError(t, store.UpsertByKey("esaver_history", PromoMonthColumn, NewRow("2026-03").SetFloat("bonus_rate", 2)))
	require.NoError(t, store.UpsertByKey("esaver_history", PromoMonthColumn, NewRow("2026-01").SetFloat("bonus_rate", 1)))

	table := store.Load("esaver_history")
	require.Equal(t, PromoMonthColumn, table.KeyColumn)
	require.Equal(t, "2026-01", table.Rows[0].Key)
	require.Equal(t, "2026-03", table.Rows[1].Key)
}

func TestColumnRegistryGrowsAcrossAppends(t *testing.T) {
	store := newTestStore(t)

	require.NoError(t, store.Append("hibor_daily", NewRow("2026-08-25").SetFloat("1 Month", 3.1)))
	require.NoError(t, store.Append("hibor_daily", NewRow("2026-08-26").SetFloat("1 Month", 3.2).SetFloat("3 Months", 3.4)))

	table := store.Load("hibor_daily")
	require.Equal(t, []string{"1 Month", "3 Months"}, table.Columns)

	// The historical row lacks the newer column: null, not zero.
	_, ok := table.Rows[0].Get("3 Months")
	require.False(t, ok)

	later, ok := table.Rows[1].Get("3 Months")
	require.True(t, ok)
	require.True(t, later.Equal(decimal.NewFromFloat(3.4)))
}

func TestLoadFileWithoutKeyColumn(t *testing.T) {
	store := newTestStore(t)
	path := filepath.Join(store.Dir(), "odd.csv")
	require.NoError(t, os.WriteFile(path, []byte("rate,spread\n1.0,2.0\n"), 0o644))

	table := store.Load("odd")
	require.True(t, table.Empty())
}

func TestUnparseableCellLoadsAsNull(t *testing.T) {
	store := newTestStore(t)
	path := filepath.Join(store.Dir(), "sofr.csv")
	require.NoError(t, os.WriteFile(path, []byte("date,rate\n2026-08-25,not-a-number\n2026-08-26,4.3\n"), 0o644))

	table := store.Load("sofr")
	require.Len(t, table.Rows, 2)
	_, ok := table.Rows[0].Get("rate")
	require.False(t, ok)
}
