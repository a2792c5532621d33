package capflow

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStorePutGetRoundTrip(t *testing.T) {
	store := newTestStore(t)
	start := mustDate(t, "2026-01-01")
	emp, err := NewEmployee("Jane", start, 90000)
	require.NoError(t, err)

	require.NoError(t, store.Put("emp-1", emp))

	got, err := store.Get("emp-1")
	require.NoError(t, err)
	gotEmp, ok := got.(*Employee)
	require.True(t, ok)
	assert.Equal(t, "Jane", gotEmp.Name)
	assert.InDelta(t, 90000, gotEmp.Salary, 0.01)
}

func TestStoreGetMissingReturnsNotFound(t *testing.T) {
	store := newTestStore(t)
	_, err := store.Get("nope")
	require.Error(t, err)
	var domainErr DomainError
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, NotFound, domainErr.Kind)
}

func TestStoreDeleteRemovesFromIndexes(t *testing.T) {
	store := newTestStore(t)
	start := mustDate(t, "2026-01-01")
	sale, err := NewSale("Deal", start, 1000)
	require.NoError(t, err)
	require.NoError(t, store.Put("sale-1", sale))

	require.NoError(t, store.Delete("sale-1"))
	_, err = store.Get("sale-1")
	require.Error(t, err)
	assert.Empty(t, store.ByKind(KindSale))
}

func TestStoreByKindAndActiveAt(t *testing.T) {
	store := newTestStore(t)
	start := mustDate(t, "2026-01-01")
	end := mustDate(t, "2026-06-01")

	emp, err := NewEmployee("Active", start, 80000)
	require.NoError(t, err)
	require.NoError(t, store.Put("emp-active", emp))

	former, err := NewEmployee("Former", start, 80000)
	require.NoError(t, err)
	former.EndDate = &end
	require.NoError(t, store.Put("emp-former", former))

	assert.Len(t, store.ByKind(KindEmployee), 2)

	active := store.ActiveAt(mustDate(t, "2026-12-01"))
	require.Len(t, active, 1)
	assert.Equal(t, "Active", active[0].Base().Name)
}

func TestStoreWithTag(t *testing.T) {
	store := newTestStore(t)
	start := mustDate(t, "2026-01-01")
	facility, err := NewFacility("Lab", start, 5000)
	require.NoError(t, err)
	facility.Tags = []string{"core"}
	require.NoError(t, store.Put("fac-1", facility))

	tagged := store.WithTag("core")
	require.Len(t, tagged, 1)
	assert.Equal(t, "Lab", tagged[0].Base().Name)
	assert.Empty(t, store.WithTag("missing"))
}

func TestStoreReopenRebuildsIndexes(t *testing.T) {
	path := filepath.Join(t.TempDir(), "reopen.db")
	store, err := NewStore(path)
	require.NoError(t, err)

	start := mustDate(t, "2026-01-01")
	emp, err := NewEmployee("Persisted", start, 70000)
	require.NoError(t, err)
	require.NoError(t, store.Put("emp-1", emp))
	require.NoError(t, store.Close())

	reopened, err := NewStore(path)
	require.NoError(t, err)
	defer reopened.Close()

	got, err := reopened.Get("emp-1")
	require.NoError(t, err)
	assert.Equal(t, "Persisted", got.Base().Name)
	assert.Len(t, reopened.ByKind(KindEmployee), 1)
}

func TestStorePutRejectsInvalidEntity(t *testing.T) {
	store := newTestStore(t)
	bad := &Employee{EntityBase: EntityBase{Kind: KindEmployee, Name: "Bad"}, Salary: -5}
	err := store.Put("emp-bad", bad)
	require.Error(t, err)
}

func TestStoreExtrasRoundTripThroughPersistence(t *testing.T) {
	path := filepath.Join(t.TempDir(), "extras.db")
	store, err := NewStore(path)
	require.NoError(t, err)

	start := mustDate(t, "2026-01-01")
	emp, err := NewEmployee("Extra", start, 90000)
	require.NoError(t, err)
	emp.Extras = map[string]any{"favorite_snack": "pretzels", "headcount_note": 3}
	require.NoError(t, store.Put("emp-1", emp))
	require.NoError(t, store.Close())

	reopened, err := NewStore(path)
	require.NoError(t, err)
	defer reopened.Close()

	got, err := reopened.Get("emp-1")
	require.NoError(t, err)
	assert.Equal(t, "pretzels", got.Base().Extras["favorite_snack"])
}

func TestStoreAddRejectsDuplicateID(t *testing.T) {
	store := newTestStore(t)
	start := mustDate(t, "2026-01-01")
	emp, err := NewEmployee("First", start, 50000)
	require.NoError(t, err)
	require.NoError(t, store.Add("emp-1", emp))

	other, err := NewEmployee("Second", start, 60000)
	require.NoError(t, err)
	err = store.Add("emp-1", other)
	require.Error(t, err)
}

func TestStoreUpdateRejectsMissingID(t *testing.T) {
	store := newTestStore(t)
	start := mustDate(t, "2026-01-01")
	emp, err := NewEmployee("Ghost", start, 50000)
	require.NoError(t, err)
	err = store.Update("missing", emp)
	require.Error(t, err)
	var domainErr DomainError
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, NotFound, domainErr.Kind)
}

func TestStoreGetByNameFiltersByKind(t *testing.T) {
	store := newTestStore(t)
	start := mustDate(t, "2026-01-01")
	emp, err := NewEmployee("Ada", start, 90000)
	require.NoError(t, err)
	require.NoError(t, store.Put("emp-1", emp))

	got, err := store.GetByName("Ada", KindEmployee)
	require.NoError(t, err)
	assert.Equal(t, "Ada", got.Base().Name)

	_, err = store.GetByName("Ada", KindSale)
	require.Error(t, err)

	got, err = store.GetByName("Ada", "")
	require.NoError(t, err)
	assert.Equal(t, "Ada", got.Base().Name)
}

func TestStoreQueryFiltersByTypeActiveTagsAndName(t *testing.T) {
	store := newTestStore(t)
	start := mustDate(t, "2026-01-01")
	end := mustDate(t, "2026-03-01")

	core, err := NewEmployee("Core Engineer", start, 90000)
	require.NoError(t, err)
	core.Tags = []string{"core"}
	require.NoError(t, store.Put("emp-core", core))

	gone, err := NewEmployee("Departed Engineer", start, 90000)
	require.NoError(t, err)
	gone.EndDate = &end
	require.NoError(t, store.Put("emp-gone", gone))

	asOf := mustDate(t, "2026-06-01")
	results := store.Query(QueryFilter{Kind: KindEmployee, ActiveOn: &asOf, Tags: []string{"core"}, NameContains: "engineer"})
	require.Len(t, results, 1)
	assert.Equal(t, "Core Engineer", results[0].Base().Name)
}

func TestStoreMemoryVariantIsUsableAndCleansUpOnClose(t *testing.T) {
	store, err := NewStore(":memory:")
	require.NoError(t, err)

	start := mustDate(t, "2026-01-01")
	emp, err := NewEmployee("Scratch", start, 50000)
	require.NoError(t, err)
	require.NoError(t, store.Put("emp-1", emp))

	got, err := store.Get("emp-1")
	require.NoError(t, err)
	assert.Equal(t, "Scratch", got.Base().Name)
	require.NoError(t, store.Close())
}

func TestStoreSyncFromDirLoadsAndUpsertsEntities(t *testing.T) {
	dir := t.TempDir()
	writeYAML(t, dir, "sale.yaml", `
type: sale
name: Synced Sale
start_date: "2026-02-01"
amount: 2500
`)

	store := newTestStore(t)
	n, err := store.SyncFromDir(dir)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	got, err := store.GetByName("Synced Sale", KindSale)
	require.NoError(t, err)
	sale, ok := got.(*Sale)
	require.True(t, ok)
	assert.InDelta(t, 2500, sale.Amount, 0.01)
}
