package allowlist

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var t0 = time.UnixMilli(1700000000000)

func TestTable_UpsertExpiryBoundary(t *testing.T) {
	tbl := NewTable(time.Hour)

	expiresAt, err := tbl.Upsert("public", "10.0.0.5", t0)
	require.NoError(t, err)
	assert.True(t, expiresAt.Equal(t0.Add(time.Hour)))

	assert.Empty(t, tbl.ListExpired(t0.Add(time.Hour-time.Millisecond)))
	assert.Equal(t, []Pair{{Zone: "public", Source: "10.0.0.5"}}, tbl.ListExpired(t0.Add(time.Hour)))
	assert.Equal(t, 1, tbl.Len(), "listing does not mutate")
}

func TestTable_DefaultDuration(t *testing.T) {
	tbl := NewTable(0)
	assert.Equal(t, DefaultDuration, tbl.Duration())

	expiresAt, err := tbl.Upsert("public", "10.0.0.5", t0)
	require.NoError(t, err)
	assert.True(t, expiresAt.Equal(t0.Add(24*time.Hour)))
}

func TestTable_UpsertReplacesAndResets(t *testing.T) {
	tbl := NewTable(time.Hour)

	first, err := tbl.Upsert("public", "10.0.0.5", t0)
	require.NoError(t, err)
	_, err = tbl.Upsert("public", "10.0.0.6", t0)
	require.NoError(t, err)
	second, err := tbl.Upsert("public", "10.0.0.5", t0.Add(10*time.Minute))
	require.NoError(t, err)

	assert.True(t, second.After(first))
	snap := tbl.Snapshot()
	require.Len(t, snap["public"], 2)
	assert.Equal(t, "10.0.0.6", snap["public"][0].Source)
	assert.Equal(t, "10.0.0.5", snap["public"][1].Source, "re-grant moves to the end")
}

func TestTable_UpsertTruncatesToMillis(t *testing.T) {
	tbl := NewTable(time.Hour)
	_, err := tbl.Upsert("public", "10.0.0.5", t0.Add(1234*time.Microsecond))
	require.NoError(t, err)

	g, ok := tbl.Get("public", "10.0.0.5")
	require.True(t, ok)
	assert.Equal(t, t0.UnixMilli()+1, g.GrantedAt.UnixMilli())
	assert.Zero(t, g.GrantedAt.Nanosecond()%int(time.Millisecond))
}

func TestTable_UpsertRejectsEmpty(t *testing.T) {
	tbl := NewTable(time.Hour)

	_, err := tbl.Upsert("", "10.0.0.5", t0)
	assert.ErrorIs(t, err, ErrInvalidArgument)
	_, err = tbl.Upsert("public", "", t0)
	assert.ErrorIs(t, err, ErrInvalidArgument)
	assert.Zero(t, tbl.Len())
}

func TestTable_RemoveIsIdempotent(t *testing.T) {
	tbl := NewTable(time.Hour)
	_, err := tbl.Upsert("public", "10.0.0.5", t0)
	require.NoError(t, err)

	assert.True(t, tbl.Remove("public", "10.0.0.5"))
	assert.False(t, tbl.Remove("public", "10.0.0.5"))
	assert.False(t, tbl.Remove("nozone", "10.0.0.5"))
	assert.Empty(t, tbl.Zones(), "empty zone is dropped")
}

func TestTable_ListExpiredOrder(t *testing.T) {
	tbl := NewTable(time.Minute)
	for _, p := range []Pair{{"work", "1.1.1.1"}, {"public", "2.2.2.2"}, {"public", "3.3.3.3"}} {
		_, err := tbl.Upsert(p.Zone, p.Source, t0)
		require.NoError(t, err)
	}

	got := tbl.ListExpired(t0.Add(time.Hour))
	assert.Equal(t, []Pair{
		{Zone: "public", Source: "2.2.2.2"},
		{Zone: "public", Source: "3.3.3.3"},
		{Zone: "work", Source: "1.1.1.1"},
	}, got)
	assert.Equal(t, []string{"public", "work"}, tbl.Zones())
	assert.Equal(t, map[string]int{"public": 2, "work": 1}, tbl.Counts())
}

func TestTable_SnapshotIsIndependent(t *testing.T) {
	tbl := NewTable(time.Hour)
	_, err := tbl.Upsert("public", "10.0.0.5", t0)
	require.NoError(t, err)

	snap := tbl.Snapshot()
	snap["public"][0].Source = "changed"
	snap["other"] = nil

	g, ok := tbl.Get("public", "10.0.0.5")
	assert.True(t, ok)
	assert.Equal(t, "10.0.0.5", g.Source)
	assert.Equal(t, []string{"public"}, tbl.Zones())
}

func TestTable_ReplaceDedupes(t *testing.T) {
	tbl := NewTable(time.Hour)
	tbl.Replace(Allowlist{
		"public": {
			{Source: "10.0.0.5", GrantedAt: t0, Duration: time.Hour},
			{Source: "10.0.0.6", GrantedAt: t0, Duration: time.Hour},
			{Source: "10.0.0.5", GrantedAt: t0.Add(time.Minute), Duration: time.Hour},
			{Source: "", GrantedAt: t0, Duration: time.Hour},
		},
		"empty": {},
		"":      {{Source: "10.0.0.7", GrantedAt: t0, Duration: time.Hour}},
	})

	assert.Equal(t, []string{"public"}, tbl.Zones())
	g, ok := tbl.Get("public", "10.0.0.5")
	require.True(t, ok)
	assert.True(t, g.GrantedAt.Equal(t0.Add(time.Minute)), "last occurrence wins")
	assert.Equal(t, 2, tbl.Len())
}
