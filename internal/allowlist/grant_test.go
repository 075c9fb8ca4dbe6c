package allowlist

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGrant_JSONLayout(t *testing.T) {
	g := Grant{Source: "10.0.0.5", GrantedAt: time.UnixMilli(1700000000000), Duration: 24 * time.Hour}

	data, err := json.Marshal(g)
	require.NoError(t, err)
	assert.JSONEq(t, `{"ip":"10.0.0.5","added":1700000000000,"duration":86400000}`, string(data))

	var back Grant
	require.NoError(t, json.Unmarshal(data, &back))
	assert.Equal(t, g.Source, back.Source)
	assert.True(t, g.GrantedAt.Equal(back.GrantedAt))
	assert.Equal(t, g.Duration, back.Duration)
}

func TestGrant_Expired(t *testing.T) {
	g := Grant{Source: "10.0.0.5", GrantedAt: t0, Duration: time.Minute}

	assert.False(t, g.Expired(t0))
	assert.False(t, g.Expired(t0.Add(59*time.Second)))
	assert.True(t, g.Expired(t0.Add(time.Minute)))
	assert.Equal(t, "public/10.0.0.5", Pair{Zone: "public", Source: "10.0.0.5"}.String())
}
