package cli

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/recallhq/recall/internal/config"
)

func envWithOwnerConfig(ownerID string) *env {
	return &env{cfg: &config.Config{Ingest: config.IngestConfig{OwnerID: ownerID}}}
}

func TestResolveOwnerFlagWins(t *testing.T) {
	flagOwner := uuid.New()
	e := envWithOwnerConfig(uuid.NewString())

	got, err := e.resolveOwner(flagOwner.String())
	require.NoError(t, err)
	assert.Equal(t, flagOwner, got)
}

func TestResolveOwnerFallsBackToConfig(t *testing.T) {
	cfgOwner := uuid.New()
	e := envWithOwnerConfig(cfgOwner.String())

	got, err := e.resolveOwner("")
	require.NoError(t, err)
	assert.Equal(t, cfgOwner, got)
}

func TestResolveOwnerMissing(t *testing.T) {
	e := envWithOwnerConfig("")

	_, err := e.resolveOwner("")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "INGEST_OWNER_ID")
}

func TestResolveOwnerMalformed(t *testing.T) {
	e := envWithOwnerConfig("")

	_, err := e.resolveOwner("not-a-uuid")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid owner id")
}
