package provenance

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestActivityRequiresCurrentEntity(t *testing.T) {
	c := NewChain("did:key:agent1")
	_, _, err := c.AddActivity("hyprcat:Fetch", "did:key:agent1", nil, "", nil)
	require.ErrorIs(t, err, ErrNoCurrentEntity)
}

func TestAddEntityThenActivityAdvancesCurrentEntity(t *testing.T) {
	c := NewChain("did:key:agent1")
	e1, err := c.AddEntity("hyprcat:Observation", map[string]interface{}{"url": "/catalog"})
	require.NoError(t, err)

	activity, generated, err := c.AddActivity("hyprcat:Purchase", "did:key:agent1", nil, "hyprcat:Receipt", map[string]interface{}{"amount": 500})
	require.NoError(t, err)
	require.Equal(t, e1.ID, activity.UsedEntity)
	require.NotNil(t, generated)

	snap := c.Snapshot()
	require.Equal(t, generated.ID, snap.CurrentEntity)
}

func TestSealedChainRejectsAppends(t *testing.T) {
	c := NewChain("did:key:agent1")
	_, err := c.AddEntity("hyprcat:Observation", nil)
	require.NoError(t, err)
	c.Seal()

	_, err = c.AddEntity("hyprcat:Observation", nil)
	require.ErrorIs(t, err, ErrChainSealed)
}

func TestChainVerifyDetectsTamperedHash(t *testing.T) {
	c := NewChain("did:key:agent1")
	e1, err := c.AddEntity("hyprcat:Observation", nil)
	require.NoError(t, err)
	_, _, err = c.AddActivity("hyprcat:Fetch", "did:key:agent1", nil, "", nil)
	require.NoError(t, err)

	require.NoError(t, c.Verify())

	e1.Hash = "tampered"
	require.Error(t, c.Verify())
}

func TestServiceHistoryOrderedByStart(t *testing.T) {
	s := NewService()
	chain1 := s.ChainFor("did:key:agent1")
	_, err := chain1.AddEntity("hyprcat:Observation", nil)
	require.NoError(t, err)
	s.Seal("did:key:agent1")

	chain2 := s.ChainFor("did:key:agent1")
	_, err = chain2.AddEntity("hyprcat:Observation", nil)
	require.NoError(t, err)

	history := s.HistoryOf("did:key:agent1")
	require.Len(t, history, 2)
	require.True(t, history[0].StartedAt.Before(history[1].StartedAt) || history[0].StartedAt.Equal(history[1].StartedAt))
}

func TestExportEncodings(t *testing.T) {
	c := NewChain("did:key:agent1")
	_, err := c.AddEntity("hyprcat:Observation", map[string]interface{}{"url": "/catalog"})
	require.NoError(t, err)
	_, _, err = c.AddActivity("hyprcat:Fetch", "did:key:agent1", nil, "hyprcat:Result", map[string]interface{}{"status": 200})
	require.NoError(t, err)

	snap := c.Snapshot()

	bundle := ExportLinkedData(snap)
	require.Equal(t, snap.ID, bundle.ID())
	require.True(t, bundle.HasType("prov:Bundle"))

	flat := ExportFlatSummary(snap)
	require.Len(t, flat, 3)
	require.Equal(t, "entity", flat[0].Kind)
	require.Equal(t, "activity", flat[1].Kind)
	require.Equal(t, "entity", flat[2].Kind)
}
