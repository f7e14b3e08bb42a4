package identity_test

import (
	"crypto/ed25519"
	"encoding/base64"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/hyprcat/hyprcat/internal/identity"
)

func TestDidKeyChallengeVerifyFlow(t *testing.T) {
	pub, priv, err := ed25519.GenerateKey(nil)
	require.NoError(t, err)
	did := "did:key:" + base64.RawURLEncoding.EncodeToString(pub)

	svc := identity.NewService(time.Minute, time.Minute, "test-secret", true)

	ch, err := svc.IssueChallenge(did)
	require.NoError(t, err)

	sig := ed25519.Sign(priv, []byte(ch.Nonce))
	token, session, err := svc.VerifyChallenge(ch.Nonce, sig, "agent")
	require.NoError(t, err)
	require.Equal(t, did, session.DID)

	verified, err := svc.VerifySession(token)
	require.NoError(t, err)
	require.Equal(t, did, verified.DID)
}

func TestReplayedNonceRejected(t *testing.T) {
	pub, priv, err := ed25519.GenerateKey(nil)
	require.NoError(t, err)
	did := "did:key:" + base64.RawURLEncoding.EncodeToString(pub)

	svc := identity.NewService(time.Minute, time.Minute, "test-secret", true)
	ch, err := svc.IssueChallenge(did)
	require.NoError(t, err)

	sig := ed25519.Sign(priv, []byte(ch.Nonce))
	_, _, err = svc.VerifyChallenge(ch.Nonce, sig, "agent")
	require.NoError(t, err)

	_, _, err = svc.VerifyChallenge(ch.Nonce, sig, "agent")
	require.Error(t, err)
}

func TestSimVerifierRejectedInProduction(t *testing.T) {
	svc := identity.NewService(time.Minute, time.Minute, "test-secret", true)
	ch, err := svc.IssueChallenge("did:sim:agent-1")
	require.NoError(t, err)

	_, _, err = svc.VerifyChallenge(ch.Nonce, []byte("anything"), "agent")
	require.Error(t, err)
}
