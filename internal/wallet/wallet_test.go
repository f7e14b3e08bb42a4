package wallet_test

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/hyprcat/hyprcat/internal/wallet"
)

func TestCreditDebit(t *testing.T) {
	store := wallet.NewStore()
	store.Credit("did:key:alice", 1000, "USD")

	w, err := store.Debit("did:key:alice", 400)
	require.NoError(t, err)
	require.Equal(t, int64(600), w.Balance)

	_, err = store.Debit("did:key:alice", 10000)
	require.Error(t, err)
}

func TestConcurrentDebitsAreSerializedPerDID(t *testing.T) {
	store := wallet.NewStore()
	store.Credit("did:key:bob", 100, "USD")

	var wg sync.WaitGroup
	successes := make(chan bool, 20)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := store.Debit("did:key:bob", 10)
			successes <- err == nil
		}()
	}
	wg.Wait()
	close(successes)

	ok := 0
	for s := range successes {
		if s {
			ok++
		}
	}
	require.Equal(t, 10, ok)
	require.Equal(t, int64(0), store.Balance("did:key:bob"))
}
