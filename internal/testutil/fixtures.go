// Package testutil holds fixtures shared by tests that drive the hello
// program end to end.
package testutil

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/roach88/eventprog/internal/hello"
	"github.com/roach88/eventprog/internal/ir"
	"github.com/roach88/eventprog/internal/program"
	"github.com/roach88/eventprog/internal/runtime"
	"github.com/roach88/eventprog/internal/store"
)

// HelloID is the default hello program address.
var HelloID = ir.MustPubkey(hello.DefaultProgramID)

// OpenStore opens the SQLite store at path and closes it at test cleanup.
func OpenStore(t testing.TB, path string) *store.Store {
	t.Helper()
	st, err := store.Open(path)
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })
	return st
}

// HelloRuntime returns a runtime hosting hello at HelloID. The slot clock
// resumes after the last transaction in st, or starts at 1 when st is nil.
func HelloRuntime(t testing.TB, st *store.Store, opts ...program.Option) *runtime.Runtime {
	t.Helper()
	var last int64
	if st != nil {
		var err error
		last, err = st.LastSlot(context.Background())
		require.NoError(t, err)
	}

	p, err := hello.New(HelloID, opts...)
	require.NoError(t, err)
	rt := runtime.New(runtime.WithClock(runtime.NewClockAt(last)))
	require.NoError(t, rt.Register(p))
	return rt
}

// SendEvent returns a send_event transaction from sender, signed by each
// of signers.
func SendEvent(t testing.TB, sender string, data uint8, title string, signers ...string) *runtime.Transaction {
	t.Helper()
	return sendEvent(t, 0, sender, data, title, signers...)
}

func sendEvent(t testing.TB, recentSlot int64, sender string, data uint8, title string, signers ...string) *runtime.Transaction {
	t.Helper()
	ix, err := hello.NewSendEventInstruction(HelloID, runtime.PubkeyOf(runtime.DeriveKey(sender)), data, title)
	require.NoError(t, err)
	tx := runtime.NewTransaction(ix)
	tx.RecentSlot = recentSlot
	for _, label := range signers {
		require.NoError(t, tx.Sign(runtime.DeriveKey(label)))
	}
	return tx
}

// Commit executes a send_event signed by label, with the runtime's current
// slot as RecentSlot, and requires it to commit.
func Commit(t testing.TB, rt *runtime.Runtime, label string, data uint8, title string) *runtime.Receipt {
	t.Helper()
	tx := sendEvent(t, rt.Clock().Current(), label, data, title, label)
	rcpt, err := rt.Execute(context.Background(), tx)
	require.NoError(t, err)
	require.NotNil(t, rcpt)
	return rcpt
}
