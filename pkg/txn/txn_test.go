package txn_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/saiql-project/saiql-go/pkg/txn"
)

func TestBeginTracksActiveTransaction(t *testing.T) {
	m := txn.NewManager()
	defer m.Stop()

	id := m.Begin(txn.Serializable)
	require.NotEmpty(t, id)
	require.Equal(t, 1, m.Stats().ActiveTransactions)
}

func TestExecuteReadThenCommitReleasesLocks(t *testing.T) {
	m := txn.NewManager()
	defer m.Stop()

	id := m.Begin(txn.ReadCommitted)
	ok := m.Execute(id, "READ", "users", nil)
	require.True(t, ok)
	require.Equal(t, 1, m.Stats().TotalLocks)

	require.True(t, m.Commit(id))
	require.Equal(t, 0, m.Stats().TotalLocks)
	require.Equal(t, 0, m.Stats().ActiveTransactions)
	require.Equal(t, int64(1), m.Stats().CommittedTransactions)
}

func TestAbortReleasesLocksWithoutCommitting(t *testing.T) {
	m := txn.NewManager()
	defer m.Stop()

	id := m.Begin(txn.ReadCommitted)
	require.True(t, m.Execute(id, "WRITE", "orders", nil))

	require.True(t, m.Abort(id))
	require.Equal(t, 0, m.Stats().TotalLocks)
	require.Equal(t, int64(1), m.Stats().AbortedTransactions)
}

func TestSharedLocksAreCompatibleAcrossTransactions(t *testing.T) {
	m := txn.NewManager()
	defer m.Stop()

	a := m.Begin(txn.ReadCommitted)
	b := m.Begin(txn.ReadCommitted)

	require.True(t, m.Execute(a, "READ", "users", nil))
	require.True(t, m.Execute(b, "READ", "users", nil))

	m.Commit(a)
	m.Commit(b)
}

func TestExclusiveLockBlocksConcurrentWriter(t *testing.T) {
	m := txn.NewManager()
	defer m.Stop()

	a := m.Begin(txn.ReadCommitted)
	b := m.Begin(txn.ReadCommitted)

	require.True(t, m.Execute(a, "WRITE", "orders", nil))

	done := make(chan bool, 1)
	go func() {
		done <- m.Execute(b, "WRITE", "orders", nil)
	}()

	select {
	case <-done:
		t.Fatal("second writer should not have acquired the lock while the first holds it")
	case <-time.After(100 * time.Millisecond):
	}

	m.Commit(a)

	select {
	case ok := <-done:
		require.True(t, ok)
	case <-time.After(2 * time.Second):
		t.Fatal("second writer never acquired the lock after the first committed")
	}

	m.Commit(b)
}

// An exclusive WRITE lock already excludes any concurrent READ on the same
// resource regardless of isolation level, so the dirty-read check inside
// checkIsolation only ever matters for isolation levels weaker than the
// locking scheme itself enforces. This test exercises that case: two reads
// of the same row are always compatible (shared locks), so the isolation
// check - not the lock - is what must allow it through for every level.
func TestReadCommittedAllowsConcurrentReads(t *testing.T) {
	m := txn.NewManager()
	defer m.Stop()

	a := m.Begin(txn.ReadCommitted)
	b := m.Begin(txn.ReadUncommitted)

	require.True(t, m.Execute(a, "READ", "ledger", nil))
	require.True(t, m.Execute(b, "READ", "ledger", nil))

	m.Commit(a)
	m.Commit(b)
}

func TestDeadlockDetectorFindsCycle(t *testing.T) {
	d := txn.NewDeadlockDetector(20 * time.Millisecond)
	d.AddWaitEdge("t1", "t2")
	d.AddWaitEdge("t2", "t1")

	cycle := d.DetectDeadlock()
	require.NotEmpty(t, cycle)
}

func TestDeadlockDetectorNoCycleWhenAcyclic(t *testing.T) {
	d := txn.NewDeadlockDetector(20 * time.Millisecond)
	d.AddWaitEdge("t1", "t2")
	d.AddWaitEdge("t2", "t3")

	require.Nil(t, d.DetectDeadlock())
}

func TestDeadlockBetweenTransactionsAbortsYoungest(t *testing.T) {
	m := txn.NewManager()
	defer m.Stop()

	a := m.Begin(txn.ReadCommitted)
	time.Sleep(5 * time.Millisecond)
	b := m.Begin(txn.ReadCommitted)

	require.True(t, m.Execute(a, "WRITE", "r1", nil))
	require.True(t, m.Execute(b, "WRITE", "r2", nil))

	errCh := make(chan struct{}, 2)
	go func() {
		if !m.Execute(a, "WRITE", "r2", nil) {
			errCh <- struct{}{}
		}
	}()
	go func() {
		if !m.Execute(b, "WRITE", "r1", nil) {
			errCh <- struct{}{}
		}
	}()

	select {
	case <-errCh:
	case <-time.After(5 * time.Second):
		t.Fatal("expected the deadlock detector to abort one of the two transactions")
	}

	stats := m.Stats()
	require.GreaterOrEqual(t, stats.DeadlocksDetected, int64(1))

	m.Abort(a)
	m.Abort(b)
}

func TestCleanupExpiredAbortsStaleTransactions(t *testing.T) {
	m := txn.NewManager()
	defer m.Stop()

	m.Begin(txn.ReadCommitted)
	time.Sleep(10 * time.Millisecond)

	removed := m.CleanupExpired(time.Millisecond)
	require.Equal(t, 1, removed)
	require.Equal(t, 0, m.Stats().ActiveTransactions)
}
