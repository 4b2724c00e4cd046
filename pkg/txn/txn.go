// Package txn implements SAIQL's transaction manager and concurrency
// control: ACID transactions over isolation levels, a lock manager with a
// standard compatibility matrix, and a wait-for-graph deadlock detector
// that aborts the youngest transaction in any cycle it finds.
package txn

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/saiql-project/saiql-go/internal/logging"
)

// IsolationLevel is one of the four SQL standard isolation levels.
type IsolationLevel string

const (
	ReadUncommitted IsolationLevel = "READ_UNCOMMITTED"
	ReadCommitted   IsolationLevel = "READ_COMMITTED"
	RepeatableRead  IsolationLevel = "REPEATABLE_READ"
	Serializable    IsolationLevel = "SERIALIZABLE"
)

// State is a transaction's lifecycle stage.
type State string

const (
	StateActive     State = "ACTIVE"
	StatePreparing  State = "PREPARING"
	StatePrepared   State = "PREPARED"
	StateCommitting State = "COMMITTING"
	StateCommitted  State = "COMMITTED"
	StateAborting   State = "ABORTING"
	StateAborted    State = "ABORTED"
)

// LockMode is a lock's granularity, following the standard
// IS/IX/S/SIX/X hierarchy.
type LockMode string

const (
	IntentShared          LockMode = "IS"
	IntentExclusive       LockMode = "IX"
	Shared                LockMode = "S"
	SharedIntentExclusive LockMode = "SIX"
	Exclusive             LockMode = "X"
)

// Lock is one held lock on a resource.
type Lock struct {
	ResourceID    string
	Mode          LockMode
	TransactionID string
	AcquiredAt    time.Time
}

// Operation is one logged action within a transaction.
type Operation struct {
	Type      string // READ, WRITE, UPDATE, DELETE, INSERT
	Resource  string
	Data      any
	Timestamp time.Time
}

// Transaction is a single ACID transaction in flight.
type Transaction struct {
	ID             string
	IsolationLevel IsolationLevel
	StartTime      time.Time
	State          State

	Operations []Operation
	ReadSet    map[string]struct{}
	WriteSet   map[string]struct{}
	LocksHeld  map[string]struct{}
}

func newTransaction(id string, level IsolationLevel) *Transaction {
	return &Transaction{
		ID:             id,
		IsolationLevel: level,
		StartTime:      time.Now(),
		State:          StateActive,
		ReadSet:        map[string]struct{}{},
		WriteSet:       map[string]struct{}{},
		LocksHeld:      map[string]struct{}{},
	}
}

func (t *Transaction) addOperation(opType, resource string, data any) {
	t.Operations = append(t.Operations, Operation{
		Type: opType, Resource: resource, Data: data, Timestamp: time.Now(),
	})
	switch opType {
	case "READ":
		t.ReadSet[resource] = struct{}{}
	case "WRITE", "UPDATE", "DELETE", "INSERT":
		t.WriteSet[resource] = struct{}{}
	}
}

// compatible is the standard lock compatibility matrix: true means a
// holder of mode2 does not block a requester of mode1.
//
//	     IS    IX    S     SIX   X
//	IS   T     T     T     T     F
//	IX   T     T     F     F     F
//	S    T     F     T     F     F
//	SIX  T     F     F     F     F
//	X    F     F     F     F     F
var compatiblePairs = map[[2]LockMode]struct{}{
	{IntentShared, IntentShared}:                {},
	{IntentShared, IntentExclusive}:              {},
	{IntentShared, Shared}:                       {},
	{IntentShared, SharedIntentExclusive}:        {},
	{IntentExclusive, IntentShared}:              {},
	{IntentExclusive, IntentExclusive}:           {},
	{Shared, IntentShared}:                       {},
	{Shared, Shared}:                             {},
	{SharedIntentExclusive, IntentShared}:        {},
}

func compatible(requested, held LockMode) bool {
	_, ok := compatiblePairs[[2]LockMode{requested, held}]
	return ok
}

// DeadlockDetector maintains a wait-for graph (waiting tx -> blocking tx
// ids) and periodically scans it for cycles via DFS.
type DeadlockDetector struct {
	mu    sync.Mutex
	graph map[string]map[string]struct{}

	interval time.Duration
	stopCh   chan struct{}
	doneCh   chan struct{}
}

// NewDeadlockDetector constructs a detector that scans every interval
// once StartDetection is called.
func NewDeadlockDetector(interval time.Duration) *DeadlockDetector {
	return &DeadlockDetector{
		graph:    map[string]map[string]struct{}{},
		interval: interval,
	}
}

func (d *DeadlockDetector) AddWaitEdge(waiting, blocking string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.graph[waiting] == nil {
		d.graph[waiting] = map[string]struct{}{}
	}
	d.graph[waiting][blocking] = struct{}{}
}

func (d *DeadlockDetector) RemoveWaitEdge(waiting, blocking string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if edges, ok := d.graph[waiting]; ok {
		delete(edges, blocking)
	}
}

// ClearTransactionEdges removes every edge touching id, called on
// commit/abort.
func (d *DeadlockDetector) ClearTransactionEdges(id string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.graph, id)
	for waiting, edges := range d.graph {
		delete(edges, id)
		if len(edges) == 0 {
			delete(d.graph, waiting)
		}
	}
}

// DetectDeadlock snapshots the graph and runs DFS cycle detection,
// returning the first cycle found (as an ordered list of transaction ids
// ending back at the start node) or nil.
func (d *DeadlockDetector) DetectDeadlock() []string {
	d.mu.Lock()
	snapshot := make(map[string]map[string]struct{}, len(d.graph))
	for node, edges := range d.graph {
		cp := make(map[string]struct{}, len(edges))
		for e := range edges {
			cp[e] = struct{}{}
		}
		snapshot[node] = cp
	}
	d.mu.Unlock()

	visited := map[string]struct{}{}
	onStack := map[string]struct{}{}

	var dfs func(node string, path []string) []string
	dfs = func(node string, path []string) []string {
		if _, ok := onStack[node]; ok {
			for i, p := range path {
				if p == node {
					return append(append([]string{}, path[i:]...), node)
				}
			}
		}
		if _, ok := visited[node]; ok {
			return nil
		}
		visited[node] = struct{}{}
		onStack[node] = struct{}{}

		for neighbor := range snapshot[node] {
			if cycle := dfs(neighbor, append(path, node)); cycle != nil {
				return cycle
			}
		}
		delete(onStack, node)
		return nil
	}

	for node := range snapshot {
		if _, ok := visited[node]; !ok {
			if cycle := dfs(node, nil); cycle != nil {
				return cycle
			}
		}
	}
	return nil
}

// StartDetection runs DetectDeadlock on interval in a background
// goroutine, invoking callback on every cycle found, until StopDetection
// is called.
func (d *DeadlockDetector) StartDetection(callback func(cycle []string)) {
	d.stopCh = make(chan struct{})
	d.doneCh = make(chan struct{})

	go func() {
		defer close(d.doneCh)
		ticker := time.NewTicker(d.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if cycle := d.DetectDeadlock(); cycle != nil {
					callback(cycle)
				}
			case <-d.stopCh:
				return
			}
		}
	}()
}

// StopDetection signals the background scan to exit and waits for it.
func (d *DeadlockDetector) StopDetection() {
	if d.stopCh == nil {
		return
	}
	close(d.stopCh)
	<-d.doneCh
}

// LockManager grants and releases locks across resources, blocking
// acquirers behind incompatible holders and feeding a DeadlockDetector so
// cycles can be broken externally.
type LockManager struct {
	mu    sync.Mutex
	cond  *sync.Cond
	locks map[string][]Lock

	detector        *DeadlockDetector
	deadlockHandler func(cycle []string)
}

// NewLockManager constructs a LockManager with its own deadlock detector,
// scanning every detectionInterval.
func NewLockManager(detectionInterval time.Duration) *LockManager {
	lm := &LockManager{
		locks:    map[string][]Lock{},
		detector: NewDeadlockDetector(detectionInterval),
	}
	lm.cond = sync.NewCond(&lm.mu)
	lm.detector.StartDetection(lm.handleDeadlock)
	return lm
}

// SetDeadlockHandler registers the callback invoked with the cycle found,
// typically a *Manager's internal resolver.
func (lm *LockManager) SetDeadlockHandler(handler func(cycle []string)) {
	lm.mu.Lock()
	defer lm.mu.Unlock()
	lm.deadlockHandler = handler
}

func (lm *LockManager) handleDeadlock(cycle []string) {
	lm.mu.Lock()
	handler := lm.deadlockHandler
	lm.mu.Unlock()
	if handler != nil {
		handler(cycle)
	}
}

// ClearTransactionWaitEdges forwards to the detector.
func (lm *LockManager) ClearTransactionWaitEdges(transactionID string) {
	lm.detector.ClearTransactionEdges(transactionID)
}

// AcquireLock blocks until a mode lock on resourceID is granted to
// transactionID, timeout elapses (returning false), or the caller already
// holds a lock of the same mode (returned immediately, true). Waiting
// acquirers register wait-for edges against every current blocker so the
// detector can see the full dependency set, not just the first blocker.
func (lm *LockManager) AcquireLock(resourceID string, mode LockMode, transactionID string, timeout time.Duration) bool {
	deadline := time.Now().Add(timeout)
	blocking := map[string]struct{}{}

	lm.mu.Lock()
	defer lm.mu.Unlock()

	for {
		for _, existing := range lm.locks[resourceID] {
			if existing.TransactionID == transactionID && existing.Mode == mode {
				return true
			}
		}

		current := map[string]struct{}{}
		for _, existing := range lm.locks[resourceID] {
			if existing.TransactionID != transactionID && !compatible(mode, existing.Mode) {
				current[existing.TransactionID] = struct{}{}
			}
		}

		if len(current) == 0 {
			lm.locks[resourceID] = append(lm.locks[resourceID], Lock{
				ResourceID: resourceID, Mode: mode, TransactionID: transactionID, AcquiredAt: time.Now(),
			})
			for old := range blocking {
				lm.detector.RemoveWaitEdge(transactionID, old)
			}
			return true
		}

		for old := range blocking {
			if _, stillBlocking := current[old]; !stillBlocking {
				lm.detector.RemoveWaitEdge(transactionID, old)
			}
		}
		for newBlocker := range current {
			if _, already := blocking[newBlocker]; !already {
				lm.detector.AddWaitEdge(transactionID, newBlocker)
			}
		}
		blocking = current

		remaining := time.Until(deadline)
		if remaining <= 0 {
			for blocker := range blocking {
				lm.detector.RemoveWaitEdge(transactionID, blocker)
			}
			return false
		}

		wait := remaining
		if wait > 100*time.Millisecond {
			wait = 100 * time.Millisecond
		}
		lm.waitWithTimeout(wait)
	}
}

// waitWithTimeout wakes lm.cond.Wait up after at most d, without requiring
// the caller to juggle extra goroutines per call.
func (lm *LockManager) waitWithTimeout(d time.Duration) {
	woken := make(chan struct{})
	timer := time.AfterFunc(d, func() {
		lm.mu.Lock()
		close(woken)
		lm.cond.Broadcast()
		lm.mu.Unlock()
	})
	defer timer.Stop()

	select {
	case <-woken:
		return
	default:
		lm.cond.Wait()
	}
}

// ReleaseLock drops every lock transactionID holds on resourceID and
// wakes every waiter.
func (lm *LockManager) ReleaseLock(resourceID, transactionID string) {
	lm.mu.Lock()
	defer lm.mu.Unlock()

	kept := lm.locks[resourceID][:0]
	for _, l := range lm.locks[resourceID] {
		if l.TransactionID != transactionID {
			kept = append(kept, l)
		}
	}
	lm.locks[resourceID] = kept
	lm.cond.Broadcast()
}

// ReleaseAllLocks drops every lock transactionID holds across every
// resource.
func (lm *LockManager) ReleaseAllLocks(transactionID string) {
	lm.mu.Lock()
	defer lm.mu.Unlock()

	for resourceID, locks := range lm.locks {
		kept := locks[:0]
		for _, l := range locks {
			if l.TransactionID != transactionID {
				kept = append(kept, l)
			}
		}
		lm.locks[resourceID] = kept
	}
	lm.cond.Broadcast()
}

// TotalLocks counts every lock currently held across every resource.
func (lm *LockManager) TotalLocks() int {
	lm.mu.Lock()
	defer lm.mu.Unlock()
	n := 0
	for _, locks := range lm.locks {
		n += len(locks)
	}
	return n
}

// Stop shuts down the lock manager's background deadlock detector.
func (lm *LockManager) Stop() {
	lm.detector.StopDetection()
}

// Stats summarizes a Manager's cumulative activity.
type Stats struct {
	TotalTransactions     int64
	CommittedTransactions int64
	AbortedTransactions   int64
	DeadlocksDetected     int64
	AverageTransactionMS  float64
	ActiveTransactions    int
	TotalLocks            int
}

// Manager is the top-level transaction coordinator: begin/execute/
// commit/abort plus isolation-level enforcement and 2-phase commit.
type Manager struct {
	mu     sync.Mutex
	active map[string]*Transaction
	locks  *LockManager
	log    *logrus.Logger

	stats Stats
}

// NewManager constructs a Manager with its own LockManager, wiring the
// lock manager's deadlock callback back to this Manager's resolver.
func NewManager() *Manager {
	m := &Manager{
		active: map[string]*Transaction{},
		locks:  NewLockManager(time.Second),
		log:    logging.New("info"),
	}
	m.locks.SetDeadlockHandler(m.resolveDeadlock)
	return m
}

// resolveDeadlock aborts the youngest (most recently started) transaction
// in cycle, breaking it.
func (m *Manager) resolveDeadlock(cycle []string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.stats.DeadlocksDetected++

	var youngestID string
	var youngestStart time.Time
	for _, id := range cycle {
		tx, ok := m.active[id]
		if !ok {
			continue
		}
		if youngestID == "" || tx.StartTime.After(youngestStart) {
			youngestID = id
			youngestStart = tx.StartTime
		}
	}
	if youngestID != "" {
		m.log.WithFields(logrus.Fields{"cycle": cycle, "aborted": youngestID}).Warn("deadlock detected, aborting youngest transaction")
		m.abortLocked(youngestID)
	}
}

// Begin starts a new transaction at the given isolation level.
func (m *Manager) Begin(level IsolationLevel) string {
	m.mu.Lock()
	defer m.mu.Unlock()

	id := uuid.NewString()
	m.active[id] = newTransaction(id, level)
	m.stats.TotalTransactions++
	return id
}

// Execute runs one operation within transactionID: it acquires the
// appropriate lock (shared for READ, exclusive otherwise) outside the
// manager's own mutex so a slow lock wait never blocks a concurrent
// Commit/Abort, then re-validates the transaction is still active before
// recording the operation.
func (m *Manager) Execute(transactionID, opType, resource string, data any) bool {
	m.mu.Lock()
	tx, ok := m.active[transactionID]
	if !ok || tx.State != StateActive {
		m.mu.Unlock()
		return false
	}
	mode := Shared
	if opType != "READ" {
		mode = Exclusive
	}
	m.mu.Unlock()

	acquired := m.locks.AcquireLock(resource, mode, transactionID, 30*time.Second)

	m.mu.Lock()
	defer m.mu.Unlock()

	tx, ok = m.active[transactionID]
	if !ok || tx.State != StateActive {
		if acquired {
			m.locks.ReleaseLock(resource, transactionID)
		}
		return false
	}
	if !acquired {
		m.abortLocked(transactionID)
		return false
	}

	tx.LocksHeld[resource] = struct{}{}

	if !m.checkIsolation(tx, opType, resource) {
		m.locks.ReleaseLock(resource, transactionID)
		delete(tx.LocksHeld, resource)
		return false
	}

	tx.addOperation(opType, resource, data)
	return true
}

// checkIsolation enforces isolation-level constraints on a READ: under
// anything stronger than READ_UNCOMMITTED, a read is rejected if another
// active transaction has an uncommitted write on the same resource.
func (m *Manager) checkIsolation(tx *Transaction, opType, resource string) bool {
	if tx.IsolationLevel == ReadUncommitted {
		return true
	}
	if opType != "READ" {
		return true
	}
	for otherID, other := range m.active {
		if otherID == tx.ID {
			continue
		}
		if _, writing := other.WriteSet[resource]; writing && other.State == StateActive {
			return false
		}
	}
	return true
}

// Commit walks the 2-phase commit states (PREPARING, PREPARED,
// COMMITTING, COMMITTED) with no validation or apply step of its own,
// then releases the transaction's locks and wait-for edges.
func (m *Manager) Commit(transactionID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	tx, ok := m.active[transactionID]
	if !ok {
		return false
	}

	tx.State = StatePreparing
	tx.State = StatePrepared // validation is a no-op in this edition; see DESIGN.md
	tx.State = StateCommitting
	tx.State = StateCommitted

	m.stats.CommittedTransactions++
	elapsed := time.Since(tx.StartTime)
	m.updateAverage(elapsed)

	m.locks.ClearTransactionWaitEdges(transactionID)
	m.locks.ReleaseAllLocks(transactionID)
	delete(m.active, transactionID)
	return true
}

// Abort rolls back transactionID (rollback itself is delegated to the
// adapter's native transaction support; see DESIGN.md).
func (m *Manager) Abort(transactionID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.abortLocked(transactionID)
}

func (m *Manager) abortLocked(transactionID string) bool {
	tx, ok := m.active[transactionID]
	if !ok {
		return false
	}
	tx.State = StateAborting
	tx.State = StateAborted
	m.stats.AbortedTransactions++

	m.locks.ClearTransactionWaitEdges(transactionID)
	m.locks.ReleaseAllLocks(transactionID)
	delete(m.active, transactionID)
	return true
}

func (m *Manager) updateAverage(d time.Duration) {
	total := m.stats.TotalTransactions
	if total <= 0 {
		return
	}
	cur := m.stats.AverageTransactionMS
	newAvg := (cur*float64(total-1) + float64(d.Milliseconds())) / float64(total)
	m.stats.AverageTransactionMS = newAvg
}

// Stats returns a snapshot of cumulative manager activity.
func (m *Manager) Stats() Stats {
	m.mu.Lock()
	defer m.mu.Unlock()
	s := m.stats
	s.ActiveTransactions = len(m.active)
	s.TotalLocks = m.locks.TotalLocks()
	return s
}

// CleanupExpired aborts every active transaction older than maxAge,
// returning how many were aborted.
func (m *Manager) CleanupExpired(maxAge time.Duration) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	cutoff := time.Now().Add(-maxAge)
	var expired []string
	for id, tx := range m.active {
		if tx.State == StateActive && tx.StartTime.Before(cutoff) {
			expired = append(expired, id)
		}
	}
	for _, id := range expired {
		m.abortLocked(id)
	}
	if len(expired) > 0 {
		m.log.WithField("count", len(expired)).Info("aborted expired transactions")
	}
	return len(expired)
}

// Stop shuts down the manager's lock manager and its background deadlock
// detector.
func (m *Manager) Stop() {
	m.locks.Stop()
}
