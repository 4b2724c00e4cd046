// Package engine orchestrates the full SAIQL pipeline: firewall guards,
// session tracking, result caching, compilation (lex -> parse -> semantic
// analysis -> optimize -> codegen), and adapter dispatch.
package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/saiql-project/saiql-go/internal/logging"
	"github.com/saiql-project/saiql-go/pkg/adapter"
	"github.com/saiql-project/saiql-go/pkg/cache"
	"github.com/saiql-project/saiql-go/pkg/codegen"
	"github.com/saiql-project/saiql-go/pkg/dialect"
	"github.com/saiql-project/saiql-go/pkg/firewall"
	"github.com/saiql-project/saiql-go/pkg/legend"
	"github.com/saiql-project/saiql-go/pkg/lexer"
	"github.com/saiql-project/saiql-go/pkg/optimizer"
	"github.com/saiql-project/saiql-go/pkg/parser"
	"github.com/saiql-project/saiql-go/pkg/safety"
	"github.com/saiql-project/saiql-go/pkg/saiqlerr"
	"github.com/saiql-project/saiql-go/pkg/semantic"
	"github.com/saiql-project/saiql-go/pkg/session"
)

// ExecutionContext carries the per-call parameters that shape one
// Execute, mirroring the spec's ExecutionContext type.
type ExecutionContext struct {
	SessionID      string
	UserID         string
	BackendID      string
	Debug          bool
	TimeoutSeconds int
}

// QueryResult is the full report of one Execute call.
type QueryResult struct {
	Success      bool
	Data         []adapter.Row
	Query        string
	SQLGenerated string
	RowsAffected int64

	SessionID string
	CacheHit  bool

	ExecutionTime   time.Duration
	LexingTime      time.Duration
	ParsingTime     time.Duration
	CompilationTime time.Duration
	DatabaseTime    time.Duration

	OptimizationsApplied []string
	ComplexityScore      int
	TargetDialect        string
	Warnings             []string

	ErrorMessage string
	ErrorPhase   string
	Metadata     map[string]any
}

// Stats summarizes cumulative engine activity.
type Stats struct {
	QueriesExecuted    int64
	SuccessfulQueries  int64
	FailedQueries      int64
	CacheHits          int64
	TotalExecutionTime time.Duration
	UptimeSeconds      float64
}

// Options configures a new Engine. Adapters maps backend id to a live
// adapter.Adapter; DefaultBackend selects which one Execute dispatches to
// when ExecutionContext.BackendID is empty.
type Options struct {
	Legend            *legend.Legend
	Dialect           string
	OptimizationLevel optimizer.Level
	TableStats        optimizer.TableStats
	EnableCaching     bool
	CacheSize         int
	SafetyPolicy      *safety.Policy
	Firewall          *firewall.Firewall
	Adapters          map[string]adapter.Adapter
	DefaultBackend    string
	Logger            *logrus.Logger
}

// Engine is the top-level orchestrator wrapping the firewall, safety
// policy, cache, session manager, and compiler pipeline around a set of
// pluggable storage adapters.
type Engine struct {
	legend            *legend.Legend
	dialectName       string
	optimizationLevel optimizer.Level
	tableStats        optimizer.TableStats
	enableCaching     bool

	safetyPolicy *safety.Policy
	firewall     *firewall.Firewall
	sessions     *session.Manager
	cache        *cache.Cache
	opt          *optimizer.Optimizer

	adapters       map[string]adapter.Adapter
	defaultBackend string
	log            *logrus.Logger

	mu        sync.Mutex
	stats     Stats
	startTime time.Time
}

// New constructs an Engine from opts, supplying defaults for these
// zero-valued fields: sqlite dialect, a 1000-entry cache, a permissive
// development safety policy, an empty - but fail-closed until loaded -
// firewall, and an info-level logger. Other fields are used as given; a
// zero OptimizationLevel is LevelNone and a false EnableCaching disables
// the cache.
func New(opts Options) *Engine {
	fw := opts.Firewall
	if fw == nil {
		fw = firewall.New()
	}
	policy := opts.SafetyPolicy
	if policy == nil {
		d := safety.Development()
		policy = &d
	}
	dialectName := opts.Dialect
	if dialectName == "" {
		dialectName = "sqlite"
	}
	log := opts.Logger
	if log == nil {
		log = logging.New("info")
	}

	return &Engine{
		legend:             opts.Legend,
		dialectName:        dialectName,
		optimizationLevel:  opts.OptimizationLevel,
		tableStats:         opts.TableStats,
		enableCaching:      opts.EnableCaching,
		safetyPolicy:       policy,
		firewall:           fw,
		sessions:           session.NewManager(),
		cache:              cache.New(opts.CacheSize),
		opt:                optimizer.New(),
		adapters:           opts.Adapters,
		defaultBackend:     opts.DefaultBackend,
		log:                log,
		startTime:          time.Now(),
	}
}

// Execute runs one SAIQL query end to end: firewall pre-check, session
// bookkeeping, cache lookup, the compile pipeline, adapter dispatch, and
// a firewall post-check over the returned rows.
func (e *Engine) Execute(ctx context.Context, query string, execCtx ExecutionContext) QueryResult {
	start := time.Now()
	result := QueryResult{Query: query, Metadata: map[string]any{}}

	sessionID := e.ensureSession(execCtx)
	result.SessionID = sessionID
	traceID := uuid.NewString()
	result.Metadata["trace_id"] = traceID
	entry := logging.WithTrace(e.log, traceID, sessionID, cache.Fingerprint(query, "", "", "", "")[:12])
	entry.Debug("query received")

	decision := e.firewall.PrePromptGuard(query)
	if decision.Action == firewall.ActionBlock {
		result.ErrorMessage = fmt.Sprintf("firewall blocked query: %v", decision.Reasons)
		result.ErrorPhase = "security_guard"
		result.Metadata["firewall_decision"] = "BLOCK"
		e.recordOutcome(false, time.Since(start))
		entry.WithField("reasons", decision.Reasons).Warn("query blocked by firewall")
		return result
	}

	e.mu.Lock()
	e.stats.QueriesExecuted++
	e.mu.Unlock()

	backendID := execCtx.BackendID
	if backendID == "" {
		backendID = e.defaultBackend
	}

	cacheKey := ""
	if e.enableCaching {
		cacheKey = cache.Fingerprint(query, e.dialectName, e.optimizationLevel.String(), backendID, execCtx.UserID)
		if cached, ok := e.cache.Get(cacheKey); ok {
			cr := cached.(QueryResult)
			cr.CacheHit = true
			cr.SessionID = sessionID
			cr.ExecutionTime = time.Since(start)
			cr.Metadata = cloneMetadata(cr.Metadata)
			cr.Metadata["trace_id"] = uuid.NewString()
			cr.Data = append([]adapter.Row(nil), cr.Data...)
			e.mu.Lock()
			e.stats.CacheHits++
			e.stats.SuccessfulQueries++
			e.mu.Unlock()
			entry.Debug("query served from cache")
			return cr
		}
	}

	e.runPipeline(ctx, query, execCtx, backendID, &result)

	e.recordOutcome(result.Success, time.Since(start))
	result.ExecutionTime = time.Since(start)

	e.sessions.RecordQuery(sessionID, result.ExecutionTime)

	if len(result.Data) > 0 {
		e.applyOutputGuard(&result)
	}

	if e.enableCaching && result.Success && cacheKey != "" {
		e.cache.Put(cacheKey, result)
	}

	if result.Success {
		entry.WithField("rows_affected", result.RowsAffected).Debug("query completed")
	} else {
		entry.WithFields(logrus.Fields{"phase": result.ErrorPhase, "error": result.ErrorMessage}).Warn("query failed")
	}

	return result
}

func (e *Engine) ensureSession(execCtx ExecutionContext) string {
	if execCtx.SessionID != "" {
		if _, ok := e.sessions.Get(execCtx.SessionID); ok {
			return execCtx.SessionID
		}
	}
	s := e.sessions.Create(session.Context{UserID: execCtx.UserID, Debug: execCtx.Debug, TimeoutSec: execCtx.TimeoutSeconds})
	return s.ID
}

func (e *Engine) recordOutcome(success bool, elapsed time.Duration) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if success {
		e.stats.SuccessfulQueries++
	} else {
		e.stats.FailedQueries++
	}
	e.stats.TotalExecutionTime += elapsed
}

func cloneMetadata(m map[string]any) map[string]any {
	cp := make(map[string]any, len(m))
	for k, v := range m {
		cp[k] = v
	}
	return cp
}

func (e *Engine) applyOutputGuard(result *QueryResult) {
	serialized, err := json.Marshal(result.Data)
	if err != nil {
		serialized = []byte("[]")
	}
	decision := e.firewall.PostOutputGuard(string(serialized))
	switch decision.Action {
	case firewall.ActionBlock:
		result.Data = nil
		result.Metadata["firewall_decision"] = "BLOCK"
		result.Metadata["block_reasons"] = decision.Reasons
	case firewall.ActionRedact:
		var redacted []adapter.Row
		if err := json.Unmarshal([]byte(decision.ModifiedText), &redacted); err != nil {
			redacted = nil
		}
		result.Data = redacted
		result.Metadata["firewall_decision"] = "REDACT"
		result.Metadata["redactions"] = decision.Reasons
	}
}

// runPipeline drives lex -> parse -> semantic -> safety -> optimize ->
// codegen -> adapter dispatch, writing every phase timing and any error
// straight into result.
func (e *Engine) runPipeline(ctx context.Context, query string, execCtx ExecutionContext, backendID string, result *QueryResult) {
	lexStart := time.Now()
	tokens, err := lexer.Tokenize(query, e.legend, lexer.Options{})
	result.LexingTime = time.Since(lexStart)
	if err != nil {
		e.fail(result, err, "lexical_analysis")
		return
	}

	parseStart := time.Now()
	q, err := parser.New(tokens).ParseQuery()
	result.ParsingTime = time.Since(parseStart)
	if err != nil {
		e.fail(result, err, "parsing")
		return
	}

	analysis := semantic.New(e.legend).Analyze(q)
	for _, w := range analysis.Warnings {
		result.Warnings = append(result.Warnings, w.String())
	}
	if !analysis.OK() {
		msgs := make([]string, len(analysis.Errors))
		for i, d := range analysis.Errors {
			msgs[i] = d.String()
		}
		e.fail(result, saiqlerr.NewCompilationError(fmt.Sprintf("%v", msgs), nil), "semantic_analysis")
		return
	}

	if err := e.safetyPolicy.Validate(q); err != nil {
		e.fail(result, err, "security_guard")
		return
	}

	compileStart := time.Now()
	report := e.opt.Optimize(q, e.optimizationLevel, e.tableStats)
	sql, err := codegen.New(dialect.GetDialect(e.dialectName)).Generate(q)
	result.CompilationTime = time.Since(compileStart)
	if err != nil {
		e.fail(result, err, "code_generation")
		return
	}
	result.SQLGenerated = sql
	result.OptimizationsApplied = report.AppliedTransforms
	result.ComplexityScore = report.OptimizedNodeCount
	result.TargetDialect = e.dialectName

	a, ok := e.adapters[backendID]
	if !ok {
		e.fail(result, saiqlerr.NewStorageError("no adapter registered for backend "+backendID, nil), "database_execution")
		return
	}

	dbStart := time.Now()
	execRes, err := a.Execute(ctx, sql)
	result.DatabaseTime = time.Since(dbStart)
	if err != nil {
		e.fail(result, saiqlerr.NewStorageError(err.Error(), err), "database_execution")
		return
	}
	if !execRes.Success {
		e.fail(result, saiqlerr.NewStorageError(execRes.Error, nil), "database_execution")
		return
	}

	result.Success = true
	result.Data = execRes.Rows
	result.RowsAffected = execRes.RowsAffected
}

func (e *Engine) fail(result *QueryResult, err error, phase string) {
	result.Success = false
	result.ErrorMessage = err.Error()
	result.ErrorPhase = phase
	if se, ok := saiqlerr.As(err); ok {
		result.Metadata["error_code"] = string(se.Code)
	}
}

// ExecuteBatch runs queries in order against the same session, stopping
// at the first failure only if stopOnError is set; otherwise it runs
// every query and returns every result.
func (e *Engine) ExecuteBatch(ctx context.Context, queries []string, execCtx ExecutionContext, stopOnError bool) []QueryResult {
	results := make([]QueryResult, 0, len(queries))
	for _, q := range queries {
		r := e.Execute(ctx, q, execCtx)
		results = append(results, r)
		if stopOnError && !r.Success {
			break
		}
		if r.SessionID != "" {
			execCtx.SessionID = r.SessionID
		}
	}
	return results
}

// Stats returns a snapshot of cumulative engine activity.
func (e *Engine) Stats() Stats {
	e.mu.Lock()
	defer e.mu.Unlock()
	s := e.stats
	s.UptimeSeconds = time.Since(e.startTime).Seconds()
	return s
}

// CacheStats returns the query cache's hit/miss/eviction counters.
func (e *Engine) CacheStats() cache.Stats {
	return e.cache.Stats()
}

// Shutdown closes every registered adapter, returning the first Close
// error, and stops the session manager's reaper if one was started (the
// engine itself does not start one). Safe to call once at process exit.
func (e *Engine) Shutdown() error {
	var firstErr error
	for _, a := range e.adapters {
		if err := a.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	e.sessions.StopReaper()
	return firstErr
}
