// Package ast defines the SAIQL abstract syntax tree: a closed, tagged
// variant over node kinds. Every node carries its source position and an
// open-ended metadata map, but the set of node kinds itself is fixed so
// every pass can exhaustively switch over it.
package ast

import (
	"fmt"

	"github.com/saiql-project/saiql-go/pkg/token"
)

// Node is implemented by every concrete AST node. Ownership of a Node tree
// is strictly tree-shaped: a node is constructed once during parsing and,
// between parse and codegen, mutated only by the optimizer.
type Node interface {
	Pos() token.Position
	Meta() *Metadata
	String() string
}

// Metadata is the typed answer to "dynamic tagging of nodes": known,
// frequently-annotated fields get names; anything else goes in Extra.
type Metadata struct {
	Position token.Position

	// RecommendedAlgorithm is set by the optimizer's join-hint pass.
	RecommendedAlgorithm string

	// Extra holds annotations with no dedicated field (kept open-ended so
	// later passes can attach data without changing every node's shape).
	Extra map[string]any
}

func (m *Metadata) Pos() token.Position { return m.Position }

func (m *Metadata) Set(key string, value any) {
	if m.Extra == nil {
		m.Extra = map[string]any{}
	}
	m.Extra[key] = value
}

func (m *Metadata) Get(key string) (any, bool) {
	if m.Extra == nil {
		return nil, false
	}
	v, ok := m.Extra[key]
	return v, ok
}

func newMeta(pos token.Position) Metadata {
	return Metadata{Position: pos}
}

// QueryKind classifies a QueryNode's top-level shape, used by the safety
// policy and the code generator alike.
type QueryKind string

const (
	KindSelect      QueryKind = "SELECT"
	KindJoin        QueryKind = "JOIN"
	KindAggregate   QueryKind = "AGGREGATE"
	KindUpdate      QueryKind = "UPDATE"
	KindDelete      QueryKind = "DELETE"
	KindInsert      QueryKind = "INSERT"
	KindSchema      QueryKind = "SCHEMA"
	KindTransaction QueryKind = "TRANSACTION"
	KindUnknown     QueryKind = "UNKNOWN"
)

// QueryNode is the root of every parsed SAIQL query.
type QueryNode struct {
	Metadata

	Kind       QueryKind
	Operation  Node // FunctionCallNode | JoinNode | SchemaNode | TransactionNode
	Target     *ContainerNode
	Columns    *ColumnListNode // the '::' projection list, nil if omitted
	Output     string          // output symbol, e.g. "oQ"
	Conditions []Node          // ordered list, source order preserved
}

func NewQueryNode(pos token.Position) *QueryNode {
	return &QueryNode{Metadata: newMeta(pos), Kind: KindUnknown}
}

func (q *QueryNode) Meta() *Metadata { return &q.Metadata }
func (q *QueryNode) String() string {
	return fmt.Sprintf("Query(%s)", q.Kind)
}

// FunctionCallNode represents an operation symbol applied to arguments,
// e.g. *3 (select), *COUNT (aggregate).
type FunctionCallNode struct {
	Metadata

	Symbol string // raw legend symbol lexeme, e.g. "*3", "*COUNT"
	Name   string // resolved semantic name, e.g. "SELECT", "COUNT"
	Args   []Node
}

func (f *FunctionCallNode) Meta() *Metadata { return &f.Metadata }
func (f *FunctionCallNode) String() string  { return fmt.Sprintf("FunctionCall(%s)", f.Symbol) }

// BinaryOpNode models a binary expression. When the optimizer's
// constant-folding pass succeeds on a purely-literal expression, Folded is
// set and FoldedValue holds the computed result, while Left/Right/Operator
// are left intact so a downstream pass may still treat the node as a binary
// op (see DESIGN.md's resolution of the "dual shape" open question).
type BinaryOpNode struct {
	Metadata

	Left     Node
	Operator string
	Right    Node

	Folded      bool
	FoldedValue any
}

func (b *BinaryOpNode) Meta() *Metadata { return &b.Metadata }
func (b *BinaryOpNode) String() string  { return fmt.Sprintf("BinaryOp(%s)", b.Operator) }

// ContainerNode holds an ordered, '+'-joined list of table references,
// i.e. a query's target: users+orders.
type ContainerNode struct {
	Metadata

	Tables []*TableRefNode
}

func (c *ContainerNode) Meta() *Metadata { return &c.Metadata }
func (c *ContainerNode) String() string  { return fmt.Sprintf("Container(%d tables)", len(c.Tables)) }

// TableRefNode names a table, optionally schema-qualified and aliased.
type TableRefNode struct {
	Metadata

	Schema string
	Name   string
	Alias  string
}

func (t *TableRefNode) Meta() *Metadata { return &t.Metadata }
func (t *TableRefNode) String() string {
	if t.Schema != "" {
		return fmt.Sprintf("%s.%s", t.Schema, t.Name)
	}
	return t.Name
}

// ColumnListNode is the coalesced, ordered output column list following
// '::'. Wildcard is true for a bare '*'.
type ColumnListNode struct {
	Metadata

	Wildcard bool
	Columns  []*ColumnRefNode
}

func (c *ColumnListNode) Meta() *Metadata { return &c.Metadata }
func (c *ColumnListNode) String() string {
	if c.Wildcard {
		return "ColumnList(*)"
	}
	return fmt.Sprintf("ColumnList(%d)", len(c.Columns))
}

// ColumnRefNode references a column, optionally table-qualified.
type ColumnRefNode struct {
	Metadata

	Table  string
	Column string
}

func (c *ColumnRefNode) Meta() *Metadata { return &c.Metadata }
func (c *ColumnRefNode) String() string {
	if c.Table != "" {
		return fmt.Sprintf("%s.%s", c.Table, c.Column)
	}
	return c.Column
}

// LiteralKind tags the concrete Go type held in a LiteralNode's Value.
type LiteralKind string

const (
	LiteralString LiteralKind = "string"
	LiteralInt    LiteralKind = "int"
	LiteralFloat  LiteralKind = "float"
	LiteralBool   LiteralKind = "bool"
	LiteralNull   LiteralKind = "null"
)

// LiteralNode is a typed literal value.
type LiteralNode struct {
	Metadata

	Kind  LiteralKind
	Value any
	Null  bool
}

func (l *LiteralNode) Meta() *Metadata { return &l.Metadata }
func (l *LiteralNode) String() string {
	if l.Null {
		return "NULL"
	}
	return fmt.Sprintf("%v", l.Value)
}

// JoinNode models a join between two table references.
type JoinNode struct {
	Metadata

	JoinKind  string // INNER, LEFT, RIGHT, FULL, CROSS, SELF, NATURAL, UNION
	Left      *TableRefNode
	Right     *TableRefNode
	Condition Node // nil yields the trivial true predicate
}

func (j *JoinNode) Meta() *Metadata { return &j.Metadata }
func (j *JoinNode) String() string  { return fmt.Sprintf("%s JOIN", j.JoinKind) }

// SchemaNode models a schema-definition operation (e.g. '@' family).
type SchemaNode struct {
	Metadata

	Op     string
	Target *TableRefNode
	Details map[string]any
}

func (s *SchemaNode) Meta() *Metadata { return &s.Metadata }
func (s *SchemaNode) String() string  { return fmt.Sprintf("Schema(%s)", s.Op) }

// TransactionNode models a transaction-control operation ('$' family).
type TransactionNode struct {
	Metadata

	Op string // legend semantic, e.g. "begin", "commit", "rollback"; the raw lexeme if the legend has none
}

func (t *TransactionNode) Meta() *Metadata { return &t.Metadata }
func (t *TransactionNode) String() string  { return fmt.Sprintf("Transaction(%s)", t.Op) }
