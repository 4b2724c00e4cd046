// Package dialect describes the SQL-surface differences between backend
// targets: quoting, identifier limits, case sensitivity, and placeholder
// style. The code generator consults a Dialect to render portable AST
// shapes into a specific database's text; adapters never need to know
// about more than one.
package dialect

import "fmt"

// Name identifies a supported SQL dialect.
type Name string

const (
	SQLite   Name = "sqlite"
	Postgres Name = "postgres"
	MySQL    Name = "mysql"
)

// Placeholder selects how a dialect spells a bound-parameter marker.
type Placeholder int

const (
	// PlaceholderQuestion renders '?' for every parameter (SQLite, MySQL).
	PlaceholderQuestion Placeholder = iota
	// PlaceholderNumbered renders '$1', '$2', ... (PostgreSQL).
	PlaceholderNumbered
)

// Dialect captures one backend's SQL rendering rules. Case-insensitive
// identifier folding is handled by the caller (see NormalizeIdentifier);
// Dialect itself only reports the rule, it never mutates anything.
type Dialect struct {
	name Name

	quoteChar         byte
	maxIdentifierLen  int
	caseSensitive     bool
	placeholder       Placeholder
	supportsReturning bool
}

// GetDialect resolves a dialect by name. Unknown names fall back to
// SQLite, the most conservative target, matching the teacher parser's
// default-dialect convention (NewParser defaults to one named dialect
// rather than erroring).
func GetDialect(name string) Dialect {
	switch Name(name) {
	case Postgres:
		return postgres
	case MySQL:
		return mysql
	case SQLite:
		return sqlite
	default:
		return sqlite
	}
}

var sqlite = Dialect{
	name:              SQLite,
	quoteChar:         '"',
	maxIdentifierLen:  0, // SQLite imposes no hard limit
	caseSensitive:     false,
	placeholder:       PlaceholderQuestion,
	supportsReturning: true,
}

var postgres = Dialect{
	name:              Postgres,
	quoteChar:         '"',
	maxIdentifierLen:  63,
	caseSensitive:     false,
	placeholder:       PlaceholderNumbered,
	supportsReturning: true,
}

var mysql = Dialect{
	name:              MySQL,
	quoteChar:         '`',
	maxIdentifierLen:  64,
	caseSensitive:     false,
	placeholder:       PlaceholderQuestion,
	supportsReturning: false,
}

func (d Dialect) Name() Name                   { return d.name }
func (d Dialect) MaxIdentifierLength() int      { return d.maxIdentifierLen }
func (d Dialect) CaseSensitiveIdentifiers() bool { return d.caseSensitive }
func (d Dialect) SupportsReturning() bool       { return d.supportsReturning }

// QuoteIdentifier wraps name in this dialect's quote character, doubling
// any embedded quote char (the universal SQL escaping convention for
// quoted identifiers, shared by double-quote and backtick dialects
// alike).
func (d Dialect) QuoteIdentifier(name string) string {
	out := make([]byte, 0, len(name)+2)
	out = append(out, d.quoteChar)
	for i := 0; i < len(name); i++ {
		if name[i] == d.quoteChar {
			out = append(out, d.quoteChar)
		}
		out = append(out, name[i])
	}
	out = append(out, d.quoteChar)
	return string(out)
}

// PlaceholderAt returns the bound-parameter marker for the n-th parameter
// (1-indexed).
func (d Dialect) PlaceholderAt(n int) string {
	switch d.placeholder {
	case PlaceholderNumbered:
		return fmt.Sprintf("$%d", n)
	default:
		return "?"
	}
}

// NormalizeIdentifier folds name per this dialect's case-sensitivity rule.
// Every supported dialect currently folds unquoted identifiers to
// lowercase by default (see sqldef's NormalizeIdentifierName, which this
// mirrors); quoted identifiers are passed through untouched.
func (d Dialect) NormalizeIdentifier(name string, quoted bool) string {
	if quoted || d.caseSensitive {
		return name
	}
	return toLower(name)
}

func toLower(s string) string {
	b := []byte(s)
	for i, c := range b {
		if c >= 'A' && c <= 'Z' {
			b[i] = c + ('a' - 'A')
		}
	}
	return string(b)
}

// ExceedsIdentifierLimit reports whether name is too long for this
// dialect. A zero limit (SQLite) means unbounded.
func (d Dialect) ExceedsIdentifierLimit(name string) bool {
	return d.maxIdentifierLen > 0 && len(name) > d.maxIdentifierLen
}
