package migration

import (
	"unicode/utf8"

	"golang.org/x/text/cases"
)

// reservedWords are identifiers that cannot be used unquoted as table or
// column names. The list is the intersection of words reserved by the SQL
// standard and by the engines the dialect package targets.
var reservedWords = []string{
	"ADD", "ALL", "ALTER", "AND", "ANY", "AS", "ASC", "AUTHORIZATION",
	"BETWEEN", "BOTH", "BY", "CASE", "CAST", "CHECK", "COLLATE", "COLUMN",
	"CONSTRAINT", "CREATE", "CROSS", "CURRENT_DATE", "CURRENT_TIME",
	"CURRENT_TIMESTAMP", "CURRENT_USER", "DEFAULT", "DELETE", "DESC",
	"DISTINCT", "DROP", "ELSE", "END", "EXCEPT", "EXISTS", "FALSE", "FETCH",
	"FOR", "FOREIGN", "FROM", "FULL", "GRANT", "GROUP", "HAVING", "IN",
	"INDEX", "INNER", "INSERT", "INTERSECT", "INTO", "IS", "JOIN", "KEY",
	"LEADING", "LEFT", "LIKE", "LIMIT", "NATURAL", "NOT", "NULL", "OFFSET",
	"ON", "OR", "ORDER", "OUTER", "PRIMARY", "REFERENCES", "RIGHT", "ROW",
	"ROWS", "SELECT", "SESSION_USER", "SET", "SOME", "TABLE", "THEN", "TO",
	"TRAILING", "TRUE", "UNION", "UNIQUE", "UPDATE", "USER", "USING",
	"VALUES", "WHEN", "WHERE", "WINDOW", "WITH",
}

// reserved is built once and only read afterwards.
var reserved = func() map[string]struct{} {
	fold := cases.Fold()
	m := make(map[string]struct{}, len(reservedWords))
	for _, w := range reservedWords {
		m[fold.String(w)] = struct{}{}
	}
	return m
}()

// IsReserved reports whether ident is a reserved word. The comparison is an
// ASCII case-insensitive match against the whole identifier; identifiers
// with non-ASCII characters are never reserved, so look-alikes such as
// "ſelect" (long s) or a Kelvin sign in place of K do not match.
func IsReserved(ident string) bool {
	for i := 0; i < len(ident); i++ {
		if ident[i] >= utf8.RuneSelf {
			return false
		}
	}
	// A Caser carries state; build one per call so IsReserved stays safe for
	// concurrent use.
	_, ok := reserved[cases.Fold().String(ident)]
	return ok
}

// ReservedWords returns a copy of the reserved word list.
func ReservedWords() []string {
	out := make([]string, len(reservedWords))
	copy(out, reservedWords)
	return out
}
