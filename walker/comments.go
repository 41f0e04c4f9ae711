package walker

import (
	"fmt"
	"regexp"
	"strings"
)

var (
	// SplitterReg matches the statement markers pg_format -N writes.
	SplitterReg = regexp.MustCompile(`-- Statement # \d+\n(--[^\n]*\n)*`)
	// StatementEndReg splits unformatted scripts on a semicolon ending a line.
	StatementEndReg       = regexp.MustCompile(`;[ \t]*(\n|$)`)
	GeneratedReg          = regexp.MustCompile(`(?s)ADD GENERATED (BY DEFAULT|ALWAYS) AS IDENTITY \(.*\)`)
	CreateTableCommentReg = regexp.MustCompile(`\n\s*-- count:(0|[1-9]\d{0,6})\n`)
	alterOnlyReg          = regexp.MustCompile(`(?i)^ALTER TABLE ONLY `)
	leadingCommentReg     = regexp.MustCompile(`^(\s*--[^\n]*\n)*\s*`)
)

func GetColumnCommentReg(columnName string) *regexp.Regexp {
	name := regexp.QuoteMeta(columnName)
	return regexp.MustCompile(fmt.Sprintf(`\n\s*(%s|"%s")\s+[^\n\r]* --[ ]*(type:[^\n\r]*|oneof:[^\n\r]*|range:[^\n\r]*)\n`, name, name))
}

func GetNthGroup(s string, reg *regexp.Regexp, n int) string {
	for i, match := range reg.FindStringSubmatch(s) {
		if i == n {
			return match
		}
	}

	return ""
}

// Statement strips leading comments and whitespace, so the statement keyword
// can be checked.
func Statement(expr string) string {
	return alterOnlyReg.ReplaceAllString(leadingCommentReg.ReplaceAllString(expr, ""), "ALTER TABLE ")
}

// IsSchemaStatement reports whether stmt is one of the statements the walker
// understands.
func IsSchemaStatement(stmt string) bool {
	upper := strings.ToUpper(stmt)
	for _, prefix := range []string{"CREATE SCHEMA", "CREATE TABLE", "ALTER TABLE", "CREATE UNIQUE INDEX"} {
		if strings.HasPrefix(upper, prefix) {
			return true
		}
	}

	return false
}
