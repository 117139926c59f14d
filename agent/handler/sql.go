package handler

import (
	"fmt"
	"regexp"
	"strings"
)

const noSQL = "NO_SQL"

var (
	sqlFencePattern = regexp.MustCompile("(?is)```sql\\s*(.*?)```")
	leadingKeyword  = regexp.MustCompile(`(?i)^\s*(select|with)\b`)
	writeKeywords   = regexp.MustCompile(`(?i)\b(insert|update|delete|drop|alter|create|truncate|attach|detach|pragma|vacuum|grant|revoke)\b`)
)

// CleanSQL extracts the statement from a model reply: a ```sql fence, a bare
// ``` fence, or a "SQL:" prefix.
func CleanSQL(reply string) string {
	sql := strings.TrimSpace(reply)
	if m := sqlFencePattern.FindStringSubmatch(sql); m != nil {
		return strings.TrimSpace(m[1])
	}
	if strings.HasPrefix(sql, "```") && strings.HasSuffix(sql, "```") && len(sql) >= 6 {
		return strings.TrimSpace(sql[3 : len(sql)-3])
	}
	if strings.HasPrefix(strings.ToUpper(sql), "SQL:") {
		return strings.TrimSpace(sql[4:])
	}
	return sql
}

// CheckReadOnly accepts a single SELECT or WITH statement.
func CheckReadOnly(sql string) error {
	stmt := strings.TrimSpace(sql)
	stmt = strings.TrimSuffix(stmt, ";")
	if stmt == "" {
		return fmt.Errorf("empty statement")
	}
	if strings.Contains(stmt, ";") {
		return fmt.Errorf("multiple statements are not allowed")
	}
	if !leadingKeyword.MatchString(stmt) {
		return fmt.Errorf("only SELECT statements are allowed")
	}
	if kw := writeKeywords.FindString(stmt); kw != "" {
		return fmt.Errorf("statement contains %s", strings.ToUpper(kw))
	}
	return nil
}
