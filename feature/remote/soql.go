package remote

import (
	"sort"
	"strings"
	"time"

	"record-sync/core/reconcile"
)

const soqlTimeLayout = "2006-01-02T15:04:05.000Z"

func formatTime(t time.Time) string {
	return t.UTC().Format(soqlTimeLayout)
}

var soqlEscaper = strings.NewReplacer(`\`, `\\`, `'`, `\'`)

func quote(s string) string {
	return "'" + soqlEscaper.Replace(s) + "'"
}

// buildQuery renders q as a SOQL statement over recordType. The window is
// applied to the modstamp field as (After, Before].
func buildQuery(recordType string, fields []string, modstamp string, q reconcile.Query) string {
	var b strings.Builder
	b.WriteString("SELECT ")
	b.WriteString(strings.Join(fields, ", "))
	b.WriteString(" FROM ")
	b.WriteString(recordType)

	var where []string
	if !q.After.IsZero() {
		where = append(where, modstamp+" > "+formatTime(q.After))
	}
	if !q.Before.IsZero() {
		where = append(where, modstamp+" <= "+formatTime(q.Before))
	}
	for _, cond := range q.Conditions {
		if strings.TrimSpace(cond) != "" {
			where = append(where, "("+cond+")")
		}
	}
	keys := make([]string, 0, len(q.Match))
	for k := range q.Match {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		where = append(where, k+" = "+quote(q.Match[k]))
	}

	if len(where) > 0 {
		b.WriteString(" WHERE ")
		b.WriteString(strings.Join(where, " AND "))
	}
	b.WriteString(" ORDER BY ")
	b.WriteString(modstamp)
	b.WriteString(" ASC, Id ASC")
	return b.String()
}
