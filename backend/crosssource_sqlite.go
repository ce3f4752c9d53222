package backend

import (
	"database/sql"
	"fmt"
	"log"
	"strings"

	"upper.io/db.v3/sqlite"
)

// sqlbuilderQueryer is the slice of upper/db's session we need for raw
// schema-discovery queries.
type sqlbuilderQueryer interface {
	Query(query interface{}, args ...interface{}) (*sql.Rows, error)
}

// LoadSecondaryDB reads the cue-analysis tool's SQLite store into the same
// SecondaryRecord mapping the CSV loader produces. The schema is not ours, so
// the loader discovers it: every user table is scored by how path-like its
// columns look and the best-scoring table wins. A database with no usable
// path column returns ErrUnusableSecondary, degrading exactly like an
// unusable CSV.
func LoadSecondaryDB(dbPath string) (map[string]SecondaryRecord, error) {
	sess, err := sqlite.Open(sqlite.ConnectionURL{Database: dbPath})
	if err != nil {
		return nil, fmt.Errorf("open secondary database: %w", err)
	}
	defer sess.Close()

	tables, err := listTables(sess)
	if err != nil {
		return nil, fmt.Errorf("list secondary tables: %w", err)
	}

	bestTable := ""
	bestCols := []string(nil)
	bestScore := 0
	for _, table := range tables {
		cols, err := tableColumns(sess, table)
		if err != nil {
			continue
		}
		if score := scoreTableForPaths(cols); score > bestScore {
			bestTable, bestCols, bestScore = table, cols, score
		}
	}
	if bestTable == "" {
		return nil, ErrUnusableSecondary
	}

	pathCol := findColumn(bestCols, pathColumnCandidates)
	bpmCol := findColumn(bestCols, bpmColumnCandidates)
	keyCol := findColumn(bestCols, keyColumnCandidates)
	if pathCol < 0 {
		return nil, ErrUnusableSecondary
	}

	rows, err := sess.Query("SELECT * FROM " + quoteIdent(bestTable))
	if err != nil {
		return nil, fmt.Errorf("read secondary table %s: %w", bestTable, err)
	}
	defer rows.Close()

	records := make(map[string]SecondaryRecord)
	values := make([]interface{}, len(bestCols))
	holders := make([]interface{}, len(bestCols))
	for i := range values {
		holders[i] = &values[i]
	}
	for rows.Next() {
		if err := rows.Scan(holders...); err != nil {
			continue
		}
		cell := func(i int) string {
			if i < 0 || i >= len(values) {
				return ""
			}
			return stringifyDBValue(values[i])
		}
		path := NormalizeLocation(cell(pathCol))
		if path == "" {
			continue
		}
		raw := make(map[string]string, len(bestCols))
		for i, c := range bestCols {
			raw[c] = cell(i)
		}
		records[pathKey(path)] = SecondaryRecord{
			Path: path,
			BPM:  coerceFloat(cell(bpmCol)),
			Key:  cell(keyCol),
			Raw:  raw,
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("scan secondary table %s: %w", bestTable, err)
	}

	log.Printf("%s loaded %d rows from table %s of %s", crossSourceLogPrefix, len(records), bestTable, dbPath)
	return records, nil
}

func listTables(sess sqlbuilderQueryer) ([]string, error) {
	rows, err := sess.Query(`SELECT name FROM sqlite_master WHERE type = 'table' AND name NOT LIKE 'sqlite_%'`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tables []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		tables = append(tables, name)
	}
	return tables, rows.Err()
}

func tableColumns(sess sqlbuilderQueryer, table string) ([]string, error) {
	rows, err := sess.Query("SELECT * FROM " + quoteIdent(table) + " LIMIT 1")
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return rows.Columns()
}

// scoreTableForPaths rates a table's columns for path-likeness: exact
// candidate matches count more than substring hits, and tempo/key columns
// break ties in favor of the analysis table over incidental ones.
func scoreTableForPaths(cols []string) int {
	score := 0
	for _, c := range cols {
		lc := strings.ToLower(strings.TrimSpace(c))
		for _, cand := range pathColumnCandidates {
			if lc == cand {
				score += 3
			} else if strings.Contains(lc, cand) {
				score++
			}
		}
		for _, cand := range append(bpmColumnCandidates, keyColumnCandidates...) {
			if lc == cand {
				score++
			}
		}
	}
	return score
}

// quoteIdent wraps an identifier in double quotes for raw SQLite SQL.
func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

func stringifyDBValue(v interface{}) string {
	switch x := v.(type) {
	case nil:
		return ""
	case []byte:
		return strings.TrimSpace(string(x))
	case string:
		return strings.TrimSpace(x)
	default:
		return strings.TrimSpace(fmt.Sprint(x))
	}
}
