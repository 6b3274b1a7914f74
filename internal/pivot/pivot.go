// Package pivot builds count crosstabs over filtered GST records.
package pivot

import (
	"slices"
	"sort"

	"github.com/sells-group/gst-filter/internal/model"
)

// Pair is one row of an exploded view: a row key and the column it counts under.
type Pair struct {
	Row    string
	Column string
}

// Row is one crosstab row. Counts align with Crosstab.Columns.
type Row struct {
	Key    string `json:"key" yaml:"key"`
	Counts []int  `json:"counts" yaml:"counts"`
}

// Total returns the sum of the row's counts.
func (r Row) Total() int {
	n := 0
	for _, c := range r.Counts {
		n += c
	}
	return n
}

// Crosstab is a zero-filled count table.
type Crosstab struct {
	Index   string   `json:"index" yaml:"index"`
	Columns []string `json:"columns" yaml:"columns"`
	Rows    []Row    `json:"rows" yaml:"rows"`
}

// Count returns the cell for (row, column), or 0 when either is absent.
func (c *Crosstab) Count(row, column string) int {
	ci := slices.Index(c.Columns, column)
	if ci < 0 {
		return 0
	}
	for _, r := range c.Rows {
		if r.Key == row {
			return r.Counts[ci]
		}
	}
	return 0
}

// Empty reports whether the table has no rows.
func (c *Crosstab) Empty() bool {
	return c == nil || len(c.Rows) == 0
}

// Build counts pairs into a crosstab.
//
// Columns are the distinct column values present in pairs, ordered by their
// position in columnOrder; values missing from columnOrder follow in
// lexical order. Every (row, column) cell is present, zero when no pair
// landed in it. Rows sort descending by their count tuple, compared column
// by column in lexical column order regardless of display order, with ties
// broken by ascending key. Pairs with an empty row key or column are ignored.
func Build(index string, pairs []Pair, columnOrder []string) *Crosstab {
	rank := make(map[string]int, len(columnOrder))
	for i, col := range columnOrder {
		if _, ok := rank[col]; !ok {
			rank[col] = i
		}
	}

	colSet := make(map[string]bool)
	rowSet := make(map[string]bool)
	for _, p := range pairs {
		if p.Row == "" || p.Column == "" {
			continue
		}
		colSet[p.Column] = true
		rowSet[p.Row] = true
	}

	columns := make([]string, 0, len(colSet))
	for col := range colSet {
		columns = append(columns, col)
	}
	sort.Slice(columns, func(i, j int) bool {
		ri, iok := rank[columns[i]]
		rj, jok := rank[columns[j]]
		switch {
		case iok && jok:
			return ri < rj
		case iok != jok:
			return iok
		default:
			return columns[i] < columns[j]
		}
	})
	colIdx := make(map[string]int, len(columns))
	for i, col := range columns {
		colIdx[col] = i
	}
	sortKey := make([]int, len(columns))
	for i := range sortKey {
		sortKey[i] = i
	}
	sort.Slice(sortKey, func(i, j int) bool { return columns[sortKey[i]] < columns[sortKey[j]] })

	rowIdx := make(map[string]int, len(rowSet))
	rows := make([]Row, 0, len(rowSet))
	for _, p := range pairs {
		if p.Row == "" || p.Column == "" {
			continue
		}
		i, ok := rowIdx[p.Row]
		if !ok {
			i = len(rows)
			rowIdx[p.Row] = i
			rows = append(rows, Row{Key: p.Row, Counts: make([]int, len(columns))})
		}
		rows[i].Counts[colIdx[p.Column]]++
	}

	sort.SliceStable(rows, func(i, j int) bool {
		if c := compareDesc(rows[i].Counts, rows[j].Counts, sortKey); c != 0 {
			return c < 0
		}
		return rows[i].Key < rows[j].Key
	})

	return &Crosstab{Index: index, Columns: columns, Rows: rows}
}

// compareDesc orders count tuples descending over the column indices in
// order: it is negative when a should sort before b.
func compareDesc(a, b []int, order []int) int {
	for _, k := range order {
		if a[k] != b[k] {
			if a[k] > b[k] {
				return -1
			}
			return 1
		}
	}
	return 0
}

// ExplodeHSN returns one (matched code, slab) pair per matched code per
// record. Records with no matched codes contribute nothing.
func ExplodeHSN(records []model.Record) []Pair {
	var pairs []Pair
	for _, r := range records {
		for _, code := range r.MatchedHSN {
			pairs = append(pairs, Pair{Row: code, Column: r.TurnoverSlab})
		}
	}
	return pairs
}

// ExplodeLocation returns (location, slab) pairs over the same exploded view
// as ExplodeHSN: a record contributes one pair per matched code. A record
// with no matched codes only survives filtering when no codes were
// requested, and then counts once.
func ExplodeLocation(records []model.Record, location func(model.Record) string) []Pair {
	var pairs []Pair
	for _, r := range records {
		key := location(r)
		n := len(r.MatchedHSN)
		if n == 0 {
			n = 1
		}
		for range n {
			pairs = append(pairs, Pair{Row: key, Column: r.TurnoverSlab})
		}
	}
	return pairs
}
