package bridge

import "github.com/RayforceDB/raylens/materialize"

// Row is one projected result row: column or field name to converted value.
type Row = materialize.Row

// Meta describes a stored query result. Produced once per successful
// Execute; the data itself stays engine-side behind Handle and is fetched
// in windows with FetchRows.
type Meta struct {
	Handle      uint64            `json:"handle"`
	Columns     []string          `json:"columns"`
	ColumnTypes map[string]string `json:"column_types"`
	RowCount    uint64            `json:"row_count"`
	ResultType  string            `json:"result_type"`
}

// ScalarResult is the answer of QueryValue: a single converted value and
// the result type it was projected from.
type ScalarResult struct {
	Value any    `json:"value"`
	Type  string `json:"type"`
}
