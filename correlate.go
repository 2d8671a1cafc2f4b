package main

// Catalog snapshot columns the correlator reads.
const (
	catalogTableNameCol  = "table_name"
	catalogColumnNameCol = "column_name"
	catalogDataTypeCol   = "data_type"
)

// Correlation is what a catalog snapshot says about one table.
type Correlation struct {
	Table string
	// Columns are the table's column_name values in snapshot row order.
	Columns []string
	// DataTypes are the distinct data_type values of the whole snapshot, in
	// first-seen order. They are not limited to Table.
	DataTypes []string
}

// correlate looks table up in a reloaded catalog snapshot. An unknown table
// yields no columns and is not an error; a snapshot without the catalog
// columns is a persist-stage error.
func correlate(catalog *Frame, table string) (*Correlation, error) {
	cols, err := columnsFor(catalog, table)
	if err != nil {
		return nil, err
	}
	types, err := distinctTypes(catalog)
	if err != nil {
		return nil, err
	}
	return &Correlation{Table: table, Columns: cols, DataTypes: types}, nil
}

// columnsFor returns column_name for every row whose table_name equals table.
func columnsFor(catalog *Frame, table string) ([]string, error) {
	tables, ok := catalog.Column(catalogTableNameCol)
	if !ok {
		return nil, stageErrorf(StagePersist, "catalog snapshot has no %q column", catalogTableNameCol)
	}
	names, ok := catalog.Column(catalogColumnNameCol)
	if !ok {
		return nil, stageErrorf(StagePersist, "catalog snapshot has no %q column", catalogColumnNameCol)
	}

	cols := []string{}
	for i, t := range tables {
		if t != nil && formatCell(t) == table {
			cols = append(cols, formatCell(names[i]))
		}
	}
	return cols, nil
}

// distinctTypes returns the distinct non-null data_type values across every
// row of the snapshot.
func distinctTypes(catalog *Frame) ([]string, error) {
	vals, ok := catalog.Column(catalogDataTypeCol)
	if !ok {
		return nil, stageErrorf(StagePersist, "catalog snapshot has no %q column", catalogDataTypeCol)
	}

	types := []string{}
	seen := make(map[string]bool)
	for _, v := range vals {
		if v == nil {
			continue
		}
		s := formatCell(v)
		if !seen[s] {
			seen[s] = true
			types = append(types, s)
		}
	}
	return types, nil
}
