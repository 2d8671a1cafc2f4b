package main

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func catalogFrame(t *testing.T) *Frame {
	return mustFrame(t, []string{"table_name", "column_name", "data_type"},
		[]any{"A", "id", "integer"},
		[]any{"A", "name", "text"},
		[]any{"B", "ts", "timestamp"},
		[]any{"B", "note", nil},
	)
}

func TestCorrelate(t *testing.T) {
	c, err := correlate(catalogFrame(t), "A")
	require.NoError(t, err)

	assert.Equal(t, "A", c.Table)
	assert.Equal(t, []string{"id", "name"}, c.Columns)
	// types span the whole snapshot, not just table A
	assert.Equal(t, []string{"integer", "text", "timestamp"}, c.DataTypes)
}

func TestCorrelate_UnknownTable(t *testing.T) {
	c, err := correlate(catalogFrame(t), "missing")
	require.NoError(t, err)
	assert.Empty(t, c.Columns)
	assert.NotNil(t, c.Columns)
	assert.Len(t, c.DataTypes, 3)
}

func TestCorrelate_AfterReload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog_2024.avro")
	require.NoError(t, saveSnapshot(catalogFrame(t), path))

	catalog, err := loadSnapshot(path)
	require.NoError(t, err)

	c, err := correlate(catalog, "B")
	require.NoError(t, err)
	assert.Equal(t, []string{"ts", "note"}, c.Columns)
}

func TestCorrelate_NotACatalog(t *testing.T) {
	f := mustFrame(t, []string{"id", "total"}, []any{int64(1), 9.5})

	_, err := correlate(f, "orders")
	require.Error(t, err)
	stage, _ := stageOf(err)
	assert.Equal(t, StagePersist, stage)
	assert.Contains(t, err.Error(), catalogTableNameCol)

	g := mustFrame(t, []string{"table_name", "column_name"}, []any{"A", "id"})
	_, err = correlate(g, "A")
	assert.ErrorContains(t, err, catalogDataTypeCol)
}
