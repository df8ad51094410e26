/*
Copyright 2023 The Lakegate Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package catalog

import (
	"slices"
	"strings"

	"github.com/lakegate/lakegate/go/lg/schema"
)

// TableKind discriminates the catalog object kinds this module cares
// about.
type TableKind int

const (
	// KindTable is a managed or external data table.
	KindTable TableKind = iota
	// KindView is a logical view; its definition lives in ViewText.
	KindView
)

func (k TableKind) String() string {
	if k == KindView {
		return "VIEW"
	}
	return "TABLE"
}

// StorageFormat describes where and how a table's data is stored.
type StorageFormat struct {
	// Location is the root path of the table's data.
	Location string
	// SerDe identifies the on-disk serializer/deserializer, e.g.
	// "org.apache.hadoop.hive.ql.io.parquet.serde.ParquetHiveSerDe".
	SerDe string
	// Properties carries format-specific storage options.
	Properties map[string]string
}

// BucketSpec describes how a table is bucketed.
type BucketSpec struct {
	NumBuckets    int
	BucketColumns []string
	SortColumns   []string
}

// Equal reports whether two bucket specs are identical. A nil spec is
// only equal to another nil spec.
func (b *BucketSpec) Equal(other *BucketSpec) bool {
	if b == nil || other == nil {
		return b == other
	}
	return b.NumBuckets == other.NumBuckets &&
		slices.Equal(b.BucketColumns, other.BucketColumns) &&
		slices.Equal(b.SortColumns, other.SortColumns)
}

// Table is the metadata record for a table as stored in the external
// catalog. The catalog owns it; lakegate never mutates a Table in place,
// only through Catalog.AlterTableSchema.
type Table struct {
	Database string
	Name     string
	Kind     TableKind

	// Schema is the full schema including partition columns.
	Schema schema.Schema
	// PartitionColumns names the partition columns, in partition order.
	// They must all appear in Schema.
	PartitionColumns []string

	Storage  StorageFormat
	Bucket   *BucketSpec
	Provider string
	ViewText string

	// SchemaPreservesCase is true when the stored schema already carries
	// the casing of the data files, making inference unnecessary.
	SchemaPreservesCase bool

	Properties map[string]string
}

// QualifiedName returns the canonical cache key for the table.
func (t *Table) QualifiedName() QualifiedTableName {
	return Qualify(TableName{Database: t.Database, Table: t.Name}, t.Database)
}

// Partitioned reports whether the table has partition columns.
func (t *Table) Partitioned() bool {
	return len(t.PartitionColumns) > 0
}

// DataSchema returns the non-partition fields of the schema, in schema
// order.
func (t *Table) DataSchema() schema.Schema {
	if !t.Partitioned() {
		return t.Schema
	}
	data := make(schema.Schema, 0, len(t.Schema))
	for _, f := range t.Schema {
		if !t.isPartitionColumn(f.Name) {
			data = append(data, f)
		}
	}
	return data
}

// PartitionSchema returns the partition fields in partition-column
// order. Tables without partition columns return an empty schema.
func (t *Table) PartitionSchema() schema.Schema {
	part := make(schema.Schema, 0, len(t.PartitionColumns))
	for _, name := range t.PartitionColumns {
		for _, f := range t.Schema {
			if strings.EqualFold(f.Name, name) {
				part = append(part, f)
				break
			}
		}
	}
	return part
}

func (t *Table) isPartitionColumn(name string) bool {
	for _, p := range t.PartitionColumns {
		if strings.EqualFold(p, name) {
			return true
		}
	}
	return false
}

// Partition is a single partition of a partitioned table.
type Partition struct {
	// Values maps partition column name to the partition's value.
	Values map[string]string
	// Location is the partition's own data path.
	Location string
}

// Database is the metadata record for a database.
type Database struct {
	Name     string
	Location string
}
