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

// Package schema models table schemas as flat ordered field lists and
// implements the reconciliation between a metastore schema and a schema
// inferred from the underlying data files.
//
// Metastores that lowercase identifiers lose the field casing the files
// were written with. MergeWithMetastoreSchema restores it: the metastore
// stays authoritative for field order, types and nullability, while the
// inferred schema contributes the on-disk casing of each name.
package schema

import (
	"strings"

	"github.com/lakegate/lakegate/go/lg/lgerrors"
)

// Field is a single column of a schema.
type Field struct {
	Name     string
	Type     string
	Nullable bool
	Comment  string
}

// Schema is an ordered list of fields. Order is significant: two schemas
// with the same fields in different order are not equal.
type Schema []Field

// Equal reports whether s and other have the same fields, in the same
// order, compared with the casing as stored. Comments are ignored.
func (s Schema) Equal(other Schema) bool {
	if len(s) != len(other) {
		return false
	}
	for i, f := range s {
		o := other[i]
		if f.Name != o.Name || f.Type != o.Type || f.Nullable != o.Nullable {
			return false
		}
	}
	return true
}

// FieldNames returns the field names in schema order.
func (s Schema) FieldNames() []string {
	names := make([]string, len(s))
	for i, f := range s {
		names[i] = f.Name
	}
	return names
}

// String renders the schema in a struct<...> style form used in error
// messages and logs.
func (s Schema) String() string {
	var b strings.Builder
	b.WriteString("struct<")
	for i, f := range s {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(f.Name)
		b.WriteString(": ")
		b.WriteString(f.Type)
		if !f.Nullable {
			b.WriteString(" not null")
		}
	}
	b.WriteString(">")
	return b.String()
}

// lowerNameIndex builds a case-insensitive name index over fields.
// Duplicate names that differ only by case keep the first occurrence,
// matching metastore behavior where such schemas cannot exist anyway.
func lowerNameIndex(fields []Field) map[string]Field {
	index := make(map[string]Field, len(fields))
	for _, f := range fields {
		key := strings.ToLower(f.Name)
		if _, ok := index[key]; !ok {
			index[key] = f
		}
	}
	return index
}

// MergeWithMetastoreSchema reconciles the lowercased metastore schema
// with the schema inferred from data files. The result keeps the
// metastore schema's field order, types and properties, but substitutes
// each field name with the inferred casing.
//
// Metastore fields that are absent from the inferred schema are
// tolerated only when nullable: a reader can fill them with nulls. A
// non-nullable metastore field with no inferred counterpart means the
// two schemas describe different data and the merge fails.
func MergeWithMetastoreSchema(metastoreSchema, inferredSchema Schema) (Schema, error) {
	inferredIndex := lowerNameIndex(inferredSchema)

	// Missing nullable fields are carried over from the metastore
	// schema with their stored casing.
	augmented := make([]Field, 0, len(inferredSchema))
	augmented = append(augmented, inferredSchema...)
	for _, f := range metastoreSchema {
		if _, ok := inferredIndex[strings.ToLower(f.Name)]; !ok && f.Nullable {
			augmented = append(augmented, f)
		}
	}
	augmentedIndex := lowerNameIndex(augmented)

	merged := make(Schema, 0, len(metastoreSchema))
	for _, f := range metastoreSchema {
		inferred, ok := augmentedIndex[strings.ToLower(f.Name)]
		if !ok {
			return nil, lgerrors.Errorf(lgerrors.FailedPrecondition,
				"detected conflicting schemas when merging the schema obtained from the metastore with the one inferred from the data files; "+
					"metastore schema: %v, inferred schema: %v", metastoreSchema, inferredSchema)
		}
		f.Name = inferred.Name
		merged = append(merged, f)
	}
	return merged, nil
}
