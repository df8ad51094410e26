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

// Package relation builds and caches the physical representation of
// catalog tables.
//
// Building a relation is expensive: it lists files, may run schema
// inference over them, and assembles the file index the planner scans.
// HiveCatalog therefore keeps resolved relations in a bounded per-session
// cache and revalidates every entry against live catalog metadata before
// handing it out.
package relation

import (
	"github.com/google/uuid"

	"github.com/lakegate/lakegate/go/lg/catalog"
	"github.com/lakegate/lakegate/go/lg/fileindex"
	"github.com/lakegate/lakegate/go/lg/lgerrors"
	"github.com/lakegate/lakegate/go/lg/schema"
)

// Attribute is a single output column of a relation. The ID survives
// plan rewrites: nodes referencing the column before a substitution must
// still resolve against it afterwards.
type Attribute struct {
	ID   uuid.UUID
	Name string
	Type string
}

// Relation is the physical representation of a table, ready for the
// planner. The field layout follows the resolved schema: data columns
// first, partition columns last.
type Relation struct {
	// Kind is the format marker the relation was built for.
	Kind string
	// Table is the canonical name of the backing table.
	Table catalog.QualifiedTableName

	// Schema is the full resolved schema, data plus partition columns.
	Schema schema.Schema
	// DataSchema is the non-partition part of Schema.
	DataSchema schema.Schema
	// PartitionSchema is the partition part of Schema.
	PartitionSchema schema.Schema

	Bucket *catalog.BucketSpec
	Index  fileindex.FileIndex

	// Options carries format-specific reader options.
	Options map[string]string

	// Output is the relation's output attributes, one per Schema field.
	Output []Attribute
}

// WithOutputIDs returns a copy of the relation whose output attributes
// carry the identifiers of original, position by position. Names and
// types stay resolved; only the identity moves over. The receiver is
// shared state from the cache and is never mutated.
func (r *Relation) WithOutputIDs(original []Attribute) (*Relation, error) {
	if original == nil {
		return r, nil
	}
	if len(original) != len(r.Output) {
		return nil, lgerrors.Errorf(lgerrors.Internal,
			"resolved relation for %v has %d output columns, expected %d",
			r.Table, len(r.Output), len(original))
	}
	out := make([]Attribute, len(r.Output))
	for i, attr := range r.Output {
		attr.ID = original[i].ID
		out[i] = attr
	}
	clone := *r
	clone.Output = out
	return &clone, nil
}

// newAttributes mints fresh attributes for a resolved schema.
func newAttributes(s schema.Schema) []Attribute {
	attrs := make([]Attribute, len(s))
	for i, f := range s {
		attrs[i] = Attribute{ID: uuid.New(), Name: f.Name, Type: f.Type}
	}
	return attrs
}
