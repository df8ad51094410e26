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

// Package catalog defines the table metadata model and the abstract
// external catalog lakegate resolves table references against.
//
// The catalog is an external collaborator: implementations talk to a
// real metastore service or its backing database. The in-memory
// implementation in memcatalog serves tests and embedders; sqlcatalog
// reads a metastore resident in Postgres.
package catalog

import (
	"context"

	"github.com/lakegate/lakegate/go/lg/schema"
)

// Catalog is the external metadata service.
//
// GetTable and GetDatabase fetch live metadata per lookup; callers must
// not assume results stay valid across calls. AlterTableSchema is the
// single mutation this module performs, used to persist inferred field
// casing.
type Catalog interface {
	GetTable(ctx context.Context, db, name string) (*Table, error)
	GetDatabase(ctx context.Context, db string) (*Database, error)
	AlterTableSchema(ctx context.Context, db, name string, updated schema.Schema) error

	// ListPartitions returns all partitions of a partitioned table.
	// Unpartitioned tables return an empty listing.
	ListPartitions(ctx context.Context, db, name string) ([]Partition, error)
}
