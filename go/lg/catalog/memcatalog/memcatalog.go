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

// Package memcatalog is an in-memory catalog for tests and lightweight
// embedding.
package memcatalog

import (
	"context"
	"strings"
	"sync"

	"github.com/lakegate/lakegate/go/lg/catalog"
	"github.com/lakegate/lakegate/go/lg/lgerrors"
	"github.com/lakegate/lakegate/go/lg/schema"
)

// Catalog is an in-memory catalog.Catalog. All lookups are keyed by the
// lowercased database and table names, matching metastore behavior.
type Catalog struct {
	mu         sync.RWMutex
	databases  map[string]*catalog.Database
	tables     map[catalog.QualifiedTableName]*catalog.Table
	partitions map[catalog.QualifiedTableName][]catalog.Partition
}

var _ catalog.Catalog = (*Catalog)(nil)

// New creates an empty in-memory catalog.
func New() *Catalog {
	return &Catalog{
		databases:  make(map[string]*catalog.Database),
		tables:     make(map[catalog.QualifiedTableName]*catalog.Table),
		partitions: make(map[catalog.QualifiedTableName][]catalog.Partition),
	}
}

// CreateDatabase registers a database.
func (c *Catalog) CreateDatabase(db *catalog.Database) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.databases[lower(db.Name)] = db
}

// CreateTable registers a table under its qualified name.
func (c *Catalog) CreateTable(tbl *catalog.Table) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.tables[tbl.QualifiedName()] = tbl
}

// AddPartition appends a partition to a table's listing.
func (c *Catalog) AddPartition(db, name string, part catalog.Partition) {
	c.mu.Lock()
	defer c.mu.Unlock()
	key := catalog.Qualify(catalog.TableName{Database: db, Table: name}, db)
	c.partitions[key] = append(c.partitions[key], part)
}

// GetTable returns a copy of the table's metadata, so callers cannot
// mutate catalog state behind the catalog's back.
func (c *Catalog) GetTable(_ context.Context, db, name string) (*catalog.Table, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	tbl, ok := c.tables[catalog.Qualify(catalog.TableName{Database: db, Table: name}, db)]
	if !ok {
		return nil, lgerrors.Errorf(lgerrors.NotFound, "table %s.%s not found", db, name)
	}
	clone := *tbl
	return &clone, nil
}

// GetDatabase returns a database's metadata.
func (c *Catalog) GetDatabase(_ context.Context, db string) (*catalog.Database, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	d, ok := c.databases[lower(db)]
	if !ok {
		return nil, lgerrors.Errorf(lgerrors.NotFound, "database %s not found", db)
	}
	return d, nil
}

// AlterTableSchema replaces a table's stored schema and marks it as
// case-preserving, so later lookups skip inference.
func (c *Catalog) AlterTableSchema(_ context.Context, db, name string, updated schema.Schema) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	key := catalog.Qualify(catalog.TableName{Database: db, Table: name}, db)
	tbl, ok := c.tables[key]
	if !ok {
		return lgerrors.Errorf(lgerrors.NotFound, "table %s.%s not found", db, name)
	}
	clone := *tbl
	clone.Schema = updated
	clone.SchemaPreservesCase = true
	c.tables[key] = &clone
	return nil
}

// ListPartitions returns the table's partitions. Unpartitioned tables
// return an empty listing.
func (c *Catalog) ListPartitions(_ context.Context, db, name string) ([]catalog.Partition, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	key := catalog.Qualify(catalog.TableName{Database: db, Table: name}, db)
	parts := c.partitions[key]
	out := make([]catalog.Partition, len(parts))
	copy(out, parts)
	return out, nil
}

func lower(s string) string {
	return strings.ToLower(s)
}
