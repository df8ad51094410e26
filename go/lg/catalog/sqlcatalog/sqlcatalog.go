/*
Copyright 2024 The Lakegate Authors.

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

// Package sqlcatalog reads a metastore resident in PostgreSQL.
//
// Many metastore deployments keep their metadata in an RDBMS; this
// implementation speaks to such a database directly, against the
// following schema:
//
//	metastore_databases(name, location)
//	metastore_tables(database, name, kind, serde, location, provider,
//	    view_text, preserves_case, num_buckets, bucket_columns, sort_columns)
//	metastore_columns(database, table_name, position, name, type,
//	    nullable, comment, is_partition)
//	metastore_partitions(database, table_name, part_values, location)
package sqlcatalog

import (
	"context"
	"database/sql"
	"encoding/json"
	"strings"

	sq "github.com/Masterminds/squirrel"
	"github.com/lib/pq"

	"github.com/lakegate/lakegate/go/lg/catalog"
	"github.com/lakegate/lakegate/go/lg/lgerrors"
	"github.com/lakegate/lakegate/go/lg/schema"
)

// psq is the PostgreSQL statement builder with dollar placeholders.
var psq = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

// tableColumns lists columns returned by table SELECT queries.
var tableColumns = []string{
	"database", "name", "kind", "serde", "location", "provider",
	"view_text", "preserves_case", "num_buckets", "bucket_columns", "sort_columns",
}

// Store implements catalog.Catalog over a PostgreSQL metastore.
type Store struct {
	db *sql.DB
}

var _ catalog.Catalog = (*Store)(nil)

// New creates a store over an open database handle. The caller owns the
// handle's lifecycle.
func New(db *sql.DB) *Store {
	return &Store{db: db}
}

// Open connects to the metastore database with the lib/pq driver.
func Open(dsn string) (*Store, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, lgerrors.Wrap(err, "opening metastore database")
	}
	return New(db), nil
}

// Close closes the underlying database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// GetTable fetches a table and its columns.
func (s *Store) GetTable(ctx context.Context, db, name string) (*catalog.Table, error) {
	query, args, err := psq.Select(tableColumns...).
		From("metastore_tables").
		Where(sq.Eq{"database": lower(db), "name": lower(name)}).
		ToSql()
	if err != nil {
		return nil, lgerrors.Wrap(err, "building table query")
	}

	var (
		tbl           catalog.Table
		kind          string
		viewText      sql.NullString
		numBuckets    sql.NullInt64
		bucketColumns pq.StringArray
		sortColumns   pq.StringArray
	)
	row := s.db.QueryRowContext(ctx, query, args...)
	err = row.Scan(&tbl.Database, &tbl.Name, &kind, &tbl.Storage.SerDe, &tbl.Storage.Location,
		&tbl.Provider, &viewText, &tbl.SchemaPreservesCase, &numBuckets, &bucketColumns, &sortColumns)
	if err == sql.ErrNoRows {
		return nil, lgerrors.Errorf(lgerrors.NotFound, "table %s.%s not found", db, name)
	}
	if err != nil {
		return nil, lgerrors.Wrapf(err, "fetching table %s.%s", db, name)
	}
	if strings.EqualFold(kind, "VIEW") {
		tbl.Kind = catalog.KindView
	}
	tbl.ViewText = viewText.String
	if numBuckets.Valid && numBuckets.Int64 > 0 {
		tbl.Bucket = &catalog.BucketSpec{
			NumBuckets:    int(numBuckets.Int64),
			BucketColumns: bucketColumns,
			SortColumns:   sortColumns,
		}
	}

	if err := s.loadColumns(ctx, &tbl); err != nil {
		return nil, err
	}
	return &tbl, nil
}

func (s *Store) loadColumns(ctx context.Context, tbl *catalog.Table) error {
	query, args, err := psq.Select("name", "type", "nullable", "comment", "is_partition").
		From("metastore_columns").
		Where(sq.Eq{"database": lower(tbl.Database), "table_name": lower(tbl.Name)}).
		OrderBy("position").
		ToSql()
	if err != nil {
		return lgerrors.Wrap(err, "building column query")
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return lgerrors.Wrapf(err, "fetching columns of %s.%s", tbl.Database, tbl.Name)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			f           schema.Field
			comment     sql.NullString
			isPartition bool
		)
		if err := rows.Scan(&f.Name, &f.Type, &f.Nullable, &comment, &isPartition); err != nil {
			return lgerrors.Wrapf(err, "scanning column of %s.%s", tbl.Database, tbl.Name)
		}
		f.Comment = comment.String
		tbl.Schema = append(tbl.Schema, f)
		if isPartition {
			tbl.PartitionColumns = append(tbl.PartitionColumns, f.Name)
		}
	}
	return rows.Err()
}

// GetDatabase fetches a database record.
func (s *Store) GetDatabase(ctx context.Context, db string) (*catalog.Database, error) {
	query, args, err := psq.Select("name", "location").
		From("metastore_databases").
		Where(sq.Eq{"name": lower(db)}).
		ToSql()
	if err != nil {
		return nil, lgerrors.Wrap(err, "building database query")
	}
	var d catalog.Database
	err = s.db.QueryRowContext(ctx, query, args...).Scan(&d.Name, &d.Location)
	if err == sql.ErrNoRows {
		return nil, lgerrors.Errorf(lgerrors.NotFound, "database %s not found", db)
	}
	if err != nil {
		return nil, lgerrors.Wrapf(err, "fetching database %s", db)
	}
	return &d, nil
}

// AlterTableSchema replaces the table's column set in one transaction
// and marks the stored schema as case-preserving. Partition membership
// is carried over from the previous column set.
func (s *Store) AlterTableSchema(ctx context.Context, db, name string, updated schema.Schema) error {
	current, err := s.GetTable(ctx, db, name)
	if err != nil {
		return err
	}
	partition := make(map[string]bool, len(current.PartitionColumns))
	for _, col := range current.PartitionColumns {
		partition[lower(col)] = true
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return lgerrors.Wrapf(err, "altering schema of %s.%s", db, name)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`DELETE FROM metastore_columns WHERE database = $1 AND table_name = $2`,
		lower(db), lower(name))
	if err != nil {
		return lgerrors.Wrapf(err, "clearing columns of %s.%s", db, name)
	}
	for i, f := range updated {
		_, err = tx.ExecContext(ctx,
			`INSERT INTO metastore_columns
			(database, table_name, position, name, type, nullable, comment, is_partition)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
			lower(db), lower(name), i, f.Name, f.Type, f.Nullable, f.Comment, partition[lower(f.Name)])
		if err != nil {
			return lgerrors.Wrapf(err, "writing column %q of %s.%s", f.Name, db, name)
		}
	}
	_, err = tx.ExecContext(ctx,
		`UPDATE metastore_tables SET preserves_case = TRUE WHERE database = $1 AND name = $2`,
		lower(db), lower(name))
	if err != nil {
		return lgerrors.Wrapf(err, "marking schema of %s.%s case-preserving", db, name)
	}
	if err := tx.Commit(); err != nil {
		return lgerrors.Wrapf(err, "altering schema of %s.%s", db, name)
	}
	return nil
}

// ListPartitions returns the table's partitions. Partition values are
// stored as a JSON object mapping column name to value.
func (s *Store) ListPartitions(ctx context.Context, db, name string) ([]catalog.Partition, error) {
	query, args, err := psq.Select("part_values", "location").
		From("metastore_partitions").
		Where(sq.Eq{"database": lower(db), "table_name": lower(name)}).
		OrderBy("location").
		ToSql()
	if err != nil {
		return nil, lgerrors.Wrap(err, "building partition query")
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, lgerrors.Wrapf(err, "fetching partitions of %s.%s", db, name)
	}
	defer rows.Close()

	var parts []catalog.Partition
	for rows.Next() {
		var (
			raw  []byte
			part catalog.Partition
		)
		if err := rows.Scan(&raw, &part.Location); err != nil {
			return nil, lgerrors.Wrapf(err, "scanning partition of %s.%s", db, name)
		}
		if len(raw) > 0 {
			if err := json.Unmarshal(raw, &part.Values); err != nil {
				return nil, lgerrors.Wrapf(err, "decoding partition values of %s.%s", db, name)
			}
		}
		parts = append(parts, part)
	}
	return parts, rows.Err()
}

func lower(s string) string { return strings.ToLower(s) }
