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

package relation

import (
	"context"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"github.com/lakegate/lakegate/go/lg/catalog"
	"github.com/lakegate/lakegate/go/lg/catalog/memcatalog"
	"github.com/lakegate/lakegate/go/lg/fileindex"
	"github.com/lakegate/lakegate/go/lg/lgerrors"
	"github.com/lakegate/lakegate/go/lg/schema"
	"github.com/lakegate/lakegate/go/lg/session"
)

const (
	parquetSerDe = "org.apache.hadoop.hive.ql.io.parquet.serde.ParquetHiveSerDe"
	orcSerDe     = "org.apache.hadoop.hive.ql.io.orc.OrcSerde"
)

// listerStub serves canned listings and counts calls.
type listerStub struct {
	files map[string][]fileindex.File
	calls atomic.Int64
}

func (l *listerStub) List(_ context.Context, root string) ([]fileindex.File, error) {
	l.calls.Add(1)
	return l.files[root], nil
}

// countingFormat returns a fixed inference result and counts calls.
type countingFormat struct {
	name     string
	inferred schema.Schema
	ok       bool
	err      error
	calls    atomic.Int64
}

func (f *countingFormat) Name() string { return f.name }

func (f *countingFormat) InferSchema(context.Context, map[string]string, []fileindex.File) (schema.Schema, bool, error) {
	f.calls.Add(1)
	return f.inferred, f.ok, f.err
}

func parquetTable() *catalog.Table {
	return &catalog.Table{
		Database: "db",
		Name:     "events",
		Schema: schema.Schema{
			{Name: "id", Type: "bigint"},
			{Name: "payload", Type: "string", Nullable: true},
		},
		Storage: catalog.StorageFormat{
			Location: "/warehouse/db/events",
			SerDe:    parquetSerDe,
		},
		Provider: "hive",
	}
}

func newTestCatalog(t *testing.T, opts *session.Options, formats ...FileFormat) (*HiveCatalog, *memcatalog.Catalog, *listerStub) {
	t.Helper()
	cat := memcatalog.New()
	cat.CreateTable(parquetTable())
	lister := &listerStub{files: map[string][]fileindex.File{
		"/warehouse/db/events": {{Path: "/warehouse/db/events/part-0.parquet", Size: 1}},
	}}
	return NewHiveCatalog(cat, lister, opts, formats...), cat, lister
}

func TestResolveReturnsCachedInstance(t *testing.T) {
	format := &countingFormat{name: FormatParquet}
	hc, _, _ := newTestCatalog(t, nil, format, NewMarkerFormat(FormatOrc))

	ctx := context.Background()
	tbl := parquetTable()
	first, err := hc.Resolve(ctx, tbl)
	require.NoError(t, err)
	second, err := hc.Resolve(ctx, tbl)
	require.NoError(t, err)
	require.Same(t, first, second, "a valid cached relation must be reused as-is")

	stats := hc.CacheStats()
	assert.Equal(t, int64(1), stats.Hits)
	assert.Equal(t, int64(1), stats.Misses)
}

func TestResolveBuildsRelation(t *testing.T) {
	hc, _, _ := newTestCatalog(t, nil)

	ctx := context.Background()
	tbl := parquetTable()
	rel, err := hc.Resolve(ctx, tbl)
	require.NoError(t, err)

	assert.Equal(t, FormatParquet, rel.Kind)
	assert.Equal(t, catalog.QualifiedTableName{Database: "db", Table: "events"}, rel.Table)
	assert.Equal(t, []string{"id", "payload"}, rel.Schema.FieldNames())
	assert.Equal(t, rel.Schema, rel.DataSchema)
	assert.Empty(t, rel.PartitionSchema)
	assert.Equal(t, []string{"/warehouse/db/events"}, rel.Index.RootPaths())
	require.Len(t, rel.Output, 2)
	assert.NotEqual(t, rel.Output[0].ID, rel.Output[1].ID)
}

func TestConcurrentResolveBuildsOnce(t *testing.T) {
	format := &countingFormat{
		name:     FormatParquet,
		inferred: schema.Schema{{Name: "ID", Type: "bigint"}, {Name: "Payload", Type: "string", Nullable: true}},
		ok:       true,
	}
	opts := session.DefaultOptions()
	opts.InferenceMode = schema.InferOnly
	hc, _, _ := newTestCatalog(t, opts, format)

	ctx := context.Background()
	const callers = 16
	results := make([]*Relation, callers)

	var g errgroup.Group
	for i := 0; i < callers; i++ {
		i := i
		g.Go(func() error {
			rel, err := hc.Resolve(ctx, parquetTable())
			results[i] = rel
			return err
		})
	}
	require.NoError(t, g.Wait())

	assert.Equal(t, int64(1), format.calls.Load(), "only one caller may pay for the reconstruction")
	for i := 1; i < callers; i++ {
		assert.Same(t, results[0], results[i])
	}
}

func TestRefreshForcesRebuild(t *testing.T) {
	hc, _, _ := newTestCatalog(t, nil)

	ctx := context.Background()
	tbl := parquetTable()
	first, err := hc.Resolve(ctx, tbl)
	require.NoError(t, err)

	hc.Refresh(catalog.TableName{Table: "EVENTS"}, "db")

	second, err := hc.Resolve(ctx, tbl)
	require.NoError(t, err)
	require.NotSame(t, first, second)
	assert.NotEqual(t, first.Output[0].ID, second.Output[0].ID, "a rebuilt relation mints fresh attributes")
}

func TestStalenessInvalidation(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*catalog.Table)
	}{{
		name: "location moved",
		mutate: func(tbl *catalog.Table) {
			tbl.Storage.Location = "/warehouse/db/events_v2"
		},
	}, {
		name: "schema widened",
		mutate: func(tbl *catalog.Table) {
			tbl.Schema = append(tbl.Schema, schema.Field{Name: "extra", Type: "string", Nullable: true})
		},
	}, {
		name: "bucketing added",
		mutate: func(tbl *catalog.Table) {
			tbl.Bucket = &catalog.BucketSpec{NumBuckets: 8, BucketColumns: []string{"id"}}
		},
	}, {
		name: "serde switched to orc",
		mutate: func(tbl *catalog.Table) {
			tbl.Storage.SerDe = orcSerDe
		},
	}}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hc, _, _ := newTestCatalog(t, nil)
			ctx := context.Background()

			first, err := hc.Resolve(ctx, parquetTable())
			require.NoError(t, err)

			changed := parquetTable()
			tt.mutate(changed)
			second, err := hc.Resolve(ctx, changed)
			require.NoError(t, err)
			require.NotSame(t, first, second, "a stale entry must be rebuilt")

			third, err := hc.Resolve(ctx, changed)
			require.NoError(t, err)
			assert.Same(t, second, third, "the rebuilt entry replaces the stale one")
		})
	}
}

func TestResolveViewErrors(t *testing.T) {
	hc, _, _ := newTestCatalog(t, nil)
	ctx := context.Background()

	view := parquetTable()
	view.Kind = catalog.KindView
	_, err := hc.Resolve(ctx, view)
	require.Error(t, err)
	assert.Equal(t, lgerrors.Internal, lgerrors.CodeOf(err), "a view without view text is catalog corruption")

	view.ViewText = "SELECT 1"
	_, err = hc.Resolve(ctx, view)
	require.Error(t, err)
	assert.Equal(t, lgerrors.FailedPrecondition, lgerrors.CodeOf(err))
}

func TestResolveUnknownSerDe(t *testing.T) {
	hc, _, _ := newTestCatalog(t, nil)

	tbl := parquetTable()
	tbl.Storage.SerDe = "org.apache.hadoop.hive.serde2.lazy.LazySimpleSerDe"
	_, err := hc.Resolve(context.Background(), tbl)
	require.Error(t, err)
	assert.Equal(t, lgerrors.Unimplemented, lgerrors.CodeOf(err))
}

func TestInferenceSkipped(t *testing.T) {
	tests := []struct {
		name string
		opts func() *session.Options
		tbl  func() *catalog.Table
	}{{
		name: "mode never infers",
		opts: func() *session.Options {
			o := session.DefaultOptions()
			o.InferenceMode = schema.NeverInfer
			return o
		},
		tbl: parquetTable,
	}, {
		name: "stored schema already preserves case",
		opts: session.DefaultOptions,
		tbl: func() *catalog.Table {
			tbl := parquetTable()
			tbl.SchemaPreservesCase = true
			return tbl
		},
	}}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			format := &countingFormat{name: FormatParquet, inferred: schema.Schema{{Name: "ID", Type: "bigint"}}, ok: true}
			hc, _, _ := newTestCatalog(t, tt.opts(), format)

			rel, err := hc.Resolve(context.Background(), tt.tbl())
			require.NoError(t, err)
			assert.Equal(t, int64(0), format.calls.Load())
			assert.Equal(t, []string{"id", "payload"}, rel.Schema.FieldNames())
		})
	}
}

func TestInferOnlyKeepsCatalogUntouched(t *testing.T) {
	format := &countingFormat{
		name:     FormatParquet,
		inferred: schema.Schema{{Name: "ID", Type: "bigint"}, {Name: "Payload", Type: "string", Nullable: true}},
		ok:       true,
	}
	opts := session.DefaultOptions()
	opts.InferenceMode = schema.InferOnly
	hc, cat, _ := newTestCatalog(t, opts, format)

	ctx := context.Background()
	rel, err := hc.Resolve(ctx, parquetTable())
	require.NoError(t, err)
	assert.Equal(t, []string{"ID", "Payload"}, rel.Schema.FieldNames())

	stored, err := cat.GetTable(ctx, "db", "events")
	require.NoError(t, err)
	assert.Equal(t, []string{"id", "payload"}, stored.Schema.FieldNames())
	assert.False(t, stored.SchemaPreservesCase)
}

func TestInferAndSavePersistsSchema(t *testing.T) {
	format := &countingFormat{
		name: FormatParquet,
		inferred: schema.Schema{
			{Name: "ID", Type: "bigint"},
			{Name: "Payload", Type: "string", Nullable: true},
		},
		ok: true,
	}
	hc, cat, _ := newTestCatalog(t, nil, format)

	ctx := context.Background()
	rel, err := hc.Resolve(ctx, parquetTable())
	require.NoError(t, err)
	assert.Equal(t, []string{"ID", "Payload"}, rel.Schema.FieldNames())

	stored, err := cat.GetTable(ctx, "db", "events")
	require.NoError(t, err)
	assert.Equal(t, []string{"ID", "Payload"}, stored.Schema.FieldNames())
	assert.True(t, stored.SchemaPreservesCase)
}

func TestInferAndSavePersistsPartitionColumns(t *testing.T) {
	format := &countingFormat{
		name:     FormatParquet,
		inferred: schema.Schema{{Name: "ID", Type: "bigint"}, {Name: "Payload", Type: "string", Nullable: true}},
		ok:       true,
	}
	cat := memcatalog.New()
	tbl := parquetTable()
	tbl.Schema = append(tbl.Schema, schema.Field{Name: "ds", Type: "string"})
	tbl.PartitionColumns = []string{"ds"}
	cat.CreateTable(tbl)

	lister := &listerStub{files: map[string][]fileindex.File{}}
	hc := NewHiveCatalog(cat, lister, nil, format)

	ctx := context.Background()
	rel, err := hc.Resolve(ctx, tbl)
	require.NoError(t, err)
	assert.Equal(t, []string{"ID", "Payload", "ds"}, rel.Schema.FieldNames())
	assert.Equal(t, []string{"ds"}, rel.PartitionSchema.FieldNames())

	stored, err := cat.GetTable(ctx, "db", "events")
	require.NoError(t, err)
	assert.Equal(t, []string{"ID", "Payload", "ds"}, stored.Schema.FieldNames(),
		"the persisted schema keeps the partition columns at the end")
}

// alterFailCatalog refuses schema writes, everything else delegates.
type alterFailCatalog struct {
	*memcatalog.Catalog
}

func (c alterFailCatalog) AlterTableSchema(context.Context, string, string, schema.Schema) error {
	return lgerrors.New(lgerrors.Internal, "metastore unavailable")
}

func TestInferAndSaveAbsorbsPersistFailure(t *testing.T) {
	format := &countingFormat{
		name:     FormatParquet,
		inferred: schema.Schema{{Name: "ID", Type: "bigint"}, {Name: "Payload", Type: "string", Nullable: true}},
		ok:       true,
	}
	cat := memcatalog.New()
	cat.CreateTable(parquetTable())
	lister := &listerStub{files: map[string][]fileindex.File{}}
	hc := NewHiveCatalog(alterFailCatalog{cat}, lister, nil, format)

	rel, err := hc.Resolve(context.Background(), parquetTable())
	require.NoError(t, err, "a failed schema save must not fail resolution")
	assert.Equal(t, []string{"ID", "Payload"}, rel.Schema.FieldNames())
}

func TestInferenceFallsBackToStoredSchema(t *testing.T) {
	tests := []struct {
		name   string
		format *countingFormat
	}{{
		name:   "no schema derivable",
		format: &countingFormat{name: FormatParquet, ok: false},
	}, {
		name:   "inference error",
		format: &countingFormat{name: FormatParquet, err: lgerrors.New(lgerrors.Internal, "corrupt footer")},
	}}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hc, _, _ := newTestCatalog(t, nil, tt.format)
			rel, err := hc.Resolve(context.Background(), parquetTable())
			require.NoError(t, err)
			assert.Equal(t, []string{"id", "payload"}, rel.Schema.FieldNames())
		})
	}
}

func TestInferenceMergeConflictIsFatal(t *testing.T) {
	// The stored schema has a non-nullable column the data files lack.
	format := &countingFormat{
		name:     FormatParquet,
		inferred: schema.Schema{{Name: "Payload", Type: "string", Nullable: true}},
		ok:       true,
	}
	hc, _, _ := newTestCatalog(t, nil, format)

	_, err := hc.Resolve(context.Background(), parquetTable())
	require.Error(t, err)
	assert.Equal(t, lgerrors.FailedPrecondition, lgerrors.CodeOf(err))
}

func TestPartitionedRootPaths(t *testing.T) {
	newPartitioned := func() (*memcatalog.Catalog, *catalog.Table) {
		cat := memcatalog.New()
		tbl := parquetTable()
		tbl.Schema = append(tbl.Schema, schema.Field{Name: "ds", Type: "string"})
		tbl.PartitionColumns = []string{"ds"}
		cat.CreateTable(tbl)
		cat.AddPartition("db", "events", catalog.Partition{
			Values: map[string]string{"ds": "1"}, Location: "/warehouse/db/events/ds=1",
		})
		cat.AddPartition("db", "events", catalog.Partition{
			Values: map[string]string{"ds": "2"}, Location: "/warehouse/db/events/ds=2",
		})
		return cat, tbl
	}

	t.Run("lazy pruning uses the table location", func(t *testing.T) {
		cat, tbl := newPartitioned()
		lister := &listerStub{files: map[string][]fileindex.File{}}
		opts := session.DefaultOptions()
		opts.InferenceMode = schema.NeverInfer
		hc := NewHiveCatalog(cat, lister, opts)

		rel, err := hc.Resolve(context.Background(), tbl)
		require.NoError(t, err)
		assert.Equal(t, []string{"/warehouse/db/events"}, rel.Index.RootPaths())
		assert.Equal(t, int64(0), lister.calls.Load(), "lazy resolution must not list files")
	})

	t.Run("eager listing unions the partition locations", func(t *testing.T) {
		cat, tbl := newPartitioned()
		lister := &listerStub{files: map[string][]fileindex.File{
			"/warehouse/db/events/ds=1": {{Path: "/warehouse/db/events/ds=1/a.parquet"}},
			"/warehouse/db/events/ds=2": {{Path: "/warehouse/db/events/ds=2/b.parquet"}},
		}}
		opts := session.DefaultOptions()
		opts.ManageFilesourcePartitions = false
		hc := NewHiveCatalog(cat, lister, opts)

		rel, err := hc.Resolve(context.Background(), tbl)
		require.NoError(t, err)
		assert.Equal(t, []string{"/warehouse/db/events/ds=1", "/warehouse/db/events/ds=2"}, rel.Index.RootPaths())
	})

	t.Run("zero partitions fall back to the table location", func(t *testing.T) {
		cat := memcatalog.New()
		tbl := parquetTable()
		tbl.Schema = append(tbl.Schema, schema.Field{Name: "ds", Type: "string"})
		tbl.PartitionColumns = []string{"ds"}
		cat.CreateTable(tbl)

		lister := &listerStub{files: map[string][]fileindex.File{}}
		opts := session.DefaultOptions()
		opts.ManageFilesourcePartitions = false
		hc := NewHiveCatalog(cat, lister, opts)

		rel, err := hc.Resolve(context.Background(), tbl)
		require.NoError(t, err)
		assert.Equal(t, []string{"/warehouse/db/events"}, rel.Index.RootPaths())
	})
}

func TestFormatOptions(t *testing.T) {
	opts := session.DefaultOptions()
	opts.ConvertMetastoreParquetWithSchemaMerging = true
	hc, _, _ := newTestCatalog(t, opts)

	tbl := parquetTable()
	tbl.Storage.Properties = map[string]string{"compression": "snappy"}
	rel, err := hc.Resolve(context.Background(), tbl)
	require.NoError(t, err)

	assert.Equal(t, "snappy", rel.Options["compression"])
	assert.Equal(t, "true", rel.Options["mergeSchema"])
}

func TestResolveWithOutput(t *testing.T) {
	hc, _, _ := newTestCatalog(t, nil)
	ctx := context.Background()

	tbl := parquetTable()
	cached, err := hc.Resolve(ctx, tbl)
	require.NoError(t, err)

	original := []Attribute{
		{ID: cached.Output[1].ID, Name: "id", Type: "bigint"},
		{ID: cached.Output[0].ID, Name: "payload", Type: "string"},
	}
	stamped, err := hc.ResolveWithOutput(ctx, tbl, original)
	require.NoError(t, err)
	require.NotSame(t, cached, stamped, "stamping must not mutate the cached relation")
	assert.Equal(t, original[0].ID, stamped.Output[0].ID)
	assert.Equal(t, original[1].ID, stamped.Output[1].ID)
	assert.Equal(t, "id", stamped.Output[0].Name, "names stay resolved; only identity moves over")

	_, err = hc.ResolveWithOutput(ctx, tbl, original[:1])
	require.Error(t, err)
	assert.Equal(t, lgerrors.Internal, lgerrors.CodeOf(err))

	same, err := hc.ResolveWithOutput(ctx, tbl, nil)
	require.NoError(t, err)
	assert.Same(t, cached, same)
}
