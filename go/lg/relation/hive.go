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

	"github.com/lakegate/lakegate/go/cache"
	"github.com/lakegate/lakegate/go/lg/catalog"
	"github.com/lakegate/lakegate/go/lg/fileindex"
	"github.com/lakegate/lakegate/go/lg/lgerrors"
	"github.com/lakegate/lakegate/go/lg/log"
	"github.com/lakegate/lakegate/go/lg/schema"
	"github.com/lakegate/lakegate/go/lg/session"
	"github.com/lakegate/lakegate/go/striped"
)

// HiveCatalog resolves catalog tables into native relations and caches
// the result per session. It is an explicit service object: construct
// one per session and pass it by reference. It holds no process-global
// state, and Refresh only invalidates this instance's cache — other
// sessions and processes converge through their own refreshes.
type HiveCatalog struct {
	catalog catalog.Catalog
	lister  fileindex.Lister
	opts    *session.Options
	formats []FileFormat

	relations cache.Cache
	locks     *striped.Locks
}

// NewHiveCatalog creates a relation cache over the given external
// catalog and file lister. When opts is nil the defaults apply.
func NewHiveCatalog(cat catalog.Catalog, lister fileindex.Lister, opts *session.Options, formats ...FileFormat) *HiveCatalog {
	if opts == nil {
		opts = session.DefaultOptions()
	}
	if len(formats) == 0 {
		formats = []FileFormat{NewMarkerFormat(FormatParquet), NewMarkerFormat(FormatOrc)}
	}
	return &HiveCatalog{
		catalog:   cat,
		lister:    lister,
		opts:      opts,
		formats:   formats,
		relations: cache.NewDefaultCacheImpl(&cache.Config{MaxEntries: opts.RelationCacheCapacity}),
		locks:     striped.New(striped.DefaultStripes),
	}
}

// FormatFor returns the registered format matching the table's SerDe.
func (hc *HiveCatalog) FormatFor(tbl *catalog.Table) (FileFormat, bool) {
	for _, f := range hc.formats {
		if SerDeMatches(tbl.Storage.SerDe, f.Name()) {
			return f, true
		}
	}
	return nil, false
}

// Resolve returns the native relation for tbl, reusing the cached one
// when it is still current. At most one expensive reconstruction runs
// per table at a time; concurrent callers for the same table block on
// the table's lock stripe and then observe the freshly cached relation.
func (hc *HiveCatalog) Resolve(ctx context.Context, tbl *catalog.Table) (*Relation, error) {
	if tbl.Kind == catalog.KindView {
		if tbl.ViewText == "" {
			return nil, lgerrors.Errorf(lgerrors.Internal,
				"invalid catalog state: view %s.%s has no stored view text", tbl.Database, tbl.Name)
		}
		return nil, lgerrors.Errorf(lgerrors.FailedPrecondition,
			"%s.%s is a view, not a data table", tbl.Database, tbl.Name)
	}
	format, ok := hc.FormatFor(tbl)
	if !ok {
		return nil, lgerrors.Errorf(lgerrors.Unimplemented,
			"no native format registered for serde %q of table %s.%s", tbl.Storage.SerDe, tbl.Database, tbl.Name)
	}

	key := tbl.QualifiedName()
	var result *Relation
	err := hc.locks.WithLock(key.String(), func() error {
		live, err := hc.liveMetadata(ctx, tbl, format)
		if err != nil {
			return err
		}
		if entry, ok := hc.relations.Get(key.String()); ok {
			cached := entry.(*CachedRelation)
			switch validate(cached, live) {
			case entryValid:
				result = cached.Relation
				return nil
			case staleKind:
				log.Warningf("table %v: cached relation has format %q but the table's serde %q now expects %q; invalidating",
					key, cached.Relation.Kind, tbl.Storage.SerDe, live.Kind)
			}
			hc.relations.Delete(key.String())
		}

		built, err := hc.build(ctx, tbl, format, live)
		if err != nil {
			return err
		}
		hc.relations.Set(key.String(), built)
		result = built.Relation
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// ResolveWithOutput resolves tbl and re-stamps the returned relation's
// output attributes with the identifiers of output, so plan nodes built
// against the legacy relation stay attribute-compatible.
func (hc *HiveCatalog) ResolveWithOutput(ctx context.Context, tbl *catalog.Table, output []Attribute) (*Relation, error) {
	resolved, err := hc.Resolve(ctx, tbl)
	if err != nil {
		return nil, err
	}
	return resolved.WithOutputIDs(output)
}

// Refresh drops the cached relation for the given reference. It does
// not rebuild eagerly; the next Resolve repopulates the entry.
func (hc *HiveCatalog) Refresh(ref catalog.TableName, currentDatabase string) {
	key := catalog.Qualify(ref, currentDatabase)
	hc.relations.Delete(key.String())
}

// CacheStats returns a snapshot of the relation cache counters.
func (hc *HiveCatalog) CacheStats() *cache.Stats {
	return hc.relations.Stats()
}

// liveMetadata derives the table's current build inputs. Root paths:
// unpartitioned tables use the table location; partitioned tables use
// the table location while lazy pruning is enabled, otherwise the union
// of the partitions' own locations, falling back to the table location
// for a table with zero partitions.
func (hc *HiveCatalog) liveMetadata(ctx context.Context, tbl *catalog.Table, format FileFormat) (LiveMetadata, error) {
	live := LiveMetadata{
		Kind:            format.Name(),
		TableSchema:     tbl.Schema,
		Bucket:          tbl.Bucket,
		PartitionSchema: tbl.PartitionSchema(),
	}
	if !tbl.Partitioned() || hc.opts.ManageFilesourcePartitions {
		live.RootPaths = []string{tbl.Storage.Location}
		return live, nil
	}
	parts, err := hc.catalog.ListPartitions(ctx, tbl.Database, tbl.Name)
	if err != nil {
		return LiveMetadata{}, lgerrors.Wrapf(err, "listing partitions of %s.%s", tbl.Database, tbl.Name)
	}
	if len(parts) == 0 {
		live.RootPaths = []string{tbl.Storage.Location}
		return live, nil
	}
	roots := make([]string, 0, len(parts))
	for _, part := range parts {
		roots = append(roots, part.Location)
	}
	live.RootPaths = roots
	return live, nil
}

// build constructs a fresh relation and its provenance snapshot. It
// runs inside the table's lock stripe.
func (hc *HiveCatalog) build(ctx context.Context, tbl *catalog.Table, format FileFormat, live LiveMetadata) (*CachedRelation, error) {
	dataSchema, err := hc.inferIfNeeded(ctx, tbl, format)
	if err != nil {
		return nil, err
	}

	var index fileindex.FileIndex
	if tbl.Partitioned() && hc.opts.ManageFilesourcePartitions {
		index = fileindex.NewLazy(hc.lister, tbl.Storage.Location, func(ctx context.Context) ([]catalog.Partition, error) {
			return hc.catalog.ListPartitions(ctx, tbl.Database, tbl.Name)
		})
	} else {
		index, err = fileindex.NewEager(ctx, hc.lister, live.RootPaths)
		if err != nil {
			return nil, lgerrors.Wrapf(err, "listing files of %s.%s", tbl.Database, tbl.Name)
		}
	}

	full := make(schema.Schema, 0, len(dataSchema)+len(live.PartitionSchema))
	full = append(full, dataSchema...)
	full = append(full, live.PartitionSchema...)

	rel := &Relation{
		Kind:            format.Name(),
		Table:           tbl.QualifiedName(),
		Schema:          full,
		DataSchema:      dataSchema,
		PartitionSchema: live.PartitionSchema,
		Bucket:          tbl.Bucket,
		Index:           index,
		Options:         hc.formatOptions(tbl, format),
		Output:          newAttributes(full),
	}
	return &CachedRelation{
		Relation:        rel,
		RootPaths:       live.RootPaths,
		TableSchema:     live.TableSchema,
		Bucket:          live.Bucket,
		PartitionSchema: live.PartitionSchema,
	}, nil
}

// inferIfNeeded returns the table's resolved data schema. Inference is
// skipped entirely when the mode forbids it or the stored schema already
// preserves case. Inference producing nothing falls back to the stored
// schema with a warning; only a merge conflict is fatal.
func (hc *HiveCatalog) inferIfNeeded(ctx context.Context, tbl *catalog.Table, format FileFormat) (schema.Schema, error) {
	mode := hc.opts.InferenceMode
	if mode == schema.NeverInfer || tbl.SchemaPreservesCase {
		return tbl.DataSchema(), nil
	}

	files, err := hc.lister.List(ctx, tbl.Storage.Location)
	if err != nil {
		log.Warningf("unable to list files of table %s.%s for schema inference: %v; using the metastore schema",
			tbl.Database, tbl.Name, err)
		return tbl.DataSchema(), nil
	}
	inferred, ok, err := format.InferSchema(ctx, hc.formatOptions(tbl, format), files)
	if err != nil {
		log.Warningf("schema inference failed for table %s.%s: %v; using the metastore schema", tbl.Database, tbl.Name, err)
		return tbl.DataSchema(), nil
	}
	if !ok {
		log.Warningf("no schema could be inferred for table %s.%s from its %s files; using the metastore schema",
			tbl.Database, tbl.Name, format.Name())
		return tbl.DataSchema(), nil
	}

	merged, err := schema.MergeWithMetastoreSchema(tbl.DataSchema(), inferred)
	if err != nil {
		return nil, err
	}

	if mode == schema.InferAndSave {
		full := make(schema.Schema, 0, len(merged)+len(tbl.PartitionColumns))
		full = append(full, merged...)
		full = append(full, tbl.PartitionSchema()...)
		if err := hc.catalog.AlterTableSchema(ctx, tbl.Database, tbl.Name, full); err != nil {
			log.Warningf("unable to save the inferred case-sensitive schema of table %s.%s back to the catalog: %v",
				tbl.Database, tbl.Name, err)
		}
	}
	return merged, nil
}

// formatOptions assembles the reader options for a relation: the
// table's storage properties plus session-driven format switches.
func (hc *HiveCatalog) formatOptions(tbl *catalog.Table, format FileFormat) map[string]string {
	options := make(map[string]string, len(tbl.Storage.Properties)+1)
	for k, v := range tbl.Storage.Properties {
		options[k] = v
	}
	if format.Name() == FormatParquet && hc.opts.ConvertMetastoreParquetWithSchemaMerging {
		options["mergeSchema"] = "true"
	}
	return options
}
