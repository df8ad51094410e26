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
	"github.com/lakegate/lakegate/go/lg/catalog"
	"github.com/lakegate/lakegate/go/lg/schema"
)

// CachedRelation is a resolved relation plus the provenance snapshot it
// was built from. The snapshot, not the relation payload, is what gets
// compared against live catalog metadata on each access.
type CachedRelation struct {
	Relation *Relation

	// RootPaths is the root-path set the relation was built over,
	// compared as an unordered set.
	RootPaths []string
	// TableSchema is the catalog schema the relation was resolved from.
	TableSchema schema.Schema
	Bucket      *catalog.BucketSpec
	// PartitionSchema is the partition schema derived at build time.
	PartitionSchema schema.Schema
}

// LiveMetadata is the freshly derived state of a table, used to decide
// whether a cached entry is still current.
type LiveMetadata struct {
	// Kind is the format expected for the table's current SerDe.
	Kind string
	// RootPaths is the current root-path set; see HiveCatalog for the
	// partitioned/unpartitioned derivation rules.
	RootPaths []string
	// TableSchema is the table's current catalog schema.
	TableSchema schema.Schema
	Bucket      *catalog.BucketSpec
	// PartitionSchema is derived from the current partition columns.
	PartitionSchema schema.Schema
}

// staleness is the outcome of validating a cached entry.
type staleness int

const (
	entryValid staleness = iota
	staleKind
	staleRootPaths
	staleSchema
	staleBucket
	stalePartitionSchema
)

// IsValid reports whether the cached entry still matches the live
// metadata. A false result means the entry must be invalidated and the
// relation rebuilt; it is never an error.
func IsValid(cached *CachedRelation, live LiveMetadata) bool {
	return validate(cached, live) == entryValid
}

// validate is the pure staleness check. Comparisons run cheapest first;
// the kind check leads because a format mismatch is the one outcome the
// effectful shell reports differently (it logs a warning).
func validate(cached *CachedRelation, live LiveMetadata) staleness {
	switch {
	case cached.Relation.Kind != live.Kind:
		return staleKind
	case !samePathSet(cached.RootPaths, live.RootPaths):
		return staleRootPaths
	case !cached.TableSchema.Equal(live.TableSchema):
		return staleSchema
	case !cached.Bucket.Equal(live.Bucket):
		return staleBucket
	case !samePartitionSchema(cached.PartitionSchema, live.PartitionSchema):
		return stalePartitionSchema
	}
	return entryValid
}

// samePathSet compares two root-path slices as unordered sets.
func samePathSet(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	set := make(map[string]int, len(a))
	for _, p := range a {
		set[p]++
	}
	for _, p := range b {
		if set[p] == 0 {
			return false
		}
		set[p]--
	}
	return true
}

// samePartitionSchema treats "no partition columns" as equal to an
// explicitly empty partition schema.
func samePartitionSchema(a, b schema.Schema) bool {
	if len(a) == 0 && len(b) == 0 {
		return true
	}
	return a.Equal(b)
}
