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
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/lakegate/lakegate/go/lg/catalog"
	"github.com/lakegate/lakegate/go/lg/schema"
)

func validPair() (*CachedRelation, LiveMetadata) {
	tableSchema := schema.Schema{
		{Name: "id", Type: "bigint"},
		{Name: "ds", Type: "string"},
	}
	partSchema := schema.Schema{{Name: "ds", Type: "string"}}
	bucket := &catalog.BucketSpec{NumBuckets: 4, BucketColumns: []string{"id"}}

	cached := &CachedRelation{
		Relation:        &Relation{Kind: FormatParquet},
		RootPaths:       []string{"/w/t/ds=1", "/w/t/ds=2"},
		TableSchema:     tableSchema,
		Bucket:          bucket,
		PartitionSchema: partSchema,
	}
	live := LiveMetadata{
		Kind:            FormatParquet,
		RootPaths:       []string{"/w/t/ds=2", "/w/t/ds=1"},
		TableSchema:     tableSchema,
		Bucket:          &catalog.BucketSpec{NumBuckets: 4, BucketColumns: []string{"id"}},
		PartitionSchema: partSchema,
	}
	return cached, live
}

func TestIsValid(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*CachedRelation, *LiveMetadata)
		want   bool
	}{{
		name:   "matching entry, root paths in different order",
		mutate: func(*CachedRelation, *LiveMetadata) {},
		want:   true,
	}, {
		name: "format changed",
		mutate: func(_ *CachedRelation, live *LiveMetadata) {
			live.Kind = FormatOrc
		},
		want: false,
	}, {
		name: "root path added",
		mutate: func(_ *CachedRelation, live *LiveMetadata) {
			live.RootPaths = append(live.RootPaths, "/w/t/ds=3")
		},
		want: false,
	}, {
		name: "root path replaced",
		mutate: func(_ *CachedRelation, live *LiveMetadata) {
			live.RootPaths = []string{"/w/t/ds=1", "/w/elsewhere"}
		},
		want: false,
	}, {
		name: "duplicate paths are not set-equal to distinct paths",
		mutate: func(_ *CachedRelation, live *LiveMetadata) {
			live.RootPaths = []string{"/w/t/ds=1", "/w/t/ds=1"}
		},
		want: false,
	}, {
		name: "schema changed",
		mutate: func(_ *CachedRelation, live *LiveMetadata) {
			live.TableSchema = schema.Schema{{Name: "id", Type: "string"}, {Name: "ds", Type: "string"}}
		},
		want: false,
	}, {
		name: "bucket spec dropped",
		mutate: func(_ *CachedRelation, live *LiveMetadata) {
			live.Bucket = nil
		},
		want: false,
	}, {
		name: "partition schema changed",
		mutate: func(_ *CachedRelation, live *LiveMetadata) {
			live.PartitionSchema = schema.Schema{{Name: "hr", Type: "int"}}
		},
		want: false,
	}, {
		name: "nil and empty partition schemas are equal",
		mutate: func(cached *CachedRelation, live *LiveMetadata) {
			cached.PartitionSchema = nil
			live.PartitionSchema = schema.Schema{}
		},
		want: true,
	}}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cached, live := validPair()
			tt.mutate(cached, &live)
			assert.Equal(t, tt.want, IsValid(cached, live))
		})
	}
}

func TestSerDeMatches(t *testing.T) {
	assert.True(t, SerDeMatches("org.apache.hadoop.hive.ql.io.parquet.serde.ParquetHiveSerDe", FormatParquet))
	assert.True(t, SerDeMatches("OrcSerde", FormatOrc))
	assert.False(t, SerDeMatches("org.apache.hadoop.hive.serde2.lazy.LazySimpleSerDe", FormatParquet))
}
