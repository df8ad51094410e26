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

// Package session holds the per-session configuration for relation
// resolution and conversion. Options are plain values: each session
// owns its copy, and nothing in this module reads configuration from
// process-global state.
package session

import (
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/lakegate/lakegate/go/lg/schema"
)

// Option keys, shared between flag names and viper configuration keys.
const (
	KeyConvertMetastoreParquet      = "convert-metastore-parquet"
	KeyConvertMetastoreParquetMerge = "convert-metastore-parquet-with-schema-merging"
	KeyConvertMetastoreOrc          = "convert-metastore-orc"
	KeyManageFilesourcePartitions   = "manage-filesource-partitions"
	KeyCaseSensitiveInferenceMode   = "case-sensitive-inference-mode"
	KeyRelationCacheCapacity        = "relation-cache-capacity"
)

// Options is the per-session configuration.
type Options struct {
	// ConvertMetastoreParquet enables substituting native Parquet
	// relations for legacy metastore relations.
	ConvertMetastoreParquet bool
	// ConvertMetastoreParquetWithSchemaMerging asks the Parquet reader
	// to merge schemas across data files.
	ConvertMetastoreParquetWithSchemaMerging bool
	// ConvertMetastoreOrc enables substituting native ORC relations.
	ConvertMetastoreOrc bool
	// ManageFilesourcePartitions defers per-partition file listing
	// until filters are known (lazy partition pruning).
	ManageFilesourcePartitions bool
	// InferenceMode governs schema-casing inference from data files.
	InferenceMode schema.InferenceMode
	// RelationCacheCapacity bounds the relation cache entry count.
	RelationCacheCapacity int64
}

// DefaultOptions returns the default session configuration.
func DefaultOptions() *Options {
	return &Options{
		ConvertMetastoreParquet:    true,
		ConvertMetastoreOrc:        true,
		ManageFilesourcePartitions: true,
		InferenceMode:              schema.InferAndSave,
		RelationCacheCapacity:      1000,
	}
}

// RegisterFlags installs the session option flags on the given FlagSet.
func (o *Options) RegisterFlags(fs *pflag.FlagSet) {
	fs.BoolVar(&o.ConvertMetastoreParquet, KeyConvertMetastoreParquet, o.ConvertMetastoreParquet,
		"substitute native parquet relations for legacy metastore relations")
	fs.BoolVar(&o.ConvertMetastoreParquetWithSchemaMerging, KeyConvertMetastoreParquetMerge, o.ConvertMetastoreParquetWithSchemaMerging,
		"merge schemas across parquet data files when converting")
	fs.BoolVar(&o.ConvertMetastoreOrc, KeyConvertMetastoreOrc, o.ConvertMetastoreOrc,
		"substitute native orc relations for legacy metastore relations")
	fs.BoolVar(&o.ManageFilesourcePartitions, KeyManageFilesourcePartitions, o.ManageFilesourcePartitions,
		"defer per-partition file listing until filters are known")
	fs.Var(&inferenceModeFlag{mode: &o.InferenceMode}, KeyCaseSensitiveInferenceMode,
		"schema casing inference policy: NEVER_INFER, INFER_AND_SAVE or INFER_ONLY")
	fs.Int64Var(&o.RelationCacheCapacity, KeyRelationCacheCapacity, o.RelationCacheCapacity,
		"maximum number of resolved relations kept per session")
}

// FromViper overlays configuration from v on top of the defaults.
// Unknown inference mode names are an error; everything else falls back
// to its default when unset.
func FromViper(v *viper.Viper) (*Options, error) {
	o := DefaultOptions()
	if v.IsSet(KeyConvertMetastoreParquet) {
		o.ConvertMetastoreParquet = v.GetBool(KeyConvertMetastoreParquet)
	}
	if v.IsSet(KeyConvertMetastoreParquetMerge) {
		o.ConvertMetastoreParquetWithSchemaMerging = v.GetBool(KeyConvertMetastoreParquetMerge)
	}
	if v.IsSet(KeyConvertMetastoreOrc) {
		o.ConvertMetastoreOrc = v.GetBool(KeyConvertMetastoreOrc)
	}
	if v.IsSet(KeyManageFilesourcePartitions) {
		o.ManageFilesourcePartitions = v.GetBool(KeyManageFilesourcePartitions)
	}
	if v.IsSet(KeyCaseSensitiveInferenceMode) {
		mode, err := schema.ParseInferenceMode(v.GetString(KeyCaseSensitiveInferenceMode))
		if err != nil {
			return nil, err
		}
		o.InferenceMode = mode
	}
	if v.IsSet(KeyRelationCacheCapacity) {
		o.RelationCacheCapacity = v.GetInt64(KeyRelationCacheCapacity)
	}
	return o, nil
}

// inferenceModeFlag adapts schema.InferenceMode to pflag.Value.
type inferenceModeFlag struct {
	mode *schema.InferenceMode
}

func (f *inferenceModeFlag) Set(s string) error {
	mode, err := schema.ParseInferenceMode(s)
	if err != nil {
		return err
	}
	*f.mode = mode
	return nil
}

func (f *inferenceModeFlag) String() string { return f.mode.String() }
func (f *inferenceModeFlag) Type() string   { return "inferenceMode" }
