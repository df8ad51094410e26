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

package planbuilder

import (
	"context"

	"github.com/lakegate/lakegate/go/lg/catalog"
	"github.com/lakegate/lakegate/go/lg/log"
	"github.com/lakegate/lakegate/go/lg/relation"
	"github.com/lakegate/lakegate/go/lg/session"
)

// ConversionRule substitutes native-format relations for legacy
// metastore relations of one target format. The Parquet and ORC rules
// are two instances of the same shape, differing only in the SerDe
// marker and the session flag that gates them.
//
// Applying a rule is idempotent: a converted plan contains no legacy
// relations matching the guard, so a second application returns the
// plan object unchanged.
type ConversionRule struct {
	format  string
	enabled func(*session.Options) bool
	hive    *relation.HiveCatalog
	opts    *session.Options
}

// NewParquetConversion returns the rule converting Parquet-SerDe legacy
// relations, gated on the convert-metastore-parquet option.
func NewParquetConversion(hive *relation.HiveCatalog, opts *session.Options) *ConversionRule {
	return &ConversionRule{
		format:  relation.FormatParquet,
		enabled: func(o *session.Options) bool { return o.ConvertMetastoreParquet },
		hive:    hive,
		opts:    opts,
	}
}

// NewOrcConversion returns the rule converting ORC-SerDe legacy
// relations, gated on the convert-metastore-orc option.
func NewOrcConversion(hive *relation.HiveCatalog, opts *session.Options) *ConversionRule {
	return &ConversionRule{
		format:  relation.FormatOrc,
		enabled: func(o *session.Options) bool { return o.ConvertMetastoreOrc },
		hive:    hive,
		opts:    opts,
	}
}

// Name returns the rule name used in rewrite logging.
func (r *ConversionRule) Name() string {
	return "ConvertMetastore_" + r.format
}

// convertible is the guard predicate shared by the read and write
// paths: the table's SerDe names the rule's format and the session has
// the matching convert option enabled.
func (r *ConversionRule) convertible(tbl *catalog.Table) bool {
	return r.enabled(r.opts) && relation.SerDeMatches(tbl.Storage.SerDe, r.format)
}

// Apply rewrites the plan bottom-up. Unresolved plans are returned
// untouched; resolution must finish before conversion makes sense.
func (r *ConversionRule) Apply(ctx context.Context, plan LogicalPlan) (LogicalPlan, error) {
	if !Resolved(plan) {
		return plan, nil
	}
	return BottomUp(plan, func(node LogicalPlan) (LogicalPlan, *ApplyResult, error) {
		switch n := node.(type) {
		case *InsertIntoTable:
			return r.convertWrite(ctx, n)
		case *LegacyRelation:
			return r.convertRead(ctx, n)
		}
		return node, NoRewrite, nil
	})
}

// convertWrite handles the write path: an insert whose target is an
// unpartitioned legacy relation of the rule's format. All other insert
// fields are preserved unchanged. Partitioned targets are excluded:
// the native writers do not handle partitioned legacy tables.
func (r *ConversionRule) convertWrite(ctx context.Context, insert *InsertIntoTable) (LogicalPlan, *ApplyResult, error) {
	target, ok := insert.Table.(*LegacyRelation)
	if !ok || target.Table.Partitioned() || !r.convertible(target.Table) {
		return insert, NoRewrite, nil
	}
	resolved, err := r.hive.ResolveWithOutput(ctx, target.Table, target.Output)
	if err != nil {
		return nil, nil, err
	}
	clone := *insert
	clone.Table = &ResolvedRelation{Relation: resolved}
	log.V(2).Infof("%s: converted insert target %v", r.Name(), resolved.Table)
	return &clone, Rewrote("insert target converted to native " + r.format), nil
}

// convertRead handles the read path: any legacy relation matching the
// guard becomes a subquery aliased with the original table name, so
// attribute references elsewhere in the plan keep resolving.
func (r *ConversionRule) convertRead(ctx context.Context, legacy *LegacyRelation) (LogicalPlan, *ApplyResult, error) {
	if !r.convertible(legacy.Table) {
		return legacy, NoRewrite, nil
	}
	resolved, err := r.hive.ResolveWithOutput(ctx, legacy.Table, legacy.Output)
	if err != nil {
		return nil, nil, err
	}
	alias := &SubqueryAlias{
		Alias: legacy.Table.Name,
		Input: &ResolvedRelation{Relation: resolved},
	}
	log.V(2).Infof("%s: converted relation %v", r.Name(), resolved.Table)
	return alias, Rewrote("legacy relation converted to native " + r.format), nil
}
