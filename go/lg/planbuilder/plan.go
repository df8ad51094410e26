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

// Package planbuilder models the logical plan fragment this module
// rewrites and implements the metastore conversion rules.
//
// The node set is deliberately closed: rules dispatch on the concrete
// node type plus a guard predicate, never on open-ended reflection. An
// engine embedding lakegate maps its own plan nodes onto these around
// rule application.
package planbuilder

import (
	"github.com/google/uuid"

	"github.com/lakegate/lakegate/go/lg/catalog"
	"github.com/lakegate/lakegate/go/lg/relation"
)

// LogicalPlan is a node in the logical plan tree.
type LogicalPlan interface {
	// Inputs returns the node's data inputs, in order.
	Inputs() []LogicalPlan
	// Clone returns a copy of the node with the given inputs. The
	// slice must have the same length as Inputs().
	Clone(inputs []LogicalPlan) LogicalPlan
	// resolved reports whether this node (not its inputs) is resolved.
	resolved() bool
}

// Resolved reports whether every node of the plan is resolved. Rules
// must not fire on unresolved plans.
func Resolved(plan LogicalPlan) bool {
	if !plan.resolved() {
		return false
	}
	if insert, ok := plan.(*InsertIntoTable); ok {
		if !Resolved(insert.Table) {
			return false
		}
	}
	for _, input := range plan.Inputs() {
		if !Resolved(input) {
			return false
		}
	}
	return true
}

// UnresolvedRelation is a table reference that has not been looked up
// in the catalog yet.
type UnresolvedRelation struct {
	Ref catalog.TableName
}

func (*UnresolvedRelation) Inputs() []LogicalPlan { return nil }
func (u *UnresolvedRelation) Clone([]LogicalPlan) LogicalPlan { return u }
func (*UnresolvedRelation) resolved() bool { return false }

// LegacyRelation is a table sourced directly from catalog metadata,
// read through the engine's generic metastore reader rather than a
// native format reader.
type LegacyRelation struct {
	Table *catalog.Table
	// Output lists data columns first, partition columns last,
	// matching the layout of a converted relation.
	Output []relation.Attribute
}

// NewLegacyRelation builds a legacy relation node with fresh output
// attributes for the table's schema.
func NewLegacyRelation(tbl *catalog.Table) *LegacyRelation {
	data := tbl.DataSchema()
	part := tbl.PartitionSchema()
	output := make([]relation.Attribute, 0, len(data)+len(part))
	for _, f := range data {
		output = append(output, relation.Attribute{ID: uuid.New(), Name: f.Name, Type: f.Type})
	}
	for _, f := range part {
		output = append(output, relation.Attribute{ID: uuid.New(), Name: f.Name, Type: f.Type})
	}
	return &LegacyRelation{Table: tbl, Output: output}
}

func (*LegacyRelation) Inputs() []LogicalPlan { return nil }
func (l *LegacyRelation) Clone([]LogicalPlan) LogicalPlan { return l }
func (*LegacyRelation) resolved() bool { return true }

// ResolvedRelation wraps a native relation produced by the relation
// cache.
type ResolvedRelation struct {
	Relation *relation.Relation
}

// Output returns the relation's output attributes.
func (r *ResolvedRelation) Output() []relation.Attribute { return r.Relation.Output }

func (*ResolvedRelation) Inputs() []LogicalPlan { return nil }
func (r *ResolvedRelation) Clone([]LogicalPlan) LogicalPlan { return r }
func (*ResolvedRelation) resolved() bool { return true }

// SubqueryAlias names a subtree so attribute references elsewhere in
// the plan keep resolving after a substitution.
type SubqueryAlias struct {
	Alias string
	Input LogicalPlan
}

func (s *SubqueryAlias) Inputs() []LogicalPlan { return []LogicalPlan{s.Input} }
func (s *SubqueryAlias) Clone(inputs []LogicalPlan) LogicalPlan {
	return &SubqueryAlias{Alias: s.Alias, Input: inputs[0]}
}
func (*SubqueryAlias) resolved() bool { return true }

// Project narrows its input to the named columns.
type Project struct {
	Columns []string
	Input   LogicalPlan
}

func (p *Project) Inputs() []LogicalPlan { return []LogicalPlan{p.Input} }
func (p *Project) Clone(inputs []LogicalPlan) LogicalPlan {
	return &Project{Columns: p.Columns, Input: inputs[0]}
}
func (*Project) resolved() bool { return true }

// Filter keeps the input rows matching its condition. The condition is
// opaque to this module.
type Filter struct {
	Condition string
	Input     LogicalPlan
}

func (f *Filter) Inputs() []LogicalPlan { return []LogicalPlan{f.Input} }
func (f *Filter) Clone(inputs []LogicalPlan) LogicalPlan {
	return &Filter{Condition: f.Condition, Input: inputs[0]}
}
func (*Filter) resolved() bool { return true }

// InsertIntoTable writes Query's rows into Table.
//
// Table is the write target, not a data input: Inputs() returns only
// Query, so tree rewrites do not descend into the target. Rules that
// care about the target inspect it explicitly.
type InsertIntoTable struct {
	Table         LogicalPlan
	PartitionSpec map[string]string
	Query         LogicalPlan
	Overwrite     bool
	IfNotExists   bool
}

func (i *InsertIntoTable) Inputs() []LogicalPlan { return []LogicalPlan{i.Query} }
func (i *InsertIntoTable) Clone(inputs []LogicalPlan) LogicalPlan {
	clone := *i
	clone.Query = inputs[0]
	return &clone
}
func (*InsertIntoTable) resolved() bool { return true }
