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

// Package fileindex abstracts the set of files backing a table.
//
// An index is either eager (the listing is materialized at construction,
// one root per partition when partitions were expanded) or lazy (the
// listing is deferred until files are actually needed, keeping a single
// root at the table's base location). Lazy indexes support partition
// pruning before materialization.
package fileindex

import (
	"context"
	"sort"

	"github.com/lakegate/lakegate/go/lg/catalog"
)

// File is a single data file.
type File struct {
	Path string
	Size int64
}

// Lister abstracts the storage system a table's files live on.
type Lister interface {
	// List returns the data files under root, recursively. Hidden files
	// (leading "." or "_") are not data files and must be skipped.
	List(ctx context.Context, root string) ([]File, error)
}

// FileIndex is the set of files backing a table.
type FileIndex interface {
	// RootPaths returns the root paths the index covers. The result is
	// sorted and must not be mutated.
	RootPaths() []string
	// ListFiles returns the data files under the index's roots.
	ListFiles(ctx context.Context) ([]File, error)
}

// Eager is a FileIndex whose listing is materialized at construction.
type Eager struct {
	roots []string
	files []File
}

var _ FileIndex = (*Eager)(nil)

// NewEager lists every root through lister and materializes the result.
func NewEager(ctx context.Context, lister Lister, roots []string) (*Eager, error) {
	sorted := sortedRoots(roots)
	var files []File
	for _, root := range sorted {
		listed, err := lister.List(ctx, root)
		if err != nil {
			return nil, err
		}
		files = append(files, listed...)
	}
	return &Eager{roots: sorted, files: files}, nil
}

// RootPaths implements FileIndex.
func (e *Eager) RootPaths() []string { return e.roots }

// ListFiles implements FileIndex.
func (e *Eager) ListFiles(context.Context) ([]File, error) { return e.files, nil }

// PartitionFetch fetches a table's partitions on demand.
type PartitionFetch func(ctx context.Context) ([]catalog.Partition, error)

// Lazy is a FileIndex over a table's base location that defers listing,
// and with it any per-partition work, until files are requested.
type Lazy struct {
	lister     Lister
	root       string
	partitions PartitionFetch
}

var _ FileIndex = (*Lazy)(nil)

// NewLazy creates a lazy index rooted at the table's base location.
// partitions may be nil for unpartitioned tables.
func NewLazy(lister Lister, root string, partitions PartitionFetch) *Lazy {
	return &Lazy{lister: lister, root: root, partitions: partitions}
}

// RootPaths implements FileIndex. A lazy index always reports the table
// base location as its single root, regardless of partition layout.
func (l *Lazy) RootPaths() []string { return []string{l.root} }

// ListFiles lists the base location on demand.
func (l *Lazy) ListFiles(ctx context.Context) ([]File, error) {
	return l.lister.List(ctx, l.root)
}

// FilterPartitions materializes the partitions matching pred into an
// eager index. Tables without partitions fall back to an eager index
// over the base location.
func (l *Lazy) FilterPartitions(ctx context.Context, pred func(catalog.Partition) bool) (FileIndex, error) {
	if l.partitions == nil {
		return NewEager(ctx, l.lister, []string{l.root})
	}
	parts, err := l.partitions(ctx)
	if err != nil {
		return nil, err
	}
	var roots []string
	for _, part := range parts {
		if pred == nil || pred(part) {
			roots = append(roots, part.Location)
		}
	}
	if len(roots) == 0 {
		roots = []string{l.root}
	}
	return NewEager(ctx, l.lister, roots)
}

func sortedRoots(roots []string) []string {
	sorted := make([]string, len(roots))
	copy(sorted, roots)
	sort.Strings(sorted)
	return sorted
}
