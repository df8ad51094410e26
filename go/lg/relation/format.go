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
	"strings"

	"github.com/lakegate/lakegate/go/lg/fileindex"
	"github.com/lakegate/lakegate/go/lg/schema"
)

// Format marker substrings matched against SerDe identifiers.
const (
	FormatParquet = "parquet"
	FormatOrc     = "orc"
)

// FileFormat is the part of a native file format this module consumes:
// its identity and its ability to infer a schema from data files.
// Reading and writing the files themselves happens elsewhere in the
// engine.
type FileFormat interface {
	// Name returns the lowercase format marker, e.g. "parquet". A table
	// belongs to this format when its SerDe identifier contains the
	// marker, compared case-insensitively.
	Name() string

	// InferSchema derives a schema from a sample of data files. ok is
	// false when no schema could be derived, which callers treat as a
	// recoverable condition, not an error.
	InferSchema(ctx context.Context, options map[string]string, files []fileindex.File) (inferred schema.Schema, ok bool, err error)
}

// SerDeMatches reports whether the SerDe identifier names the given
// format, by case-insensitive substring match.
func SerDeMatches(serde, marker string) bool {
	return strings.Contains(strings.ToLower(serde), marker)
}

// markerFormat is a FileFormat that never infers a schema. It serves
// deployments where the stored schema is authoritative and only the
// relation substitution matters.
type markerFormat struct {
	name string
}

// NewMarkerFormat returns a FileFormat with the given marker and no
// inference capability.
func NewMarkerFormat(name string) FileFormat {
	return markerFormat{name: strings.ToLower(name)}
}

func (f markerFormat) Name() string { return f.name }

func (f markerFormat) InferSchema(context.Context, map[string]string, []fileindex.File) (schema.Schema, bool, error) {
	return nil, false, nil
}
