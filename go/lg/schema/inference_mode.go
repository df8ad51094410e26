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

package schema

import (
	"strings"

	"github.com/lakegate/lakegate/go/lg/lgerrors"
)

// InferenceMode governs whether field casing is re-derived from the
// underlying data files instead of trusting the stored metastore schema.
type InferenceMode int

const (
	// NeverInfer always trusts the stored schema.
	NeverInfer InferenceMode = iota
	// InferAndSave infers casing from the files and persists the merged
	// schema back to the metastore so later lookups skip inference.
	InferAndSave
	// InferOnly infers casing from the files for the current session
	// without writing anything back.
	InferOnly
)

var inferenceModeNames = map[InferenceMode]string{
	NeverInfer:   "NEVER_INFER",
	InferAndSave: "INFER_AND_SAVE",
	InferOnly:    "INFER_ONLY",
}

func (m InferenceMode) String() string {
	if name, ok := inferenceModeNames[m]; ok {
		return name
	}
	return "NEVER_INFER"
}

// ParseInferenceMode parses a mode name, case-insensitively.
func ParseInferenceMode(s string) (InferenceMode, error) {
	for mode, name := range inferenceModeNames {
		if strings.EqualFold(s, name) {
			return mode, nil
		}
	}
	return NeverInfer, lgerrors.Errorf(lgerrors.InvalidArgument, "unknown schema inference mode %q", s)
}
