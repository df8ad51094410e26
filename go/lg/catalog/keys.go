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

package catalog

import "strings"

// TableName is a table reference as written in a query. Database may be
// empty, in which case the reference is resolved against the session's
// current database.
type TableName struct {
	Database string
	Table    string
}

// String returns the reference in db.table form, or just the table name
// for an unqualified reference.
func (t TableName) String() string {
	if t.Database == "" {
		return t.Table
	}
	return t.Database + "." + t.Table
}

// QualifiedTableName is the canonical (database, table) key used for
// caching and locking. Both parts are lowercased; construct one through
// Qualify so the invariant holds.
type QualifiedTableName struct {
	Database string
	Table    string
}

// Qualify normalizes a table reference into a canonical key,
// substituting currentDatabase when the reference carries no database.
func Qualify(ref TableName, currentDatabase string) QualifiedTableName {
	db := ref.Database
	if db == "" {
		db = currentDatabase
	}
	return QualifiedTableName{
		Database: strings.ToLower(db),
		Table:    strings.ToLower(ref.Table),
	}
}

// String returns the key in db.table form.
func (q QualifiedTableName) String() string {
	return q.Database + "." + q.Table
}
