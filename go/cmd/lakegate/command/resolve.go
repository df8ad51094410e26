/*
Copyright 2024 The Lakegate Authors.

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

package command

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/lakegate/lakegate/go/lg/catalog/sqlcatalog"
	"github.com/lakegate/lakegate/go/lg/fileindex"
	"github.com/lakegate/lakegate/go/lg/lgerrors"
	"github.com/lakegate/lakegate/go/lg/relation"
)

var refreshFirst bool

var resolve = &cobra.Command{
	Use:   "resolve <db.table>",
	Short: "Resolve a metastore table into its native relation and print it.",
	Args:  cobra.ExactArgs(1),
	RunE:  runResolve,
}

func init() {
	resolve.Flags().BoolVar(&refreshFirst, "refresh", false,
		"drop any cached relation for the table before resolving")
	Root.AddCommand(resolve)
}

func runResolve(cmd *cobra.Command, args []string) error {
	ref, err := parseTableRef(args[0])
	if err != nil {
		return err
	}
	if metastoreDSN == "" {
		return lgerrors.New(lgerrors.InvalidArgument, "--metastore-dsn is required")
	}
	store, err := sqlcatalog.Open(metastoreDSN)
	if err != nil {
		return err
	}
	defer store.Close()

	hive := relation.NewHiveCatalog(store, fileindex.OSLister{}, opts)
	if refreshFirst {
		hive.Refresh(ref, ref.Database)
	}

	ctx := cmd.Context()
	tbl, err := store.GetTable(ctx, ref.Database, ref.Table)
	if err != nil {
		return err
	}
	rel, err := hive.Resolve(ctx, tbl)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "table:   %v\n", rel.Table)
	fmt.Fprintf(out, "format:  %s\n", rel.Kind)
	fmt.Fprintf(out, "schema:  %v\n", rel.Schema)
	if len(rel.PartitionSchema) > 0 {
		fmt.Fprintf(out, "partitioned by: %v\n", rel.PartitionSchema.FieldNames())
	}
	if rel.Bucket != nil {
		fmt.Fprintf(out, "buckets: %d on %v\n", rel.Bucket.NumBuckets, rel.Bucket.BucketColumns)
	}
	for _, root := range rel.Index.RootPaths() {
		fmt.Fprintf(out, "root:    %s\n", root)
	}
	return nil
}
