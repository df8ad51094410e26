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

// Package command defines the lakegate CLI, a small diagnostics surface
// over the relation cache: it resolves tables against a SQL-resident
// metastore the same way an embedding engine would.
package command

import (
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/lakegate/lakegate/go/lg/catalog"
	"github.com/lakegate/lakegate/go/lg/lgerrors"
	"github.com/lakegate/lakegate/go/lg/log"
	"github.com/lakegate/lakegate/go/lg/session"
)

var (
	metastoreDSN string
	configFile   string

	opts = session.DefaultOptions()

	// Root is the main lakegate command.
	Root = &cobra.Command{
		Use:   "lakegate",
		Short: "Inspect and resolve metastore tables the way the engine does.",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return loadConfig(cmd)
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}
)

func init() {
	Root.PersistentFlags().StringVar(&metastoreDSN, "metastore-dsn", "",
		"postgres connection string of the metastore database")
	Root.PersistentFlags().StringVar(&configFile, "config", "",
		"optional configuration file with session option defaults")
	opts.RegisterFlags(Root.PersistentFlags())
	log.RegisterFlags(Root.PersistentFlags())
}

// loadConfig overlays the config file, if any, under the flags: a flag
// set explicitly on the command line always wins.
func loadConfig(cmd *cobra.Command) error {
	if configFile == "" {
		return nil
	}
	v := viper.New()
	v.SetConfigFile(configFile)
	if err := v.ReadInConfig(); err != nil {
		return lgerrors.Wrapf(err, "reading config file %s", configFile)
	}
	fromFile, err := session.FromViper(v)
	if err != nil {
		return err
	}
	merged := *fromFile
	flagged := *opts
	fs := cmd.Flags()
	if fs.Changed(session.KeyConvertMetastoreParquet) {
		merged.ConvertMetastoreParquet = flagged.ConvertMetastoreParquet
	}
	if fs.Changed(session.KeyConvertMetastoreParquetMerge) {
		merged.ConvertMetastoreParquetWithSchemaMerging = flagged.ConvertMetastoreParquetWithSchemaMerging
	}
	if fs.Changed(session.KeyConvertMetastoreOrc) {
		merged.ConvertMetastoreOrc = flagged.ConvertMetastoreOrc
	}
	if fs.Changed(session.KeyManageFilesourcePartitions) {
		merged.ManageFilesourcePartitions = flagged.ManageFilesourcePartitions
	}
	if fs.Changed(session.KeyCaseSensitiveInferenceMode) {
		merged.InferenceMode = flagged.InferenceMode
	}
	if fs.Changed(session.KeyRelationCacheCapacity) {
		merged.RelationCacheCapacity = flagged.RelationCacheCapacity
	}
	*opts = merged
	return nil
}

// parseTableRef splits a db.table argument.
func parseTableRef(arg string) (catalog.TableName, error) {
	parts := strings.SplitN(arg, ".", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return catalog.TableName{}, lgerrors.Errorf(lgerrors.InvalidArgument,
			"table reference %q must have the form db.table", arg)
	}
	return catalog.TableName{Database: parts[0], Table: parts[1]}, nil
}
