// Copyright 2025 Tom Barlow
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package main

import (
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

var storeDir string

// newRootCommand builds the root command and registers every
// subcommand, mirroring the teacher's single persistent-flags-plus-
// subcommands layout.
func newRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "awaitlydemo",
		Short:         "Run a sample durable workflow against a file-backed snapshot store",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.PersistentFlags().StringVar(&storeDir, "store-dir", "./awaitlydemo-runs", "directory holding one snapshot file per run")
	cmd.PersistentFlags().SetNormalizeFunc(normalizeFlagNames)

	cmd.AddCommand(newRunCommand())
	cmd.AddCommand(newListCommand())
	cmd.AddCommand(newClearCommand())
	return cmd
}

// normalizeFlagNames folds underscores to dashes so --store_dir and
// --store-dir resolve to the same flag; imports pflag directly rather
// than only through cobra's embedded flag set.
func normalizeFlagNames(f *pflag.FlagSet, name string) pflag.NormalizedName {
	return pflag.NormalizedName(strings.ReplaceAll(name, "_", "-"))
}
