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
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jagreehal/awaitly-go/pkg/store"
)

func newListCommand() *cobra.Command {
	var prefix string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List runs with a persisted (unfinished) snapshot",
		RunE: func(cmd *cobra.Command, args []string) error {
			fstore, err := store.NewFileStore(storeDir)
			if err != nil {
				return err
			}
			records, err := fstore.List(cmd.Context(), store.ListOptions{Prefix: prefix})
			if err != nil {
				return err
			}
			if len(records) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "no in-flight runs")
				return nil
			}
			for _, r := range records {
				fmt.Fprintf(cmd.OutOrStdout(), "%s\tlast updated %s\n", r.ID, r.UpdatedAt.Format("2006-01-02T15:04:05Z07:00"))
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&prefix, "prefix", "", "only list run ids with this prefix")
	return cmd
}
