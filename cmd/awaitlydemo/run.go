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

	"github.com/jagreehal/awaitly-go/internal/coordinator"
	"github.com/jagreehal/awaitly-go/pkg/store"
	"github.com/jagreehal/awaitly-go/pkg/workflow"
)

func newRunCommand() *cobra.Command {
	var (
		runID       string
		failPayment bool
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Submit (or resume) the sample order workflow",
		Long: `Run submits the sample order workflow under --id. If a snapshot
already exists for that id (from a prior failed run), it resumes from
the last completed step instead of starting over.

Pass --fail-payment to simulate a failing charge-payment step; run the
same --id again without the flag to watch charge-payment retry while
fetch-user is skipped entirely.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			fstore, err := store.NewFileStore(storeDir)
			if err != nil {
				return err
			}

			c := coordinator.New(nil)
			out := coordinator.Run(cmd.Context(), c, orderWorkflow(failPayment),
				coordinator.WithID(runID),
				coordinator.WithStore(fstore),
				coordinator.WithOnEvent(func(e workflow.Event) {
					if e.StepID == "" {
						return
					}
					fmt.Fprintf(cmd.OutOrStdout(), "  [%s] %s\n", e.Type, e.StepID)
				}),
			)

			if out.IsErr() {
				return fmt.Errorf("run %q failed: %w", runID, out.Error())
			}
			v, _ := out.Value()
			fmt.Fprintf(cmd.OutOrStdout(), "run %q completed: user=%d order=%s\n", runID, v.UserID, v.OrderID)
			return nil
		},
	}

	cmd.Flags().StringVar(&runID, "id", "", "run identity (snapshot key); required")
	cmd.Flags().BoolVar(&failPayment, "fail-payment", false, "simulate a failing charge-payment step")
	_ = cmd.MarkFlagRequired("id")
	return cmd
}
