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
	"context"
	"errors"
	"fmt"

	"github.com/jagreehal/awaitly-go/pkg/result"
	"github.com/jagreehal/awaitly-go/pkg/workflow"
)

// orderResult is the business payload produced by orderWorkflow.
type orderResult struct {
	UserID  int
	OrderID string
}

var errPaymentDeclined = errors.New("payment provider declined the charge")

// orderWorkflow is the sample three-step body exercised by the "run"
// subcommand: fetch the user, charge payment, then create the order.
// failPayment simulates a transient failure at the charge-payment step
// so the demo can show a resumed run skip fetch-user but retry charge.
func orderWorkflow(failPayment bool) workflow.Body[orderResult] {
	return func(ctx context.Context, s *workflow.Step) result.Result[orderResult] {
		userID := workflow.Do(ctx, s, "fetch-user", func(context.Context) result.Result[int] {
			return result.Ok(42)
		})

		workflow.Do(ctx, s, "charge-payment", func(context.Context) result.Result[bool] {
			if failPayment {
				return result.Err[bool](errPaymentDeclined, nil)
			}
			return result.Ok(true)
		})

		orderID := workflow.Do(ctx, s, "create-order", func(context.Context) result.Result[string] {
			return result.Ok(fmt.Sprintf("order-for-user-%d", userID))
		})

		return result.Ok(orderResult{UserID: userID, OrderID: orderID})
	}
}
