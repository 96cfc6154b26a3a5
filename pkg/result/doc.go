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

/*
Package result implements a typed success/failure value (a Result)
with a set of pure, total combinators and a family of aggregators for
fail-fast and collect-all composition over slices of Results.

# Key Types

  - Result[T]: the sum type, either Ok (carries a T) or Err (carries an
    error plus an opaque cause).

# Combinators

Map, MapError, AndThen, OrElse, Recover, Bimap, Match, Tap, TapError,
MapTry and MapErrorTry are pure and never panic on well-formed input.

# Aggregators

All and AllAsync implement fail-fast semantics: the first Err by input
order (for All) or by completion order (for AllAsync, which does not
wait for still-running work once an Err is observed) wins. Any and
AnyAsync return the first Ok. AllSettled and AllSettledAsync always
evaluate every input and report every outcome. Zip and ZipAsync are the
two-input, two-type specialization of All.

Async variants treat a panic inside a thunk the way the source system
treats a rejected promise: it is recovered and reported as a
PromiseRejected error carrying the recovered value as Cause.
*/
package result
