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

package result_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jagreehal/awaitly-go/pkg/result"
)

var errBoom = errors.New("boom")

func TestOkErrBasics(t *testing.T) {
	ok := result.Ok(42)
	assert.True(t, ok.IsOk())
	assert.False(t, ok.IsErr())
	v, isOk := ok.Value()
	assert.True(t, isOk)
	assert.Equal(t, 42, v)
	assert.Nil(t, ok.Error())

	e := result.Err[int](errBoom, "raw-cause")
	assert.False(t, e.IsOk())
	assert.True(t, e.IsErr())
	assert.Equal(t, errBoom, e.Error())
	assert.Equal(t, "raw-cause", e.Cause())
}

func TestMapIdentityLaw(t *testing.T) {
	r := result.Ok(7)
	identity := func(x int) int { return x }
	mapped := result.Map(r, identity)
	assert.Equal(t, r, mapped)
}

func TestMapOkAndErr(t *testing.T) {
	ok := result.Map(result.Ok(3), func(x int) int { return x * 2 })
	assert.Equal(t, result.Ok(6), ok)

	e := result.Err[int](errBoom, "c")
	mapped := result.Map(e, func(x int) int { return x * 2 })
	require.True(t, mapped.IsErr())
	assert.Equal(t, errBoom, mapped.Error())
	assert.Equal(t, "c", mapped.Cause())
}

func TestAndThen(t *testing.T) {
	double := func(x int) result.Result[int] { return result.Ok(x * 2) }

	ok := result.AndThen(result.Ok(5), double)
	assert.Equal(t, result.Ok(10), ok)

	e := result.Err[int](errBoom, "c")
	chained := result.AndThen(e, double)
	assert.True(t, chained.IsErr())
	assert.Equal(t, errBoom, chained.Error())
	assert.Equal(t, "c", chained.Cause())
}

func TestMatchExhaustive(t *testing.T) {
	okOut := result.Match(result.Ok(1),
		func(v int) string { return "ok" },
		func(err error, cause any) string { return "err" },
	)
	assert.Equal(t, "ok", okOut)

	errOut := result.Match(result.Err[int](errBoom, nil),
		func(v int) string { return "ok" },
		func(err error, cause any) string { return "err" },
	)
	assert.Equal(t, "err", errOut)
}

func TestOrElseAndRecover(t *testing.T) {
	recovered := result.OrElse(result.Err[int](errBoom, nil), func(err error, cause any) result.Result[int] {
		return result.Ok(99)
	})
	assert.Equal(t, result.Ok(99), recovered)

	passthrough := result.OrElse(result.Ok(1), func(err error, cause any) result.Result[int] {
		return result.Ok(99)
	})
	assert.Equal(t, result.Ok(1), passthrough)

	total := result.Recover(result.Err[int](errBoom, nil), func(err error, cause any) int { return -1 })
	assert.Equal(t, -1, total)
}

func TestBimap(t *testing.T) {
	ok := result.Bimap(result.Ok(2),
		func(v int) int { return v + 1 },
		func(err error, cause any) (error, any) { return err, cause },
	)
	assert.Equal(t, result.Ok(3), ok)

	e := result.Bimap(result.Err[int](errBoom, "c"),
		func(v int) int { return v + 1 },
		func(err error, cause any) (error, any) { return errors.New("wrapped: " + err.Error()), cause },
	)
	require.True(t, e.IsErr())
	assert.Equal(t, "wrapped: boom", e.Error().Error())
}

func TestTapAndTapError(t *testing.T) {
	var sawOk, sawErr bool
	result.Tap(result.Ok(1), func(v int) { sawOk = true })
	result.Tap(result.Err[int](errBoom, nil), func(v int) { t.Fatal("should not run") })
	result.TapError(result.Err[int](errBoom, nil), func(err error, cause any) { sawErr = true })
	result.TapError(result.Ok(1), func(err error, cause any) { t.Fatal("should not run") })

	assert.True(t, sawOk)
	assert.True(t, sawErr)
}

func TestMapTryCapturesPanicAndError(t *testing.T) {
	mapErr := func(thrown any) error { return errors.New("mapped") }

	panicking := result.MapTry(result.Ok(1), func(v int) (int, error) {
		panic("kaboom")
	}, mapErr)
	require.True(t, panicking.IsErr())
	assert.Equal(t, "mapped", panicking.Error().Error())
	assert.Equal(t, "kaboom", panicking.Cause())

	erroring := result.MapTry(result.Ok(1), func(v int) (int, error) {
		return 0, errors.New("inner")
	}, mapErr)
	require.True(t, erroring.IsErr())
	assert.Equal(t, "mapped", erroring.Error().Error())

	passthroughErr := result.MapTry(result.Err[int](errBoom, "c"), func(v int) (int, error) {
		t.Fatal("should not run")
		return 0, nil
	}, mapErr)
	assert.Equal(t, errBoom, passthroughErr.Error())
	assert.Equal(t, "c", passthroughErr.Cause())

	ok := result.MapTry(result.Ok(4), func(v int) (int, error) {
		return v * 10, nil
	}, mapErr)
	assert.Equal(t, result.Ok(40), ok)
}

func TestJSONRoundTrip(t *testing.T) {
	ok := result.Ok(map[string]any{"a": 1.0})
	data, err := ok.MarshalJSON()
	require.NoError(t, err)

	var decoded result.Result[map[string]any]
	require.NoError(t, decoded.UnmarshalJSON(data))
	assert.Equal(t, ok, decoded)

	e := result.Err[int](errBoom, "c")
	data, err = e.MarshalJSON()
	require.NoError(t, err)

	var decodedErr result.Result[int]
	require.NoError(t, decodedErr.UnmarshalJSON(data))
	assert.True(t, decodedErr.IsErr())
	assert.Equal(t, "boom", decodedErr.Error().Error())
	assert.Equal(t, "c", decodedErr.Cause())
}
