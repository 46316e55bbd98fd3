// Copyright 2025 Zintix Labs
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

package httperr

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zintix-labs/footprob/errs"
)

func TestStatusCode(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{context.DeadlineExceeded, http.StatusGatewayTimeout},
		{fmt.Errorf("run: %w", context.Canceled), http.StatusRequestTimeout},
		{&http.MaxBytesError{Limit: 10}, http.StatusRequestEntityTooLarge},
		{fmt.Errorf("toggle: %w", ErrUnauthorized), http.StatusUnauthorized},
		{errs.Kindf(errs.MalformedInput, "bad"), http.StatusBadRequest},
		{errs.Kindf(errs.Config, "bad config"), http.StatusInternalServerError},
		{errs.NewFatal("boom"), http.StatusInternalServerError},
		{errors.New("plain"), http.StatusInternalServerError},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, StatusCode(c.err), c.err.Error())
	}
}

func TestErrsWritesBody(t *testing.T) {
	rec := httptest.NewRecorder()
	Errs(rec, errs.Kindf(errs.MissingInput, "market is required"))
	require.Equal(t, http.StatusBadRequest, rec.Code)

	var b Body
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &b))
	assert.Equal(t, "missing_input", b.Kind)
	assert.Equal(t, http.StatusBadRequest, b.Status)

	rec = httptest.NewRecorder()
	Errs(rec, nil)
	assert.Zero(t, rec.Body.Len())
}
