package http

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type pairRequest struct {
	Pair string `param:"pair" validate:"required,alphanum,min=3,max=16"`
	Wait bool   `query:"wait" default:"false"`
}

func newPairContext(pair string) echo.Context {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/api/dashboard/"+pair, nil)
	c := e.NewContext(req, httptest.NewRecorder())
	c.SetParamNames("pair")
	c.SetParamValues(pair)
	return c
}

func TestReadAndValidateRequestAccepts(t *testing.T) {
	req := &pairRequest{}
	assert.Nil(t, ReadAndValidateRequest(newPairContext("XAUUSD"), req))
	assert.Equal(t, "XAUUSD", req.Pair)
}

func TestReadAndValidateRequestDescribesFailures(t *testing.T) {
	cases := []struct {
		pair string
		want ValidationError
	}{
		{"X1", ValidationError{
			Code:    "ERR_MIN",
			Field:   "pair",
			Message: "pair must be at least 3 characters",
			Params:  map[string]interface{}{"min": "3"},
		}},
		{"XAU-USD", ValidationError{
			Code:    "ERR_ALPHANUM",
			Field:   "pair",
			Message: "pair must contain only letters and digits",
		}},
		{"ABCDEFGHIJKLMNOPQ", ValidationError{
			Code:    "ERR_MAX",
			Field:   "pair",
			Message: "pair must be at most 16 characters",
			Params:  map[string]interface{}{"max": "16"},
		}},
	}
	for _, tc := range cases {
		got := ReadAndValidateRequest(newPairContext(tc.pair), &pairRequest{})
		require.NotNil(t, got, tc.pair)
		errs, ok := got.([]ValidationError)
		require.True(t, ok, tc.pair)
		require.Len(t, errs, 1, tc.pair)
		assert.Equal(t, tc.want, errs[0], tc.pair)
	}
}
