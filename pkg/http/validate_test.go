package http

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type listRequest struct {
	Window string `query:"window" default:"1d" validate:"oneof=1d 1w 1m"`
	Zone   string `query:"tz" default:"UTC" validate:"required,max=8"`
}

func bindQuery(t *testing.T, query string) interface{} {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/x?"+query, nil)
	c := e.NewContext(req, httptest.NewRecorder())
	var r listRequest
	return ReadAndValidateRequest(c, &r)
}

func TestReadAndValidateRequest_Defaults(t *testing.T) {
	e := echo.New()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/x", nil), httptest.NewRecorder())
	var r listRequest
	require.Nil(t, ReadAndValidateRequest(c, &r))
	assert.Equal(t, "1d", r.Window)
	assert.Equal(t, "UTC", r.Zone)
}

func TestReadAndValidateRequest_Errors(t *testing.T) {
	verr := bindQuery(t, "window=2y")
	errs, ok := verr.([]ValidationError)
	require.True(t, ok)
	require.Len(t, errs, 1)
	assert.Equal(t, "ERR_ONEOF", errs[0].Code)
	assert.Equal(t, "window", errs[0].Field)
	assert.Equal(t, "window must be one of: 1d, 1w, 1m", errs[0].Message)

	verr = bindQuery(t, "tz=America/Los_Angeles")
	errs = verr.([]ValidationError)
	require.Len(t, errs, 1)
	assert.Equal(t, "ERR_MAX", errs[0].Code)
	assert.Equal(t, "tz", errs[0].Field)
}
