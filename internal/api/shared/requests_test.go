package shared

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testPayload struct {
	Name  string `json:"name" validate:"required"`
	Count int    `json:"count" validate:"gte=0"`
}

type selfValidating struct {
	ok bool
}

func (s selfValidating) Validate() error {
	if !s.ok {
		return assert.AnError
	}
	return nil
}

func TestDecodeJSON(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		want    testPayload
		wantErr error
		anyErr  bool
	}{
		{name: "valid", body: `{"name":"Paris","count":2}`, want: testPayload{Name: "Paris", Count: 2}},
		{name: "unknown fields ignored", body: `{"name":"Paris","extra":true}`, want: testPayload{Name: "Paris"}},
		{name: "empty body", body: "", wantErr: ErrEmptyBody},
		{name: "malformed", body: `{"name":`, anyErr: true},
		{name: "wrong type", body: `{"name":3}`, anyErr: true},
		{name: "trailing data", body: `{"name":"a"}{"name":"b"}`, anyErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(tt.body))
			w := httptest.NewRecorder()

			var got testPayload
			err := DecodeJSON(w, r, &got)

			switch {
			case tt.wantErr != nil:
				assert.ErrorIs(t, err, tt.wantErr)
			case tt.anyErr:
				assert.Error(t, err)
			default:
				require.NoError(t, err)
				assert.Equal(t, tt.want, got)
			}
		})
	}
}

func TestDecodeJSON_TooLarge(t *testing.T) {
	body := `{"name":"` + strings.Repeat("x", MaxBodyBytes) + `"}`
	r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))

	var got testPayload
	var maxErr *http.MaxBytesError
	err := DecodeJSON(httptest.NewRecorder(), r, &got)
	assert.ErrorAs(t, err, &maxErr)
}

func TestValidateRequest(t *testing.T) {
	assert.NoError(t, ValidateRequest(&testPayload{Name: "a"}))
	assert.Error(t, ValidateRequest(&testPayload{}))
	assert.Error(t, ValidateRequest(&testPayload{Name: "a", Count: -1}))

	assert.NoError(t, ValidateRequest(selfValidating{ok: true}))
	assert.ErrorIs(t, ValidateRequest(selfValidating{}), assert.AnError)
}
