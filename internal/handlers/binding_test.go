package handlers

import (
	"bytes"
	"io"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nisalrtu/digibrand-cms-sub002/internal/services"
)

func TestBindNestedOrFlat(t *testing.T) {
	gin.SetMode(gin.TestMode)

	tests := []struct {
		name        string
		key         string
		body        string
		expected    services.CreateClientInput
		expectError bool
	}{
		{
			name:     "nested",
			key:      "client",
			body:     `{"client": {"company_name": "Acme", "city": "Kandy"}}`,
			expected: services.CreateClientInput{CompanyName: "Acme", City: "Kandy"},
		},
		{
			name:     "flat",
			key:      "client",
			body:     `{"company_name": "Globex", "city": "Galle"}`,
			expected: services.CreateClientInput{CompanyName: "Globex", City: "Galle"},
		},
		{
			name:     "other keys fall back to flat",
			key:      "client",
			body:     `{"other": "value", "company_name": "Initech"}`,
			expected: services.CreateClientInput{CompanyName: "Initech"},
		},
		{
			name:        "wrong type",
			key:         "client",
			body:        `{"company_name": 42}`,
			expectError: true,
		},
		{
			name:        "nested but wrong type",
			key:         "client",
			body:        `{"client": {"company_name": 42}}`,
			expectError: true,
		},
		{
			name:     "nested wins over top-level fields",
			key:      "client",
			body:     `{"client": {"company_name": "Umbrella"}, "company_name": "ignored"}`,
			expected: services.CreateClientInput{CompanyName: "Umbrella"},
		},
		{
			name:        "empty body",
			key:         "client",
			body:        "  ",
			expectError: true,
		},
		{
			name:        "nested key holds a string",
			key:         "client",
			body:        `{"client": "Acme"}`,
			expectError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(w)
			c.Request = httptest.NewRequest("POST", "/", bytes.NewBufferString(tt.body))
			c.Request.Header.Set("Content-Type", "application/json")

			var result services.CreateClientInput
			err := BindNestedOrFlat(c, tt.key, &result)

			if tt.expectError {
				assert.Error(t, err)
				if strings.TrimSpace(tt.body) == "" {
					assert.ErrorIs(t, err, io.EOF)
				}
			} else {
				assert.NoError(t, err)
				assert.Equal(t, tt.expected, result)
			}
		})
	}
}

func TestRecordPaymentRequest_Amount(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		want    string
		wantErr bool
	}{
		{name: "string", raw: `"400.00"`, want: "400"},
		{name: "number", raw: `250.5`, want: "250.5"},
		{name: "missing", raw: ``},
		{name: "null", raw: `null`},
		{name: "text", raw: `"abc"`, wantErr: true},
		{name: "empty string", raw: `""`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in, err := RecordPaymentRequest{Amount: []byte(tt.raw), Method: " cash "}.toInput()
			if tt.wantErr {
				require.Error(t, err)
				assert.ErrorIs(t, err, services.ErrInvalidAmount)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, "cash", in.Method)
			if tt.want == "" {
				assert.Nil(t, in.Amount)
				return
			}
			require.NotNil(t, in.Amount)
			assert.Equal(t, tt.want, in.Amount.String())
		})
	}
}
