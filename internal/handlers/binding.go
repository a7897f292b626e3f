package handlers

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
)

// maxBodyBytes caps request bodies read by BindNestedOrFlat
const maxBodyBytes = 1 << 20

// BindNestedOrFlat decodes a JSON body into obj. Clients may wrap the
// resource under its name, as in {"payment": {"amount": "40.00", ...}},
// or send the fields at the top level. An empty body is io.EOF so the
// caller can report a missing body instead of malformed JSON.
//
// The body is restored afterwards so later reads see the same bytes.
func BindNestedOrFlat(c *gin.Context, key string, obj interface{}) error {
	if c.Request.Body == nil {
		return io.EOF
	}
	body, err := io.ReadAll(http.MaxBytesReader(c.Writer, c.Request.Body, maxBodyBytes))
	if err != nil {
		return fmt.Errorf("read request body: %w", err)
	}
	c.Request.Body = io.NopCloser(bytes.NewReader(body))

	if len(bytes.TrimSpace(body)) == 0 {
		return io.EOF
	}

	payload := body
	var envelope map[string]json.RawMessage
	if json.Unmarshal(body, &envelope) == nil {
		if nested, ok := envelope[key]; ok {
			payload = nested
		}
	}
	return json.Unmarshal(payload, obj)
}
