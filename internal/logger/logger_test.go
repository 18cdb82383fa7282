package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLogger_WritesStructuredRecord(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithWriter("order-service", &buf)

	log.Info("order_placed", "Order placed", "req-1", map[string]interface{}{"order_id": 7})

	var rec map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))

	assert.Equal(t, "INFO", rec["level"])
	assert.Equal(t, "Order placed", rec["msg"])
	assert.Equal(t, "order-service", rec["service"])
	assert.Equal(t, "order_placed", rec["action"])
	assert.Equal(t, "req-1", rec["request_id"])

	details, ok := rec["details"].(map[string]interface{})
	require.True(t, ok, "details group missing")
	assert.EqualValues(t, 7, details["order_id"])
}

func TestLogger_ErrorIncludesErrorGroup(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithWriter("order-service", &buf)

	log.Error("db_query_failed", "Query failed", "req-2", errors.New("boom"), nil)

	var rec map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))

	errGroup, ok := rec["error"].(map[string]interface{})
	require.True(t, ok, "error group missing")
	assert.Equal(t, "boom", errGroup["msg"])
	assert.NotEmpty(t, errGroup["stack"])
	assert.NotContains(t, rec, "details")
}

func TestRequestIDContext(t *testing.T) {
	ctx := context.Background()
	assert.Equal(t, "", RequestIDFrom(ctx))

	id := GenerateRequestID()
	assert.Len(t, id, 36)
	assert.Equal(t, id, RequestIDFrom(WithRequestID(ctx, id)))
}
