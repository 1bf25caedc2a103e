package model

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTimestamp_Unmarshal(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want time.Time
		zero bool
	}{
		{name: "rfc3339", in: `"2024-03-01T10:00:00Z"`, want: time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)},
		{name: "local date-time", in: `"2024-03-01T10:00:00"`, want: time.Date(2024, 3, 1, 10, 0, 0, 0, time.Local)},
		{name: "fractional local", in: `"2024-03-01T10:00:00.123"`, want: time.Date(2024, 3, 1, 10, 0, 0, 123000000, time.Local)},
		{name: "date only", in: `"2024-03-01"`, want: time.Date(2024, 3, 1, 0, 0, 0, 0, time.Local)},
		{name: "epoch millis", in: `1709287200000`, want: time.UnixMilli(1709287200000)},
		{name: "null", in: `null`, zero: true},
		{name: "empty", in: `""`, zero: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var ts Timestamp
			require.NoError(t, json.Unmarshal([]byte(tt.in), &ts))
			if tt.zero {
				assert.True(t, ts.IsZero())
				return
			}
			assert.True(t, tt.want.Equal(ts.Time), "got %v want %v", ts.Time, tt.want)
		})
	}
}

func TestTimestamp_UnmarshalRejectsGarbage(t *testing.T) {
	var ts Timestamp
	assert.Error(t, json.Unmarshal([]byte(`"yesterday"`), &ts))
}

func TestProfile_IsVIP(t *testing.T) {
	now := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)

	p := &Profile{}
	assert.False(t, p.IsVIP(now))

	p.VIPExpireDate = &Timestamp{Time: now.Add(time.Hour)}
	assert.True(t, p.IsVIP(now))

	p.VIPExpireDate = &Timestamp{Time: now.Add(-time.Hour)}
	assert.False(t, p.IsVIP(now))
}

func TestSession_Expired(t *testing.T) {
	now := time.Now()
	s := &Session{}
	assert.False(t, s.Expired(now), "no expiry means never expires")

	exp := now.Add(-time.Second)
	s.ExpiresAt = &exp
	assert.True(t, s.Expired(now))
}

func TestCode_Value(t *testing.T) {
	assert.Equal(t, int64(30), (&Code{Type: CodeTypeVIP, Days: 30, Points: 5}).Value())
	assert.Equal(t, int64(500), (&Code{Type: CodeTypePayment, Points: 500}).Value())
}

func TestFormatTime(t *testing.T) {
	assert.Equal(t, "-", FormatTime(nil))
	ts := &Timestamp{Time: time.Date(2024, 1, 2, 3, 4, 0, 0, time.Local)}
	assert.Equal(t, "2024-01-02 03:04", FormatTime(ts))
}

func TestText_Unmarshal(t *testing.T) {
	var rec Record
	require.NoError(t, json.Unmarshal([]byte(`{"id":12,"gameId":"g-7"}`), &rec))
	assert.Equal(t, Text("12"), rec.ID)
	assert.Equal(t, "g-7", rec.GameID.String())

	var code Code
	require.NoError(t, json.Unmarshal([]byte(`{"id":"c1","usedBy":null}`), &code))
	assert.Equal(t, "c1", code.ID.String())
	assert.Empty(t, code.UsedBy)

	assert.Error(t, json.Unmarshal([]byte(`{"id":{}}`), &code))
}

func TestTransaction_NumericIDs(t *testing.T) {
	var tx Transaction
	require.NoError(t, json.Unmarshal([]byte(`{"transactionId":17,"fromUser":7}`), &tx))
	assert.Equal(t, int64(17), tx.TransactionID)
	assert.Equal(t, int64(7), tx.FromUser)
}
