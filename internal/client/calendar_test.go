package client

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/TimUdinusYes/backend/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCalendarInsertEvent(t *testing.T) {
	var body eventBody
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/calendars/primary/events", r.URL.Path)
		assert.Equal(t, "Bearer user-token", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		_, _ = w.Write([]byte(`{"id":"evt_1"}`))
	}))
	defer srv.Close()

	start := time.Date(2024, 3, 1, 19, 0, 0, 0, time.UTC)
	c := NewCalendarClient(WithCalendarBaseURL(srv.URL))
	id, err := c.InsertEvent(context.Background(), "user-token", EventInput{
		Summary:         "Go (Part 1/2)",
		Start:           start,
		End:             start.Add(2 * time.Hour),
		ColorID:         "9",
		ReminderMinutes: 30,
	})

	require.NoError(t, err)
	assert.Equal(t, "evt_1", id)
	assert.Equal(t, "Go (Part 1/2)", body.Summary)
	assert.Equal(t, "2024-03-01T19:00:00Z", body.Start.DateTime)
	assert.Equal(t, "2024-03-01T21:00:00Z", body.End.DateTime)
	assert.Equal(t, "UTC", body.Start.TimeZone)
	assert.Equal(t, "9", body.ColorID)
	assert.False(t, body.Reminders.UseDefault)
	require.Len(t, body.Reminders.Overrides, 1)
	assert.Equal(t, eventReminder{Method: "popup", Minutes: 30}, body.Reminders.Overrides[0])
}

func TestCalendarInsertEventErrorBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":{"code":401,"message":"Invalid Credentials"}}`))
	}))
	defer srv.Close()

	c := NewCalendarClient(WithCalendarBaseURL(srv.URL))
	_, err := c.InsertEvent(context.Background(), "bad", EventInput{Start: time.Now(), End: time.Now()})

	var calErr *CalendarError
	require.ErrorAs(t, err, &calErr)
	assert.Equal(t, "Invalid Credentials", calErr.Message)
	assert.ErrorIs(t, err, model.ErrUnauthorized)
}

func TestZoneName(t *testing.T) {
	jakarta, err := time.LoadLocation("Asia/Jakarta")
	if err != nil {
		t.Skip("tzdata indisponível")
	}
	assert.Equal(t, "Asia/Jakarta", zoneName(time.Now().In(jakarta)))
	assert.Equal(t, "UTC", zoneName(time.Now().UTC()))
	assert.Equal(t, "", zoneName(time.Now().In(time.FixedZone("WIB", 7*3600))))
}
