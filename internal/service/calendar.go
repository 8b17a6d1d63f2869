package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/TimUdinusYes/backend/internal/client"
	"github.com/TimUdinusYes/backend/internal/logger"
	"github.com/TimUdinusYes/backend/internal/model"
)

const (
	// EventColorID is the calendar color applied to every study session.
	EventColorID = "9"
	// EventReminderMinutes is the popup reminder lead time.
	EventReminderMinutes = 30
)

// ExportError reports where an export stopped. Events in Created stay in
// the remote calendar; nothing is rolled back.
type ExportError struct {
	Created []string
	Index   int
	Err     error
}

func (e *ExportError) Error() string {
	return fmt.Sprintf("calendar export stopped at event %d after creating %d: %v", e.Index+1, len(e.Created), e.Err)
}

func (e *ExportError) Unwrap() error { return e.Err }

// ExportProgress is reported after each created event.
type ExportProgress func(created, total int, eventID string)

// CalendarExporter writes study sessions to the remote calendar.
type CalendarExporter struct {
	api client.CalendarAPI
}

// NewCalendarExporter creates an exporter on top of the calendar API.
func NewCalendarExporter(api client.CalendarAPI) *CalendarExporter {
	return &CalendarExporter{api: api}
}

// Export creates the events in order and stops at the first failure.
// progress may be nil.
func (x *CalendarExporter) Export(ctx context.Context, accessToken string, events []model.CalendarEvent, progress ExportProgress) ([]string, error) {
	ids := make([]string, 0, len(events))

	for i, ev := range events {
		id, err := x.api.InsertEvent(ctx, accessToken, client.EventInput{
			Summary:         ev.Title,
			Description:     ev.Description,
			Start:           ev.StartDate,
			End:             ev.EndDate(),
			ColorID:         EventColorID,
			ReminderMinutes: EventReminderMinutes,
		})
		if err != nil {
			logger.Get(ctx).Error().Err(err).
				Int("index", i).
				Int("created", len(ids)).
				Int("total", len(events)).
				Msg("Calendar event creation failed, stopping export")
			return ids, &ExportError{Created: ids, Index: i, Err: err}
		}

		ids = append(ids, id)
		if progress != nil {
			progress(len(ids), len(events), id)
		}
	}

	return ids, nil
}

// GenericCalendarError is shown for calendar failures with no specific advice.
const GenericCalendarError = "Failed to create events in Google Calendar."

// FriendlyCalendarError turns known calendar failures into actionable text.
// Anything unrecognised gets a generic message.
func FriendlyCalendarError(err error) string {
	if err == nil {
		return ""
	}
	if errors.Is(err, model.ErrNoCalendarToken) {
		return "Google Calendar is not connected. Connect your calendar and try again."
	}

	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "insufficient"):
		return "Google Calendar permission is missing. Reconnect your calendar and allow access to events."
	case strings.Contains(msg, "invalid_grant"):
		return "Your Google Calendar session has expired or was revoked. Please reconnect your calendar."
	case errors.Is(err, model.ErrUnauthorized):
		return "Google Calendar rejected the access token. Please reconnect your calendar."
	}
	return GenericCalendarError
}
