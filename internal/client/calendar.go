package client

//go:generate mockgen -source=calendar.go -destination=mocks/mock_calendar.go -package=mocks

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/TimUdinusYes/backend/internal/model"
	"golang.org/x/time/rate"
)

const (
	// CalendarBaseURL é a raiz da API REST do Google Calendar
	CalendarBaseURL = "https://www.googleapis.com/calendar/v3"

	// PrimaryCalendar é o calendário padrão do usuário autenticado
	PrimaryCalendar = "primary"
)

// EventInput descreve um evento a ser criado
type EventInput struct {
	Summary         string
	Description     string
	Start           time.Time
	End             time.Time
	ColorID         string
	ReminderMinutes int
}

// CalendarAPI cria eventos no calendário de quem possui o token
type CalendarAPI interface {
	InsertEvent(ctx context.Context, accessToken string, ev EventInput) (string, error)
}

// CalendarError é o erro retornado pela API do calendário
type CalendarError struct {
	Status  int
	Message string
}

func (e *CalendarError) Error() string {
	return fmt.Sprintf("calendar API error (%d): %s", e.Status, e.Message)
}

// Unwrap expõe os sentinelas de model para errors.Is
func (e *CalendarError) Unwrap() error {
	switch e.Status {
	case http.StatusUnauthorized:
		return model.ErrUnauthorized
	case http.StatusTooManyRequests:
		return model.ErrRateLimited
	case http.StatusNotFound:
		return model.ErrNotFound
	}
	return nil
}

// CalendarClient é o cliente HTTP para a API do Google Calendar
type CalendarClient struct {
	baseURL    string
	calendarID string
	httpClient *http.Client
	limiter    *rate.Limiter
}

// CalendarOption configura o CalendarClient
type CalendarOption func(*CalendarClient)

// WithCalendarBaseURL aponta o cliente para outro host (testes)
func WithCalendarBaseURL(u string) CalendarOption {
	return func(c *CalendarClient) { c.baseURL = strings.TrimRight(u, "/") }
}

// NewCalendarClient cria um novo cliente de calendário
func NewCalendarClient(opts ...CalendarOption) *CalendarClient {
	c := &CalendarClient{
		baseURL:    CalendarBaseURL,
		calendarID: PrimaryCalendar,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		limiter:    rate.NewLimiter(rate.Limit(5), 10),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type eventTime struct {
	DateTime string `json:"dateTime"`
	TimeZone string `json:"timeZone,omitempty"`
}

type eventReminder struct {
	Method  string `json:"method"`
	Minutes int    `json:"minutes"`
}

type eventBody struct {
	Summary     string    `json:"summary"`
	Description string    `json:"description,omitempty"`
	Start       eventTime `json:"start"`
	End         eventTime `json:"end"`
	ColorID     string    `json:"colorId,omitempty"`
	Reminders   struct {
		UseDefault bool            `json:"useDefault"`
		Overrides  []eventReminder `json:"overrides,omitempty"`
	} `json:"reminders"`
}

func newEventBody(ev EventInput) eventBody {
	body := eventBody{
		Summary:     ev.Summary,
		Description: ev.Description,
		Start:       eventTime{DateTime: ev.Start.Format(time.RFC3339), TimeZone: zoneName(ev.Start)},
		End:         eventTime{DateTime: ev.End.Format(time.RFC3339), TimeZone: zoneName(ev.End)},
		ColorID:     ev.ColorID,
	}
	if ev.ReminderMinutes > 0 {
		body.Reminders.Overrides = []eventReminder{{Method: "popup", Minutes: ev.ReminderMinutes}}
	} else {
		body.Reminders.UseDefault = true
	}
	return body
}

// zoneName só devolve nomes IANA; offsets fixos ficam no próprio dateTime
func zoneName(t time.Time) string {
	name := t.Location().String()
	if name == "UTC" || strings.Contains(name, "/") {
		return name
	}
	return ""
}

// InsertEvent cria um evento e retorna seu ID remoto
func (c *CalendarClient) InsertEvent(ctx context.Context, accessToken string, ev EventInput) (string, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("rate limiter: %w", err)
	}

	data, err := json.Marshal(newEventBody(ev))
	if err != nil {
		return "", fmt.Errorf("marshal body: %w", err)
	}

	path := fmt.Sprintf("%s/calendars/%s/events", c.baseURL, url.PathEscape(c.calendarID))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, path, bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("criar request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return "", model.ErrTimeout
		}
		return "", fmt.Errorf("executar request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("ler resposta: %w", err)
	}

	if resp.StatusCode >= 400 {
		var errResp struct {
			Error struct {
				Code    int    `json:"code"`
				Message string `json:"message"`
			} `json:"error"`
		}
		if json.Unmarshal(respBody, &errResp) == nil && errResp.Error.Message != "" {
			return "", &CalendarError{Status: resp.StatusCode, Message: errResp.Error.Message}
		}
		return "", &CalendarError{Status: resp.StatusCode, Message: truncate(string(respBody), 300)}
	}

	var created struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(respBody, &created); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}
	if created.ID == "" {
		return "", fmt.Errorf("%w: evento sem id", model.ErrInvalidResponse)
	}
	return created.ID, nil
}
