package provider

import (
	"context"
	"fmt"
	"time"

	"assistant_server/core/domain"

	"golang.org/x/oauth2"
	"google.golang.org/api/calendar/v3"
	"google.golang.org/api/option"
)

// GoogleCalendarAdapter implements out.CalendarClient against the Google
// Calendar FreeBusy API. Per-request like the mail adapter.
type GoogleCalendarAdapter struct {
	oauthConfig *oauth2.Config
	token       *oauth2.Token
}

func NewGoogleCalendarAdapter(oauthConfig *oauth2.Config, token *oauth2.Token) *GoogleCalendarAdapter {
	return &GoogleCalendarAdapter{oauthConfig: oauthConfig, token: token}
}

func (a *GoogleCalendarAdapter) service(ctx context.Context) (*calendar.Service, error) {
	client := a.oauthConfig.Client(ctx, a.token)
	return calendar.NewService(ctx, option.WithHTTPClient(client))
}

// BusyIntervals queries the user's primary calendar for blocked spans between
// from and to.
func (a *GoogleCalendarAdapter) BusyIntervals(ctx context.Context, from, to time.Time) ([]domain.BusyInterval, error) {
	svc, err := a.service(ctx)
	if err != nil {
		return nil, fmt.Errorf("create calendar service: %w", err)
	}

	var resp *calendar.FreeBusyResponse
	err = executeWithBreaker(calendarBreaker, func() error {
		var callErr error
		resp, callErr = svc.Freebusy.Query(&calendar.FreeBusyRequest{
			TimeMin: from.Format(time.RFC3339),
			TimeMax: to.Format(time.RFC3339),
			Items:   []*calendar.FreeBusyRequestItem{{Id: "primary"}},
		}).Context(ctx).Do()
		return callErr
	})
	if err != nil {
		return nil, fmt.Errorf("freebusy query: %w", err)
	}

	cal, ok := resp.Calendars["primary"]
	if !ok {
		return nil, nil
	}

	intervals := make([]domain.BusyInterval, 0, len(cal.Busy))
	for _, period := range cal.Busy {
		start, err := time.Parse(time.RFC3339, period.Start)
		if err != nil {
			continue
		}
		end, err := time.Parse(time.RFC3339, period.End)
		if err != nil {
			continue
		}
		intervals = append(intervals, domain.BusyInterval{Start: start, End: end})
	}
	return intervals, nil
}
