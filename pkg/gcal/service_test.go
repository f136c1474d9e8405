package gcal

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"google.golang.org/api/calendar/v3"
	"google.golang.org/api/option"
)

func TestListEventsFollowsPages(t *testing.T) {
	var pageTokens []string
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := r.URL.Query().Get("pageToken")
		pageTokens = append(pageTokens, token)
		w.Header().Set("Content-Type", "application/json")
		switch token {
		case "":
			_, _ = w.Write([]byte(`{"items":[{"id":"a","start":{"dateTime":"2025-03-01T10:00:00Z"},"end":{"dateTime":"2025-03-01T11:00:00Z"}}],"nextPageToken":"p2"}`))
		case "p2":
			_, _ = w.Write([]byte(`{"items":[{"id":"b","start":{"date":"2025-03-20"},"end":{"date":"2025-03-21"}},{"id":"broken"}]}`))
		default:
			w.WriteHeader(http.StatusBadRequest)
		}
	}))
	defer ts.Close()

	ctx := context.Background()
	srv, err := calendar.NewService(ctx, option.WithEndpoint(ts.URL+"/"), option.WithHTTPClient(ts.Client()))
	require.NoError(t, err)

	events, err := listEvents(ctx, srv, "primary",
		time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC), time.Date(2025, 4, 1, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)

	require.Equal(t, []string{"", "p2"}, pageTokens)
	require.Len(t, events, 2)
	require.Equal(t, "a", events[0].ID)
	require.Equal(t, "b", events[1].ID)
	require.True(t, events[1].AllDay)
}
