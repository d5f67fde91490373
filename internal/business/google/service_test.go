package google

import (
	"context"
	"testing"
	"time"

	"github.com/kalendo/calendar-backend/internal/model"
	"github.com/kalendo/calendar-backend/internal/pkg/gcal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/oauth2"
)

type fakeClient struct {
	events []*gcal.RemoteEvent
}

func (f *fakeClient) AuthURL(string) string { return "https://accounts.google.com/o/oauth2/auth" }

func (f *fakeClient) Exchange(context.Context, string) (*oauth2.Token, error) {
	return &oauth2.Token{AccessToken: "token"}, nil
}

func (f *fakeClient) Events(context.Context, *oauth2.Token, time.Time, time.Time) ([]*gcal.RemoteEvent, error) {
	return f.events, nil
}

type fakeTokens struct {
	tokens map[int64][]byte
}

func (f *fakeTokens) Add(_ context.Context, userID int64, token []byte) error {
	f.tokens[userID] = token
	return nil
}

func (f *fakeTokens) Get(_ context.Context, userID int64) ([]byte, error) {
	t, ok := f.tokens[userID]
	if !ok {
		return nil, model.ErrNoRecord
	}
	return t, nil
}

type fakeEvents struct {
	created  []*model.EventCreate
	conflict map[string]bool
}

func (f *fakeEvents) CreateEvent(_ context.Context, info *model.EventCreate) (*model.Event, error) {
	if f.conflict[info.Subject] {
		return nil, model.ErrConflict
	}
	f.created = append(f.created, info)
	return &model.Event{ID: int64(len(f.created)), EventCreate: *info}, nil
}

type fakeCalendars struct{}

func (fakeCalendars) GetCalendarByID(_ context.Context, id int64) (*model.Calendar, error) {
	return &model.Calendar{ID: id, CalendarCreate: model.CalendarCreate{UserID: 1, Name: "Work", Timezone: "Europe/Berlin"}}, nil
}

func TestConnectStoresToken(t *testing.T) {
	tokens := &fakeTokens{tokens: map[int64][]byte{}}
	s := NewService(zap.NewNop().Sugar(), &fakeClient{}, tokens, &fakeEvents{}, fakeCalendars{})

	require.NoError(t, s.Connect(context.Background(), 42, "auth-code"))
	assert.Contains(t, string(tokens.tokens[42]), "token")
}

func TestSyncImportsRemoteEvents(t *testing.T) {
	ctx := context.Background()
	tokens := &fakeTokens{tokens: map[int64][]byte{}}
	events := &fakeEvents{conflict: map[string]bool{"Busy": true}}
	client := &fakeClient{events: []*gcal.RemoteEvent{
		{
			Summary: "Flight",
			Start:   time.Date(2024, time.July, 1, 8, 0, 0, 0, time.UTC),
			End:     time.Date(2024, time.July, 1, 10, 0, 0, 0, time.UTC),
		},
		{
			Summary: "Busy",
			Start:   time.Date(2024, time.July, 2, 8, 0, 0, 0, time.UTC),
			End:     time.Date(2024, time.July, 2, 9, 0, 0, 0, time.UTC),
		},
	}}

	s := NewService(zap.NewNop().Sugar(), client, tokens, events, fakeCalendars{})
	require.NoError(t, s.Connect(ctx, 1, "code"))

	imported, err := s.Sync(ctx, 1, 5,
		time.Date(2024, time.July, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2024, time.August, 1, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)

	// the conflicting item is skipped, not an error
	assert.Equal(t, 1, imported)
	require.Len(t, events.created, 1)

	created := events.created[0]
	assert.Equal(t, int64(5), created.CalendarID)
	assert.Equal(t, "Flight", created.Subject)
	// 08:00 UTC is 10:00 in Berlin in July
	assert.Equal(t, 10, created.Start.Time.Hour)
}

func TestSyncWithoutToken(t *testing.T) {
	s := NewService(zap.NewNop().Sugar(), &fakeClient{}, &fakeTokens{tokens: map[int64][]byte{}}, &fakeEvents{}, fakeCalendars{})

	_, err := s.Sync(context.Background(), 1, 5, time.Time{}, time.Time{})
	assert.ErrorIs(t, err, model.ErrNoRecord)
}
