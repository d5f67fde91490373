package events

import (
	"context"
	"fmt"
	"testing"
	"time"

	"cloud.google.com/go/civil"
	"github.com/jackc/pgconn"
	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/kalendo/calendar-backend/internal/database"
	"github.com/kalendo/calendar-backend/internal/model"
	"github.com/kalendo/calendar-backend/internal/recurrence"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeDB struct{}

func (fakeDB) Exec(context.Context, database.Sqlizer) (pgconn.CommandTag, error) { return nil, nil }
func (fakeDB) Get(context.Context, interface{}, database.Sqlizer) error         { return nil }
func (fakeDB) Select(context.Context, interface{}, database.Sqlizer) error      { return nil }
func (fakeDB) ExecRaw(context.Context, string, ...interface{}) (pgconn.CommandTag, error) {
	return nil, nil
}
func (fakeDB) GetPool(context.Context) *pgxpool.Pool { return nil }
func (fakeDB) BeginTx(context.Context, *pgx.TxOptions) (database.Tx, error) {
	return fakeTx{}, nil
}

type fakeTx struct{ fakeDB }

func (fakeTx) Commit(context.Context) error   { return nil }
func (fakeTx) Rollback(context.Context) error { return nil }

type fakeEventsRepo struct {
	events map[int64]*model.Event
	nextID int64
}

func newFakeEventsRepo() *fakeEventsRepo {
	return &fakeEventsRepo{events: map[int64]*model.Event{}, nextID: 1}
}

func (f *fakeEventsRepo) CreateEvent(_ context.Context, _ database.Queryable, event *model.Event) (int64, error) {
	id := f.nextID
	f.nextID++
	stored := *event
	stored.ID = id
	f.events[id] = &stored
	return id, nil
}

func (f *fakeEventsRepo) GetEventByID(_ context.Context, _ database.Queryable, id int64) (*model.Event, error) {
	e, ok := f.events[id]
	if !ok {
		return nil, model.ErrNoRecord
	}
	copied := *e
	return &copied, nil
}

func (f *fakeEventsRepo) GetEvents(_ context.Context, _ database.Queryable, filter model.EventsFilter) ([]*model.Event, error) {
	var res []*model.Event
	for _, e := range f.events {
		if e.WindowStart.After(filter.To) || e.WindowEnd.Before(filter.From) {
			continue
		}
		if len(filter.CalendarIDs) != 0 {
			found := false
			for _, id := range filter.CalendarIDs {
				if e.CalendarID == id {
					found = true
				}
			}
			if !found {
				continue
			}
		}
		copied := *e
		res = append(res, &copied)
	}
	return res, nil
}

func (f *fakeEventsRepo) UpdateEvent(_ context.Context, _ database.Queryable, event *model.Event) error {
	old, ok := f.events[event.ID]
	if !ok {
		return model.ErrNoRecord
	}
	stored := *event
	stored.Version = old.Version
	f.events[event.ID] = &stored
	return nil
}

func (f *fakeEventsRepo) UpdateWindow(_ context.Context, _ database.Queryable, id int64, start, end time.Time) error {
	e, ok := f.events[id]
	if !ok {
		return model.ErrNoRecord
	}
	e.WindowStart = start
	e.WindowEnd = end
	return nil
}

func (f *fakeEventsRepo) DeleteEvent(_ context.Context, _ database.Queryable, id int64) error {
	if _, ok := f.events[id]; !ok {
		return model.ErrNoRecord
	}
	delete(f.events, id)
	return nil
}

func (f *fakeEventsRepo) IncrementVersion(_ context.Context, _ database.Queryable, id int64) (int64, error) {
	e, ok := f.events[id]
	if !ok {
		return 0, model.ErrNoRecord
	}
	e.Version++
	return e.Version, nil
}

type overrideKey struct {
	eventID int64
	index   int
}

type fakeOverridesRepo struct {
	overrides map[overrideKey]*model.Override
}

func newFakeOverridesRepo() *fakeOverridesRepo {
	return &fakeOverridesRepo{overrides: map[overrideKey]*model.Override{}}
}

func (f *fakeOverridesRepo) UpsertOverride(_ context.Context, _ database.Queryable, o *model.Override) error {
	copied := *o
	f.overrides[overrideKey{o.EventID, o.Index}] = &copied
	return nil
}

func (f *fakeOverridesRepo) GetOverrides(_ context.Context, _ database.Queryable, eventID int64) ([]*model.Override, error) {
	var res []*model.Override
	for k, o := range f.overrides {
		if k.eventID == eventID {
			copied := *o
			res = append(res, &copied)
		}
	}
	return res, nil
}

func (f *fakeOverridesRepo) DeleteOverrides(_ context.Context, _ database.Queryable, eventID int64) error {
	for k := range f.overrides {
		if k.eventID == eventID {
			delete(f.overrides, k)
		}
	}
	return nil
}

type fakeCalendarsRepo struct {
	calendars map[int64]*model.Calendar
}

func (f *fakeCalendarsRepo) GetCalendarByID(_ context.Context, _ database.Queryable, id int64) (*model.Calendar, error) {
	c, ok := f.calendars[id]
	if !ok {
		return nil, model.ErrNoRecord
	}
	return c, nil
}

type fakeCache struct {
	entries map[string][]model.Occurrence
	hits    int
	sets    int
}

func newFakeCache() *fakeCache {
	return &fakeCache{entries: map[string][]model.Occurrence{}}
}

func cacheKey(eventID, version int64, from, to time.Time) string {
	return fmt.Sprintf("%d:%d:%d:%d", eventID, version, from.Unix(), to.Unix())
}

func (f *fakeCache) Get(_ context.Context, eventID, version int64, from, to time.Time) ([]model.Occurrence, error) {
	occurrences, ok := f.entries[cacheKey(eventID, version, from, to)]
	if !ok {
		return nil, model.ErrNoRecord
	}
	f.hits++
	return occurrences, nil
}

func (f *fakeCache) Set(_ context.Context, eventID, version int64, from, to time.Time, occurrences []model.Occurrence) error {
	f.entries[cacheKey(eventID, version, from, to)] = occurrences
	f.sets++
	return nil
}

type fixture struct {
	service   *Service
	events    *fakeEventsRepo
	overrides *fakeOverridesRepo
	cache     *fakeCache
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	events := newFakeEventsRepo()
	overrides := newFakeOverridesRepo()
	cache := newFakeCache()
	calendars := &fakeCalendarsRepo{calendars: map[int64]*model.Calendar{
		1: {ID: 1, CalendarCreate: model.CalendarCreate{UserID: 1, Name: "Work", Timezone: "America/New_York"}},
	}}
	return &fixture{
		service:   NewService(fakeDB{}, zap.NewNop().Sugar(), events, overrides, calendars, cache),
		events:    events,
		overrides: overrides,
		cache:     cache,
	}
}

func dt(year int, month time.Month, day, hour, minute int) civil.DateTime {
	return civil.DateTime{
		Date: civil.Date{Year: year, Month: month, Day: day},
		Time: civil.Time{Hour: hour, Minute: minute},
	}
}

func mwfStandup() *model.EventCreate {
	return &model.EventCreate{
		CalendarID: 1,
		Subject:    "Standup",
		Status:     model.StatusConfirmed,
		Start:      dt(2024, time.January, 1, 9, 0),
		End:        dt(2024, time.January, 1, 10, 0),
		Recurrence: &recurrence.Rule{
			Pattern:     recurrence.Weekly,
			Interval:    1,
			Days:        recurrence.Weekdays(time.Monday, time.Wednesday, time.Friday),
			Termination: recurrence.EndAfter(6),
		},
	}
}

func TestCreateEventRecurring(t *testing.T) {
	f := newFixture(t)

	event, err := f.service.CreateEvent(context.Background(), mwfStandup())
	require.NoError(t, err)

	assert.NotEmpty(t, event.SeriesID)
	assert.NotZero(t, event.ID)

	ny, err := time.LoadLocation("America/New_York")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, time.January, 1, 9, 0, 0, 0, ny), event.WindowStart.In(ny))
	assert.Equal(t, time.Date(2024, time.January, 12, 10, 0, 0, 0, ny), event.WindowEnd.In(ny))
}

func TestCreateEventInvalidRule(t *testing.T) {
	f := newFixture(t)

	info := mwfStandup()
	info.Recurrence.Interval = 0

	_, err := f.service.CreateEvent(context.Background(), info)
	assert.ErrorIs(t, err, recurrence.ErrInvalidInterval)
}

func TestCreateEventConflict(t *testing.T) {
	f := newFixture(t)

	first := &model.EventCreate{
		CalendarID: 1,
		Subject:    "Dentist",
		Status:     model.StatusConfirmed,
		Start:      dt(2024, time.March, 4, 9, 0),
		End:        dt(2024, time.March, 4, 10, 0),
	}
	_, err := f.service.CreateEvent(context.Background(), first)
	require.NoError(t, err)

	overlapping := &model.EventCreate{
		CalendarID: 1,
		Subject:    "Barber",
		Status:     model.StatusConfirmed,
		Start:      dt(2024, time.March, 4, 9, 30),
		End:        dt(2024, time.March, 4, 10, 30),
	}
	_, err = f.service.CreateEvent(context.Background(), overlapping)
	assert.ErrorIs(t, err, model.ErrConflict)

	adjacent := &model.EventCreate{
		CalendarID: 1,
		Subject:    "Barber",
		Status:     model.StatusConfirmed,
		Start:      dt(2024, time.March, 4, 10, 0),
		End:        dt(2024, time.March, 4, 11, 0),
	}
	_, err = f.service.CreateEvent(context.Background(), adjacent)
	assert.NoError(t, err)
}

func TestGetOccurrencesWithCancellation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	event, err := f.service.CreateEvent(ctx, mwfStandup())
	require.NoError(t, err)

	require.NoError(t, f.service.CancelOccurrence(ctx, event.ID, 2))

	occurrences, err := f.service.GetOccurrences(ctx, model.EventsFilter{
		From: time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC),
		To:   time.Date(2024, time.February, 1, 0, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)
	require.Len(t, occurrences, 5)

	days := make([]int, 0, len(occurrences))
	for _, occ := range occurrences {
		days = append(days, occ.Start.Day())
	}
	assert.Equal(t, []int{1, 3, 8, 10, 12}, days)

	for i := 1; i < len(occurrences); i++ {
		assert.False(t, occurrences[i].Start.Before(occurrences[i-1].Start))
	}
}

func TestGetOccurrencesUsesCache(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.service.CreateEvent(ctx, mwfStandup())
	require.NoError(t, err)

	filter := model.EventsFilter{
		From: time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC),
		To:   time.Date(2024, time.February, 1, 0, 0, 0, 0, time.UTC),
	}

	first, err := f.service.GetOccurrences(ctx, filter)
	require.NoError(t, err)
	second, err := f.service.GetOccurrences(ctx, filter)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, 1, f.cache.sets)
	assert.Equal(t, 1, f.cache.hits)
}

func TestCancelOccurrenceBumpsVersion(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	event, err := f.service.CreateEvent(ctx, mwfStandup())
	require.NoError(t, err)

	require.NoError(t, f.service.CancelOccurrence(ctx, event.ID, 0))

	stored, err := f.service.GetEventByID(ctx, event.ID)
	require.NoError(t, err)
	assert.Equal(t, event.Version+1, stored.Version)
}

func TestCancelOccurrenceOutOfRange(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	event, err := f.service.CreateEvent(ctx, mwfStandup())
	require.NoError(t, err)

	assert.ErrorIs(t, f.service.CancelOccurrence(ctx, event.ID, 6), ErrIndexOutOfRange)
	assert.ErrorIs(t, f.service.CancelOccurrence(ctx, event.ID, -1), ErrIndexOutOfRange)
}

func TestCancelOccurrenceSingleEvent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	event, err := f.service.CreateEvent(ctx, &model.EventCreate{
		CalendarID: 1,
		Subject:    "Dentist",
		Status:     model.StatusConfirmed,
		Start:      dt(2024, time.March, 4, 9, 0),
		End:        dt(2024, time.March, 4, 10, 0),
	})
	require.NoError(t, err)

	assert.ErrorIs(t, f.service.CancelOccurrence(ctx, event.ID, 0), ErrNotRecurring)
}

func TestModifyOccurrence(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	event, err := f.service.CreateEvent(ctx, mwfStandup())
	require.NoError(t, err)

	subject := "Retro"
	require.NoError(t, f.service.ModifyOccurrence(ctx, event.ID, 1, recurrence.OverrideFields{
		Subject: &subject,
	}))

	occurrences, err := f.service.GetOccurrences(ctx, model.EventsFilter{
		From: time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC),
		To:   time.Date(2024, time.February, 1, 0, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)
	require.Len(t, occurrences, 6)

	assert.Equal(t, "Retro", occurrences[1].Subject)
	assert.True(t, occurrences[1].Modified)
	assert.Equal(t, "Standup", occurrences[0].Subject)
}

func TestModifyOccurrenceMovedOutsideSeriesWindow(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	event, err := f.service.CreateEvent(ctx, mwfStandup())
	require.NoError(t, err)

	// The series spans Jan 1–12; move the first occurrence to mid-March,
	// far past the stored window.
	start := dt(2024, time.March, 15, 9, 0)
	end := dt(2024, time.March, 15, 10, 0)
	require.NoError(t, f.service.ModifyOccurrence(ctx, event.ID, 0, recurrence.OverrideFields{
		Start: &start,
		End:   &end,
	}))

	march := model.EventsFilter{
		From: time.Date(2024, time.March, 14, 0, 0, 0, 0, time.UTC),
		To:   time.Date(2024, time.March, 16, 0, 0, 0, 0, time.UTC),
	}
	occurrences, err := f.service.GetOccurrences(ctx, march)
	require.NoError(t, err)
	require.Len(t, occurrences, 1)
	assert.Equal(t, 0, occurrences[0].Index)
	assert.True(t, occurrences[0].Modified)

	ny, err := time.LoadLocation("America/New_York")
	require.NoError(t, err)
	stored, err := f.service.GetEventByID(ctx, event.ID)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, time.March, 15, 10, 0, 0, 0, ny), stored.WindowEnd.In(ny))

	// Rewriting the override without the move shrinks the window back.
	subject := "Retro"
	require.NoError(t, f.service.ModifyOccurrence(ctx, event.ID, 0, recurrence.OverrideFields{
		Subject: &subject,
	}))

	occurrences, err = f.service.GetOccurrences(ctx, march)
	require.NoError(t, err)
	assert.Empty(t, occurrences)

	stored, err = f.service.GetEventByID(ctx, event.ID)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, time.January, 12, 10, 0, 0, 0, ny), stored.WindowEnd.In(ny))
}

func TestUpdateEventKeepsWidenedWindow(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	event, err := f.service.CreateEvent(ctx, mwfStandup())
	require.NoError(t, err)

	start := dt(2024, time.March, 15, 9, 0)
	end := dt(2024, time.March, 15, 10, 0)
	require.NoError(t, f.service.ModifyOccurrence(ctx, event.ID, 0, recurrence.OverrideFields{
		Start: &start,
		End:   &end,
	}))

	// A field-only edit keeps the overrides, so it must keep the window
	// they widened.
	info := mwfStandup()
	info.Subject = "Morning sync"
	updated, err := f.service.UpdateEvent(ctx, event.ID, info)
	require.NoError(t, err)

	ny, err := time.LoadLocation("America/New_York")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, time.March, 15, 10, 0, 0, 0, ny), updated.WindowEnd.In(ny))

	occurrences, err := f.service.GetOccurrences(ctx, model.EventsFilter{
		From: time.Date(2024, time.March, 14, 0, 0, 0, 0, time.UTC),
		To:   time.Date(2024, time.March, 16, 0, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)
	require.Len(t, occurrences, 1)
	assert.Equal(t, "Morning sync", occurrences[0].Subject)
}

func TestUpdateEventRuleChangeResetsSeries(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	event, err := f.service.CreateEvent(ctx, mwfStandup())
	require.NoError(t, err)
	require.NoError(t, f.service.CancelOccurrence(ctx, event.ID, 2))

	info := mwfStandup()
	info.Recurrence.Termination = recurrence.EndAfter(10)

	updated, err := f.service.UpdateEvent(ctx, event.ID, info)
	require.NoError(t, err)

	assert.NotEqual(t, event.SeriesID, updated.SeriesID)

	remaining, err := f.overrides.GetOverrides(ctx, nil, event.ID)
	require.NoError(t, err)
	assert.Empty(t, remaining)
}

func TestUpdateEventFieldChangeKeepsSeries(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	event, err := f.service.CreateEvent(ctx, mwfStandup())
	require.NoError(t, err)
	require.NoError(t, f.service.CancelOccurrence(ctx, event.ID, 2))

	info := mwfStandup()
	info.Subject = "Morning sync"

	updated, err := f.service.UpdateEvent(ctx, event.ID, info)
	require.NoError(t, err)

	assert.Equal(t, event.SeriesID, updated.SeriesID)
	assert.Greater(t, updated.Version, event.Version)

	remaining, err := f.overrides.GetOverrides(ctx, nil, event.ID)
	require.NoError(t, err)
	assert.Len(t, remaining, 1)
}

func TestDeleteEventRemovesOverrides(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	event, err := f.service.CreateEvent(ctx, mwfStandup())
	require.NoError(t, err)
	require.NoError(t, f.service.CancelOccurrence(ctx, event.ID, 2))

	require.NoError(t, f.service.DeleteEvent(ctx, event.ID))

	_, err = f.service.GetEventByID(ctx, event.ID)
	assert.ErrorIs(t, err, model.ErrNoRecord)

	remaining, err := f.overrides.GetOverrides(ctx, nil, event.ID)
	require.NoError(t, err)
	assert.Empty(t, remaining)
}
