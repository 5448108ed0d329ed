package roster

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/adelgado/qlines/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRosterSource struct {
	fixtures []domain.Fixture
	err      error
}

func (f *fakeRosterSource) FetchUpcoming(context.Context) ([]domain.Fixture, error) {
	return f.fixtures, f.err
}

type fakeSeedStore struct {
	upserts []domain.Fixture
	failID  int64
}

func (f *fakeSeedStore) UpsertEvent(_ context.Context, fx domain.Fixture) error {
	if fx.ID == f.failID {
		return errors.New("fake: disk full")
	}
	f.upserts = append(f.upserts, fx)
	return nil
}

// el Refresher solo usa UpsertEvent; el resto del contrato es relleno
func (f *fakeSeedStore) EnsureEvent(context.Context, domain.Event) error          { return nil }
func (f *fakeSeedStore) UpdateStatus(context.Context, int64, domain.Status) error { return nil }
func (f *fakeSeedStore) SetFinals(context.Context, int64, int, int) error         { return nil }
func (f *fakeSeedStore) InsertOpener(context.Context, domain.Capture) (bool, error) {
	return false, nil
}
func (f *fakeSeedStore) InsertQuarterLine(context.Context, domain.Capture) (bool, error) {
	return false, nil
}
func (f *fakeSeedStore) InsertResult(context.Context, domain.Result) (bool, error) {
	return false, nil
}
func (f *fakeSeedStore) CapturedLines(context.Context, int64) (domain.LineSet, error) {
	return domain.LineSet{}, nil
}
func (f *fakeSeedStore) StalledLive(context.Context, time.Time) ([]domain.Event, error) {
	return nil, nil
}
func (f *fakeSeedStore) RecordAnomaly(context.Context, domain.Anomaly) error { return nil }
func (f *fakeSeedStore) AccuracySummary(context.Context) (domain.AccuracySummary, error) {
	return domain.AccuracySummary{}, nil
}
func (f *fakeSeedStore) Close() error { return nil }

func fixture(id int64, status domain.RosterStatus) domain.Fixture {
	return domain.Fixture{
		ID:        id,
		StartTime: time.Now().UTC().Add(time.Hour),
		HomeName:  "A",
		AwayName:  "B",
		Status:    status,
	}
}

func TestRefresh_SeedsUpcomingAndLive(t *testing.T) {
	src := &fakeRosterSource{fixtures: []domain.Fixture{
		fixture(1, domain.RosterScheduled),
		fixture(2, domain.RosterLive),
		fixture(3, domain.RosterEnded), // terminado: no hay nada que capturar
	}}
	store := &fakeSeedStore{}

	r := New(src, store, time.Minute)
	r.refresh(context.Background())

	require.Len(t, store.upserts, 2)
	assert.Equal(t, int64(1), store.upserts[0].ID)
	assert.Equal(t, int64(2), store.upserts[1].ID)
}

func TestRefresh_SourceErrorIsNotFatal(t *testing.T) {
	src := &fakeRosterSource{err: errors.New("upstream down")}
	store := &fakeSeedStore{}

	r := New(src, store, time.Minute)
	r.refresh(context.Background())

	assert.Empty(t, store.upserts)
}

func TestRefresh_SingleUpsertFailureContinues(t *testing.T) {
	src := &fakeRosterSource{fixtures: []domain.Fixture{
		fixture(1, domain.RosterScheduled),
		fixture(2, domain.RosterScheduled),
	}}
	store := &fakeSeedStore{failID: 1}

	r := New(src, store, time.Minute)
	r.refresh(context.Background())

	require.Len(t, store.upserts, 1)
	assert.Equal(t, int64(2), store.upserts[0].ID)
}

func TestRun_StopsOnCancel(t *testing.T) {
	src := &fakeRosterSource{}
	r := New(src, &fakeSeedStore{}, 10*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- r.Run(ctx) }()

	time.Sleep(30 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("Run did not stop on cancel")
	}
}
