package submissions

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2024, 5, 17, 9, 30, 15, 123_000_000, time.UTC)

func newTestService(repo Repository) *Service {
	return NewService(repo, WithClock(func() time.Time { return fixedNow }))
}

func TestService_SubmitStoresSanitizedName(t *testing.T) {
	repo := NewMemoryStore()
	svc := newTestService(repo)

	sub, err := svc.Submit(context.Background(), "  <b>Alice</b>  ")
	require.NoError(t, err)

	want := Submission{Name: "Alice", SubmittedAt: "2024-05-17T09:30:15.123Z"}
	assert.Equal(t, want, sub)

	list, err := repo.List(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []Submission{want}, list)
}

func TestService_SubmitTimestampIsUTC(t *testing.T) {
	loc := time.FixedZone("UTC+3", 3*60*60)
	svc := NewService(NewMemoryStore(), WithClock(func() time.Time {
		return time.Date(2024, 1, 1, 3, 0, 0, 0, loc)
	}))

	sub, err := svc.Submit(context.Background(), "Bob")
	require.NoError(t, err)
	assert.Equal(t, "2024-01-01T00:00:00.000Z", sub.SubmittedAt)
}

func TestService_SubmitRejectsBlankNames(t *testing.T) {
	for _, in := range []string{"", " ", "\t\n ", "<b></b>", "  <script>x</script>  "} {
		t.Run(fmt.Sprintf("%q", in), func(t *testing.T) {
			repo := NewMemoryStore()
			svc := newTestService(repo)

			_, err := svc.Submit(context.Background(), in)
			require.ErrorIs(t, err, ErrNameRequired)

			list, _ := repo.List(context.Background())
			assert.Empty(t, list)
		})
	}
}

func TestService_SubmitWrapsStorageErrors(t *testing.T) {
	repo := NewMemoryStore()
	boom := errors.New("disk full")
	repo.FailWith(boom)
	svc := newTestService(repo)

	_, err := svc.Submit(context.Background(), "Alice")
	require.ErrorIs(t, err, boom)
	assert.NotErrorIs(t, err, ErrNameRequired)
}

func TestService_ListReturnsSubmissionsInOrder(t *testing.T) {
	svc := newTestService(NewFileStore(t.TempDir() + "/names.json"))
	names := []string{"Alice", "<i>Bob</i>", "Charlie"}
	for _, n := range names {
		_, err := svc.Submit(context.Background(), n)
		require.NoError(t, err)
	}

	list, err := svc.List(context.Background())
	require.NoError(t, err)
	require.Len(t, list, len(names))
	assert.Equal(t, "Alice", list[0].Name)
	assert.Equal(t, "Bob", list[1].Name)
	assert.Equal(t, "Charlie", list[2].Name)
}

func TestService_ListEmptyIsNotNil(t *testing.T) {
	svc := newTestService(NewMemoryStore())

	list, err := svc.List(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, list)
	assert.Empty(t, list)
}
