package store

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/sirapopw/weather-dashboard/internal/weather"
)

func TestListSeedsNewUser(t *testing.T) {
	s := NewMemoryStore()

	list := s.List("u1")
	require.Len(t, list, 10)
	require.Equal(t, "Bangkok", list[0].Name)
	require.Equal(t, 1, list[0].ID)
	require.Equal(t, 10, list[9].ID)

	for _, lw := range list {
		require.True(t, lw.IsFollowed)
		require.Len(t, lw.Hourly, 168)
		require.Len(t, lw.Daily, 7)
	}

	// Lists are per user.
	require.Len(t, s.List("u2"), 10)
}

func TestCreateAssignsSequentialIDs(t *testing.T) {
	s := NewMemoryStore()
	s.List("u1")

	created := s.Create("u1", weather.NewLocationPayload{
		Name: "Phuket", Lat: 7.8804, Lon: 98.3923, Timezone: "Asia/Bangkok",
	})
	require.Equal(t, 11, created.ID)
	require.True(t, created.IsFollowed)
	require.NotEmpty(t, created.Hourly)

	unfollowed := false
	second := s.Create("u1", weather.NewLocationPayload{
		Name: "Osaka", Lat: 34.6937, Lon: 135.5023, Timezone: "Asia/Tokyo",
		IsFollowed: &unfollowed,
	})
	require.Equal(t, 12, second.ID)
	require.False(t, second.IsFollowed)

	require.Len(t, s.List("u1"), 12)
}

func TestSetFollowed(t *testing.T) {
	s := NewMemoryStore()

	updated, err := s.SetFollowed("u1", 1, false)
	require.NoError(t, err)
	require.False(t, updated.IsFollowed)

	list := s.List("u1")
	require.False(t, list[0].IsFollowed)

	_, err = s.SetFollowed("u1", 99, true)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestDelete(t *testing.T) {
	s := NewMemoryStore()

	removed, err := s.Delete("u1", 3)
	require.NoError(t, err)
	require.Equal(t, "Tokyo", removed.Name)
	require.Len(t, s.List("u1"), 9)

	_, err = s.Delete("u1", 3)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestFollowedDeduplicatesCoordinates(t *testing.T) {
	s := NewMemoryStore()
	s.List("u1")
	s.List("u2")

	// Two users share the same ten seed cities.
	followed := s.Followed()
	require.Len(t, followed, 10)

	// Unfollowed entries drop out for the user that unfollowed them, but
	// the coordinates stay covered by the other user's copy.
	_, err := s.SetFollowed("u1", 1, false)
	require.NoError(t, err)
	require.Len(t, s.Followed(), 10)

	_, err = s.SetFollowed("u2", 1, false)
	require.NoError(t, err)
	require.Len(t, s.Followed(), 9)
}
