package kasuki

import (
	"context"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
)

func newTestAnilistClient(t testing.TB, endpoint string, cache *RemoteCache) *AnilistClient {
	t.Helper()
	cfg := newTestConfig(t)
	cfg.Anilist.Endpoint = endpoint
	return NewAnilistClient(cfg.Anilist, nil, cache, slog.Default())
}

func TestMediaTitle_Preferred(t *testing.T) {
	assert.Equal(t, "Frieren", MediaTitle{English: "Frieren", Romaji: "Sousou no Frieren"}.Preferred())
	assert.Equal(t, "Sousou no Frieren", MediaTitle{Romaji: "Sousou no Frieren", Native: "葬送のフリーレン"}.Preferred())
	assert.Equal(t, "葬送のフリーレン", MediaTitle{Native: "葬送のフリーレン"}.Preferred())
	assert.Equal(t, "", MediaTitle{}.Preferred())
}

func TestFuzzyDate_String(t *testing.T) {
	year, month, day := 2023, 9, 29
	assert.Equal(t, "", FuzzyDate{}.String())
	assert.Equal(t, "2023", FuzzyDate{Year: &year}.String())
	assert.Equal(t, "2023-09", FuzzyDate{Year: &year, Month: &month}.String())
	assert.Equal(t, "2023-09-29", FuzzyDate{Year: &year, Month: &month, Day: &day}.String())
}

func TestAnilistClient_SearchMedia(t *testing.T) {
	ctx := context.Background()
	fake := newFakeAnilist(t)
	fake.setMedia(Media{ID: 154587, Type: MediaTypeAnime, Title: MediaTitle{Romaji: "Sousou no Frieren"}})
	client := newTestAnilistClient(t, fake.URL(), NewRemoteCache(10, 0))

	m, err := client.SearchMedia(ctx, "Sousou no Frieren", MediaTypeAnime, "")
	require.NoError(t, err)
	assert.Equal(t, 154587, m.ID)

	// numeric searches are ID lookups
	m, err = client.SearchMedia(ctx, "154587", MediaTypeAnime, "")
	require.NoError(t, err)
	assert.Equal(t, "Sousou no Frieren", m.Title.Preferred())

	_, err = client.SearchMedia(ctx, "does not exist", MediaTypeAnime, "")
	assert.Equal(t, ErrKindMissing, errorKind(err))
}

func TestAnilistClient_SearchMediaNumericTitle(t *testing.T) {
	ctx := context.Background()
	fake := newFakeAnilist(t)
	fake.setMedia(Media{ID: 86, Type: MediaTypeAnime, Format: "TV", Title: MediaTitle{Romaji: "Cowboy Bebop"}})
	fake.setMedia(Media{ID: 200, Type: MediaTypeManga, Format: "MANGA", Title: MediaTitle{Romaji: "86"}})
	client := newTestAnilistClient(t, fake.URL(), NewRemoteCache(10, 0))

	tests := []struct {
		name      string
		mediaType string
		format    string
		wantID    int
		missing   bool
	}{
		{name: "id matches type", mediaType: MediaTypeAnime, wantID: 86},
		{name: "id matches type and format", mediaType: MediaTypeAnime, format: "TV", wantID: 86},
		{name: "wrong type falls back to title", mediaType: MediaTypeManga, wantID: 200},
		{name: "wrong format falls back to title", mediaType: MediaTypeManga, format: "MANGA", wantID: 200},
		{name: "no id or title match", mediaType: MediaTypeAnime, format: "MOVIE", missing: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, err := client.SearchMedia(ctx, "86", tt.mediaType, tt.format)
			if tt.missing {
				assert.Equal(t, ErrKindMissing, errorKind(err))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantID, m.ID)
		})
	}
}

func TestAnilistClient_Cached(t *testing.T) {
	ctx := context.Background()
	fake := newFakeAnilist(t)
	fake.setMedia(Media{ID: 1, Title: MediaTitle{Romaji: "Cowboy Bebop"}})
	cache := NewRemoteCache(10, 0)
	client := newTestAnilistClient(t, fake.URL(), cache)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			m, err := client.MediaByID(ctx, 1)
			assert.NoError(t, err)
			assert.Equal(t, "Cowboy Bebop", m.Title.Preferred())
		}()
	}
	wg.Wait()
	assert.Equal(t, int64(1), fake.requests.Load())
	assert.Equal(t, 1, cache.Len())

	// next airing lookups bypass the cache
	_, err := client.NextAiring(ctx, 1)
	require.NoError(t, err)
	_, err = client.NextAiring(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(3), fake.requests.Load())
}

func TestAnilistClient_GraphQLErrors(t *testing.T) {
	ctx := context.Background()
	var requests atomic.Int64
	server := httptest.NewServer(
		http.HandlerFunc(
			func(w http.ResponseWriter, r *http.Request) {
				requests.Add(1)
				_, _ = w.Write([]byte(`{"errors":[{"message":"Invalid query","status":400}]}`))
			},
		),
	)
	t.Cleanup(server.Close)
	cache := NewRemoteCache(10, 0)
	client := newTestAnilistClient(t, server.URL, cache)

	for i := 0; i < 2; i++ {
		_, err := client.MediaByID(ctx, 1)
		require.Error(t, err)
		assert.Equal(t, ErrKindDecode, errorKind(err))
		assert.Contains(t, err.Error(), "Invalid query")
	}
	// error responses aren't cached
	assert.Equal(t, int64(2), requests.Load())
	assert.Equal(t, 0, cache.Len())
}

func TestAnilistClient_ServerError(t *testing.T) {
	ctx := context.Background()
	server := httptest.NewServer(
		http.HandlerFunc(
			func(w http.ResponseWriter, r *http.Request) {
				http.Error(w, "overloaded", http.StatusServiceUnavailable)
			},
		),
	)
	t.Cleanup(server.Close)
	client := newTestAnilistClient(t, server.URL, NewRemoteCache(10, 0))

	_, err := client.MediaByID(ctx, 1)
	require.Error(t, err)
	assert.Equal(t, ErrKindWebRequest, errorKind(err))
	var statusErr *StatusError
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, http.StatusServiceUnavailable, statusErr.StatusCode)
}

func TestAnilistClient_LastPage(t *testing.T) {
	ctx := context.Background()
	testCases := []struct {
		name     string
		lastPage int
		from     int
	}{
		{name: "unchanged", lastPage: 1796, from: 1796},
		{name: "grew", lastPage: 1850, from: 1796},
		{name: "grew a lot", lastPage: 5000, from: 1796},
		{name: "shrank", lastPage: 1700, from: 1796},
		{name: "from zero", lastPage: 37, from: 0},
		{name: "single page", lastPage: 1, from: 1},
	}
	for _, tc := range testCases {
		t.Run(
			tc.name, func(t *testing.T) {
				fake := newFakeAnilist(t)
				fake.setLastPage(MediaTypeAnime, tc.lastPage)
				client := newTestAnilistClient(t, fake.URL(), NewRemoteCache(10, 0))

				last, err := client.LastPage(ctx, MediaTypeAnime, tc.from)
				require.NoError(t, err)
				assert.Equal(t, tc.lastPage, last)
			},
		)
	}

	t.Run(
		"empty", func(t *testing.T) {
			fake := newFakeAnilist(t)
			client := newTestAnilistClient(t, fake.URL(), nil)
			_, err := client.LastPage(ctx, MediaTypeManga, 10)
			assert.Equal(t, ErrKindMissing, errorKind(err))
		},
	)
}

func TestAnilistClient_RandomMedia(t *testing.T) {
	ctx := context.Background()
	fake := newFakeAnilist(t)
	fake.setLastPage(MediaTypeManga, 10)
	client := newTestAnilistClient(t, fake.URL(), nil)

	m, err := client.RandomMedia(ctx, MediaTypeManga, 7)
	require.NoError(t, err)
	assert.Equal(t, 7, m.ID)

	_, err = client.RandomMedia(ctx, MediaTypeManga, 11)
	assert.Equal(t, ErrKindMissing, errorKind(err))
}

func TestAnilistClient_UserStatistics(t *testing.T) {
	ctx := context.Background()
	fake := newFakeAnilist(t)

	var user AnilistUser
	user.ID = 5
	user.Name = "kasuki"
	user.Statistics.Anime = AnilistMediaStatistics{
		Count:           50,
		MinutesWatched:  12000,
		EpisodesWatched: 500,
		MeanScore:       71.5,
		Statuses: []anilistStatusCount{
			{Status: "COMPLETED", Count: 40},
			{Status: "CURRENT", Count: 10},
			{Status: "UNKNOWN", Count: 99},
		},
		Genres: []anilistGenreCount{{Genre: "Drama", Count: 20}},
	}
	user.Statistics.Manga = AnilistMediaStatistics{ChaptersRead: 300, VolumesRead: 30}
	fake.setUser(user)

	client := newTestAnilistClient(t, fake.URL(), nil)
	stats, err := client.UserStatistics(ctx, "kasuki")
	require.NoError(t, err)
	assert.Equal(t, 12000, stats.Anime.Consumed)
	assert.Equal(t, 500, stats.Anime.Secondary)
	assert.Equal(t, 40, stats.Anime.Statuses[2])
	assert.Equal(t, 10, stats.Anime.Statuses[0])
	assert.Equal(t, []string{"Drama"}, stats.Anime.Genres)
	assert.Equal(t, 300, stats.Manga.Consumed)
	assert.Equal(t, 13500.0, UserXP(stats))

	_, err = client.UserStatistics(ctx, "nobody")
	assert.Equal(t, ErrKindMissing, errorKind(err))
}
