package kasuki

import (
	"context"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
)

func TestLoadRandomStats_Missing(t *testing.T) {
	stats, err := LoadRandomStats(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)
	assert.Equal(t, ErrKindFile, errorKind(err))
	assert.Equal(t, DefaultRandomStats(), stats)
}

func TestLoadRandomStats_Invalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "random_stats.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))

	stats, err := LoadRandomStats(path)
	assert.Equal(t, ErrKindDecode, errorKind(err))
	assert.Equal(t, DefaultRandomStats(), stats)
}

func TestLoadRandomStats_NonPositive(t *testing.T) {
	path := filepath.Join(t.TempDir(), "random_stats.json")
	require.NoError(
		t,
		os.WriteFile(path, []byte(`{"anime_last_page": 2001, "manga_last_page": -3}`), 0o644),
	)

	stats, err := LoadRandomStats(path)
	require.NoError(t, err)
	assert.Equal(t, 2001, stats.AnimeLastPage)
	assert.Equal(t, defaultMangaLastPage, stats.MangaLastPage)
}

func TestSaveRandomStats(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "random_stats.json")
	want := RandomStats{AnimeLastPage: 1800, MangaLastPage: 1710}
	require.NoError(t, SaveRandomStats(path, want))

	got, err := LoadRandomStats(path)
	require.NoError(t, err)
	assert.Equal(t, want, got)
	assert.Equal(t, 1710, got.LastPage(MediaTypeManga))
	assert.Equal(t, 1800, got.LastPage(MediaTypeAnime))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temporary file should be renamed")
}

func TestRandomStatsHolder_Refresh(t *testing.T) {
	ctx := context.Background()
	fake := newFakeAnilist(t)
	fake.setLastPage(MediaTypeAnime, 1811)
	fake.setLastPage(MediaTypeManga, 1690)

	cfg := newTestConfig(t)
	cfg.Anilist.Endpoint = fake.URL()
	client := NewAnilistClient(cfg.Anilist, nil, nil, slog.Default())

	path := filepath.Join(t.TempDir(), "random_stats.json")
	holder := newRandomStatsHolder(path, slog.Default())
	assert.Equal(t, DefaultRandomStats(), holder.Get())

	stats, err := holder.refresh(ctx, client, slog.Default())
	require.NoError(t, err)
	assert.Equal(t, RandomStats{AnimeLastPage: 1811, MangaLastPage: 1690}, stats)
	assert.Equal(t, stats, holder.Get())

	saved, err := LoadRandomStats(path)
	require.NoError(t, err)
	assert.Equal(t, stats, saved)

	// a new holder picks up the saved cursors
	assert.Equal(t, stats, newRandomStatsHolder(path, slog.Default()).Get())
}

func TestRandomStatsHolder_RefreshPartialFailure(t *testing.T) {
	ctx := context.Background()
	fake := newFakeAnilist(t)
	fake.setLastPage(MediaTypeAnime, 1900)
	// no manga at all

	cfg := newTestConfig(t)
	cfg.Anilist.Endpoint = fake.URL()
	client := NewAnilistClient(cfg.Anilist, nil, nil, slog.Default())

	path := filepath.Join(t.TempDir(), "random_stats.json")
	holder := newRandomStatsHolder(path, slog.Default())

	stats, err := holder.refresh(ctx, client, slog.Default())
	assert.Error(t, err)
	assert.Equal(t, 1900, stats.AnimeLastPage)
	assert.Equal(t, defaultMangaLastPage, stats.MangaLastPage)

	saved, err := LoadRandomStats(path)
	require.NoError(t, err)
	assert.Equal(t, 1900, saved.AnimeLastPage)
}
