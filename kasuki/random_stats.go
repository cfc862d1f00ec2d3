package kasuki

import (
	"context"
	"encoding/json"
	"errors"
	"github.com/lmittmann/tint"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
)

const (
	defaultAnimeLastPage = 1796
	defaultMangaLastPage = 1705
)

// RandomStats holds the last known page (of one media each) for anime
// and manga, which bounds the page picked by /anilist_user random
type RandomStats struct {
	AnimeLastPage int `json:"anime_last_page"`
	MangaLastPage int `json:"manga_last_page"`
}

func DefaultRandomStats() RandomStats {
	return RandomStats{
		AnimeLastPage: defaultAnimeLastPage,
		MangaLastPage: defaultMangaLastPage,
	}
}

// LastPage returns the cursor for mediaType
func (s RandomStats) LastPage(mediaType string) int {
	if mediaType == MediaTypeManga {
		return s.MangaLastPage
	}
	return s.AnimeLastPage
}

// LoadRandomStats reads stats from path. Defaults are returned (along
// with the error) when the file is missing or unreadable. Non-positive
// cursors in the file are replaced by their default.
func LoadRandomStats(path string) (RandomStats, error) {
	stats := DefaultRandomStats()
	data, err := os.ReadFile(path)
	if err != nil {
		return stats, newError(ErrKindFile, "LoadRandomStats", err)
	}
	var loaded RandomStats
	if err = json.Unmarshal(data, &loaded); err != nil {
		return stats, newError(ErrKindDecode, "LoadRandomStats", err)
	}
	if loaded.AnimeLastPage > 0 {
		stats.AnimeLastPage = loaded.AnimeLastPage
	}
	if loaded.MangaLastPage > 0 {
		stats.MangaLastPage = loaded.MangaLastPage
	}
	return stats, nil
}

// SaveRandomStats writes stats to a temporary file next to path, then
// renames it over path
func SaveRandomStats(path string, stats RandomStats) error {
	const op = "SaveRandomStats"
	data, err := json.MarshalIndent(stats, "", "  ")
	if err != nil {
		return newError(ErrKindDecode, op, err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".*.tmp")
	if err != nil {
		return newError(ErrKindFile, op, err)
	}
	tmpName := tmp.Name()
	_, err = tmp.Write(data)
	err = errors.Join(err, tmp.Close())
	if err == nil {
		err = os.Rename(tmpName, path)
	}
	if err != nil {
		_ = os.Remove(tmpName)
		return newError(ErrKindFile, op, err)
	}
	return nil
}

// randomStatsHolder guards the in-memory stats, and serializes refreshes
type randomStatsHolder struct {
	path      string
	mu        sync.RWMutex
	stats     RandomStats
	refreshMu sync.Mutex
}

func newRandomStatsHolder(path string, logger *slog.Logger) *randomStatsHolder {
	stats, err := LoadRandomStats(path)
	if err != nil {
		logger.Warn(
			"unable to load random stats, using defaults",
			tint.Err(err),
			"path", path,
			"stats", stats,
		)
	}
	return &randomStatsHolder{path: path, stats: stats}
}

func (h *randomStatsHolder) Get() RandomStats {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.stats
}

func (h *randomStatsHolder) set(stats RandomStats) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.stats = stats
}

// refresh walks both page cursors forward. The file is saved after each
// cursor that's updated, so a failure on manga keeps the anime result.
func (h *randomStatsHolder) refresh(
	ctx context.Context,
	anilist *AnilistClient,
	logger *slog.Logger,
) (RandomStats, error) {
	h.refreshMu.Lock()
	defer h.refreshMu.Unlock()

	var errs []error
	for _, mediaType := range []string{MediaTypeAnime, MediaTypeManga} {
		current := h.Get()
		last, err := anilist.LastPage(ctx, mediaType, current.LastPage(mediaType))
		if err != nil {
			logger.ErrorContext(
				ctx,
				"error finding last page",
				tint.Err(err),
				"media_type", mediaType,
			)
			errs = append(errs, err)
			continue
		}
		if last == current.LastPage(mediaType) {
			continue
		}
		updated := current
		if mediaType == MediaTypeManga {
			updated.MangaLastPage = last
		} else {
			updated.AnimeLastPage = last
		}
		h.set(updated)
		if err = SaveRandomStats(h.path, updated); err != nil {
			logger.ErrorContext(ctx, "error saving random stats", tint.Err(err), "path", h.path)
			errs = append(errs, err)
			continue
		}
		logger.InfoContext(
			ctx,
			"updated random stats",
			"media_type", mediaType,
			"previous", current.LastPage(mediaType),
			"last_page", last,
		)
	}
	return h.Get(), errors.Join(errs...)
}
