package kasuki

import (
	"github.com/stretchr/testify/assert"
	"math"
	"testing"
)

func TestXPRequiredForLevel(t *testing.T) {
	testCases := []struct {
		level    int
		expected float64
	}{
		{level: 0, expected: 0},
		{level: 2, expected: 8},
		{level: 9, expected: 729},
		{level: 10, expected: 10000},
		{level: 30, expected: math.Pow(30, 5)},
		{level: 95, expected: math.Pow(95, 11)},
		{level: 101, expected: math.MaxFloat64},
	}
	for _, tc := range testCases {
		assert.Equal(t, tc.expected, XPRequiredForLevel(tc.level), "level %d", tc.level)
	}
}

func TestGetLevel(t *testing.T) {
	testCases := []struct {
		name     string
		xp       float64
		level    int
		progress float64
		span     float64
	}{
		{name: "negative", xp: -5, level: 0, progress: 0, span: levelSpanBelowZero},
		{name: "zero", xp: 0, level: 0, progress: 0, span: 1},
		{name: "exact threshold", xp: 8, level: 2, progress: 0, span: 19},
		{name: "past threshold", xp: 9, level: 2, progress: 1, span: 19},
		{name: "bracket change", xp: 10000, level: 10, progress: 0, span: math.Pow(11, 4) - 10000},
	}
	for _, tc := range testCases {
		t.Run(
			tc.name, func(t *testing.T) {
				level, progress, span := GetLevel(tc.xp)
				assert.Equal(t, tc.level, level)
				assert.Equal(t, tc.progress, progress)
				assert.Equal(t, tc.span, span)
			},
		)
	}

	level, _, _ := GetLevel(math.Pow(100, 11) * 10)
	assert.Equal(t, maxLevel, level)
}

func TestLevelThresholds(t *testing.T) {
	for level := 0; level < maxLevel; level++ {
		assert.Less(t, XPRequiredForLevel(level), XPRequiredForLevel(level+1), "level %d", level)
	}
	for level := 0; level <= maxLevel; level++ {
		got, progress, span := GetLevel(XPRequiredForLevel(level))
		assert.Equal(t, level, got)
		assert.Equal(t, 0.0, progress, "level %d", level)
		assert.Positive(t, span, "level %d", level)
	}

	level, progress, _ := GetLevel(math.MaxFloat64)
	assert.Equal(t, maxLevel, level)
	assert.Positive(t, progress)
	assert.Len(t, levelTable(), maxLevel+1)
}

func TestGetLevel_Monotonic(t *testing.T) {
	prev := 0
	for xp := 0.0; xp < 5_000_000; xp += 997 {
		level, progress, span := GetLevel(xp)
		assert.GreaterOrEqual(t, level, prev)
		assert.GreaterOrEqual(t, progress, 0.0)
		assert.Less(t, progress, span)
		prev = level
	}
}

func TestUserXP(t *testing.T) {
	stats := UserStatistics{
		Anime: MediaStatistics{Consumed: 100},
		Manga: MediaStatistics{Consumed: 10},
	}
	assert.Equal(t, 150.0, UserXP(stats))
}

func TestJaccard(t *testing.T) {
	assert.InDelta(t, 1.0/3.0, jaccard([]string{"a", "b"}, []string{"b", "c"}), 1e-9)
	assert.Equal(t, 1.0, jaccard([]string{"a", "a"}, []string{"a"}))
	assert.Equal(t, 0.0, jaccard(nil, nil))
	assert.Equal(t, 0.0, jaccard([]string{"a"}, []string{"b"}))
}

func TestGetAffinity(t *testing.T) {
	stats := UserStatistics{
		Anime: MediaStatistics{
			Count:             120,
			Consumed:          30000,
			Secondary:         1500,
			StandardDeviation: 12.5,
			MeanScore:         74.2,
			Statuses:          [numListStatuses]int{3, 10, 100, 4, 2, 1},
			Tags:              []string{"Iyashikei", "Time Skip"},
			Genres:            []string{"Slice of Life", "Drama"},
		},
		Manga: MediaStatistics{
			Count:     40,
			Consumed:  2000,
			Secondary: 150,
		},
	}

	t.Run(
		"identical", func(t *testing.T) {
			assert.InDelta(t, 210.0, GetAffinity(stats, stats), 1e-9)
		},
	)

	t.Run(
		"symmetric", func(t *testing.T) {
			other := stats
			other.Anime.Count = 80
			other.Anime.Tags = []string{"Iyashikei"}
			other.Manga.MeanScore = 60
			assert.InDelta(t, GetAffinity(stats, other), GetAffinity(other, stats), 1e-9)
			assert.Less(t, GetAffinity(stats, other), 210.0)
		},
	)

	t.Run(
		"empty", func(t *testing.T) {
			// no tags or genres, but every statistic matches
			assert.InDelta(t, 110.0, GetAffinity(UserStatistics{}, UserStatistics{}), 1e-9)
		},
	)
}

func TestStatusIndex(t *testing.T) {
	idx, ok := statusIndex("COMPLETED")
	assert.True(t, ok)
	assert.Equal(t, 2, idx)

	_, ok = statusIndex("WATCHING")
	assert.False(t, ok)
}
