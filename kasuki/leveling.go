package kasuki

import (
	"math"
	"sync"
)

const (
	maxLevel = 100

	// levelSpanBelowZero is the span reported for negative xp, which
	// falls below every threshold
	levelSpanBelowZero = 20.0

	// closenessDenominator scales each matching statistic's contribution
	// to the affinity score
	closenessDenominator = 20.0

	// chapterXPMultiplier converts chapters read to the same scale as
	// minutes watched
	chapterXPMultiplier = 5.0
)

// levelThreshold is a row of the level table: the xp needed to reach
// Level, and the xp needed to reach the level after it
type levelThreshold struct {
	Level  int
	XP     float64
	NextXP float64
}

// levelTable holds thresholds for levels 0 through maxLevel, ascending.
var levelTable = sync.OnceValue(
	func() []levelThreshold {
		table := make([]levelThreshold, 0, maxLevel+1)
		for level := 0; level <= maxLevel; level++ {
			table = append(
				table,
				levelThreshold{
					Level:  level,
					XP:     XPRequiredForLevel(level),
					NextXP: XPRequiredForLevel(level + 1),
				},
			)
		}
		return table
	},
)

// XPRequiredForLevel returns the total xp needed to reach level. The
// exponent grows with the level bracket. Levels above 100 can't be
// reached, and return math.MaxFloat64.
func XPRequiredForLevel(level int) float64 {
	var exp float64
	switch {
	case level > maxLevel:
		return math.MaxFloat64
	case level < 10:
		exp = 3
	case level < 30:
		exp = 4
	case level < 40:
		exp = 5
	case level < 50:
		exp = 6
	case level < 60:
		exp = 7
	case level < 70:
		exp = 8
	case level < 80:
		exp = 9
	case level < 90:
		exp = 10
	default:
		exp = 11
	}
	return math.Pow(float64(level), exp)
}

// GetLevel returns the level reached with xp, how much xp has been
// earned past that level's threshold, and the xp between that level
// and the next.
func GetLevel(xp float64) (level int, progress float64, span float64) {
	table := levelTable()
	for i := len(table) - 1; i >= 0; i-- {
		t := table[i]
		if xp >= t.XP {
			return t.Level, xp - t.XP, t.NextXP - t.XP
		}
	}
	return 0, 0, levelSpanBelowZero
}

// UserStatistics is the subset of an AniList user's statistics used
// for leveling and affinity
type UserStatistics struct {
	Anime MediaStatistics `json:"anime"`
	Manga MediaStatistics `json:"manga"`
}

// MediaStatistics summarizes a user's list for one media type
//
// Fields:
//   - Count: Number of entries on the list
//   - Consumed: Minutes watched (anime) or chapters read (manga)
//   - Secondary: Episodes watched (anime) or volumes read (manga)
//   - StandardDeviation: Standard deviation of the user's scores
//   - MeanScore: Mean of the user's scores
//   - Statuses: Entry counts per list status, in [mediaListStatuses] order
//   - Tags: Names of the user's top tags
//   - Genres: Names of the user's top genres
type MediaStatistics struct {
	Count             int                  `json:"count"`
	Consumed          int                  `json:"consumed"`
	Secondary         int                  `json:"secondary"`
	StandardDeviation float64              `json:"standard_deviation"`
	MeanScore         float64              `json:"mean_score"`
	Statuses          [numListStatuses]int `json:"statuses"`
	Tags              []string             `json:"tags"`
	Genres            []string             `json:"genres"`
}

const numListStatuses = len(mediaListStatuses)

// mediaListStatuses are AniList's list statuses
var mediaListStatuses = [...]string{
	"CURRENT",
	"PLANNING",
	"COMPLETED",
	"DROPPED",
	"PAUSED",
	"REPEATING",
}

// statusIndex returns the index of status in [mediaListStatuses]
func statusIndex(status string) (int, bool) {
	for i, s := range mediaListStatuses {
		if s == status {
			return i, true
		}
	}
	return 0, false
}

// UserXP returns the xp earned from a user's statistics
func UserXP(stats UserStatistics) float64 {
	return float64(stats.Anime.Consumed) +
		float64(stats.Manga.Consumed)*chapterXPMultiplier
}

// GetAffinity scores how similar two users' lists are. The result is
// the average of the tag and genre jaccard indexes of their anime lists,
// plus the closeness of their anime and manga statistics, times 100.
//
// The result isn't bounded to 100: two identical lists with non-empty
// tags and genres score 210.
func GetAffinity(a, b UserStatistics) float64 {
	tags := jaccard(a.Anime.Tags, b.Anime.Tags)
	genres := jaccard(a.Anime.Genres, b.Anime.Genres)
	return ((tags+genres)/2.0 +
		closeness(a.Anime, b.Anime) +
		closeness(a.Manga, b.Manga)) * 100.0
}

// jaccard returns |a ∩ b| / |a ∪ b|, treating a and b as sets.
// Two empty sets have an index of 0.
func jaccard(a, b []string) float64 {
	setA := make(map[string]struct{}, len(a))
	for _, v := range a {
		setA[v] = struct{}{}
	}
	union := make(map[string]struct{}, len(a)+len(b))
	for k := range setA {
		union[k] = struct{}{}
	}

	intersection := 0
	seenB := make(map[string]struct{}, len(b))
	for _, v := range b {
		if _, dup := seenB[v]; dup {
			continue
		}
		seenB[v] = struct{}{}
		if _, ok := setA[v]; ok {
			intersection++
		}
		union[v] = struct{}{}
	}

	if len(union) == 0 {
		return 0
	}
	return float64(intersection) / float64(len(union))
}

// closeness awards 1/closenessDenominator for each statistic that's
// exactly equal between a and b
func closeness(a, b MediaStatistics) float64 {
	matches := 0
	for i := range a.Statuses {
		if a.Statuses[i] == b.Statuses[i] {
			matches++
		}
	}
	for _, eq := range []bool{
		a.Count == b.Count,
		a.Consumed == b.Consumed,
		a.Secondary == b.Secondary,
		a.StandardDeviation == b.StandardDeviation,
		a.MeanScore == b.MeanScore,
	} {
		if eq {
			matches++
		}
	}
	return float64(matches) / closenessDenominator
}
