package kasuki

import (
	"fmt"
	"strings"
)

// Module is a toggleable group of commands. Each guild has one
// [ModuleActivation] row holding a flag per module.
type Module int

const (
	ModuleAI Module = iota
	ModuleAnilist
	ModuleGame
	ModuleNewMember
	ModuleAnime
	ModuleVN
)

// killSwitchGuildID is the guild ID of the global ModuleActivation row.
// A module disabled there is disabled for every guild.
const killSwitchGuildID = "0"

var allModules = []Module{
	ModuleAI,
	ModuleAnilist,
	ModuleGame,
	ModuleNewMember,
	ModuleAnime,
	ModuleVN,
}

func (m Module) String() string {
	switch m {
	case ModuleAI:
		return "AI"
	case ModuleAnilist:
		return "ANILIST"
	case ModuleGame:
		return "GAME"
	case ModuleNewMember:
		return "NEW_MEMBER"
	case ModuleAnime:
		return "ANIME"
	case ModuleVN:
		return "VN"
	default:
		return fmt.Sprintf("Module(%d)", int(m))
	}
}

// column returns the module_activation column backing m
func (m Module) column() string {
	switch m {
	case ModuleAI:
		return columnModuleActivationAI
	case ModuleAnilist:
		return columnModuleActivationAnilist
	case ModuleGame:
		return columnModuleActivationGame
	case ModuleNewMember:
		return columnModuleActivationNewMember
	case ModuleAnime:
		return columnModuleActivationAnime
	case ModuleVN:
		return columnModuleActivationVN
	default:
		panic(fmt.Sprintf("unknown module: %d", int(m)))
	}
}

// defaultEnabled is the value a module's flag takes when no row exists
func (m Module) defaultEnabled() bool {
	return m != ModuleNewMember
}

// ParseModule parses a module name, case-insensitively. "NEW_MEMBER",
// "new member" and "newmember" are all accepted.
func ParseModule(s string) (Module, error) {
	normalized := strings.ToUpper(strings.TrimSpace(s))
	normalized = strings.NewReplacer(" ", "_", "-", "_").Replace(normalized)
	if normalized == "NEWMEMBER" {
		normalized = "NEW_MEMBER"
	}
	for _, m := range allModules {
		if m.String() == normalized {
			return m, nil
		}
	}
	return 0, missingf("ParseModule", "unknown module %q", s)
}

// DefaultModuleActivation returns the activation flags used when a guild
// has no row: every module enabled, except NEW_MEMBER.
func DefaultModuleActivation(guildID string) ModuleActivation {
	ma := ModuleActivation{GuildID: guildID}
	for _, m := range allModules {
		ma.Set(m, m.defaultEnabled())
	}
	return ma
}

// killSwitchActivation returns the kill switch row used when none is
// stored: every module allowed, leaving the decision to each guild.
func killSwitchActivation() ModuleActivation {
	ma := ModuleActivation{GuildID: killSwitchGuildID}
	for _, m := range allModules {
		ma.Set(m, true)
	}
	return ma
}

// Enabled reports whether the flag for m is set
func (ma ModuleActivation) Enabled(m Module) bool {
	switch m {
	case ModuleAI:
		return ma.AI
	case ModuleAnilist:
		return ma.Anilist
	case ModuleGame:
		return ma.Game
	case ModuleNewMember:
		return ma.NewMember
	case ModuleAnime:
		return ma.Anime
	case ModuleVN:
		return ma.VN
	default:
		return false
	}
}

// Set sets the flag for m
func (ma *ModuleActivation) Set(m Module, enabled bool) {
	switch m {
	case ModuleAI:
		ma.AI = enabled
	case ModuleAnilist:
		ma.Anilist = enabled
	case ModuleGame:
		ma.Game = enabled
	case ModuleNewMember:
		ma.NewMember = enabled
	case ModuleAnime:
		ma.Anime = enabled
	case ModuleVN:
		ma.VN = enabled
	}
}
