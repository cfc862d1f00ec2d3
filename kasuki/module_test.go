package kasuki

import (
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"testing"
)

func TestParseModule(t *testing.T) {
	testCases := map[string]Module{
		"AI":         ModuleAI,
		"ai":         ModuleAI,
		"Anilist":    ModuleAnilist,
		" game ":     ModuleGame,
		"NEW_MEMBER": ModuleNewMember,
		"new member": ModuleNewMember,
		"new-member": ModuleNewMember,
		"newmember":  ModuleNewMember,
		"anime":      ModuleAnime,
		"VN":         ModuleVN,
	}
	for input, expected := range testCases {
		m, err := ParseModule(input)
		require.NoError(t, err, input)
		assert.Equal(t, expected, m, input)
	}

	_, err := ParseModule("music")
	assert.ErrorIs(t, err, ErrMissing)
}

func TestDefaultModuleActivation(t *testing.T) {
	ma := DefaultModuleActivation("123")
	assert.Equal(t, "123", ma.GuildID)
	assert.True(t, ma.AI)
	assert.True(t, ma.Anilist)
	assert.True(t, ma.Game)
	assert.False(t, ma.NewMember)
	assert.True(t, ma.Anime)
	assert.True(t, ma.VN)
}

func TestModuleActivation_SetEnabled(t *testing.T) {
	var ma ModuleActivation
	for _, m := range allModules {
		assert.False(t, ma.Enabled(m))
		ma.Set(m, true)
		assert.True(t, ma.Enabled(m), m.String())
	}
	assert.False(t, ma.Enabled(Module(99)))
	assert.Equal(t, "Module(99)", Module(99).String())
}
