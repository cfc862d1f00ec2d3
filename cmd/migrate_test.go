package cmd

import (
	"bytes"
	"github.com/ValgulNecron/kasuki-sub000/kasuki"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"os"
	"path/filepath"
	"testing"
)

func TestMigrateCommand(t *testing.T) {
	tempDir := t.TempDir()
	dbPath := filepath.Join(tempDir, "kasuki.sqlite3")

	t.Setenv("KASUKI_DATABASE_TYPE", "sqlite")
	t.Setenv("KASUKI_DATABASE", dbPath)

	currentOut := rootCmd.OutOrStdout()
	currentErr := rootCmd.OutOrStderr()
	t.Cleanup(
		func() {
			rootCmd.SetOut(currentOut)
			rootCmd.SetErr(currentErr)
		},
	)
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)

	rootCmd.SetArgs([]string{"migrate"})
	require.NoError(t, rootCmd.Execute())

	_, err := os.Stat(dbPath)
	assert.NoError(t, err, "database file should exist")

	output := out.String()
	t.Logf("output: %s", output)
	assert.Contains(t, output, "Migrated sqlite database")

	db, err := gorm.Open(sqlite.Open(dbPath))
	require.NoError(t, err)
	t.Cleanup(
		func() {
			sqlDB, _ := db.DB()
			if sqlDB != nil {
				_ = sqlDB.Close()
			}
		},
	)

	mg := db.Migrator()
	assert.True(t, mg.HasTable(&kasuki.GuildLanguage{}))
	assert.True(t, mg.HasTable(&kasuki.ModuleActivation{}))
	assert.True(t, mg.HasTable(&kasuki.RegisteredUser{}))
	assert.True(t, mg.HasTable(&kasuki.ScheduledActivity{}))
	assert.True(t, mg.HasTable(&kasuki.UserApproximatedColor{}))
	assert.True(t, mg.HasTable(&kasuki.ServerImage{}))

	var killSwitch kasuki.ModuleActivation
	require.NoError(t, db.Where("guild_id = ?", "0").First(&killSwitch).Error)
	assert.True(t, killSwitch.AI)
	assert.True(t, killSwitch.Anilist)

	// running it again is a no-op
	out.Reset()
	rootCmd.SetArgs([]string{"migrate"})
	require.NoError(t, rootCmd.Execute())
	var count int64
	require.NoError(t, db.Model(&kasuki.ModuleActivation{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}
