package cmd

import (
	"fmt"
	"github.com/ValgulNecron/kasuki-sub000/kasuki"
	"github.com/stretchr/testify/assert"
	"io"
	"os"
	"testing"
)

func TestVersionCommand(t *testing.T) {
	originalVersion := kasuki.Version
	originalCommitSHA := kasuki.CommitSHA
	originalBuildTime := kasuki.BuildTime

	t.Cleanup(
		func() {
			kasuki.Version = originalVersion
			kasuki.CommitSHA = originalCommitSHA
			kasuki.BuildTime = originalBuildTime
		},
	)

	kasuki.Version = "4.2.0"
	kasuki.CommitSHA = "f00dcafe"
	kasuki.BuildTime = "2024-08-01T09:30:00Z"

	orig := os.Stdout
	r, w, _ := os.Pipe()
	os.Stdout = w
	t.Cleanup(
		func() {
			os.Stdout = orig
		},
	)

	versionCmd.Run(nil, nil)

	_ = w.Close()

	out, _ := io.ReadAll(r)
	expected := fmt.Sprintf(
		"version=%s commit=%s built: %s",
		kasuki.Version,
		kasuki.CommitSHA,
		kasuki.BuildTime,
	)
	assert.Equal(t, expected, string(out))
}
