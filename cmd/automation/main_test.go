package main

import (
	"bytes"
	"io"
	"testing"

	"pkg.world.dev/world-engine/assert"

	"pkg.world.dev/world-engine/automation/content"
)

func writeContent(t *testing.T) string {
	dir := t.TempDir()
	store, err := content.NewStore(map[string]string{"/Game": dir})
	assert.NilError(t, err)
	mapHeader := content.Header{Flags: []string{"ContainsMap"}}
	assert.NilError(t, store.Save("/Game/Maps/Arena", &content.File{
		Package: mapHeader,
		World:   content.World{Name: "Arena", GameMode: "/Script/Engine.GameMode"},
	}))
	assert.NilError(t, store.Save("/Game/Maps/OldArena", &content.File{
		Package: mapHeader,
		World:   content.World{Name: "OldArena", Redirect: "/Game/Maps/Arena.Arena"},
	}))
	return dir
}

func run(t *testing.T, args ...string) (string, error) {
	var out bytes.Buffer
	cmd := newRootCmd(&out)
	cmd.SetErr(io.Discard)
	dir := writeContent(t)
	cmd.SetArgs(append(args, "--content-mounts", "/Game="+dir, "--asset-paths", "/Game/Maps"))
	err := cmd.Execute()
	return out.String(), err
}

func TestConfigCommand(t *testing.T) {
	out, err := run(t, "config", "--reuse-game-instance")
	assert.NilError(t, err)
	assert.Contains(t, out, `"reuse_game_instance":true`)
	assert.Contains(t, out, `"asset_paths":["/Game/Maps"]`)
}

func TestConfigCommandRejectsBadLevel(t *testing.T) {
	_, err := run(t, "config", "--log-level", "loud")
	assert.ErrorContains(t, err, "log level")
}

func TestAssetsIndex(t *testing.T) {
	out, err := run(t, "assets", "index")
	assert.NilError(t, err)
	assert.Equal(t, out, "indexed 2 packages\n")
}

func TestAssetsFind(t *testing.T) {
	testCases := []struct {
		name string
		args []string
		want string
	}{
		{"short name", []string{"assets", "find", "Arena", "--worlds"}, "/Game/Maps/Arena.Arena /Script/Engine.World"},
		{"package", []string{"assets", "find", "/Game/Maps/Arena"}, "/Game/Maps/Arena.Arena"},
		{"redirector", []string{"assets", "find", "OldArena"}, "-> /Game/Maps/Arena.Arena"},
		{"embedded redis", []string{"assets", "find", "Arena", "--redis-embedded"}, "/Game/Maps/Arena.Arena"},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			out, err := run(t, tc.args...)
			assert.NilError(t, err)
			assert.Contains(t, out, tc.want)
		})
	}

	_, err := run(t, "assets", "find", "OldArena", "--worlds")
	assert.ErrorContains(t, err, "asset not found")
}

func TestSmoke(t *testing.T) {
	out, err := run(t, "smoke", "--frames", "3")
	assert.NilError(t, err)
	assert.Equal(t, out, "world AutomationWorld ticked 3 frames with 0 local players; 1/1 tests passed\n")

	out, err = run(t, "smoke", "OldArena", "--player", "--frames", "2")
	assert.NilError(t, err)
	assert.Equal(t, out, "world Arena ticked 2 frames with 1 local players; 1/1 tests passed\n")

	out, err = run(t, "smoke", "/Game/Maps/Arena", "--editor", "--frames", "1")
	assert.NilError(t, err)
	assert.Contains(t, out, "world Arena ticked 1 frames")
}

func TestSmokeFailures(t *testing.T) {
	_, err := run(t, "smoke", "Missing")
	assert.ErrorContains(t, err, "asset not found")

	_, err = run(t, "smoke", "--frames", "-1")
	assert.ErrorContains(t, err, "must not be negative")
}
