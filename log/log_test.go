package log_test

import (
	"bytes"
	"strings"
	"testing"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"
	zlog "github.com/rs/zerolog/log"
	"github.com/stretchr/testify/require"

	"pkg.world.dev/world-engine/assert"

	"pkg.world.dev/world-engine/automation/config"
	"pkg.world.dev/world-engine/automation/content"
	"pkg.world.dev/world-engine/automation/engine"
	"pkg.world.dev/world-engine/automation/log"
)

func TestWorldDump(t *testing.T) {
	store, err := content.NewStore(map[string]string{"/Game": t.TempDir()})
	require.NoError(t, err)
	e, err := engine.New(store)
	require.NoError(t, err)
	pkg, err := e.CreatePackage("/Temp/LogTest", engine.FlagTransient)
	require.NoError(t, err)
	w, err := e.CreateWorld(engine.WorldTypeGame, pkg, "LogWorld")
	require.NoError(t, err)
	require.NoError(t, w.InitWorld(engine.InitValues{}))
	_, err = w.SpawnActor(e.Core.Actor, engine.SpawnParams{Name: "Marker", Label: "Spawn", Tags: []string{"spawn"}})
	require.NoError(t, err)

	var buf bytes.Buffer
	logger := zerolog.New(&buf)
	log.World(&logger, w, zerolog.InfoLevel)

	var dump struct {
		World       string `json:"world"`
		Type        string `json:"type"`
		TotalActors int    `json:"total_actors"`
		Actors      []struct {
			Name  string   `json:"name"`
			Class string   `json:"class"`
			Label string   `json:"label"`
			Tags  []string `json:"tags"`
		} `json:"actors"`
	}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &dump))
	require.Len(t, dump.Actors, 2)
	assert.Equal(t, "LogWorld", dump.World)
	assert.Equal(t, "Game", dump.Type)
	assert.Equal(t, 2, dump.TotalActors)
	assert.Equal(t, "WorldSettings", dump.Actors[0].Name)
	assert.Equal(t, "Marker", dump.Actors[1].Name)
	assert.Equal(t, "Actor", dump.Actors[1].Class)
	assert.Equal(t, "Spawn", dump.Actors[1].Label)
	assert.IsEqual(t, []string{"spawn"}, dump.Actors[1].Tags)
}

func TestSetupAndTestLogger(t *testing.T) {
	prevLevel, prevLogger := zerolog.GlobalLevel(), zlog.Logger
	t.Cleanup(func() {
		zerolog.SetGlobalLevel(prevLevel)
		zlog.Logger = prevLogger
	})

	s := config.Default()
	s.LogLevel = "warn"
	var buf bytes.Buffer
	assert.NilError(t, log.Setup(&s, &buf))
	assert.Equal(t, zerolog.WarnLevel, zerolog.GlobalLevel())

	logger := zerolog.New(&buf)
	testLogger := log.CreateTestLogger(&logger, "Automation.Smoke")
	testLogger.Warn().Msg("hello")
	assert.Check(t, strings.Contains(buf.String(), `"test":"Automation.Smoke"`))

	s.LogLevel = "loud"
	assert.ErrorContains(t, log.Setup(&s, &buf), "invalid log level")
}
