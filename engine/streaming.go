package engine

import (
	"github.com/rs/zerolog/log"

	"pkg.world.dev/world-engine/automation/content"
	"pkg.world.dev/world-engine/automation/subsystem"
)

type StreamingState int

const (
	StreamingUnloaded StreamingState = iota
	StreamingFailedToLoad
	StreamingLoadedNotVisible
	StreamingLoadedVisible
)

func (s StreamingState) String() string {
	switch s {
	case StreamingUnloaded:
		return "Unloaded"
	case StreamingFailedToLoad:
		return "FailedToLoad"
	case StreamingLoadedNotVisible:
		return "LoadedNotVisible"
	default:
		return "LoadedVisible"
	}
}

// LevelStreamingStateChange describes one streaming level transition. Level is set whenever the level is loaded.
type LevelStreamingStateChange struct {
	World     *World
	Streaming *StreamingLevel
	Level     *Level
	PrevState StreamingState
	NewState  StreamingState
}

// Level is the loaded content of a streamed sublevel. Its outer is the sublevel world.
type Level struct {
	ObjectBase
	owningWorld *World
	records     []content.ActorRecord
	actors      []Actor
}

// OuterWorld returns the sublevel world holding the level.
func (l *Level) OuterWorld() *World {
	w, _ := l.Outer().(*World)
	return w
}

// OwningWorld returns the world the level is streamed into.
func (l *Level) OwningWorld() *World {
	return l.owningWorld
}

func (l *Level) ReferencedObjects() []Object {
	refs := make([]Object, 0, len(l.actors))
	for _, a := range l.actors {
		refs = append(refs, a)
	}
	return refs
}

// StreamingLevel tracks one sublevel package of a world.
type StreamingLevel struct {
	PackageName     string
	ShouldBeLoaded  bool
	ShouldBeVisible bool

	state  StreamingState
	loaded *Level
}

func (s *StreamingLevel) State() StreamingState {
	return s.state
}

func (s *StreamingLevel) LoadedLevel() *Level {
	return s.loaded
}

// AddStreamingLevel registers a sublevel package. It is loaded by the next streaming update.
func (w *World) AddStreamingLevel(pkg string, visible bool) *StreamingLevel {
	s := &StreamingLevel{PackageName: pkg, ShouldBeLoaded: true, ShouldBeVisible: visible}
	w.streaming = append(w.streaming, s)
	return s
}

func (w *World) StreamingLevels() []*StreamingLevel {
	out := make([]*StreamingLevel, len(w.streaming))
	copy(out, w.streaming)
	return out
}

// UpdateLevelStreaming advances every streaming level by one step and reports whether anything changed.
func (w *World) UpdateLevelStreaming() bool {
	changed := false
	for _, s := range w.StreamingLevels() {
		if w.updateStreamingLevel(s) {
			changed = true
		}
	}
	if w.subsystems != nil {
		w.subsystems.ForEachWorld(func(s subsystem.WorldSubsystem) {
			s.UpdateStreamingState()
		})
	}
	return changed
}

// FlushLevelStreaming runs streaming updates until every level settles.
func (w *World) FlushLevelStreaming() {
	for i := 0; i < 4*len(w.streaming)+1; i++ {
		if !w.UpdateLevelStreaming() {
			return
		}
	}
}

func (w *World) updateStreamingLevel(s *StreamingLevel) bool {
	prev := s.state
	switch {
	case s.state == StreamingUnloaded && s.ShouldBeLoaded:
		if level := w.loadStreamingLevel(s); level != nil {
			s.loaded = level
			s.state = StreamingLoadedNotVisible
		} else {
			s.state = StreamingFailedToLoad
		}
	case s.state == StreamingLoadedNotVisible && s.ShouldBeVisible:
		w.showLevel(s.loaded)
		s.state = StreamingLoadedVisible
	case s.state == StreamingLoadedVisible && !s.ShouldBeVisible:
		w.hideLevel(s.loaded)
		s.state = StreamingLoadedNotVisible
	case (s.state == StreamingLoadedNotVisible || s.state == StreamingLoadedVisible) && !s.ShouldBeLoaded:
		w.unloadStreamingLevel(s)
	default:
		return false
	}
	w.engine.LevelStreamingStateChanged.Broadcast(LevelStreamingStateChange{
		World:     w,
		Streaming: s,
		Level:     s.loaded,
		PrevState: prev,
		NewState:  s.state,
	})
	return true
}

func (w *World) loadStreamingLevel(s *StreamingLevel) *Level {
	e := w.engine
	file, err := e.Content.Load(s.PackageName)
	if err != nil || !file.HasWorld() {
		log.Error().Err(err).Str("world", w.Name()).Str("package", s.PackageName).Msg("Failed to load streaming level")
		return nil
	}
	pkg, err := e.CreatePackage(e.MakeUniquePackageName(s.PackageName), FlagTransient)
	if err != nil {
		log.Error().Err(err).Str("package", s.PackageName).Msg("Failed to create streaming level package")
		return nil
	}
	pkg.source = s.PackageName
	sub, err := e.CreateWorld(WorldTypeInactive, pkg, file.World.Name)
	if err != nil {
		log.Error().Err(err).Str("package", s.PackageName).Msg("Failed to create streaming level world")
		return nil
	}
	if e.IsEditor {
		sub.SetFlags(FlagStandalone)
	}
	level := &Level{owningWorld: w, records: file.World.Actors}
	e.track(level, sub, "PersistentLevel", FlagTransient)
	return level
}

func (w *World) showLevel(level *Level) {
	for _, record := range level.records {
		a, err := w.spawnFromRecord(record, level)
		if err != nil {
			log.Error().Err(err).Str("level", level.OuterWorld().Name()).Msg("Failed to spawn streamed actor")
			continue
		}
		level.actors = append(level.actors, a)
	}
}

func (w *World) hideLevel(level *Level) {
	for _, a := range level.actors {
		w.DestroyActor(a)
	}
	level.actors = nil
}

func (w *World) unloadStreamingLevel(s *StreamingLevel) {
	if s.loaded == nil {
		s.state = StreamingUnloaded
		return
	}
	w.hideLevel(s.loaded)
	s.loaded.MarkAsGarbage()
	s.loaded = nil
	s.state = StreamingUnloaded
}
