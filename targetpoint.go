package automation

import (
	"pkg.world.dev/world-engine/automation/engine"
)

// TargetPoint is a hidden marker actor that tests look up by label.
type TargetPoint struct {
	engine.ActorBase
	Label string
}

// OnConstruction falls back to the actor label when no Label was set and mirrors the label into the tags.
func (tp *TargetPoint) OnConstruction() {
	if tp.Label == "" {
		tp.Label = tp.ActorLabel()
	}
	tp.SetActorLabel(tp.Label)
	tp.AddTag(tp.Label)
	tp.Hidden = true
}

// SetLabel renames the target point, keeping its tags in sync.
func (tp *TargetPoint) SetLabel(label string) {
	tp.RemoveTag(tp.Label)
	tp.Label = label
	tp.SetActorLabel(label)
	tp.AddTag(label)
}

// FindTargetPoint returns the first target point of w labeled label.
func FindTargetPoint(w *engine.World, label string) *TargetPoint {
	if w == nil {
		return nil
	}
	for _, tp := range engine.ActorsOf[*TargetPoint](w) {
		if tp.Label == label {
			return tp
		}
	}
	return nil
}

// SpawnTargetPoint places a target point labeled label in the fixture world.
func (fx *World) SpawnTargetPoint(label string, location engine.Vector) (*TargetPoint, error) {
	a, err := fx.SpawnActor(fx.rt.targetPointClass, engine.SpawnParams{Label: label, Location: location})
	if err != nil {
		return nil, err
	}
	return a.(*TargetPoint), nil
}

// FindTargetPoint looks up a target point in the fixture world.
func (fx *World) FindTargetPoint(label string) *TargetPoint {
	return FindTargetPoint(fx.world, label)
}
