package main

import (
	"github.com/rotisserie/eris"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"pkg.world.dev/world-engine/automation"
	"pkg.world.dev/world-engine/automation/engine"
)

const (
	flagFrames       = "frames"
	flagGameInstance = "game-instance"
	flagPlayer       = "player"
	flagEditor       = "editor"
	smokeTestName    = "Smoke"
	defaultFrames    = 60
)

type smokeOptions struct {
	frames       int
	gameInstance bool
	player       bool
	editor       bool
}

func (o smokeOptions) flags() automation.InitFlags {
	switch {
	case o.editor:
		return automation.InitScene
	case o.player:
		return automation.WithLocalPlayer
	case o.gameInstance:
		return automation.WithGameInstance
	default:
		return automation.Minimal
	}
}

func newSmokeCmd() *cobra.Command {
	var opts smokeOptions
	cmd := &cobra.Command{
		Use:   "smoke [WORLD]",
		Short: "Create or load a world, tick it, and tear it down",
		Long: "smoke creates a fresh automation world, or loads WORLD by long package name or short name, ticks it " +
			"for the requested number of frames, and destroys it. It fails when the world cannot be built.",
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.frames < 0 {
				return eris.Errorf("--%s must not be negative", flagFrames)
			}
			world := ""
			if len(args) == 1 {
				world = args[0]
			}
			return runSmoke(cmd, world, opts)
		},
	}
	fs := cmd.Flags()
	fs.IntVar(&opts.frames, flagFrames, defaultFrames, "frames to tick")
	fs.BoolVar(&opts.gameInstance, flagGameInstance, false, "give the world a game instance and game mode")
	fs.BoolVar(&opts.player, flagPlayer, false, "spawn the primary local player")
	fs.BoolVar(&opts.editor, flagEditor, false, "build an editor world instead of a game world")
	return cmd
}

func runSmoke(cmd *cobra.Command, world string, opts smokeOptions) error {
	s, err := newSession(cmd)
	if err != nil {
		return err
	}
	defer s.Close()
	if _, err := s.index(cmd.Context()); err != nil {
		return err
	}

	e, err := engine.New(s.store, engine.WithEditor(opts.editor))
	if err != nil {
		return err
	}
	var fatal error
	rt, err := automation.NewRuntime(e, s.settings,
		automation.WithResolver(s.resolver()),
		automation.WithFatalHandler(func(err error) {
			fatal = err
		}),
	)
	if err != nil {
		return err
	}
	defer rt.Close()

	if err := rt.Framework.StartTest(smokeTestName); err != nil {
		return err
	}
	fx, err := createSmokeWorld(rt, world, opts)
	if err != nil {
		_ = rt.Framework.EndTest(true)
		return err
	}
	fx.TickWorld(opts.frames)
	fx.Dump(zerolog.InfoLevel)
	name, players := fx.Name(), len(fx.LocalPlayers())
	fx.Destroy()

	if err := rt.Framework.EndTest(fatal != nil); err != nil {
		return err
	}
	run := rt.Framework.EndRun()
	if fatal != nil {
		return fatal
	}
	cmd.Printf("world %s ticked %d frames with %d local players; %d/%d tests passed\n",
		name, opts.frames, players, run.Tests-run.Failed, run.Tests)
	return nil
}

func createSmokeWorld(rt *automation.Runtime, world string, opts smokeOptions) (*automation.World, error) {
	flags := opts.flags()
	switch {
	case world == "" && opts.editor:
		return rt.CreateEditorWorld(flags)
	case world == "":
		return rt.CreateGameWorld(flags)
	case opts.editor:
		return rt.LoadEditorWorld(world, flags)
	default:
		return rt.LoadGameWorld(world, flags)
	}
}
