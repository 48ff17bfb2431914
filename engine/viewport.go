package engine

// Viewport is the render target of a viewport client.
type Viewport interface {
	Size() (width, height int)
}

// DummyViewport satisfies code paths that require a viewport without rendering anything.
type DummyViewport struct {
	Client *ViewportClient
}

func (v *DummyViewport) Size() (int, int) {
	return 0, 0
}

type ViewportClient struct {
	ObjectBase
	Viewport Viewport

	context      *WorldContext
	gameInstance *GameInstance
	audioDevice  bool
}

// NewViewportClient creates a game viewport client bound to ctx.
func (e *Engine) NewViewportClient(ctx *WorldContext, gi *GameInstance, createAudioDevice bool) *ViewportClient {
	vc := &ViewportClient{context: ctx, gameInstance: gi, audioDevice: createAudioDevice}
	e.track(vc, nil, "", FlagTransient)
	return vc
}

func (vc *ViewportClient) HasAudioDevice() bool {
	return vc.audioDevice
}

func (vc *ViewportClient) GameInstance() *GameInstance {
	return vc.gameInstance
}

func (vc *ViewportClient) World() *World {
	if vc.context == nil {
		return nil
	}
	return vc.context.World()
}
