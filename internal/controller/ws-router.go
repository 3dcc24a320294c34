package controller

import (
	"github.com/obslab/server/pkg/wsrouter"
)

func (c *controller) getWSRouter() *wsrouter.Router {
	mux := wsrouter.New()

	mux.Use(c.wsRequestIdMw(), c.loggerWSMw())
	mux.OnError(c.handleWSError)

	// session
	wsrouter.Handle(mux, "ALIVE", c.handleAlive)
	wsrouter.Handle(mux, "GET_STATE", c.handleGetState)

	// transport
	wsrouter.Handle(mux, "OPEN_MEDIA", c.handleOpenMedia)
	wsrouter.Handle(mux, "PLAY", c.handlePlay)
	wsrouter.Handle(mux, "STOP", c.handleStop)
	wsrouter.Handle(mux, "STEP", c.handleStep)
	wsrouter.Handle(mux, "SET_SPEED", c.handleSetSpeed)
	wsrouter.Handle(mux, "SEEK", c.handleSeek)
	wsrouter.Handle(mux, "REWIND", c.handleRewind)
	wsrouter.Handle(mux, "RESET_VIEW", c.handleResetView)
	wsrouter.Handle(mux, "SET_VOLUME", c.handleSetVolume)

	// timeline
	wsrouter.Handle(mux, "ZOOM_IN", c.handleZoomIn)
	wsrouter.Handle(mux, "ZOOM_OUT", c.handleZoomOut)
	wsrouter.Handle(mux, "SET_NEEDLE", c.handleSetNeedle)
	wsrouter.Handle(mux, "ADD_TRACK", c.handleAddTrack)

	return mux
}
