package game

import "time"

const (
	SimHz          = 60.0 // server tick rate, matches a typical display refresh
	Dt             = 1.0 / SimHz
	UpdateRateHz   = 20.0 // per-peer render frame pushes
	SpawnLift      = 5.0  // spawn height above a pointer hit
	GroundY        = -2.0 // height of the reflective launch surface
	RoomMaxPeers   = 16
	MaxLive        = 64 // live instances per registry before the oldest is dropped
	PeerSendBuffer = 32
)

// Ticker periods for the rates above.
const (
	SimTick       = time.Second / SimHz
	FrameInterval = time.Second / UpdateRateHz
)
