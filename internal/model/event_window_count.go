package model

import "time"

// EventWindowCount stores event activity for one contract event in a window.
type EventWindowCount struct {
	Contract       ContractName
	EventName      string
	WindowSizeSecs int64
	WindowStart    time.Time
	WindowEnd      time.Time
	EventCount     uint64
	HeroCount      uint64
	StepCount      uint64
	FirstBlock     uint64
	LastBlock      uint64
}
