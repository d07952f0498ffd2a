// video_backend_headless.go - Window-less front end for batch and CI runs

package main

import "sync/atomic"

type HeadlessVideoOutput struct {
	config     DisplayConfig
	frameCount atomic.Uint64
}

func NewHeadlessVideoOutput() *HeadlessVideoOutput {
	return &HeadlessVideoOutput{config: DefaultDisplayConfig()}
}

func (h *HeadlessVideoOutput) SetDisplayConfig(config DisplayConfig) error {
	h.config = config
	return nil
}

func (h *HeadlessVideoOutput) GetDisplayConfig() DisplayConfig {
	return h.config
}

// Run ticks the host as fast as possible. Without a frame limit it only
// returns when the machine stops or faults.
func (h *HeadlessVideoOutput) Run(host *SimulatorHost) error {
	for !host.Done() {
		if !host.Simulator().Running() {
			return nil
		}
		if err := host.Tick(); err != nil {
			return err
		}
		h.frameCount.Store(host.FrameNumber())
	}
	return nil
}

func (h *HeadlessVideoOutput) GetFrameCount() uint64 {
	return h.frameCount.Load()
}
