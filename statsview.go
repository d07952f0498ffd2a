//go:build statsview

// statsview.go - Runtime statistics server, built with -tags statsview
//
// Graphs are served at localhost:12600/debug/statsview and the standard
// pprof endpoints at localhost:12600/debug/pprof/.

package main

import (
	"fmt"
	"io"

	"github.com/go-echarts/statsview"
	"github.com/go-echarts/statsview/viewer"
)

const statsviewAddress = "localhost:12600"

func launchStatsview(output io.Writer) {
	go func() {
		viewer.SetConfiguration(viewer.WithAddr(statsviewAddress))
		mgr := statsview.New()
		mgr.Start()
	}()
	fmt.Fprintf(output, "stats server available at %s/debug/statsview\n", statsviewAddress)
}

func statsviewAvailable() bool { return true }
