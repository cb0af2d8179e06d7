/*
DESCRIPTION
  playout is the kiosk/signage playback engine daemon: it wires a media
  decoder, a display driver and a script runner together and runs until
  terminated.

AUTHORS
  Saxon A. Nelson-Milton <saxon@ausocean.org>
  Alan Noble <alan@ausocean.org>
  Dan Kortschak <dan@ausocean.org>

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

// Package playout is a kiosk/signage playback engine daemon.
package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/ausocean/playout/clock"
	"github.com/ausocean/playout/decode"
	"github.com/ausocean/playout/decode/mjpeg"
	"github.com/ausocean/playout/display"
	"github.com/ausocean/playout/display/compositor"
	"github.com/ausocean/playout/runner"
	"github.com/ausocean/playout/script"
	"github.com/ausocean/utils/logging"
)

// Current software version.
const version = "v0.1.0"

// Logging configuration.
const (
	logPath      = "/var/log/playout/playout.log"
	logMaxSize   = 100 // MB
	logMaxBackup = 5
	logMaxAge    = 28 // days
	logVerbosity = logging.Info
	logSuppress  = true
)

const pkg = "playout: "

func main() {
	showVersion := flag.Bool("version", false, "show version")
	mediaDir := flag.String("media-dir", ".", "directory containing mjpeg media files referenced by the script")
	frameRate := flag.Float64("frame-rate", 30, "frame rate (fps) of every mjpeg file in media-dir")
	mainLoopHz := flag.Float64("main-loop-hz", 0, "script tick rate; 0 uses the runner default")
	horizon := flag.Float64("horizon", 0, "lookahead horizon in seconds; 0 uses the runner default")
	flag.Parse()
	if *showVersion {
		fmt.Println(version)
		os.Exit(0)
	}

	fileLog := &lumberjack.Logger{
		Filename:   logPath,
		MaxSize:    logMaxSize,
		MaxBackups: logMaxBackup,
		MaxAge:     logMaxAge,
	}
	log := logging.New(logVerbosity, io.MultiWriter(fileLog, os.Stderr), logSuppress)
	log.Info(pkg+"starting", "version", version)

	screens := defaultScreenLayout()
	disp := compositor.New(screens)
	defer disp.Close()

	newDecoder := func(file string) decode.Decoder {
		return mjpeg.New(*mediaDir+string(os.PathSeparator)+file, *frameRate)
	}

	cfg := runner.Config{
		MainLoopHz: *mainLoopHz,
		Horizon:    *horizon,
		Logger:     log,
	}
	r, err := runner.New(cfg, clock.NewMonotonic(), disp, newDecoder)
	if err != nil {
		log.Fatal(pkg+"could not create runner", "error", err.Error())
	}

	// Loading and hot-reloading a script document from an external control
	// surface (file watch, HTTP push, cloud config) is an out-of-scope
	// collaborator; this entrypoint starts with an empty script and relies on
	// a future SetScript call (e.g. from an admin API) to populate it.
	r.SetScript(&script.Script{}, nowEpochSeconds())
	r.Start()
	defer r.Stop()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	log.Info(pkg + "shutting down")
}

// defaultScreenLayout describes the compositor's software screens when no
// real KMS/DRM enumeration is available; a production build would replace
// compositor.New's argument with screens discovered from the kernel.
func defaultScreenLayout() []display.Screen {
	return []display.Screen{{
		ID:        "hdmi0",
		Connected: true,
		ActiveMode: &display.Mode{Width: 1920, Height: 1080, RefreshHz: 30},
	}}
}

// nowEpochSeconds returns the current time as Unix epoch seconds, used only
// to resolve a script's relative times against process start.
func nowEpochSeconds() float64 {
	return float64(time.Now().UnixNano()) / 1e9
}
