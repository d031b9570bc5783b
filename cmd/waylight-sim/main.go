// Copyright © 2025 Waylight contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
//
// File: cmd/waylight-sim/main.go
// Summary: Terminal harness for the Waylight engine. Drives the event loop
// against the in-process simulator so window management, input routing and
// drag-and-drop can be exercised without a compositor.
// Usage: waylight-sim [-title t] [-app-id id]. Press n for a new window,
// q to quit, Ctrl+Q to close the focused window.

package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/framegrace/waylight/config"
	"github.com/framegrace/waylight/engine"
	"github.com/framegrace/waylight/event"
	"github.com/framegrace/waylight/store"
	"github.com/framegrace/waylight/surface"
	"github.com/framegrace/waylight/task"
)

// demoUI closes its window on request and spawns follow-up work from keys.
type demoUI struct {
	id     surface.ID
	appID  string
	serial int
}

func (u *demoUI) Update(ev event.Event) (engine.Status, []task.Task) {
	switch ev.Type {
	case event.Closed:
		return engine.Ignored, []task.Task{task.Effect(task.CloseWindow{ID: u.id})}
	case event.KeyPressed:
		key, _ := ev.Payload.(event.Key)
		switch key.Rune {
		case 'q':
			return engine.Ignored, []task.Task{task.ExitTask(0)}
		case 'n':
			u.serial++
			t := task.OpenWindowTask(task.WindowSettings{
				AppID:     u.appID,
				Title:     fmt.Sprintf("window %d", u.serial),
				Resizable: true,
			}).Discard()
			return engine.Captured, []task.Task{t}
		}
		return engine.Captured, nil
	case event.Resized, event.WindowFocused, event.WindowUnfocused:
		return engine.Captured, nil
	}
	return engine.Ignored, nil
}

// simRenderer leaves painting to the simulator, which draws surfaces itself.
type simRenderer struct{}

func (simRenderer) Redraw(id surface.ID, g surface.Geometry) {}
func (simRenderer) Release(id surface.ID)                    {}
func (simRenderer) LoadFont(name string, data []byte)        {}

func openStore() *store.Store {
	dir, err := os.UserConfigDir()
	if err != nil {
		log.Printf("Main: no config dir, window geometry will not persist: %v", err)
		return nil
	}
	path := filepath.Join(dir, "waylight", "state.db")
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		log.Printf("Main: cannot create state dir: %v", err)
		return nil
	}
	st, err := store.Open(path)
	if err != nil {
		log.Printf("Main: cannot open state store: %v", err)
		return nil
	}
	return st
}

func main() {
	title := flag.String("title", "waylight demo", "title for the initial window")
	appID := flag.String("app-id", "org.waylight.demo", "application ID for geometry persistence")
	flag.Parse()

	cfg := config.System()

	st := openStore()
	if st != nil {
		defer st.Close()
	}

	conn, err := engine.NewTerminalSimConn()
	if err != nil {
		fmt.Fprintf(os.Stderr, "waylight-sim must run on a terminal: %v\n", err)
		os.Exit(1)
	}
	if err := conn.Start(); err != nil {
		fmt.Fprintf(os.Stderr, "failed to start simulator: %v\n", err)
		os.Exit(1)
	}
	defer conn.Close()

	eng := engine.New(engine.Options{
		Conn:     conn,
		Renderer: simRenderer{},
		NewUI: func(id surface.ID) engine.UserInterface {
			return &demoUI{id: id, appID: *appID}
		},
		Store:  st,
		Config: cfg,
	})

	eng.Submit(task.OpenWindowTask(task.WindowSettings{
		AppID:     *appID,
		Title:     *title,
		Resizable: true,
	}).Discard())

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := eng.Run(ctx); err != nil {
		conn.Close()
		fmt.Fprintf(os.Stderr, "engine error: %v\n", err)
		os.Exit(1)
	}
	conn.Close()
	os.Exit(eng.ExitCode())
}
