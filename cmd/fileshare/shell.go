// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/bureau-foundation/fileshare/lib/session"
	"github.com/bureau-foundation/fileshare/lib/state"
)

const (
	stateGrowSet   = "gset"
	stateAutomerge = "automerge"
)

var errUnchanged = errors.New("unchanged")

func newState(kind string) (state.State, error) {
	switch kind {
	case stateGrowSet:
		return state.NewGrowSet(), nil
	case stateAutomerge:
		return state.NewDocument(), nil
	default:
		return nil, fmt.Errorf("unknown --state %q (want %s or %s)", kind, stateGrowSet, stateAutomerge)
	}
}

// shell reads commands from a line source and applies them to a
// session.
type shell struct {
	session *session.Session
	kind    string
	out     io.Writer
}

// run executes commands until EOF, quit, or ctx is cancelled.
func (s *shell) run(ctx context.Context, scanner *bufio.Scanner, interactive bool) error {
	lines := make(chan string)
	scanDone := make(chan error, 1)
	stopReading := make(chan struct{})
	defer close(stopReading)

	go func() {
		defer close(lines)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-stopReading:
				return
			}
		}
		scanDone <- scanner.Err()
	}()

	for {
		if interactive {
			fmt.Fprint(s.out, "> ")
		}
		select {
		case <-ctx.Done():
			return nil
		case line, ok := <-lines:
			if !ok {
				return <-scanDone
			}
			quit, err := s.execute(ctx, line)
			if err != nil {
				fmt.Fprintf(s.out, "error: %v\n", err)
			}
			if quit {
				return nil
			}
		}
	}
}

// execute runs one command line. quit reports a request to exit.
func (s *shell) execute(ctx context.Context, line string) (quit bool, err error) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return false, nil
	}

	switch command, args := fields[0], fields[1:]; command {
	case "add":
		return false, s.add(ctx, args)
	case "set":
		return false, s.set(ctx, args)
	case "show":
		return false, s.show(ctx)
	case "offline":
		return false, s.session.SetConnected(ctx, false)
	case "online":
		return false, s.session.SetConnected(ctx, true)
	case "status":
		s.status()
		return false, nil
	case "help":
		fmt.Fprintln(s.out, "commands: add <item> | set <key> <value> | show | offline | online | status | quit")
		return false, nil
	case "quit", "exit":
		return true, nil
	default:
		return false, fmt.Errorf("unknown command %q (try help)", command)
	}
}

func (s *shell) add(ctx context.Context, args []string) error {
	if s.kind != stateGrowSet {
		return fmt.Errorf("add needs --state %s", stateGrowSet)
	}
	if len(args) == 0 {
		return errors.New("usage: add <item>")
	}
	item := strings.Join(args, " ")
	err := s.session.Mutate(ctx, func(replicated state.State) error {
		if !replicated.(*state.GrowSet).Add(item) {
			return errUnchanged
		}
		return nil
	})
	if errors.Is(err, errUnchanged) {
		fmt.Fprintf(s.out, "%q is already present\n", item)
		return nil
	}
	return err
}

func (s *shell) set(ctx context.Context, args []string) error {
	if s.kind != stateAutomerge {
		return fmt.Errorf("set needs --state %s", stateAutomerge)
	}
	if len(args) < 2 {
		return errors.New("usage: set <key> <value>")
	}
	key, value := args[0], strings.Join(args[1:], " ")
	return s.session.Mutate(ctx, func(replicated state.State) error {
		return replicated.(*state.Document).Doc().Path(key).Set(value)
	})
}

func (s *shell) show(ctx context.Context) error {
	return s.session.View(ctx, func(replicated state.State) error {
		switch typed := replicated.(type) {
		case *state.GrowSet:
			if typed.Len() == 0 {
				fmt.Fprintln(s.out, "(empty)")
			}
			for _, item := range typed.Items() {
				fmt.Fprintf(s.out, "- %s\n", item)
			}
		case *state.Document:
			fmt.Fprintln(s.out, typed.Doc().RootMap().GoString())
		}
		return nil
	})
}

func (s *shell) status() {
	status := s.session.Status()
	lastError := "none"
	if status.LastError != nil {
		lastError = status.LastError.Error()
	}
	fmt.Fprintf(s.out, "state=%s saves=%d local_pending=%t connected=%t queued=%d merges=%d last_error=%s\n",
		status.State, status.Saves, status.LocalPending, status.Connected, status.Queued, status.Merges, lastError)
}
