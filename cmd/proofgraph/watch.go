// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"

	"github.com/gorilla/websocket"
	"github.com/spf13/cobra"

	"github.com/AleutianAI/proofgraph/pkg/ux"
	"github.com/AleutianAI/proofgraph/services/orchestrator/datatypes"
	"github.com/AleutianAI/proofgraph/services/prover/explorer"
)

func newWatchCmd(a *app) *cobra.Command {
	var (
		url   string
		plain bool
	)
	cmd := &cobra.Command{
		Use:   "watch STATEMENT",
		Short: "Stream an exploration from a running server",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			statement, err := statementArg(args)
			if err != nil {
				return err
			}
			if url == "" {
				url = fmt.Sprintf("ws://localhost:%d/ws/analyze", a.cfg.Server.Port)
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()

			conn, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
			if err != nil {
				return fmt.Errorf("connect %s: %w", url, err)
			}
			defer conn.Close()
			go func() {
				<-ctx.Done()
				_ = conn.Close()
			}()

			req := datatypes.StatementRequest{Statement: statement}
			if err := conn.WriteJSON(req); err != nil {
				return fmt.Errorf("send statement: %w", err)
			}

			tree := newTreeRenderer(ux.Printer{W: cmd.OutOrStdout(), Plain: plainOutput(plain)})
			for {
				_, data, err := conn.ReadMessage()
				if err != nil {
					if ctx.Err() != nil {
						return ctx.Err()
					}
					return fmt.Errorf("read event: %w", err)
				}
				ev, err := decodeEvent(data)
				if err != nil {
					a.slog().Warn("skipping undecodable event", "error", err)
					continue
				}
				tree.Handle(ev)
				switch ev.Type {
				case explorer.EventComplete:
					tree.PrintTree()
					return conn.WriteMessage(websocket.CloseMessage,
						websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				case explorer.EventError:
					return fmt.Errorf("server: %s", ev.Data.(explorer.MessageData).Message)
				}
			}
		},
	}
	cmd.Flags().StringVar(&url, "url", "", "websocket URL (default ws://localhost:<port>/ws/analyze)")
	cmd.Flags().BoolVar(&plain, "plain", false, "disable colors and boxes")
	return cmd
}

// statementArg joins the positional arguments into one statement. The
// server ignores blank statements, so a client waiting on one would hang.
func statementArg(args []string) (string, error) {
	statement := strings.TrimSpace(strings.Join(args, " "))
	if statement == "" {
		return "", errors.New("statement must not be blank")
	}
	return statement, nil
}

// decodeEvent parses one wire event into its typed form.
func decodeEvent(data []byte) (explorer.Event, error) {
	var raw struct {
		Type explorer.EventType `json:"type"`
		Data json.RawMessage    `json:"data"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return explorer.Event{}, err
	}
	ev := explorer.Event{Type: raw.Type}
	var err error
	switch raw.Type {
	case explorer.EventNode:
		var d explorer.NodeData
		err = json.Unmarshal(raw.Data, &d)
		ev.Data = d
	case explorer.EventNodeUpdate:
		var d explorer.NodeUpdateData
		err = json.Unmarshal(raw.Data, &d)
		ev.Data = d
	case explorer.EventComplete, explorer.EventError:
		var d explorer.MessageData
		err = json.Unmarshal(raw.Data, &d)
		ev.Data = d
	default:
		return explorer.Event{}, fmt.Errorf("unknown event type %q", raw.Type)
	}
	return ev, err
}
