// Copyright (c) 2025 Northbound System
// Author: Nicholas Skitch
package server

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/docxpress/internal/logger"
)

const (
	wsWriteWait  = 10 * time.Second
	wsPongWait   = 60 * time.Second
	wsPingPeriod = 30 * time.Second
)

var upgrader = websocket.Upgrader{
	// log viewers are served from anywhere
	CheckOrigin: func(r *http.Request) bool { return true },
}

// HandleLogSocket streams log lines over a websocket, one text frame per line.
func HandleLogSocket(w http.ResponseWriter, r *http.Request) {
	log := logger.GetDefault()
	clientChan, unsubscribeChan := log.Subscribe()
	if clientChan == nil {
		writeError(w, r, errLogStreamClosed)
		return
	}
	defer log.Unsubscribe(unsubscribeChan)

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Warnf("Failed to upgrade log socket: %v", err)
		return
	}
	defer conn.Close()

	// Read side: only control frames are expected; a read error means the
	// client went away.
	closed := make(chan struct{})
	conn.SetReadDeadline(time.Now().Add(wsPongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(wsPongWait))
	})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
					logger.Debugf("Log socket read error: %v", err)
				}
				return
			}
		}
	}()

	ping := time.NewTicker(wsPingPeriod)
	defer ping.Stop()

	for {
		select {
		case line, ok := <-clientChan:
			conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if !ok {
				conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseGoingAway, "log stream closed"))
				return
			}
			if err := conn.WriteMessage(websocket.TextMessage, []byte(line)); err != nil {
				return
			}
		case <-ping.C:
			conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-closed:
			return
		case <-r.Context().Done():
			return
		}
	}
}
