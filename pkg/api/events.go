// Copyright 2022 The Swarm Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethersphere/raffle/pkg/bigint"
	"github.com/ethersphere/raffle/pkg/jsonhttp"
	"github.com/ethersphere/raffle/pkg/raffle"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/libp2p/go-libp2p-core/event"
)

var (
	writeDeadline = 4 * time.Second // write deadline. should be smaller than the shutdown timeout on api close

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10
)

// Event names follow the raffle contract events.
const (
	eventRaffleEnter           = "RaffleEnter"
	eventRequestedRaffleWinner = "RequestedRaffleWinner"
	eventWinnerPicked          = "WinnerPicked"
)

// EventMessage is a raffle event as written to the event stream.
type EventMessage struct {
	Event     string          `json:"event"`
	Player    *common.Address `json:"player,omitempty"`
	Payment   *bigint.BigInt  `json:"payment,omitempty"`
	RequestID *bigint.BigInt  `json:"requestId,omitempty"`
	Winner    *common.Address `json:"winner,omitempty"`
	Prize     *bigint.BigInt  `json:"prize,omitempty"`
	Round     *uint64         `json:"round,omitempty"`
}

func newEventMessage(evt interface{}) (EventMessage, bool) {
	switch e := evt.(type) {
	case raffle.Entered:
		player := e.Player
		return EventMessage{
			Event:   eventRaffleEnter,
			Player:  &player,
			Payment: bigint.Wrap(e.Payment),
		}, true
	case raffle.WinnerRequested:
		return EventMessage{
			Event:     eventRequestedRaffleWinner,
			RequestID: bigint.Wrap(e.RequestID),
		}, true
	case raffle.WinnerPicked:
		winner, round := e.Winner, e.Round
		return EventMessage{
			Event:     eventWinnerPicked,
			Winner:    &winner,
			Prize:     bigint.Wrap(e.Prize),
			RequestID: bigint.Wrap(e.RequestID),
			Round:     &round,
		}, true
	}
	return EventMessage{}, false
}

func (s *server) eventsWsHandler(w http.ResponseWriter, r *http.Request) {
	upgrader := websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     s.checkOrigin,
	}

	sub, err := s.Raffle.Subscribe()
	if err != nil {
		s.Logger.Debugf("events ws: subscribe: %v", err)
		s.Logger.Error("events ws: subscribe")
		jsonhttp.InternalServerError(w, nil)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		sub.Close()
		s.Logger.Debugf("events ws: upgrade: %v", err)
		s.Logger.Error("events ws: cannot upgrade")
		return
	}

	s.wsWg.Add(1)
	go s.pumpEvents(conn, sub, uuid.NewString())
}

func (s *server) pumpEvents(conn *websocket.Conn, sub event.Subscription, id string) {
	defer s.wsWg.Done()

	s.metrics.WebsocketClients.Inc()
	s.Logger.Debugf("events ws: client %s connected", id)

	var (
		gone   = make(chan struct{})
		ticker = time.NewTicker(pingPeriod)
		err    error
	)
	defer func() {
		ticker.Stop()
		sub.Close()
		conn.Close()
		s.metrics.WebsocketClients.Dec()
		s.Logger.Debugf("events ws: client %s disconnected", id)
	}()

	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	conn.SetCloseHandler(func(code int, text string) error {
		s.Logger.Debugf("events ws: client %s gone. code %d message %s", id, code, text)
		return nil
	})

	// control frames are only handled while reading
	go func() {
		defer close(gone)
		for {
			if _, _, err := conn.NextReader(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case evt, ok := <-sub.Out():
			if !ok {
				return
			}
			msg, ok := newEventMessage(evt)
			if !ok {
				continue
			}
			b, err := json.Marshal(msg)
			if err != nil {
				s.Logger.Debugf("events ws: marshal event: %v", err)
				continue
			}

			err = conn.SetWriteDeadline(time.Now().Add(writeDeadline))
			if err != nil {
				s.Logger.Debugf("events ws: set write deadline: %v", err)
				return
			}
			err = conn.WriteMessage(websocket.TextMessage, b)
			if err != nil {
				s.Logger.Debugf("events ws: write to websocket: %v", err)
				return
			}
			s.metrics.EventsSent.Inc()

		case <-s.quit:
			// shutdown
			err = conn.SetWriteDeadline(time.Now().Add(writeDeadline))
			if err != nil {
				s.Logger.Debugf("events ws: set write deadline: %v", err)
				return
			}
			err = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseGoingAway, "shutting down"))
			if err != nil {
				s.Logger.Debugf("events ws: write close message: %v", err)
			}
			return
		case <-gone:
			// client gone
			return
		case <-ticker.C:
			err = conn.SetWriteDeadline(time.Now().Add(writeDeadline))
			if err != nil {
				s.Logger.Debugf("events ws: set write deadline: %v", err)
				return
			}
			if err = conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
