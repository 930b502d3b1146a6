// Copyright 2022 The Swarm Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package raffle

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/hashicorp/go-multierror"
	"github.com/libp2p/go-eventbus"
	"github.com/libp2p/go-libp2p-core/event"
)

// Entered is emitted when a player enters the raffle.
type Entered struct {
	Player  common.Address
	Payment *big.Int
}

// WinnerRequested is emitted when an upkeep closes the round.
type WinnerRequested struct {
	RequestID *big.Int
}

// WinnerPicked is emitted when the prize has been paid out.
type WinnerPicked struct {
	Winner    common.Address
	Prize     *big.Int
	Round     uint64
	RequestID *big.Int
}

// EventTypes lists a pointer to every event type emitted by the raffle, in
// the form accepted by event.Bus.Subscribe.
func EventTypes() []interface{} {
	return []interface{}{
		new(Entered),
		new(WinnerRequested),
		new(WinnerPicked),
	}
}

type emitters struct {
	bus             event.Bus
	entered         event.Emitter
	winnerRequested event.Emitter
	winnerPicked    event.Emitter
}

func newEmitters(bus event.Bus) (*emitters, error) {
	if bus == nil {
		bus = eventbus.NewBus()
	}
	e := &emitters{bus: bus}

	var err error
	if e.entered, err = bus.Emitter(new(Entered)); err != nil {
		return nil, err
	}
	if e.winnerRequested, err = bus.Emitter(new(WinnerRequested)); err != nil {
		_ = e.Close()
		return nil, err
	}
	if e.winnerPicked, err = bus.Emitter(new(WinnerPicked)); err != nil {
		_ = e.Close()
		return nil, err
	}
	return e, nil
}

func (e *emitters) emit(evt interface{}) {
	var em event.Emitter
	switch evt.(type) {
	case Entered:
		em = e.entered
	case WinnerRequested:
		em = e.winnerRequested
	case WinnerPicked:
		em = e.winnerPicked
	}
	if em == nil {
		return
	}
	_ = em.Emit(evt)
}

func (e *emitters) Close() (err error) {
	for _, em := range []event.Emitter{e.entered, e.winnerRequested, e.winnerPicked} {
		if em == nil {
			continue
		}
		if cerr := em.Close(); cerr != nil {
			err = multierror.Append(err, cerr)
		}
	}
	return err
}

// Subscribe returns a subscription to the raffle events. With no arguments
// all event types are delivered.
func (s *Service) Subscribe(eventTypes ...interface{}) (event.Subscription, error) {
	if len(eventTypes) == 0 {
		eventTypes = EventTypes()
	}
	return s.events.bus.Subscribe(eventTypes, eventbus.BufSize(64))
}
