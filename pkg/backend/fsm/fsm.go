// Copyright (c) 2026 - for information on the respective copyright owner
// see the NOTICE file and/or the repository https://github.com/chimera-project/chimera.
//
// SPDX-License-Identifier: Apache-2.0

// Package fsm implements a small synchronous finite state machine. Events
// are fired inline from the caller's goroutine; an event with no registered
// transition from the current state is an error, which makes illegal state
// regressions impossible by construction.
package fsm

import (
	"fmt"
	"sync"

	"go.uber.org/zap"
)

// NewFSM returns a new finite state machine starting in initState.
func NewFSM(initState string, trn map[TransitionID]*Transition, cb map[string][]*Callback, logger *zap.SugaredLogger) (*FSM, error) {
	beforeCallbacks := make(map[string][]*Callback)
	afterCallbacks := make(map[string][]*Callback)
	for state, callbacks := range cb {
		for _, callback := range callbacks {
			switch callback.Type {
			case CallbackBeforeEnter:
				beforeCallbacks[state] = append(beforeCallbacks[state], callback)
			case CallbackAfterEnter:
				afterCallbacks[state] = append(afterCallbacks[state], callback)
			default:
				return nil, fmt.Errorf("unsupported callback type %q", callback.Type)
			}
		}
	}
	history := NewHistory()
	history.AddState(initState)
	return &FSM{
		afterCallbacks:  afterCallbacks,
		beforeCallbacks: beforeCallbacks,
		transitions:     trn,
		current:         initState,
		history:         history,
		logger:          logger,
	}, nil
}

// FSM is a finite state machine. Before and after callbacks can be defined
// per destination state; if several are provided, all of them run in order.
type FSM struct {
	afterCallbacks  map[string][]*Callback
	beforeCallbacks map[string][]*Callback
	transitions     map[TransitionID]*Transition
	current         string
	history         *History
	logger          *zap.SugaredLogger
	mux             sync.Mutex
}

// Current returns the current state of the FSM.
func (f *FSM) Current() string {
	f.mux.Lock()
	defer f.mux.Unlock()
	return f.current
}

// History returns the state transition history.
func (f *FSM) History() *History {
	return f.history
}

// Fire applies an event to the machine synchronously. The transition and
// its callbacks complete before Fire returns. A specific state transition
// supersedes the any-state ("*") one. Events must be fired from a single
// goroutine; callbacks run outside the state lock and may read the machine.
func (f *FSM) Fire(event *Event) error {
	f.mux.Lock()
	f.history.AddEvent(event)
	tr, ok := f.transitions[TransitionID{Source: f.current, Event: event.Name}]
	if !ok {
		tr, ok = f.transitions[TransitionID{Source: "*", Event: event.Name}]
	}
	if !ok {
		current := f.current
		f.mux.Unlock()
		return fmt.Errorf("no transition for event %q in state %q", event.Name, current)
	}
	f.mux.Unlock()
	return f.doTransition(tr, event)
}

// doTransition executes the transition to the next state, running before-
// and after-callbacks around the state change.
func (f *FSM) doTransition(tr *Transition, event *Event) error {
	f.logger.Debugf("FSM transition %s --%s--> %s", tr.Src, event.Name, tr.Dst)
	if err := f.runCallbacks(f.beforeCallbacks, tr.Dst, event); err != nil {
		return err
	}
	f.mux.Lock()
	f.current = tr.Dst
	f.mux.Unlock()
	f.history.AddState(tr.Dst)
	return f.runCallbacks(f.afterCallbacks, tr.Dst, event)
}

func (f *FSM) runCallbacks(callbacks map[string][]*Callback, state string, event *Event) error {
	for _, cb := range callbacks[state] {
		if err := cb.Action(event); err != nil {
			return err
		}
	}
	return nil
}

// NewHistory returns an empty fsm history.
func NewHistory() *History {
	return &History{
		received: []*Event{},
		states:   []string{},
	}
}

// History contains all received events and passed states including the
// current one.
type History struct {
	received  []*Event
	states    []string
	eventLock sync.Mutex
	stateLock sync.Mutex
}

// AddEvent writes a new event to the history.
func (h *History) AddEvent(ev *Event) {
	h.eventLock.Lock()
	defer h.eventLock.Unlock()
	h.received = append(h.received, ev)
}

// GetEvents returns a list of all events.
func (h *History) GetEvents() []*Event {
	h.eventLock.Lock()
	defer h.eventLock.Unlock()
	return h.received
}

// AddState saves the state to the history.
func (h *History) AddState(st string) {
	h.stateLock.Lock()
	defer h.stateLock.Unlock()
	h.states = append(h.states, st)
}

// GetStates returns passed states of the FSM including the current one.
func (h *History) GetStates() []string {
	h.stateLock.Lock()
	defer h.stateLock.Unlock()
	return h.states
}

// Event is an event consumed by the FSM.
type Event struct {
	Name string
}

// TransitionID is a tuple containing the external event and source state.
type TransitionID struct {
	Event, Source string
}

// Transition defines a transition between FSM states.
type Transition struct {
	ID              TransitionID
	Event, Src, Dst string
}

// WhenIn specifies the source state of the transition.
func WhenIn(state string) *Transition {
	return &Transition{Src: state}
}

// WhenInAnyState targets transitions from all states.
func WhenInAnyState() *Transition {
	return &Transition{Src: "*"}
}

// GotEvent specifies the triggering event for the transition.
func (i *Transition) GotEvent(event string) *Transition {
	i.Event = event
	i.ID = TransitionID{
		Event:  event,
		Source: i.Src,
	}
	return i
}

// GoTo specifies the destination state.
func (i *Transition) GoTo(dst string) *Transition {
	i.Dst = dst
	return i
}

// Stay forces the transition to stay in the source state.
func (i *Transition) Stay() *Transition {
	i.Dst = i.Src
	return i
}

// Action is a user defined function executed in the callback.
type Action func(*Event) error

const (
	// CallbackAfterEnter is triggered after a new state was entered.
	CallbackAfterEnter = "AfterEnter"
	// CallbackBeforeEnter is triggered before a new state is entered.
	CallbackBeforeEnter = "BeforeEnter"
)

// Callback is a function which is executed as a response to an event during
// a state transition.
type Callback struct {
	Type   string
	Src    string
	Action Action
}

// AfterEnter defines the state this callback is bound to.
func AfterEnter(state string) *Callback {
	return &Callback{
		Type: CallbackAfterEnter,
		Src:  state,
	}
}

// BeforeEnter defines a callback which is executed before entering the state.
func BeforeEnter(state string) *Callback {
	return &Callback{
		Type: CallbackBeforeEnter,
		Src:  state,
	}
}

// Do defines the function to execute in the callback.
func (c *Callback) Do(a Action) *Callback {
	c.Action = a
	return c
}

// InitCallbacksAndTransitions converts slices to the maps NewFSM consumes.
func InitCallbacksAndTransitions(cbs []*Callback, trs []*Transition) (map[string][]*Callback, map[TransitionID]*Transition) {
	callbacks := map[string][]*Callback{}
	transitions := map[TransitionID]*Transition{}
	for _, c := range cbs {
		callbacks[c.Src] = append(callbacks[c.Src], c)
	}
	for _, t := range trs {
		transitions[t.ID] = t
	}
	return callbacks, transitions
}
