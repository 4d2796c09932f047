// Copyright (c) 2026 - for information on the respective copyright owner
// see the NOTICE file and/or the repository https://github.com/chimera-project/chimera.
//
// SPDX-License-Identifier: Apache-2.0
package fsm

import (
	"errors"

	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"
	"go.uber.org/zap"
)

var _ = Describe("FSM", func() {

	var logger = zap.NewNop().Sugar()

	It("generates a transition", func() {
		transition := WhenIn("Init").GotEvent("Register").GoTo("Registering")

		Expect(transition.Src).To(Equal("Init"))
		Expect(transition.Event).To(Equal("Register"))
		Expect(transition.Dst).To(Equal("Registering"))
	})

	It("generates a self transition with Stay", func() {
		transition := WhenIn("Playing").GotEvent("Tick").Stay()

		Expect(transition.Src).To(Equal("Playing"))
		Expect(transition.Dst).To(Equal("Playing"))
	})

	Context("when firing events", func() {
		It("moves to the destination state", func() {
			callbacks, transitions := InitCallbacksAndTransitions(nil, []*Transition{
				WhenIn("Init").GotEvent("Register").GoTo("Registering"),
			})
			machine, err := NewFSM("Init", transitions, callbacks, logger)
			Expect(err).NotTo(HaveOccurred())

			Expect(machine.Fire(&Event{Name: "Register"})).To(Succeed())
			Expect(machine.Current()).To(Equal("Registering"))
		})

		It("fails on an event with no transition from the current state", func() {
			callbacks, transitions := InitCallbacksAndTransitions(nil, []*Transition{
				WhenIn("Init").GotEvent("Register").GoTo("Registering"),
			})
			machine, _ := NewFSM("Init", transitions, callbacks, logger)

			err := machine.Fire(&Event{Name: "Unregister"})

			Expect(err).To(HaveOccurred())
			Expect(machine.Current()).To(Equal("Init"))
		})

		It("prefers a specific transition over the any-state one", func() {
			callbacks, transitions := InitCallbacksAndTransitions(nil, []*Transition{
				WhenInAnyState().GotEvent("Stop").GoTo("Stopped"),
				WhenIn("Init").GotEvent("Stop").GoTo("Cancelled"),
			})
			machine, _ := NewFSM("Init", transitions, callbacks, logger)

			Expect(machine.Fire(&Event{Name: "Stop"})).To(Succeed())
			Expect(machine.Current()).To(Equal("Cancelled"))
		})

		It("falls back to the any-state transition", func() {
			callbacks, transitions := InitCallbacksAndTransitions(nil, []*Transition{
				WhenInAnyState().GotEvent("Stop").GoTo("Stopped"),
			})
			machine, _ := NewFSM("Running", transitions, callbacks, logger)

			Expect(machine.Fire(&Event{Name: "Stop"})).To(Succeed())
			Expect(machine.Current()).To(Equal("Stopped"))
		})
	})

	Context("when running callbacks", func() {
		It("runs before- and after-callbacks around the state change", func() {
			var order []string
			cb := []*Callback{
				BeforeEnter("Registering").Do(func(*Event) error {
					order = append(order, "before")
					return nil
				}),
				AfterEnter("Registering").Do(func(*Event) error {
					order = append(order, "after")
					return nil
				}),
			}
			callbacks, transitions := InitCallbacksAndTransitions(cb, []*Transition{
				WhenIn("Init").GotEvent("Register").GoTo("Registering"),
			})
			machine, _ := NewFSM("Init", transitions, callbacks, logger)

			Expect(machine.Fire(&Event{Name: "Register"})).To(Succeed())
			Expect(order).To(Equal([]string{"before", "after"}))
		})

		It("does not change state when a before-callback fails", func() {
			cb := []*Callback{
				BeforeEnter("Registering").Do(func(*Event) error {
					return errors.New("some error")
				}),
			}
			callbacks, transitions := InitCallbacksAndTransitions(cb, []*Transition{
				WhenIn("Init").GotEvent("Register").GoTo("Registering"),
			})
			machine, _ := NewFSM("Init", transitions, callbacks, logger)

			Expect(machine.Fire(&Event{Name: "Register"})).NotTo(Succeed())
			Expect(machine.Current()).To(Equal("Init"))
		})

		It("propagates an after-callback failure", func() {
			cb := []*Callback{
				AfterEnter("Registering").Do(func(*Event) error {
					return errors.New("some error")
				}),
			}
			callbacks, transitions := InitCallbacksAndTransitions(cb, []*Transition{
				WhenIn("Init").GotEvent("Register").GoTo("Registering"),
			})
			machine, _ := NewFSM("Init", transitions, callbacks, logger)

			Expect(machine.Fire(&Event{Name: "Register"})).NotTo(Succeed())
			Expect(machine.Current()).To(Equal("Registering"))
		})

		It("lets an after-callback read the machine state", func() {
			var machine *FSM
			var observed string
			cb := []*Callback{
				AfterEnter("Registering").Do(func(*Event) error {
					observed = machine.Current()
					return nil
				}),
			}
			callbacks, transitions := InitCallbacksAndTransitions(cb, []*Transition{
				WhenIn("Init").GotEvent("Register").GoTo("Registering"),
			})
			machine, _ = NewFSM("Init", transitions, callbacks, logger)

			Expect(machine.Fire(&Event{Name: "Register"})).To(Succeed())
			Expect(observed).To(Equal("Registering"))
		})

		It("rejects unsupported callback types", func() {
			callbacks := map[string][]*Callback{
				"Init": {{Type: "Sometime", Src: "Init"}},
			}

			_, err := NewFSM("Init", nil, callbacks, logger)

			Expect(err).To(HaveOccurred())
		})
	})

	Context("when inspecting the history", func() {
		It("records events and states including the initial one", func() {
			callbacks, transitions := InitCallbacksAndTransitions(nil, []*Transition{
				WhenIn("Init").GotEvent("Register").GoTo("Registering"),
				WhenIn("Registering").GotEvent("Activate").GoTo("Playing"),
			})
			machine, _ := NewFSM("Init", transitions, callbacks, logger)

			Expect(machine.Fire(&Event{Name: "Register"})).To(Succeed())
			Expect(machine.Fire(&Event{Name: "Activate"})).To(Succeed())

			Expect(machine.History().GetStates()).To(Equal([]string{"Init", "Registering", "Playing"}))
			events := machine.History().GetEvents()
			Expect(events).To(HaveLen(2))
			Expect(events[0].Name).To(Equal("Register"))
			Expect(events[1].Name).To(Equal("Activate"))
		})
	})
})
