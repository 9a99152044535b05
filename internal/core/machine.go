package core

import (
	"fmt"
	"strings"

	"smtpc/internal/console"
	ncerr "smtpc/internal/errors"
	"smtpc/internal/metrics"
	"smtpc/internal/smtp"
	"smtpc/util"
)

// State is a position in the session lifecycle.
type State int

const (
	StateAwaitConnection State = iota
	StateModeSelect
	StateSendFlow
	StateTestFlow
	StateQuit
	StateDone
)

func (s State) String() string {
	switch s {
	case StateAwaitConnection:
		return "await-connection"
	case StateModeSelect:
		return "mode-select"
	case StateSendFlow:
		return "send-flow"
	case StateTestFlow:
		return "test-flow"
	case StateQuit:
		return "quit"
	case StateDone:
		return "done"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Event is the outcome of one state's work.
type Event int

const (
	EventGreetingOK Event = iota
	EventGreetingFailed
	EventChoseTest
	EventChoseSend
	EventChoseQuit
	EventFlowDone
	EventQuitSent
)

// Transition returns the state that follows s when e happens.  Pairs
// that cannot occur lead to StateDone.
func Transition(s State, e Event) State {
	switch s {
	case StateAwaitConnection:
		switch e {
		case EventGreetingOK:
			return StateModeSelect
		case EventGreetingFailed:
			return StateQuit
		}
	case StateModeSelect:
		switch e {
		case EventChoseTest:
			return StateTestFlow
		case EventChoseSend:
			return StateSendFlow
		case EventChoseQuit:
			return StateQuit
		}
	case StateSendFlow, StateTestFlow:
		if e == EventFlowDone {
			return StateModeSelect
		}
	case StateQuit:
		if e == EventQuitSent {
			return StateDone
		}
	}
	return StateDone
}

// Operator is the console surface the machine drives.
type Operator interface {
	smtp.Operator
	PromptModeChoice() (console.Mode, error)
}

const (
	promptNewEmail = "\nDo you want to send new email? [y/n]: "
	promptTestCmd  = "Type [EXIT] to quit TEST MODE\n" +
		"Type [LONG] to send 101 recipients to the server.\n" +
		"Please Enter SMTP Command: "

	msgStreamFailure = "\nServer does not responding. Program has been Terminated ..."
)

// Test mode keywords, matched case-insensitively after trimming.
const (
	keywordExit = "EXIT"
	keywordData = "DATA"
	keywordLong = "LONG"
)

// Machine runs one session from the server greeting to QUIT.
type Machine struct {
	client  *smtp.Client
	op      Operator
	logger  *util.Logger
	metrics *metrics.Collector
}

// NewMachine returns a Machine driving client with input from op.
// logger and m may be nil.
func NewMachine(client *smtp.Client, op Operator, logger *util.Logger, m *metrics.Collector) *Machine {
	if logger == nil {
		logger = util.Discard()
	}
	return &Machine{client: client, op: op, logger: logger, metrics: m}
}

// Run steps from StateAwaitConnection until StateDone.
//
// When the operator's input ends, the session quits politely and Run
// returns nil.  A transport failure is reported to the operator once,
// the connection is released, and the returned error wraps
// errors.ErrTerminated.
func (m *Machine) Run() error {
	state := StateAwaitConnection
	for state != StateDone {
		next, err := m.Step(state)
		if err != nil {
			return m.fail(state, err)
		}
		if next != state {
			m.logger.Debug("session: %s -> %s", state, next)
		}
		state = next
	}
	return nil
}

// Step performs the work of state s and returns the state to move to.
func (m *Machine) Step(s State) (State, error) {
	var (
		e   Event
		err error
	)
	switch s {
	case StateAwaitConnection:
		e, err = m.awaitConnection()
	case StateModeSelect:
		e, err = m.selectMode()
	case StateSendFlow:
		e, err = m.sendFlow()
	case StateTestFlow:
		e, err = m.testFlow()
	case StateQuit:
		err = m.client.SendQuit()
		e = EventQuitSent
	default:
		return StateDone, nil
	}
	if err != nil {
		return StateDone, err
	}
	return Transition(s, e), nil
}

func (m *Machine) awaitConnection() (Event, error) {
	ok, err := m.client.CheckServerConnection()
	if err != nil {
		return 0, err
	}
	if !ok {
		return EventGreetingFailed, nil
	}
	return EventGreetingOK, nil
}

func (m *Machine) selectMode() (Event, error) {
	mode, err := m.op.PromptModeChoice()
	if err != nil {
		return 0, err
	}
	m.logger.Verbose("mode selected: %s", mode)
	switch mode {
	case console.TestMode:
		return EventChoseTest, nil
	case console.SendMode:
		return EventChoseSend, nil
	default:
		return EventChoseQuit, nil
	}
}

func (m *Machine) sendFlow() (Event, error) {
	if err := m.client.SendReset(); err != nil {
		return 0, err
	}
	if err := m.client.SendHelo(); err != nil {
		return 0, err
	}
	for {
		if err := m.client.SendMailFrom(); err != nil {
			return 0, err
		}
		if err := m.client.SendRecipient(); err != nil {
			return 0, err
		}
		if err := m.data(); err != nil {
			return 0, err
		}
		again, err := m.op.PromptYesNo(promptNewEmail)
		if err != nil {
			return 0, err
		}
		if !again {
			return EventFlowDone, nil
		}
	}
}

func (m *Machine) testFlow() (Event, error) {
	for {
		line, err := m.op.PromptLine(promptTestCmd)
		if err != nil {
			return 0, err
		}
		cmd := strings.TrimSpace(line)
		switch strings.ToUpper(cmd) {
		case keywordExit:
			return EventFlowDone, nil
		case keywordData:
			err = m.data()
		case keywordLong:
			err = m.client.StressRecipients()
		default:
			err = m.client.Raw(cmd)
		}
		if err != nil {
			return 0, err
		}
	}
}

// data runs the DATA exchange.  Giving up on a server that never gets
// ready is reported and the flow carries on.
func (m *Machine) data() error {
	err := m.client.SendData()
	var rej *ncerr.Rejection
	if ncerr.As(err, &rej) {
		m.logger.Warn("%v", rej)
		m.op.Report(rej.Error())
		return nil
	}
	return err
}

// fail ends the session after err interrupted state s.
func (m *Machine) fail(s State, err error) error {
	if ncerr.Is(err, ncerr.ErrOperatorGone) {
		m.logger.Info("operator input closed during %s", s)
		if s == StateQuit {
			return nil
		}
		if qerr := m.client.SendQuit(); qerr != nil {
			m.logger.Error("quit after operator left: %v", qerr)
		}
		return nil
	}

	m.logger.Error("stream failure during %s: %v", s, err)
	m.metrics.RecordError(err.Error())
	// SendQuit has already closed the connection and told the operator.
	if s != StateQuit {
		m.op.Report(msgStreamFailure)
		m.client.Abandon()
	}
	return fmt.Errorf("%w: %v", ncerr.ErrTerminated, err)
}
