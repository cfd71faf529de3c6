package fsm

import "fmt"

// Stage is the interview session stage.
type Stage string

type Event string

const (
	StageSetup   Stage = "setup"
	StageWelcome Stage = "welcome"
	StagePlaying Stage = "playing"
	StageWaiting Stage = "waiting"
	StageSummary Stage = "summary"
)

const (
	EventStart   Event = "start"
	EventBegin   Event = "begin"
	EventAbort   Event = "abort"
	EventAnswer  Event = "answer"
	EventAdvance Event = "advance"
	EventFinish  Event = "finish"
	EventReset   Event = "reset"
)

// Transition returns the stage reached from current on event.
func Transition(current Stage, event Event) (Stage, error) {
	if event == EventReset {
		switch current {
		case StageSetup, StageWelcome, StagePlaying, StageWaiting, StageSummary:
			return StageSetup, nil
		}
	}

	switch current {
	case StageSetup:
		switch event {
		case EventStart:
			return StageWelcome, nil
		default:
			return current, invalidTransition(current, event)
		}
	case StageWelcome:
		switch event {
		case EventBegin:
			return StagePlaying, nil
		case EventAbort:
			return StageSetup, nil
		default:
			return current, invalidTransition(current, event)
		}
	case StagePlaying:
		switch event {
		case EventAnswer:
			return StageWaiting, nil
		case EventAdvance:
			return StagePlaying, nil
		case EventFinish:
			return StageSummary, nil
		case EventAbort:
			return StageSetup, nil
		default:
			return current, invalidTransition(current, event)
		}
	case StageWaiting:
		switch event {
		case EventAdvance:
			return StagePlaying, nil
		case EventFinish:
			return StageSummary, nil
		default:
			return current, invalidTransition(current, event)
		}
	case StageSummary:
		return current, invalidTransition(current, event)
	default:
		return current, fmt.Errorf("unknown stage %q", current)
	}
}

// RecorderState is the lifecycle of one capture stream.
type RecorderState string

const (
	RecorderIdle       RecorderState = "idle"
	RecorderRequesting RecorderState = "requesting"
	RecorderActive     RecorderState = "active"
	RecorderStopping   RecorderState = "stopping"
)

const (
	EventRequest Event = "request"
	EventGrant   Event = "grant"
	EventDeny    Event = "deny"
	EventStop    Event = "stop"
	EventRelease Event = "release"
)

// RecorderTransition returns the recorder state reached from current on event.
func RecorderTransition(current RecorderState, event Event) (RecorderState, error) {
	switch current {
	case RecorderIdle:
		switch event {
		case EventRequest:
			return RecorderRequesting, nil
		default:
			return current, invalidTransition(current, event)
		}
	case RecorderRequesting:
		switch event {
		case EventGrant:
			return RecorderActive, nil
		case EventDeny:
			return RecorderIdle, nil
		default:
			return current, invalidTransition(current, event)
		}
	case RecorderActive:
		switch event {
		case EventStop:
			return RecorderStopping, nil
		default:
			return current, invalidTransition(current, event)
		}
	case RecorderStopping:
		switch event {
		case EventRelease:
			return RecorderIdle, nil
		default:
			return current, invalidTransition(current, event)
		}
	default:
		return current, fmt.Errorf("unknown recorder state %q", current)
	}
}

func invalidTransition[S ~string](state S, event Event) error {
	return fmt.Errorf("invalid transition: %s --(%s)--> ?", state, event)
}
