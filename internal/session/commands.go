package session

import (
	"context"
	"fmt"
)

// Command is a learner action issued by the presentation layer.
type Command int

const (
	CmdStartCamera Command = iota
	CmdStopCamera
	CmdCheckNow
	CmdSkipTarget
	CmdEndSession
)

func (c Command) String() string {
	switch c {
	case CmdStartCamera:
		return "start-camera"
	case CmdStopCamera:
		return "stop-camera"
	case CmdCheckNow:
		return "check-now"
	case CmdSkipTarget:
		return "skip-target"
	case CmdEndSession:
		return "end-session"
	default:
		return fmt.Sprintf("command(%d)", int(c))
	}
}

// Dispatch runs a command. A refused CheckNow (request already in flight)
// is not an error.
func (c *Coordinator) Dispatch(ctx context.Context, cmd Command) error {
	switch cmd {
	case CmdStartCamera:
		return c.StartCamera(ctx)
	case CmdStopCamera:
		return c.StopCamera()
	case CmdCheckNow:
		_, err := c.CheckNow()
		return err
	case CmdSkipTarget:
		return c.SkipTarget(ctx)
	case CmdEndSession:
		return c.EndSession(ctx)
	default:
		return fmt.Errorf("unknown command %s", cmd)
	}
}
