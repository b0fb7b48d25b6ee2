//go:build !unix

package system

import (
	"errors"
	"os"
)

var errNoSignals = errors.New("process suspension is not supported on this platform")

func suspend(*os.Process) error { return errNoSignals }

func resume(*os.Process) error { return errNoSignals }
