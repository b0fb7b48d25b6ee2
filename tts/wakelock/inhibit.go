package wakelock

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"runtime"
	"sync"

	"github.com/dgnsrekt/readaloud/tts"
)

// Inhibitor is a wake lock backed by a helper process that blocks sleep
// for as long as it runs: systemd-inhibit on Linux, caffeinate on macOS.
type Inhibitor struct {
	command func(kind string) (string, []string)
}

// NewInhibitor returns the inhibitor for the running OS, or Nop if the OS
// has no supported helper installed.
func NewInhibitor() tts.WakeLock {
	switch runtime.GOOS {
	case "linux":
		if _, err := exec.LookPath("systemd-inhibit"); err == nil {
			return &Inhibitor{command: systemdInhibit}
		}
	case "darwin":
		if _, err := exec.LookPath("caffeinate"); err == nil {
			return &Inhibitor{command: caffeinate}
		}
	}
	return Nop{}
}

func systemdInhibit(kind string) (string, []string) {
	what := "idle:sleep"
	if kind != KindIdle {
		what = kind
	}
	return "systemd-inhibit", []string{
		"--what=" + what,
		"--who=readaloud",
		"--why=Reading aloud",
		"--mode=block",
		"sleep", "infinity",
	}
}

func caffeinate(kind string) (string, []string) {
	if kind == "display" {
		return "caffeinate", []string{"-d"}
	}
	return "caffeinate", []string{"-i"}
}

// Acquire starts the helper process.
func (i *Inhibitor) Acquire(kind string) (tts.WakeHandle, error) {
	name, args := i.command(kind)
	cmd := exec.Command(name, args...)
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("failed to start %s: %w", name, err)
	}

	done := make(chan struct{})
	go func() {
		_ = cmd.Wait()
		close(done)
	}()

	return &inhibitHandle{cmd: cmd, done: done}, nil
}

type inhibitHandle struct {
	cmd  *exec.Cmd
	done chan struct{}
	once sync.Once
}

// Release stops the helper process and waits for it to exit.
func (h *inhibitHandle) Release() error {
	var err error
	h.once.Do(func() {
		select {
		case <-h.done:
			// Helper already exited; nothing to kill
			return
		default:
		}
		if killErr := h.cmd.Process.Kill(); killErr != nil && !errors.Is(killErr, os.ErrProcessDone) {
			err = fmt.Errorf("failed to stop inhibitor: %w", killErr)
		}
		<-h.done
	})
	return err
}

// Nop is the wake lock for platforms without a supported helper.
type Nop struct{}

// Acquire always fails with tts.ErrWakeLockUnsupported.
func (Nop) Acquire(string) (tts.WakeHandle, error) {
	return nil, tts.ErrWakeLockUnsupported
}
