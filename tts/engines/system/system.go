// Package system speaks through the platform's command line synthesizer:
// espeak-ng or espeak on Linux, say on macOS. One process is started per
// utterance; pausing stops the process with a signal.
package system

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/dgnsrekt/readaloud/tts"
	"github.com/dgnsrekt/readaloud/utils"
)

// Words per minute at rate 1.0 for both espeak and say.
const baseWordsPerMinute = 175

// Candidate binaries, in order of preference.
var binaries = []string{"espeak-ng", "espeak", "say"}

// Command builds a process. exec.CommandContext satisfies it.
type Command func(ctx context.Context, name string, args ...string) *exec.Cmd

type flavor int

const (
	flavorEspeak flavor = iota
	flavorSay
)

// SystemEngine implements tts.Synthesizer and tts.CatalogNotifier.
type SystemEngine struct {
	binary  string
	flavor  flavor
	command Command
	logger  *log.Logger

	mu        sync.Mutex
	status    tts.SpeechStatus
	proc      *process
	voices    []tts.Voice
	listeners []func()
}

// process is one running utterance.
type process struct {
	cmd      *exec.Cmd
	stderr   bytes.Buffer
	done     func(tts.Result)
	once     sync.Once
	canceled bool
	paused   bool
}

func (p *process) finish(err error) {
	p.once.Do(func() { p.done(tts.Result{Err: err}) })
}

// New finds a speech binary and starts loading its voice catalog in the
// background.
func New(cfg tts.SystemConfig, logger *log.Logger) (*SystemEngine, error) {
	binary, err := findBinary(cfg.Binary)
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = log.Default().WithPrefix("system")
	}

	e := NewWithCommand(binary, exec.CommandContext)
	e.logger = logger
	logger.Debug("Using speech binary", "path", binary)

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := e.LoadVoices(ctx); err != nil {
			logger.Warn("Could not list voices", "err", err)
		}
	}()

	return e, nil
}

// NewWithCommand creates an engine for binary that starts processes with
// command. The voice catalog starts empty.
func NewWithCommand(binary string, command Command) *SystemEngine {
	f := flavorEspeak
	if filepath.Base(binary) == "say" {
		f = flavorSay
	}
	return &SystemEngine{
		binary:  binary,
		flavor:  f,
		command: command,
		logger:  log.Default().WithPrefix("system"),
	}
}

func findBinary(configured string) (string, error) {
	candidates := binaries
	if configured != "" {
		candidates = []string{utils.ExpandPath(configured)}
	}
	for _, name := range candidates {
		if path, err := exec.LookPath(name); err == nil {
			return path, nil
		}
	}
	return "", fmt.Errorf("%w: none of %s found in PATH", tts.ErrEngineNotAvailable, strings.Join(candidates, ", "))
}

// Speak starts a process for u. A process already running is interrupted.
func (e *SystemEngine) Speak(u tts.Utterance, done func(tts.Result)) error {
	if strings.TrimSpace(u.Text) == "" {
		return tts.ErrNothingToSpeak
	}

	p := &process{done: done}
	p.cmd = e.command(context.Background(), e.binary, e.args(u)...)
	p.cmd.Stdin = strings.NewReader(u.Text)
	p.cmd.Stderr = &p.stderr
	p.cmd.WaitDelay = time.Second

	e.mu.Lock()
	previous := e.takeLocked()
	e.mu.Unlock()
	if previous != nil {
		e.kill(previous)
	}

	if err := p.cmd.Start(); err != nil {
		return fmt.Errorf("failed to start %s: %w", filepath.Base(e.binary), err)
	}

	e.mu.Lock()
	e.proc = p
	e.status = tts.SpeechSpeaking
	e.mu.Unlock()

	go e.wait(p)
	return nil
}

func (e *SystemEngine) wait(p *process) {
	err := p.cmd.Wait()

	e.mu.Lock()
	if e.proc == p {
		e.proc = nil
		e.status = tts.SpeechIdle
	}
	canceled := p.canceled
	e.mu.Unlock()

	switch {
	case canceled:
		p.finish(tts.ErrCanceled)
	case err != nil:
		if msg := strings.TrimSpace(p.stderr.String()); msg != "" {
			err = fmt.Errorf("%w: %s", err, msg)
		}
		p.finish(fmt.Errorf("%s exited: %w", filepath.Base(e.binary), err))
	default:
		p.finish(nil)
	}
}

// args builds the command line for u. Text always goes through stdin.
func (e *SystemEngine) args(u tts.Utterance) []string {
	wpm := strconv.Itoa(int(baseWordsPerMinute * tts.ClampRate(u.Rate)))

	voice := ""
	if u.Voice != nil {
		voice = u.Voice.ID
	}

	if e.flavor == flavorSay {
		args := []string{"-r", wpm}
		if voice != "" {
			args = append(args, "-v", voice)
		}
		return args
	}

	if voice == "" {
		voice = u.Language
	}
	args := []string{"-s", wpm}
	if u.Pitch > 0 {
		pitch := min(max(int(50*u.Pitch), 0), 99)
		args = append(args, "-p", strconv.Itoa(pitch))
	}
	if voice != "" {
		args = append(args, "-v", voice)
	}
	return append(args, "--stdin")
}

// Pause suspends the running process.
func (e *SystemEngine) Pause() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	p := e.proc
	if p == nil {
		return tts.ErrNotSpeaking
	}
	if p.paused {
		return nil
	}
	if err := suspend(p.cmd.Process); err != nil {
		return fmt.Errorf("pause failed: %w", err)
	}
	p.paused = true
	e.status = tts.SpeechPaused
	return nil
}

// Resume continues a suspended process.
func (e *SystemEngine) Resume() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	p := e.proc
	if p == nil || !p.paused {
		return tts.ErrNotPaused
	}
	if err := resume(p.cmd.Process); err != nil {
		return fmt.Errorf("resume failed: %w", err)
	}
	p.paused = false
	e.status = tts.SpeechSpeaking
	return nil
}

// Cancel kills the running process. Its result reports tts.ErrCanceled.
func (e *SystemEngine) Cancel() error {
	e.mu.Lock()
	p := e.takeLocked()
	e.mu.Unlock()

	if p != nil {
		return e.kill(p)
	}
	return nil
}

// takeLocked detaches the running process and marks it canceled.
func (e *SystemEngine) takeLocked() *process {
	p := e.proc
	if p == nil {
		return nil
	}
	p.canceled = true
	e.proc = nil
	e.status = tts.SpeechIdle
	return p
}

func (e *SystemEngine) kill(p *process) error {
	// A stopped process only dies once continued on some platforms
	if p.paused {
		_ = resume(p.cmd.Process)
	}
	if err := p.cmd.Process.Kill(); err != nil && !errors.Is(err, os.ErrProcessDone) {
		return fmt.Errorf("cancel failed: %w", err)
	}
	return nil
}

// Status reports whether a process is running.
func (e *SystemEngine) Status() tts.SpeechStatus {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.status
}

// Voices returns the catalog loaded so far.
func (e *SystemEngine) Voices() []tts.Voice {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]tts.Voice(nil), e.voices...)
}

// OnVoicesChanged registers fn to run after the catalog loads.
func (e *SystemEngine) OnVoicesChanged(fn func()) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.listeners = append(e.listeners, fn)
}

// LoadVoices asks the binary for its voices, replaces the catalog and
// notifies listeners.
func (e *SystemEngine) LoadVoices(ctx context.Context) error {
	var args []string
	parse := parseEspeakVoices
	if e.flavor == flavorSay {
		args = []string{"-v", "?"}
		parse = parseSayVoices
	} else {
		args = []string{"--voices"}
	}

	out, err := e.command(ctx, e.binary, args...).Output()
	if err != nil {
		return fmt.Errorf("listing voices: %w", err)
	}
	voices := parse(out)

	e.mu.Lock()
	e.voices = voices
	listeners := append([]func(){}, e.listeners...)
	e.mu.Unlock()

	e.logger.Debug("Voice catalog loaded", "count", len(voices))
	for _, fn := range listeners {
		fn()
	}
	return nil
}
