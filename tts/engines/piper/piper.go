// Package piper implements a speech engine on top of the Piper neural TTS
// binary. Each utterance is synthesized to raw PCM by a short-lived piper
// process and then played through an audio player.
package piper

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/dgnsrekt/readaloud/internal/audio"
	"github.com/dgnsrekt/readaloud/internal/cache"
	"github.com/dgnsrekt/readaloud/tts"
	"github.com/dgnsrekt/readaloud/utils"
)

// Player plays PCM clips. *audio.Player and *audio.MockPlayer satisfy it.
type Player interface {
	Play(pcm []byte, done func(error)) error
	Pause() error
	Resume() error
	Stop() error
}

// ClipStore caches synthesized PCM. *cache.ClipCache satisfies it.
type ClipStore interface {
	Get(key string) ([]byte, bool)
	Put(key string, value []byte) error
}

// Runner runs the piper binary with text on stdin and returns its stdout.
type Runner func(ctx context.Context, binary string, args []string, text string) ([]byte, error)

// PiperEngine implements tts.Synthesizer using Piper.
type PiperEngine struct {
	// Configuration
	binary string
	model  string
	player Player
	run    Runner
	clips  ClipStore
	logger *log.Logger

	// State
	mu     sync.Mutex
	status tts.SpeechStatus
	job    *job
}

// job is one utterance moving through synthesis and playback.
type job struct {
	cancel context.CancelFunc
	done   func(tts.Result)
	once   sync.Once

	playing bool   // clip handed to the player
	held    []byte // synthesized while paused, played on resume
}

func (j *job) finish(err error) {
	j.once.Do(func() {
		j.cancel()
		j.done(tts.Result{Err: err})
	})
}

// Available returns nil if the binary and model named in cfg exist.
func Available(cfg tts.PiperConfig) error {
	_, _, err := locate(cfg)
	return err
}

func locate(cfg tts.PiperConfig) (binary, model string, err error) {
	binary = findPiperBinary(cfg.Binary)
	if binary == "" {
		return "", "", fmt.Errorf("%w: piper binary not found", tts.ErrEngineNotAvailable)
	}

	model = utils.ExpandPath(cfg.Model)
	if _, err := os.Stat(model); err != nil {
		return "", "", fmt.Errorf("%w: piper model: %v", tts.ErrEngineNotAvailable, err)
	}
	return binary, model, nil
}

// New creates a Piper engine that plays through player.
func New(cfg tts.PiperConfig, player Player, logger *log.Logger) (*PiperEngine, error) {
	binary, model, err := locate(cfg)
	if err != nil {
		return nil, err
	}

	if logger == nil {
		logger = log.Default().WithPrefix("piper")
	}

	return &PiperEngine{
		binary: binary,
		model:  model,
		player: player,
		run:    runPiper,
		logger: logger,
	}, nil
}

// NewWithRunner creates an engine with a custom process runner. It skips
// binary and model discovery.
func NewWithRunner(model string, player Player, run Runner) *PiperEngine {
	return &PiperEngine{
		binary: "piper",
		model:  model,
		player: player,
		run:    run,
		logger: log.Default().WithPrefix("piper"),
	}
}

// SetClipStore enables reuse of previously synthesized clips.
func (e *PiperEngine) SetClipStore(clips ClipStore) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.clips = clips
}

// Speak synthesizes u in the background and plays it.
func (e *PiperEngine) Speak(u tts.Utterance, done func(tts.Result)) error {
	if strings.TrimSpace(u.Text) == "" {
		return tts.ErrNothingToSpeak
	}

	ctx, cancel := context.WithCancel(context.Background())
	j := &job{cancel: cancel, done: done}

	e.mu.Lock()
	previous := e.job
	stop := previous != nil && previous.playing
	e.job = j
	e.status = tts.SpeechSpeaking
	e.mu.Unlock()

	if previous != nil {
		previous.finish(tts.ErrInterrupted)
	}
	if stop {
		_ = e.player.Stop()
	}

	go e.synthesize(ctx, j, u)
	return nil
}

func (e *PiperEngine) synthesize(ctx context.Context, j *job, u tts.Utterance) {
	pcm, err := e.render(ctx, u)
	if ctx.Err() != nil {
		j.finish(tts.ErrCanceled)
		return
	}
	if err != nil {
		e.release(j)
		j.finish(fmt.Errorf("piper synthesis failed: %w", err))
		return
	}

	e.mu.Lock()
	if e.job != j {
		e.mu.Unlock()
		j.finish(tts.ErrCanceled)
		return
	}
	if e.status == tts.SpeechPaused {
		j.held = pcm
		e.mu.Unlock()
		return
	}
	j.playing = true
	e.mu.Unlock()

	e.play(j, pcm)
}

// render returns the PCM for u, from the clip store when possible.
func (e *PiperEngine) render(ctx context.Context, u tts.Utterance) ([]byte, error) {
	args := e.args(u)

	e.mu.Lock()
	clips := e.clips
	e.mu.Unlock()

	key := cache.Key{Text: u.Text, Voice: args[1], Rate: tts.ClampRate(u.Rate)}.String()
	if clips != nil {
		if pcm, ok := clips.Get(key); ok {
			e.logger.Debug("Clip cache hit", "chars", len(u.Text))
			return pcm, nil
		}
	}

	pcm, err := e.run(ctx, e.binary, args, u.Text)
	if err != nil {
		return nil, err
	}
	if clips != nil {
		if err := clips.Put(key, pcm); err != nil {
			e.logger.Debug("Clip not cached", "err", err)
		}
	}
	return pcm, nil
}

func (e *PiperEngine) play(j *job, pcm []byte) {
	err := e.player.Play(pcm, func(err error) {
		e.release(j)
		if errors.Is(err, audio.ErrStopped) {
			err = tts.ErrCanceled
		}
		j.finish(err)
	})
	if err != nil {
		e.release(j)
		j.finish(fmt.Errorf("audio playback failed: %w", err))
	}
}

// release clears j if it is still the current job.
func (e *PiperEngine) release(j *job) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.job == j {
		e.job = nil
		e.status = tts.SpeechIdle
	}
}

// args builds the piper command line. Piper's length scale is the inverse
// of speed: rate 2.0 means length scale 0.5.
func (e *PiperEngine) args(u tts.Utterance) []string {
	model := e.model
	if u.Voice != nil && u.Voice.ID != "" {
		model = u.Voice.ID
	}

	args := []string{"--model", model, "--output-raw"}
	if rate := tts.ClampRate(u.Rate); rate != 1.0 {
		args = append(args, "--length-scale", fmt.Sprintf("%.2f", 1.0/rate))
	}
	return args
}

// Pause pauses playback. An utterance still being synthesized is held
// until Resume.
func (e *PiperEngine) Pause() error {
	e.mu.Lock()
	j := e.job
	if j == nil {
		e.mu.Unlock()
		return tts.ErrNotSpeaking
	}
	e.status = tts.SpeechPaused
	playing := j.playing
	e.mu.Unlock()

	if playing {
		return e.player.Pause()
	}
	return nil
}

// Resume continues a paused utterance.
func (e *PiperEngine) Resume() error {
	e.mu.Lock()
	j := e.job
	if j == nil || e.status != tts.SpeechPaused {
		e.mu.Unlock()
		return tts.ErrNotPaused
	}
	e.status = tts.SpeechSpeaking
	held := j.held
	j.held = nil
	playing := j.playing
	if held != nil {
		j.playing = true
	}
	e.mu.Unlock()

	switch {
	case held != nil:
		e.play(j, held)
		return nil
	case playing:
		return e.player.Resume()
	default:
		// Still synthesizing; playback starts when it finishes
		return nil
	}
}

// Cancel stops synthesis and playback of the current utterance.
func (e *PiperEngine) Cancel() error {
	e.mu.Lock()
	j := e.job
	e.job = nil
	e.status = tts.SpeechIdle
	playing := j != nil && j.playing
	e.mu.Unlock()

	if j == nil {
		return nil
	}

	j.cancel()
	if playing {
		return e.player.Stop()
	}
	j.finish(tts.ErrCanceled)
	return nil
}

// Status reports whether an utterance is being spoken.
func (e *PiperEngine) Status() tts.SpeechStatus {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.status
}

// Voices lists the .onnx models next to the configured model. Piper model
// names start with their locale, e.g. "en_US-lessac-medium".
func (e *PiperEngine) Voices() []tts.Voice {
	matches, err := filepath.Glob(filepath.Join(filepath.Dir(e.model), "*.onnx"))
	if err != nil || len(matches) == 0 {
		matches = []string{e.model}
	}
	sort.Strings(matches)

	voices := make([]tts.Voice, 0, len(matches))
	for _, path := range matches {
		voices = append(voices, voiceFromModel(path))
	}
	return voices
}

func voiceFromModel(path string) tts.Voice {
	name := strings.TrimSuffix(filepath.Base(path), ".onnx")
	lang, rest, _ := strings.Cut(name, "-")
	return tts.Voice{
		ID:       path,
		Name:     strings.ReplaceAll(rest, "-", " ") + " (" + lang + ")",
		Language: strings.ReplaceAll(lang, "_", "-"),
	}
}

// runPiper is the default Runner.
func runPiper(ctx context.Context, binary string, args []string, text string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, binary, args...)

	// Stdin is set up before the process starts
	cmd.Stdin = strings.NewReader(text)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return nil, fmt.Errorf("%w: %s", err, msg)
		}
		return nil, err
	}
	if stdout.Len() == 0 {
		return nil, errors.New("piper produced no audio")
	}
	return stdout.Bytes(), nil
}

// findPiperBinary resolves the configured binary or searches common
// install locations.
func findPiperBinary(configured string) string {
	locations := []string{"piper", "/usr/local/bin/piper", "/usr/bin/piper"}
	if configured != "" {
		locations = []string{utils.ExpandPath(configured)}
	}
	if home, err := os.UserHomeDir(); err == nil && configured == "" {
		locations = append(locations,
			filepath.Join(home, ".local", "bin", "piper"),
			filepath.Join(home, "bin", "piper"),
		)
	}

	for _, loc := range locations {
		if path, err := exec.LookPath(loc); err == nil {
			return path
		}
	}
	return ""
}
