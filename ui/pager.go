package ui

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/log"
	"github.com/dgnsrekt/readaloud/article"
	"github.com/dgnsrekt/readaloud/internal/confwatch"
	"github.com/dgnsrekt/readaloud/tts"
	"github.com/dgnsrekt/readaloud/tts/playback"
	"github.com/dgnsrekt/readaloud/tts/timeline"
	"github.com/muesli/termenv"
)

const statusBarHeight = 1

type pagerState int

const (
	pagerStateBrowse pagerState = iota
	pagerStateStatusMessage
)

type pagerStatusMessage struct {
	message string
	isError bool
}

// refreshMsg asks the model to re-read derived state from the player.
type refreshMsg struct{}

type model struct {
	cfg    Config
	player *playback.Scheduler
	keys   keyMap

	viewport viewport.Model
	help     help.Model
	spinner  spinner.Model

	width    int
	height   int
	fatalErr error

	state              pagerState
	showHelp           bool
	statusMessage      pagerStatusMessage
	statusMessageTimer *time.Timer

	// Article
	title  string
	matrix tts.Matrix
	words  int
	layout rendered

	// Playback as last reported by the player
	snapshot tts.StateSnapshot
	estimate timeline.Estimate
	rate     float64
	voice    string
	wakeLock bool
	follow   bool
	spinning bool
	failed   bool // the last sentence failed and nothing is in flight
}

func newModel(cfg Config, player *playback.Scheduler, a article.Article) model {
	vp := viewport.New(0, 0)
	vp.YPosition = 0

	m := model{
		cfg:      cfg,
		player:   player,
		keys:     newKeyMap(),
		viewport: vp,
		help:     newHelp(),
		spinner:  spinner.New(spinner.WithSpinner(spinner.MiniDot)),
		state:    pagerStateBrowse,
		title:    a.Title,
		matrix:   player.Matrix(),
		snapshot: player.Snapshot(),
		wakeLock: cfg.WakeLock,
		follow:   cfg.Follow,
	}
	m.words = wordCount(m.matrix)
	if len(m.matrix) == 0 {
		m.fatalErr = tts.ErrNothingToSpeak
	}
	if v, ok := player.Voice(); ok {
		m.voice = v.Name
	}
	m.refresh()
	return m
}

func (m model) Init() tea.Cmd {
	if m.cfg.AutoPlay {
		return schedule(m.player.Play)
	}
	return nil
}

// newHelp returns a help model without styles of its own. The whole help
// view is styled at once so its background can be padded.
func newHelp() help.Model {
	h := help.New()
	h.Styles = help.Styles{}
	return h
}

// schedule runs a player call off the UI goroutine.
func schedule(fn func() error) tea.Cmd {
	return func() tea.Msg {
		if err := fn(); err != nil {
			return errMsg{err}
		}
		return refreshMsg{}
	}
}

func (m *model) refresh() {
	m.rate = m.player.Rate()
	m.estimate = m.player.Timeline()
}

func (m *model) setSize(w, h int) {
	m.width = w
	m.height = h
	m.viewport.Width = w
	m.viewport.Height = h - statusBarHeight
	m.help.Width = w

	if m.showHelp {
		helpHeight := strings.Count(m.helpView(), "\n")
		m.viewport.Height -= statusBarHeight + helpHeight
	}
	m.viewport.Height = max(m.viewport.Height, 0)
}

func (m *model) toggleHelp() {
	m.showHelp = !m.showHelp
	m.setSize(m.width, m.height)
	if m.viewport.PastBottom() {
		m.viewport.GotoBottom()
	}
}

func (m *model) textWidth() int {
	w := m.viewport.Width
	if m.cfg.Width > 0 && int(m.cfg.Width) < w { //nolint:gosec
		w = int(m.cfg.Width) //nolint:gosec
	}
	return w
}

// render lays the article out again for the current position and width.
func (m *model) render() {
	pos := tts.Position{Paragraph: m.snapshot.CurrentParagraph, Sentence: m.snapshot.CurrentSentence}
	m.layout = renderArticle(m.title, m.matrix, pos, m.snapshot.IsActive(), m.textWidth())
	m.viewport.SetContent(m.layout.content)
}

// scrollTo brings paragraph p into view, leaving a line of context above.
func (m *model) scrollTo(p int) {
	if !m.follow || p < 0 || p >= len(m.layout.offsets) {
		return
	}
	offset := m.layout.offsets[p]
	top := m.viewport.YOffset
	if offset >= top && offset < top+m.viewport.Height-1 {
		return
	}
	m.viewport.SetYOffset(max(offset-1, 0))
}

// showStatusMessage shows msg in the status bar for a while.
func (m *model) showStatusMessage(msg pagerStatusMessage) tea.Cmd {
	m.state = pagerStateStatusMessage
	m.statusMessage = msg
	if m.statusMessageTimer != nil {
		m.statusMessageTimer.Stop()
	}
	m.statusMessageTimer = time.NewTimer(statusMessageTimeout)

	return waitForStatusMessageTimeout(m.statusMessageTimer)
}

func (m *model) startSpinner() tea.Cmd {
	if m.spinning || !m.snapshot.IsPlaying {
		return nil
	}
	m.spinning = true
	return m.spinner.Tick
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		if m.fatalErr != nil {
			return m, tea.Quit
		}
		if cmd, ok := m.handleKey(msg); ok {
			return m, cmd
		}

	case tea.WindowSizeMsg:
		m.setSize(msg.Width, msg.Height)
		m.render()
		m.scrollTo(m.snapshot.CurrentParagraph)
		return m, nil

	case tea.FocusMsg:
		return m, schedule(func() error { return m.player.SetForeground(true) })

	case tea.BlurMsg:
		return m, schedule(func() error { return m.player.SetForeground(false) })

	case tts.StateChangedMsg:
		m.snapshot = msg.Snapshot
		if !m.snapshot.IsPlaying {
			m.failed = false
		}
		m.refresh()
		m.render()
		return m, m.startSpinner()

	case tts.ProgressMsg:
		m.snapshot.CurrentParagraph = msg.Paragraph
		m.snapshot.CurrentSentence = msg.Sentence
		m.failed = false
		m.refresh()
		m.render()
		m.scrollTo(msg.Paragraph)
		return m, nil

	case tts.ParagraphChangedMsg:
		log.Debug("reading paragraph", "index", msg.Index)
		m.scrollTo(msg.Index)
		return m, nil

	case tts.EndedMsg:
		return m, m.showStatusMessage(pagerStatusMessage{"Finished reading", false})

	case tts.ErrorMsg:
		log.Error("speech failed", "error", msg.Err)
		m.failed = true
		return m, m.showStatusMessage(pagerStatusMessage{
			fmt.Sprintf("Speech failed: %v (space retries, n skips)", msg.Err), true,
		})

	case tts.VoiceChangedMsg:
		m.voice = ""
		if msg.Selected {
			m.voice = msg.Voice.Name
		}
		return m, nil

	case ConfigChangedMsg:
		return m, m.applyConfig(confwatch.Change(msg))

	case refreshMsg:
		m.refresh()
		return m, nil

	case errMsg:
		if errors.Is(msg.err, tts.ErrClosed) {
			return m, nil
		}
		log.Error("player error", "error", msg.err)
		return m, m.showStatusMessage(pagerStatusMessage{msg.Error(), true})

	case statusMessageTimeoutMsg:
		m.state = pagerStateBrowse
		return m, nil

	case spinner.TickMsg:
		if !m.snapshot.IsPlaying {
			m.spinning = false
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	cmds = append(cmds, cmd)

	return m, tea.Batch(cmds...)
}

// handleKey runs the action bound to msg. The boolean is false for keys
// left to the viewport.
func (m *model) handleKey(msg tea.KeyMsg) (tea.Cmd, bool) {
	player := m.player

	switch {
	case key.Matches(msg, m.keys.Quit):
		return tea.Quit, true

	case key.Matches(msg, m.keys.PlayPause):
		if m.snapshot.State == tts.StateEnded {
			return m.replay(), true
		}
		if m.failed && m.snapshot.IsPlaying {
			return schedule(player.Play), true
		}
		return schedule(player.TogglePlayPause), true

	case key.Matches(msg, m.keys.Stop):
		return schedule(player.Stop), true

	case key.Matches(msg, m.keys.Replay):
		return m.replay(), true

	case key.Matches(msg, m.keys.NextParagraph):
		return schedule(player.SkipForward), true

	case key.Matches(msg, m.keys.PrevParagraph):
		return schedule(player.SkipBackward), true

	case key.Matches(msg, m.keys.NextSentence):
		return schedule(player.SkipSentenceForward), true

	case key.Matches(msg, m.keys.PrevSentence):
		return schedule(player.SkipSentenceBackward), true

	case key.Matches(msg, m.keys.SeekForward):
		return schedule(func() error { return player.SeekBy(seekStep * time.Second) }), true

	case key.Matches(msg, m.keys.SeekBackward):
		return schedule(func() error { return player.SeekBy(-seekStep * time.Second) }), true

	case key.Matches(msg, m.keys.ReadFromHere):
		return m.readFrom(m.layout.paragraphAt(m.viewport.YOffset)), true

	case key.Matches(msg, m.keys.Faster), key.Matches(msg, m.keys.Slower):
		dir := 1
		if key.Matches(msg, m.keys.Slower) {
			dir = -1
		}
		rate := stepRate(m.rate, dir)
		m.rate = rate
		return tea.Batch(
			schedule(func() error { return player.SetRate(rate) }),
			m.showStatusMessage(pagerStatusMessage{fmt.Sprintf("Rate %s", formatRate(rate)), false}),
		), true

	case key.Matches(msg, m.keys.WakeLock):
		m.wakeLock = !m.wakeLock
		enabled := m.wakeLock
		note := "Wake lock off"
		if enabled {
			note = "Wake lock on"
		}
		return tea.Batch(
			schedule(func() error { return player.SetWakeLockEnabled(enabled) }),
			m.showStatusMessage(pagerStatusMessage{note, false}),
		), true

	case key.Matches(msg, m.keys.Follow):
		m.follow = !m.follow
		note := "Not following"
		if m.follow {
			note = "Following"
			m.scrollTo(m.snapshot.CurrentParagraph)
		}
		return m.showStatusMessage(pagerStatusMessage{note, false}), true

	case key.Matches(msg, m.keys.Copy):
		text := player.CurrentSentence()
		if text == "" {
			return m.showStatusMessage(pagerStatusMessage{"Nothing to copy", true}), true
		}
		// Copy using OSC 52
		termenv.Copy(text)
		// Copy using native system clipboard
		_ = clipboard.WriteAll(text)
		return m.showStatusMessage(pagerStatusMessage{"Copied sentence", false}), true

	case key.Matches(msg, m.keys.Top):
		m.viewport.GotoTop()
		return nil, true

	case key.Matches(msg, m.keys.Bottom):
		m.viewport.GotoBottom()
		return nil, true

	case key.Matches(msg, m.keys.Help):
		m.toggleHelp()
		return nil, true
	}

	return nil, false
}

// replay reads the article again from the start.
func (m *model) replay() tea.Cmd {
	player := m.player
	return schedule(func() error {
		if err := player.Stop(); err != nil {
			return err
		}
		return player.Play()
	})
}

// readFrom starts reading at paragraph p.
func (m *model) readFrom(p int) tea.Cmd {
	player := m.player
	return schedule(func() error {
		if player.Snapshot().State == tts.StateEnded {
			if err := player.Stop(); err != nil {
				return err
			}
		}
		if err := player.JumpToParagraph(p); err != nil {
			return err
		}
		if player.Snapshot().State != tts.StatePlaying {
			return player.Play()
		}
		return nil
	})
}

// applyConfig pushes the live settings of a reloaded config to the player.
func (m *model) applyConfig(c confwatch.Change) tea.Cmd {
	if !c.Any() {
		return nil
	}

	cfg := c.Config
	player := m.player
	if c.Rate {
		m.rate = tts.ClampRate(cfg.Rate)
	}
	if c.WakeLock {
		m.wakeLock = cfg.WakeLock
	}
	log.Info("config changed", "rate", c.Rate, "pitch", c.Pitch, "voice", c.Voice, "wake_lock", c.WakeLock)

	return tea.Batch(
		schedule(func() error {
			if c.Rate {
				if err := player.SetRate(cfg.Rate); err != nil {
					return err
				}
			}
			if c.Pitch {
				if err := player.SetPitch(cfg.Pitch); err != nil {
					return err
				}
			}
			if c.Voice {
				if err := player.SetVoicePreference(cfg.Voice); err != nil {
					return err
				}
			}
			if c.WakeLock {
				return player.SetWakeLockEnabled(cfg.WakeLock)
			}
			return nil
		}),
		m.showStatusMessage(pagerStatusMessage{"Configuration reloaded", false}),
	)
}

func (m model) View() string {
	if m.fatalErr != nil {
		return errorView(m.fatalErr, true)
	}

	var b strings.Builder
	fmt.Fprint(&b, m.viewport.View()+"\n")

	// Footer
	m.statusBarView(&b)

	if m.showHelp {
		fmt.Fprint(&b, "\n"+m.helpView())
	}

	return b.String()
}
