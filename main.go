// Package main provides the entry point for the readaloud CLI application.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"

	"github.com/caarlos0/env/v11"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/log"
	"github.com/dgnsrekt/readaloud/article"
	"github.com/dgnsrekt/readaloud/internal/confwatch"
	"github.com/dgnsrekt/readaloud/tts"
	"github.com/dgnsrekt/readaloud/tts/engines"
	"github.com/dgnsrekt/readaloud/tts/playback"
	"github.com/dgnsrekt/readaloud/tts/wakelock"
	"github.com/dgnsrekt/readaloud/ui"
	gap "github.com/muesli/go-app-paths"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/term"
)

var (
	// Version as provided by goreleaser.
	Version = ""
	// CommitSHA as provided by goreleaser.
	CommitSHA = ""

	readmeNames = []string{"README.md", "README", "Readme.md", "Readme", "readme.md", "readme"}
	configFile  string
	width       uint
	mouse       bool
	autoPlay    bool
	noWakeLock  bool

	// ttsConfig is the effective speech configuration, resolved in
	// validateOptions.
	ttsConfig tts.Config

	rootCmd = &cobra.Command{
		Use:   "readaloud [SOURCE|DIR]",
		Short: "Read markdown aloud in the terminal",
		Long: paragraph(
			fmt.Sprintf("\nRead markdown and plain text %s, sentence by sentence.", keyword("aloud")),
		),
		Example: paragraph("readaloud README.md\nreadaloud --engine piper --rate 1.25 notes.md\ncurl -s https://example.com/post.md | readaloud"),
		SilenceErrors:    false,
		SilenceUsage:     true,
		TraverseChildren: true,
		Args:             cobra.MaximumNArgs(1),
		ValidArgsFunction: func(*cobra.Command, []string, string) ([]string, cobra.ShellCompDirective) {
			return nil, cobra.ShellCompDirectiveDefault
		},
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			// A broken config file must stay editable
			if name := cmd.Name(); name == "config" || name == "man" {
				return nil
			}
			return validateOptions(cmd)
		},
		RunE: execute,
	}
)

// source provides a readable document.
type source struct {
	reader io.ReadCloser
	URL    string
}

// sourceFromArg parses an argument and creates a readable source for it.
func sourceFromArg(arg string) (*source, error) {
	// from stdin
	if arg == "-" {
		return &source{reader: os.Stdin}, nil
	}

	// HTTP(S) URLs:
	if u, err := url.ParseRequestURI(arg); err == nil && strings.Contains(arg, "://") {
		if u.Scheme != "http" && u.Scheme != "https" {
			return nil, fmt.Errorf("%s is not a supported protocol", u.Scheme)
		}
		// consumer of the source is responsible for closing the ReadCloser.
		resp, err := http.Get(u.String()) //nolint: noctx,bodyclose
		if err != nil {
			return nil, fmt.Errorf("unable to get url: %w", err)
		}
		if resp.StatusCode != http.StatusOK {
			_ = resp.Body.Close()
			return nil, fmt.Errorf("HTTP status %d", resp.StatusCode)
		}
		return &source{resp.Body, u.String()}, nil
	}

	// a directory:
	if len(arg) == 0 {
		// use the current working dir if no argument was supplied
		arg = "."
	}
	st, err := os.Stat(arg)
	if err == nil && st.IsDir() {
		var src *source
		_ = filepath.Walk(arg, func(path string, _ os.FileInfo, err error) error {
			if err != nil {
				return err
			}
			for _, v := range readmeNames {
				if strings.EqualFold(filepath.Base(path), v) {
					r, err := os.Open(path)
					if err != nil {
						continue
					}

					u, _ := filepath.Abs(path)
					src = &source{r, u}

					// abort filepath.Walk
					return errors.New("source found")
				}
			}
			return nil
		})

		if src != nil {
			return src, nil
		}

		return nil, errors.New("missing markdown source")
	}

	r, err := os.Open(arg)
	if err != nil {
		return nil, fmt.Errorf("unable to open file: %w", err)
	}
	u, err := filepath.Abs(arg)
	if err != nil {
		return nil, fmt.Errorf("unable to get absolute path: %w", err)
	}
	return &source{r, u}, nil
}

func validateOptions(cmd *cobra.Command) error {
	if cmd.Flags().Changed("config") {
		viper.SetConfigFile(configFile)
		if err := viper.ReadInConfig(); err != nil {
			return fmt.Errorf("unable to read config file: %w", err)
		}
	}

	// grab config values from Viper
	width = viper.GetUint("width")
	mouse = viper.GetBool("mouse")
	if noWakeLock {
		viper.Set("wake_lock", false)
	}

	cfg, err := tts.LoadConfigFromViper()
	if err != nil {
		return err
	}
	ttsConfig = cfg

	// Detect terminal width
	isTerminal := term.IsTerminal(int(os.Stdout.Fd()))
	if !cmd.Flags().Changed("width") {
		if isTerminal && width == 0 {
			w, _, err := term.GetSize(int(os.Stdout.Fd()))
			if err == nil {
				width = uint(w) //nolint:gosec
			}

			if width > 120 {
				width = 120
			}
		}
		if width == 0 {
			width = 80
		}
	}
	return nil
}

func stdinIsPipe() (bool, error) {
	stat, err := os.Stdin.Stat()
	if err != nil {
		return false, fmt.Errorf("unable to open file: %w", err)
	}
	if stat.Mode()&os.ModeCharDevice == 0 || stat.Size() > 0 {
		return true, nil
	}
	return false, nil
}

func execute(cmd *cobra.Command, args []string) error {
	if !term.IsTerminal(int(os.Stdout.Fd())) {
		return errors.New("readaloud needs a terminal to run")
	}

	// if stdin is a pipe then use stdin for input. note that you can also
	// explicitly use a - to read from stdin.
	var arg string
	if yes, err := stdinIsPipe(); err != nil {
		return err
	} else if yes {
		arg = "-"
	} else if len(args) > 0 {
		arg = args[0]
	}

	src, err := sourceFromArg(arg)
	if err != nil {
		return err
	}
	defer src.reader.Close() //nolint:errcheck

	a, err := article.Read(src.reader, src.URL, ttsConfig.Language)
	if err != nil {
		return err
	}
	// An explicit language beats the one the document declares
	if cmd.Flags().Changed("lang") {
		a.Language = ttsConfig.Language
	}

	return runTUI(src, a)
}

func runTUI(src *source, a article.Article) error {
	// Read environment to get debugging stuff
	cfg, err := env.ParseAs[ui.Config]()
	if err != nil {
		return fmt.Errorf("error parsing config: %v", err)
	}

	if !isURL(src.URL) {
		cfg.Path = src.URL
	}
	cfg.Width = width
	cfg.EnableMouse = mouse
	cfg.AutoPlay = autoPlay
	cfg.WakeLock = ttsConfig.WakeLock

	engine, err := engines.Open(ttsConfig, log.Default())
	if err != nil {
		return fmt.Errorf("unable to start speech engine: %w", err)
	}
	defer engine.Close() //nolint:errcheck
	if engine.Name != ttsConfig.Engine {
		log.Info("Using fallback engine", "configured", ttsConfig.Engine, "engine", engine.Name)
	}

	// Notifications raised before the program exists are dropped; the
	// model reads the initial state from the player.
	var program atomic.Pointer[tea.Program]
	send := func(msg tea.Msg) {
		if p := program.Load(); p != nil {
			p.Send(msg)
		}
	}

	player := playback.New(engine.Synthesizer,
		playback.WithConfig(ttsConfig),
		playback.WithEngineName(engine.Name),
		playback.WithLogger(log.WithPrefix("playback")),
		playback.WithWakeLock(wakelock.NewManager(wakelock.NewInhibitor(), ttsConfig.WakeLock, log.WithPrefix("wakelock"))),
		playback.WithNotifier(func(msg any) { send(msg) }),
	)
	defer player.Close() //nolint:errcheck

	if err := player.Load(a.Paragraphs, a.Language); err != nil {
		return fmt.Errorf("unable to load article: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if path := viper.ConfigFileUsed(); path != "" {
		w := confwatch.New(path, ttsConfig, log.WithPrefix("confwatch"))
		go func() {
			err := w.Run(ctx, func(c confwatch.Change) {
				send(ui.ConfigChangedMsg(c))
			})
			if err != nil {
				log.Warn("Not watching configuration file", "err", err)
			}
		}()
	}

	p := ui.NewProgram(cfg, player, a)
	program.Store(p)

	// Run Bubble Tea program
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("unable to run tui program: %w", err)
	}

	return nil
}

func isURL(s string) bool {
	u, err := url.ParseRequestURI(s)
	return err == nil && u.Scheme != ""
}

func main() {
	closer, err := setupLog()
	if err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
	if err := rootCmd.Execute(); err != nil {
		_ = closer()
		os.Exit(1)
	}
	_ = closer()
}

func init() {
	tryLoadConfigFromDefaultPlaces()
	if len(CommitSHA) >= 7 {
		vt := rootCmd.VersionTemplate()
		rootCmd.SetVersionTemplate(vt[:len(vt)-1] + " (" + CommitSHA[0:7] + ")\n")
	}
	if Version == "" {
		Version = "unknown (built from source)"
	}
	rootCmd.Version = Version
	rootCmd.InitDefaultCompletionCmd()

	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", fmt.Sprintf("config file (default %s)", viper.GetViper().ConfigFileUsed()))
	rootCmd.PersistentFlags().StringP("engine", "e", "", fmt.Sprintf("speech engine (%s)", strings.Join(engines.Names, ", ")))
	rootCmd.PersistentFlags().StringP("lang", "l", "", "language of the document, overrides its frontmatter")
	rootCmd.Flags().Float64P("rate", "r", 0, fmt.Sprintf("speech rate (%.1f to %.1f)", tts.MinRate, tts.MaxRate))
	rootCmd.Flags().StringP("voice", "v", "", "preferred voice name or id")
	rootCmd.Flags().BoolVar(&noWakeLock, "no-wake-lock", false, "let the system sleep while reading")
	rootCmd.Flags().BoolVarP(&autoPlay, "play", "p", false, "start reading right away")
	rootCmd.Flags().UintVarP(&width, "width", "w", 0, "word-wrap at width")
	rootCmd.Flags().BoolVarP(&mouse, "mouse", "m", false, "enable mouse wheel")
	_ = rootCmd.Flags().MarkHidden("mouse")

	// Config bindings
	_ = viper.BindPFlag("engine", rootCmd.PersistentFlags().Lookup("engine"))
	_ = viper.BindPFlag("language", rootCmd.PersistentFlags().Lookup("lang"))
	_ = viper.BindPFlag("rate", rootCmd.Flags().Lookup("rate"))
	_ = viper.BindPFlag("voice", rootCmd.Flags().Lookup("voice"))
	_ = viper.BindPFlag("width", rootCmd.Flags().Lookup("width"))
	_ = viper.BindPFlag("mouse", rootCmd.Flags().Lookup("mouse"))

	tts.SetDefaults()
	viper.SetDefault("width", 0)

	rootCmd.AddCommand(configCmd, manCmd, voicesCmd)
}

func tryLoadConfigFromDefaultPlaces() {
	scope := gap.NewScope(gap.User, "readaloud")
	dirs, err := scope.ConfigDirs()
	if err != nil {
		fmt.Println("Could not load find configuration directory.")
		os.Exit(1)
	}

	if c := os.Getenv("XDG_CONFIG_HOME"); c != "" {
		dirs = append([]string{filepath.Join(c, "readaloud")}, dirs...)
	}

	if c := os.Getenv("READALOUD_CONFIG_HOME"); c != "" {
		dirs = append([]string{c}, dirs...)
	}

	for _, v := range dirs {
		viper.AddConfigPath(v)
	}

	viper.SetConfigName("readaloud")
	viper.SetConfigType("yaml")
	viper.SetEnvPrefix("readaloud")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			log.Warn("Could not parse configuration file", "err", err)
		}
	}

	if used := viper.ConfigFileUsed(); used != "" {
		log.Debug("Using configuration file", "path", viper.ConfigFileUsed())
		return
	}

	if viper.ConfigFileUsed() == "" {
		configFile = filepath.Join(dirs[0], "readaloud.yml")
	}
	if err := ensureConfigFile(); err != nil {
		log.Error("Could not create default configuration", "error", err)
	}
}
