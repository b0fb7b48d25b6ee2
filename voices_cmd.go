package main

import (
	"fmt"
	"os"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/charmbracelet/log"
	"github.com/dgnsrekt/readaloud/tts"
	"github.com/dgnsrekt/readaloud/tts/engines"
	"github.com/dgnsrekt/readaloud/tts/voice"
	"github.com/dustin/go-humanize/english"
	"github.com/spf13/cobra"
	"golang.org/x/text/language"
	"golang.org/x/text/language/display"
)

// catalogTimeout bounds the wait for engines that list voices in the
// background.
const catalogTimeout = 10 * time.Second

var voicesCmd = &cobra.Command{
	Use:   "voices [QUERY]",
	Short: "List the voices of the speech engine",
	Long: paragraph(fmt.Sprintf("\n%s the voices the configured engine offers, best match first when a query is given. The voice readaloud would pick is marked with a *.",
		keyword("List"))),
	Example: paragraph("readaloud voices\nreadaloud voices --lang de\nreadaloud voices --engine piper lessac"),
	Args:    cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		engine, err := engines.Open(ttsConfig, log.Default())
		if err != nil {
			return fmt.Errorf("unable to start speech engine: %w", err)
		}
		defer engine.Close() //nolint:errcheck

		catalog := waitForCatalog(engine.Synthesizer, catalogTimeout)
		if cmd.Flags().Changed("lang") {
			catalog = voice.ForLanguage(catalog, ttsConfig.Language)
		}

		var query string
		if len(args) > 0 {
			query = args[0]
		}
		voices := voice.Filter(catalog, query)
		picked, _ := voice.Select(catalog, ttsConfig.Language, ttsConfig.Voice)

		fmt.Fprintln(os.Stdout, paragraph(fmt.Sprintf("\n%s %s",
			keyword(english.Plural(len(voices), "voice", "")),
			subtle("from the "+engine.Name+" engine"),
		)))
		if len(voices) == 0 {
			return nil
		}
		fmt.Fprintln(os.Stdout, voiceTable(voices, picked))
		return nil
	},
}

// waitForCatalog returns the voices of s, waiting up to timeout for a
// catalog that is still loading.
func waitForCatalog(s tts.Synthesizer, timeout time.Duration) []tts.Voice {
	n, ok := s.(tts.CatalogNotifier)
	if !ok {
		return s.Voices()
	}

	changed := make(chan struct{}, 1)
	n.OnVoicesChanged(func() {
		select {
		case changed <- struct{}{}:
		default:
		}
	})
	if voices := s.Voices(); len(voices) > 0 {
		return voices
	}

	select {
	case <-changed:
	case <-time.After(timeout):
		log.Warn("Timed out waiting for voices")
	}
	return s.Voices()
}

func voiceTable(voices []tts.Voice, picked tts.Voice) *table.Table {
	rows := make([][]string, 0, len(voices))
	for _, v := range voices {
		mark := ""
		if v.ID == picked.ID && v.Name == picked.Name {
			mark = "*"
		}
		rows = append(rows, []string{mark, v.Name, languageName(v.Language), v.ID})
	}

	header := lipgloss.NewStyle().Bold(true).Padding(0, 1)
	cell := lipgloss.NewStyle().Padding(0, 1)
	return table.New().
		Border(lipgloss.HiddenBorder()).
		Headers("", "NAME", "LANGUAGE", "ID").
		Rows(rows...).
		StyleFunc(func(row, _ int) lipgloss.Style {
			if row == table.HeaderRow {
				return header
			}
			return cell
		})
}

// languageName describes a language tag in English, falling back to the
// tag itself.
func languageName(tag string) string {
	t, err := language.Parse(tag)
	if err != nil {
		return tag
	}
	if name := display.English.Tags().Name(t); name != "" {
		return name
	}
	return tag
}
