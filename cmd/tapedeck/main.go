// Command tapedeck is a terminal demonstration of the player library: a
// bubbletea program whose tick message is the once-per-frame poll.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/fsnotify/fsnotify"
	"github.com/joho/godotenv"

	"github.com/tapedeck/tapedeck/internal/config"
	"github.com/tapedeck/tapedeck/internal/diag"
	"github.com/tapedeck/tapedeck/internal/media"
	"github.com/tapedeck/tapedeck/internal/pidfile"
	"github.com/tapedeck/tapedeck/internal/playback"
	"github.com/tapedeck/tapedeck/internal/status"
	"github.com/tapedeck/tapedeck/internal/transcribe"
	"github.com/tapedeck/tapedeck/internal/transcribe/openaiasr"
	"github.com/tapedeck/tapedeck/internal/transcribe/streamws"
	"github.com/tapedeck/tapedeck/internal/transcribe/whispercli"
	"github.com/tapedeck/tapedeck/pkg/player"
)

// Version is set at build time via -ldflags "-X main.Version=...".
var Version = "dev"

const (
	logPrefix    = "[tapedeck]"
	idleTick     = 500 * time.Millisecond
	busyTick     = 100 * time.Millisecond
	seekStep     = 5 * time.Second
	volumeStep   = 5
	statusPeriod = time.Second
)

func main() {
	if len(os.Args) > 1 && os.Args[1] == "--export-diag" {
		diag.Version = Version
		path, n, err := diag.Export(diag.DefaultLogPath(), ".")
		if err != nil {
			fmt.Fprintln(os.Stderr, "error:", err)
			if errors.Is(err, os.ErrNotExist) {
				fmt.Fprintln(os.Stderr, "hint: run with TAPEDECK_DEBUG=true to enable logging")
				os.Exit(1)
			}
			os.Exit(2)
		}
		fmt.Printf("Wrote: %s (%d lines)\n", path, n)
		os.Exit(0)
	}

	configPath := flag.String("config", config.DefaultPath(), "path to config file")
	transcriptMode := flag.String("transcript", "timestamps", "transcript mode: off|on|label|timestamps")
	flag.Parse()

	if flag.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "usage: tapedeck [flags] <media-file>")
		os.Exit(2)
	}
	mediaPath := flag.Arg(0)

	errLog := log.New(os.Stderr, logPrefix+" ", log.LstdFlags)

	// .env is optional; absence is not an error.
	_ = godotenv.Load()

	logger, err := diag.New(diag.DefaultLogPath())
	if err != nil {
		errLog.Printf("diagnostic log unavailable: %v", err)
		logger = diag.NewNoOp()
	}
	defer logger.Close()

	pf, err := pidfile.Acquire(pidfile.Path("tapedeck"))
	if err != nil {
		errLog.Printf("%v", err)
		os.Exit(1)
	}
	defer func() {
		_ = pf.Release()
	}()

	cfg, err := config.Load(*configPath)
	if err != nil {
		errLog.Printf("%v", err)
		os.Exit(1)
	}

	primary, fallback, err := buildRecognizers(cfg)
	if err != nil {
		errLog.Printf("%v", err)
		os.Exit(1)
	}

	p, err := player.FromPath(mediaPath,
		player.WithSettings(parseMode(*transcriptMode)),
		player.WithRecognizer(primary),
		player.WithFallbackRecognizer(fallback),
		player.WithWindowLength(time.Duration(cfg.WindowSeconds)*time.Second),
		player.WithWorkerInterval(time.Duration(cfg.WorkerPollMs)*time.Millisecond),
		player.WithVolume(cfg.Volume),
		player.WithLogger(logger),
	)
	if err != nil {
		errLog.Printf("open %s: %v", mediaPath, err)
		os.Exit(1)
	}
	defer p.Close()

	m := newModel(p, cfg, mediaPath, logger)
	prog := tea.NewProgram(m)

	go watchConfig(*configPath, prog, logger)

	if _, err := prog.Run(); err != nil {
		errLog.Printf("ui: %v", err)
		os.Exit(1)
	}
}

// buildRecognizers constructs the primary and optional fallback recognizer
// from the registry of configured backends.
func buildRecognizers(cfg *config.Config) (primary, fallback transcribe.Recognizer, err error) {
	reg := transcribe.NewRegistry()
	reg.Register(whispercli.New(whispercli.Config{
		BinaryPath:     cfg.WhisperCLI.BinaryPath,
		ModelPath:      cfg.WhisperCLI.ModelPath,
		Threads:        cfg.WhisperCLI.Threads,
		TimeoutSeconds: cfg.WhisperCLI.TimeoutSeconds,
	}))
	if cfg.OpenAI.APIKey != "" {
		reg.Register(openaiasr.New(openaiasr.Config{
			APIKey: cfg.OpenAI.APIKey,
			Model:  cfg.OpenAI.Model,
		}))
	}
	if cfg.StreamWS.URL != "" {
		reg.Register(streamws.New(streamws.Config{
			URL:           cfg.StreamWS.URL,
			Token:         cfg.StreamWS.Token,
			WindowSeconds: cfg.StreamWS.WindowSeconds,
		}))
	}
	reg.SetPrimary(cfg.Recognizer)
	if cfg.Fallback != "" {
		reg.SetFallback(cfg.Fallback)
	}

	primary = reg.Primary()
	if primary == nil {
		return nil, nil, fmt.Errorf("recognizer %q is not configured", cfg.Recognizer)
	}
	return primary, reg.Fallback(), nil
}

func parseMode(mode string) transcribe.Settings {
	switch mode {
	case "on":
		return transcribe.Enabled
	case "label":
		return transcribe.EnabledWithLabel
	case "timestamps":
		return transcribe.EnabledWithTimestamps
	default:
		return transcribe.Disabled
	}
}

// watchConfig pushes a reload message into the UI whenever the config file
// is rewritten. Watch failure degrades to no live reload.
func watchConfig(path string, prog *tea.Program, logger *diag.Logger) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return
	}
	defer watcher.Close()

	if err := watcher.Add(filepath.Dir(path)); err != nil {
		return
	}

	for {
		select {
		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if event.Name == path && (event.Op&fsnotify.Write != 0 || event.Op&fsnotify.Create != 0) {
				cfg, err := config.Load(path)
				if err != nil {
					prog.Send(configReloadMsg{err: err})
					continue
				}
				logger.Log(diag.LogEntry{Component: diag.ComponentConfig, Event: diag.EventConfigReload})
				prog.Send(configReloadMsg{cfg: cfg})
			}
		case _, ok := <-watcher.Errors:
			if !ok {
				return
			}
		}
	}
}

// ── bubbletea model ──────────────────────────────────────────────────────────

type tickMsg time.Time

type configReloadMsg struct {
	cfg *config.Config
	err error
}

type model struct {
	p          *player.Player
	cfg        *config.Config
	mediaPath  string
	logger     *diag.Logger
	spin       spinner.Model
	frame      player.Frame
	selected   int // transcript segment cursor, -1 none
	notice     string
	lastStatus time.Time
	width      int
}

func newModel(p *player.Player, cfg *config.Config, mediaPath string, logger *diag.Logger) model {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	return model{
		p:         p,
		cfg:       cfg,
		mediaPath: mediaPath,
		logger:    logger,
		spin:      sp,
		selected:  -1,
		width:     80,
	}
}

func (m model) Init() tea.Cmd {
	return tea.Batch(m.spin.Tick, tick(busyTick))
}

func tick(d time.Duration) tea.Cmd {
	return tea.Tick(d, func(t time.Time) tea.Msg { return tickMsg(t) })
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		return m, nil

	case tickMsg:
		m.frame = m.p.Poll()
		m.writeStatus()
		return m, tick(m.nextTick())

	case configReloadMsg:
		if msg.err != nil {
			m.notice = fmt.Sprintf("config reload failed: %v", msg.err)
		} else {
			m.cfg = msg.cfg
			m.notice = "config reloaded"
		}
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spin, cmd = m.spin.Update(msg)
		return m, cmd

	case tea.KeyMsg:
		return m.handleKey(msg)
	}
	return m, nil
}

// nextTick follows the core's repaint hint while playing and falls back to
// a host cadence otherwise, faster while a transcription is in flight.
func (m model) nextTick() time.Duration {
	if m.frame.RepaintAfter > 0 {
		return m.frame.RepaintAfter
	}
	if m.frame.Transcribing {
		return busyTick
	}
	return idleTick
}

func (m model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		return m, tea.Quit

	case " ", "p":
		if err := m.p.Toggle(); err != nil {
			m.notice = err.Error()
		}

	case "left":
		m.p.SeekTo(m.frame.Elapsed - seekStep)

	case "right":
		m.p.SeekTo(m.frame.Elapsed + seekStep)

	case "up", "+":
		m.p.SetVolume(m.p.Volume() + volumeStep)

	case "down", "-":
		m.p.SetVolume(m.p.Volume() - volumeStep)

	case "t":
		if err := m.p.Transcribe(context.Background()); err != nil {
			m.notice = err.Error()
		}

	case "s":
		base := strings.TrimSuffix(m.mediaPath, filepath.Ext(m.mediaPath))
		if err := m.p.SaveTranscript(base, m.cfg.ExportFormats); err != nil {
			m.notice = err.Error()
		} else {
			m.notice = "transcript saved"
		}

	case "tab":
		if n := len(m.frame.Transcript); n > 0 {
			m.selected = (m.selected + 1) % n
		}

	case "enter":
		if m.selected >= 0 && m.selected < len(m.frame.Transcript) {
			m.p.ClickSegment(m.frame.Transcript[m.selected])
		}
	}

	// Reflect the action immediately instead of waiting for the next tick.
	m.frame = m.p.Poll()
	return m, nil
}

func (m *model) writeStatus() {
	if time.Since(m.lastStatus) < statusPeriod {
		return
	}
	m.lastStatus = time.Now()
	_ = status.Write(&status.Snapshot{
		File:         m.mediaPath,
		Kind:         m.p.Kind().String(),
		State:        m.frame.State.String(),
		ElapsedMs:    m.frame.Elapsed.Milliseconds(),
		TotalMs:      m.frame.Total.Milliseconds(),
		Volume:       m.frame.Volume,
		Transcribing: m.frame.Transcribing,
		Segments:     len(m.frame.Transcript),
		LastError:    m.frame.Err,
		Timestamp:    time.Now(),
	})
}

// ── view ─────────────────────────────────────────────────────────────────────

var (
	titleStyle    = lipgloss.NewStyle().Bold(true)
	errStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	noticeStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))
	selectedStyle = lipgloss.NewStyle().Reverse(true)
	helpStyle     = lipgloss.NewStyle().Faint(true)
)

func (m model) View() string {
	var b strings.Builder

	fmt.Fprintf(&b, "%s\n\n", titleStyle.Render(filepath.Base(m.mediaPath)))

	icon := "▶"
	switch m.frame.State {
	case playback.StatePlaying:
		icon = "⏸"
	case playback.StateEnded:
		icon = "↺"
	}
	fmt.Fprintf(&b, " %s  %s / %s  %s  vol %d%%\n",
		icon,
		media.FormatDuration(m.frame.Elapsed),
		media.FormatDuration(m.frame.Total),
		m.progressBar(),
		m.frame.Volume,
	)

	if m.frame.Err != "" {
		fmt.Fprintf(&b, "\n%s\n", errStyle.Render("playback error: "+m.frame.Err))
	}
	if m.notice != "" {
		fmt.Fprintf(&b, "\n%s\n", noticeStyle.Render(m.notice))
	}

	m.renderTranscript(&b)

	b.WriteString(helpStyle.Render("\nspace play/pause · ←/→ seek · ↑/↓ volume · t transcribe · s save · tab/enter jump · q quit\n"))
	return b.String()
}

func (m model) progressBar() string {
	const width = 24
	filled := 0
	if m.frame.Total > 0 {
		filled = int(float64(width) * float64(m.frame.Elapsed) / float64(m.frame.Total))
		if filled > width {
			filled = width
		}
	}
	return "[" + strings.Repeat("=", filled) + strings.Repeat("-", width-filled) + "]"
}

func (m model) renderTranscript(b *strings.Builder) {
	settings := m.p.Settings()
	if settings == transcribe.Disabled || settings == transcribe.Enabled {
		if m.frame.Transcribing {
			fmt.Fprintf(b, "\n%s Transcription in Progress\n", m.spin.View())
		}
		return
	}

	if m.frame.Transcribing {
		fmt.Fprintf(b, "\n%s Transcription in Progress\n", m.spin.View())
	}
	if len(m.frame.Transcript) == 0 {
		return
	}

	b.WriteString("\n")
	for i, seg := range m.frame.Transcript {
		label := strings.TrimRight(seg.Label(settings), "\n")
		if i == m.selected {
			label = selectedStyle.Render(label)
		}
		fmt.Fprintf(b, "%s\n", label)
	}
	if m.frame.TranscriptDone {
		if m.frame.TranscriptErr != "" {
			fmt.Fprintf(b, "%s\n", errStyle.Render("transcription failed: "+m.frame.TranscriptErr))
		} else {
			b.WriteString("--- END OF TRANSCRIPT ---\n")
		}
	}
}
