// Package logger provides the structured diagnostic message type and the
// stderr sink used by cmd/gotoconv. It keeps the teacher's Log/MsgKind/
// AddMsg shape (a callback-driven sink with a deferred summary line) but
// drops everything specific to source ranges and source maps, since a
// transcode failure reports against an irep node's display string, not a
// span of source text.
package logger

import (
	"fmt"
	"os"
	"sync"
)

type MsgKind uint8

const (
	Error MsgKind = iota
	Warning
	Note
)

func (kind MsgKind) String() string {
	switch kind {
	case Error:
		return "error"
	case Warning:
		return "warning"
	case Note:
		return "note"
	default:
		panic("internal error")
	}
}

// Msg is one diagnostic. Node, when non-empty, is the offending irep node's
// display string (see gbferr.Error.Node) and is rendered as a trailing
// detail line.
type Msg struct {
	Kind  MsgKind
	Text  string
	Node  string
	Notes []string
}

type Log struct {
	AddMsg    func(Msg)
	HasErrors func() bool
	Done      func() []Msg
}

type LogLevel int8

const (
	LevelInfo LogLevel = iota
	LevelWarning
	LevelError
	LevelSilent
)

type UseColor uint8

const (
	ColorIfTerminal UseColor = iota
	ColorNever
	ColorAlways
)

type OutputOptions struct {
	LogLevel LogLevel
	Color    UseColor
}

type TerminalInfo struct {
	IsTTY           bool
	UseColorEscapes bool
	Width           int
	Height          int
}

const defaultTerminalWidth = 80

type Colors struct {
	Reset string
	Bold  string
	Red   string
	Green string
}

var TerminalColors = Colors{
	Reset: "\033[0m",
	Bold:  "\033[1m",
	Red:   "\033[31m",
	Green: "\033[32m",
}

const (
	colorReset          = "\033[0m"
	colorBold           = "\033[1m"
	colorRed            = "\033[31m"
	colorGreen          = "\033[32m"
	colorBlue           = "\033[34m"
	colorCyan           = "\033[36m"
	colorMagenta        = "\033[35m"
	colorYellow         = "\033[33m"
	colorResetDim       = "\033[0;37m"
	colorResetBold      = "\033[0;1m"
	colorResetUnderline = "\033[0;4m"
)

// hasNoColorEnvironmentVariable follows the NO_COLOR convention
// (https://no-color.org): any non-empty value disables color output.
func hasNoColorEnvironmentVariable() bool {
	return os.Getenv("NO_COLOR") != ""
}

// NewStderrLog returns a Log that writes each message the configured log
// level lets through to stderr as it arrives and, only at LevelInfo, prints
// a one-line error/warning summary on Done.
func NewStderrLog(options OutputOptions) Log {
	var mutex sync.Mutex
	var msgs []Msg
	terminalInfo := GetTerminalInfo(os.Stderr)
	errors := 0
	warnings := 0
	hasErrors := false

	switch options.Color {
	case ColorNever:
		terminalInfo.UseColorEscapes = false
	case ColorAlways:
		terminalInfo.UseColorEscapes = SupportsColorEscapes
	}

	return Log{
		AddMsg: func(msg Msg) {
			mutex.Lock()
			defer mutex.Unlock()
			msgs = append(msgs, msg)

			switch msg.Kind {
			case Error:
				hasErrors = true
				errors++
			case Warning:
				warnings++
			}

			if options.LogLevel <= msg.Kind.logLevel() {
				writeStringWithColor(os.Stderr, msg.String(options, terminalInfo))
			}
		},
		HasErrors: func() bool {
			mutex.Lock()
			defer mutex.Unlock()
			return hasErrors
		},
		Done: func() []Msg {
			mutex.Lock()
			defer mutex.Unlock()
			if options.LogLevel <= LevelInfo && (errors != 0 || warnings != 0) {
				writeStringWithColor(os.Stderr, fmt.Sprintf("%s\n", summary(errors, warnings)))
			}
			return msgs
		},
	}
}

// logLevel maps a message kind to the minimum LogLevel at which it is
// shown: errors always show unless LevelSilent, warnings show at
// LevelInfo/LevelWarning, notes are treated the same as warnings.
func (kind MsgKind) logLevel() LogLevel {
	switch kind {
	case Error:
		return LevelError
	default:
		return LevelWarning
	}
}

func summary(errors int, warnings int) string {
	if errors == 0 {
		return plural("warning", warnings)
	}
	if warnings == 0 {
		return plural("error", errors)
	}
	return fmt.Sprintf("%s and %s", plural("error", errors), plural("warning", warnings))
}

func plural(word string, count int) string {
	if count == 1 {
		return fmt.Sprintf("1 %s", word)
	}
	return fmt.Sprintf("%d %ss", count, word)
}

// String renders a single message the way clang renders a diagnostic: a
// bold "kind: text" line, an optional indented node line, then any notes.
func (msg Msg) String(options OutputOptions, terminalInfo TerminalInfo) string {
	kindColor := colorRed
	if msg.Kind == Warning {
		kindColor = colorMagenta
	} else if msg.Kind == Note {
		kindColor = colorCyan
	}

	var text string
	if terminalInfo.UseColorEscapes {
		text = fmt.Sprintf("%s%s%s:%s %s%s\n", colorBold, kindColor, msg.Kind, colorResetBold, msg.Text, colorReset)
	} else {
		text = fmt.Sprintf("%s: %s\n", msg.Kind, msg.Text)
	}

	if msg.Node != "" {
		text += fmt.Sprintf("  node: %s\n", msg.Node)
	}
	for _, note := range msg.Notes {
		text += fmt.Sprintf("  note: %s\n", note)
	}
	return text
}

// PrintErrorToStderr is a one-shot helper for errors raised before a Log
// exists yet (argument parsing, file I/O at the very top of main).
func PrintErrorToStderr(text string) {
	terminalInfo := GetTerminalInfo(os.Stderr)
	msg := Msg{Kind: Error, Text: text}
	writeStringWithColor(os.Stderr, msg.String(OutputOptions{}, terminalInfo))
}
