package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/mattn/go-isatty"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"avatarctl/internal/poller"
	"avatarctl/internal/studio"
)

type statusKind int

const (
	statusInfo statusKind = iota
	statusOK
	statusWarn
	statusError
)

const (
	ansiReset  = "\x1b[0m"
	ansiRed    = "\x1b[31m"
	ansiGreen  = "\x1b[32m"
	ansiYellow = "\x1b[33m"
	ansiBlue   = "\x1b[34m"
)

const (
	statusLabelWidth = 20
	statusIndent     = "  "
)

var titleCaser = cases.Title(language.English)

func renderStatusLine(label string, kind statusKind, message string, colorize bool) string {
	statusText := statusKindLabel(kind)
	if message != "" {
		statusText = fmt.Sprintf("[%s] %s", statusText, message)
	} else {
		statusText = fmt.Sprintf("[%s]", statusText)
	}
	base := fmt.Sprintf("%s%-*s %s", statusIndent, statusLabelWidth, truncateLabel(label)+":", statusText)
	if colorize {
		if color := statusKindColor(kind); color != "" {
			return color + base + ansiReset
		}
	}
	return base
}

func truncateLabel(label string) string {
	runes := []rune(strings.TrimSpace(label))
	if len(runes) <= statusLabelWidth-1 {
		return string(runes)
	}
	return string(runes[:statusLabelWidth-2]) + "…"
}

func statusKindLabel(kind statusKind) string {
	switch kind {
	case statusOK:
		return "OK"
	case statusWarn:
		return "WARN"
	case statusError:
		return "ERROR"
	default:
		return "INFO"
	}
}

func statusKindColor(kind statusKind) string {
	switch kind {
	case statusOK:
		return ansiGreen
	case statusWarn:
		return ansiYellow
	case statusError:
		return ansiRed
	case statusInfo:
		return ansiBlue
	default:
		return ""
	}
}

func shouldColorize(writer io.Writer) bool {
	file, ok := writer.(*os.File)
	if !ok {
		return false
	}
	fd := file.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

// humanize turns an enum such as IN_PROGRESS or admin into "In Progress" or
// "Admin".
func humanize(value string) string {
	value = strings.TrimSpace(strings.ReplaceAll(value, "_", " "))
	if value == "" {
		return "-"
	}
	return titleCaser.String(strings.ToLower(value))
}

func statusKindFor(status studio.Status) statusKind {
	switch status {
	case studio.StatusCompleted:
		return statusOK
	case studio.StatusFailed:
		return statusError
	case studio.StatusCanceled:
		return statusWarn
	default:
		return statusInfo
	}
}

// eventLine renders one poller event for the watch output.
func eventLine(ev poller.Event, colorize bool) string {
	label := ev.Video.Title
	if strings.TrimSpace(label) == "" {
		label = ev.Video.ID
	}
	switch ev.Kind {
	case poller.EventPollError:
		return renderStatusLine(label, statusError, fmt.Sprintf("Polling stopped: %v", ev.Err), colorize)
	case poller.EventTerminal:
		message := humanize(string(ev.Video.Status))
		switch {
		case ev.Video.Status == studio.StatusCompleted && ev.Video.URL() != "":
			message = fmt.Sprintf("%s (%s) %s", message, studio.FormatDuration(ev.Video.DurationSeconds), ev.Video.URL())
		case ev.Video.Error() != "":
			message = fmt.Sprintf("%s: %s", message, ev.Video.Error())
		}
		return renderStatusLine(label, statusKindFor(ev.Video.Status), message, colorize)
	default:
		return renderStatusLine(label, statusInfo, fmt.Sprintf("%s (check %d)", humanize(string(ev.Phase)), ev.Tick), colorize)
	}
}
