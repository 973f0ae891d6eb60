package watcher

import (
	"fmt"
	"io"
	"os"
	"os/exec"
	"runtime"
)

// FallbackWriter receives alerts when no desktop notifier is available.
var FallbackWriter io.Writer = os.Stderr

// Notify sends a desktop notification for the given alert: osascript on
// macOS, notify-send on Linux, and FallbackWriter everywhere else or when
// the notifier fails.
func Notify(alert Alert) error {
	var err error
	switch runtime.GOOS {
	case "darwin":
		err = exec.Command("osascript", "-e", appleScript(alert)).Run()
	case "linux":
		err = notifySend(alert)
	default:
		err = errNoNotifier
	}
	if err != nil {
		return Print(FallbackWriter, alert)
	}
	return nil
}

var errNoNotifier = fmt.Errorf("no desktop notifier on %s", runtime.GOOS)

func appleScript(alert Alert) string {
	return fmt.Sprintf(`display notification %q with title "orderwatch" subtitle %q`, alert.Message, alert.Title)
}

func notifySend(alert Alert) error {
	path, err := exec.LookPath("notify-send")
	if err != nil {
		return err
	}
	return exec.Command(path, "-u", urgency(alert.Level), "orderwatch: "+alert.Title, alert.Message).Run()
}

// urgency maps an alert level to a notify-send urgency.
func urgency(level string) string {
	switch level {
	case LevelCritical:
		return "critical"
	case LevelInfo:
		return "low"
	default:
		return "normal"
	}
}

// Print writes a one-line rendering of alert to w.
func Print(w io.Writer, alert Alert) error {
	_, err := fmt.Fprintf(w, "[%s] %s: %s\n", alert.Level, alert.Title, alert.Message)
	return err
}
