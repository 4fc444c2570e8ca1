package ui

import (
	"fmt"
	"io"
	"os/exec"
	"runtime"
	"strings"

	"simcollect/pkg/config"
)

// NotificationSender interface for platform-specific notification implementations
type NotificationSender interface {
	Send(title, message string) error
}

// LinuxNotificationSender sends notifications on Linux using notify-send
type LinuxNotificationSender struct{}

func (l *LinuxNotificationSender) Send(title, message string) error {
	cmd := exec.Command("notify-send", title, message)
	return cmd.Run()
}

// MacOSNotificationSender sends notifications on macOS using osascript
type MacOSNotificationSender struct{}

func (m *MacOSNotificationSender) Send(title, message string) error {
	script := fmt.Sprintf(`display notification %q with title %q`, message, title)
	cmd := exec.Command("osascript", "-e", script)
	return cmd.Run()
}

// WindowsNotificationSender sends notifications on Windows using PowerShell
type WindowsNotificationSender struct{}

func (w *WindowsNotificationSender) Send(title, message string) error {
	script := fmt.Sprintf(`
		[Windows.UI.Notifications.ToastNotificationManager, Windows.UI.Notifications, ContentType = WindowsRuntime] | Out-Null
		[Windows.Data.Xml.Dom.XmlDocument, Windows.Data.Xml.Dom.XmlDocument, ContentType = WindowsRuntime] | Out-Null
		$xml = @"
<toast>
	<visual>
		<binding template="ToastText02">
			<text id="1">%s</text>
			<text id="2">%s</text>
		</binding>
	</visual>
</toast>
"@
		$doc = [Windows.Data.Xml.Dom.XmlDocument]::new()
		$doc.LoadXml($xml)
		$toast = [Windows.UI.Notifications.ToastNotification]::new($doc)
		[Windows.UI.Notifications.ToastNotificationManager]::CreateToastNotifier("simcollect").Show($toast)
	`, xmlEscape(title), xmlEscape(message))

	cmd := exec.Command("powershell", "-NoProfile", "-NonInteractive", "-Command", script)
	return cmd.Run()
}

var xmlReplacer = strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;", `"`, "&quot;")

func xmlEscape(s string) string {
	return xmlReplacer.Replace(s)
}

// platformSender returns the sender for the current platform, or nil.
func platformSender() NotificationSender {
	switch runtime.GOOS {
	case "linux":
		return &LinuxNotificationSender{}
	case "darwin":
		return &MacOSNotificationSender{}
	case "windows":
		return &WindowsNotificationSender{}
	}
	return nil
}

// Notifier announces the end of a session on the terminal and, when
// configured, on the desktop.
type Notifier struct {
	cfg    config.NotificationConfig
	out    io.Writer
	sender NotificationSender
}

// NewNotifier creates a Notifier for cfg writing terminal messages to out
func NewNotifier(cfg config.NotificationConfig, out io.Writer) *Notifier {
	n := &Notifier{cfg: cfg, out: out}
	if cfg.NotificationType == "desktop" {
		n.sender = platformSender()
	}
	return n
}

// WithSender replaces the desktop sender.
func (n *Notifier) WithSender(s NotificationSender) *Notifier {
	n.sender = s
	return n
}

func (n *Notifier) silent() bool {
	return !n.cfg.Enabled || n.cfg.NotificationType == "none"
}

func (n *Notifier) send(title, message string, color func(string) string) {
	fmt.Fprintf(n.out, "\n%s: %s\n", color(title), color(message))

	if n.sender != nil {
		// Notifications are not critical
		_ = n.sender.Send(title, message)
	}
}

// SessionEnded reports a finished session. A nil err is announced when
// OnComplete is set, a failure when OnError is set.
func (n *Notifier) SessionEnded(s Summary, err error) {
	if n.silent() {
		return
	}

	if err != nil {
		if n.cfg.OnError {
			n.send("Collection failed", err.Error(), Red)
		}
		return
	}

	if !n.cfg.OnComplete {
		return
	}
	message := fmt.Sprintf("%d records over %d cycles, %d flushes", s.Fetched, s.Cycles, s.Flushes)
	if failing := s.FailingEndpoints(); len(failing) > 0 {
		message += "; failing: " + strings.Join(failing, ", ")
		n.send("Collection finished", message, Yellow)
		return
	}
	n.send("Collection finished", message, Green)
}
