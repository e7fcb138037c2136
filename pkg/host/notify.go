package host

import (
	"context"

	execute "github.com/alexellis/go-execute/v2"
	"github.com/charmbracelet/log"
)

// Notification is one host-level toast.
type Notification struct {
	Title    string `json:"title"`
	Body     string `json:"body"`
	Severity string `json:"severity"`
}

// Notifier delivers a notification to the host shell. Fire-and-forget:
// delivery failures are logged, never returned.
type Notifier interface {
	Notify(ctx context.Context, n Notification)
}

// DesktopNotifier delivers through notify-send.
type DesktopNotifier struct {
	logger *log.Logger
}

func NewDesktopNotifier(logger *log.Logger) *DesktopNotifier {
	return &DesktopNotifier{logger: logger}
}

func (d *DesktopNotifier) Notify(ctx context.Context, n Notification) {
	task := execute.ExecTask{
		Command: "notify-send",
		Args:    []string{"--urgency", urgency(n.Severity), n.Title, n.Body},
	}

	if res, err := task.Execute(ctx); err != nil {
		d.logger.Debug("notification skipped", "title", n.Title, "error", err)
	} else if res.ExitCode != 0 {
		d.logger.Debug("notification failed", "title", n.Title, "stderr", res.Stderr)
	}
}

func urgency(severity string) string {
	switch severity {
	case "error":
		return "critical"
	case "warning", "warn":
		return "normal"
	default:
		return "low"
	}
}
