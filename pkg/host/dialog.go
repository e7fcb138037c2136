// Package host wraps the native-shell collaborators the gateway
// delegates to: the file picker and desktop notifications. Both shell
// out to the host's own tools and degrade to a logged no-op when those
// are missing.
package host

import (
	"context"
	"strings"

	execute "github.com/alexellis/go-execute/v2"
	"github.com/charmbracelet/log"
)

// DialogProvider opens the host file picker and returns the chosen
// absolute paths. An empty result means the user cancelled.
type DialogProvider interface {
	OpenFileDialog(ctx context.Context) ([]string, error)
}

// ZenityDialog drives the zenity file-selection dialog.
type ZenityDialog struct {
	logger *log.Logger
}

func NewZenityDialog(logger *log.Logger) *ZenityDialog {
	return &ZenityDialog{logger: logger}
}

func (d *ZenityDialog) OpenFileDialog(ctx context.Context) ([]string, error) {
	task := execute.ExecTask{
		Command: "zenity",
		Args:    []string{"--file-selection", "--multiple", "--separator", "\n"},
	}

	res, err := task.Execute(ctx)
	if err != nil {
		d.logger.Warn("file dialog unavailable", "error", err)
		return nil, nil
	}
	if res.ExitCode != 0 {
		// zenity exits non-zero when the user cancels
		return nil, nil
	}

	return splitDialogOutput(res.Stdout), nil
}

func splitDialogOutput(out string) []string {
	var paths []string
	for _, line := range strings.Split(out, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			paths = append(paths, line)
		}
	}
	return paths
}
