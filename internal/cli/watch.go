package cli

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/fsnotify/fsnotify"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/rcliao/agent-playbook/internal/delta"
	"github.com/rcliao/agent-playbook/internal/store"
)

// Suffixes given to inbox files once they have been handled.
const (
	appliedSuffix = ".applied"
	failedSuffix  = ".failed"
)

func init() {
	cmd := &cobra.Command{
		Use:   "watch <dir>",
		Short: "Apply delta batches dropped into a directory",
		Long: "Watch a directory for *.json delta batches and apply each one to the playbook. " +
			"Applied files are renamed to *.json.applied, files whose batch fails to apply to *.json.failed. " +
			"Files that do not parse are left in place until they are rewritten.",
		Args: cobra.ExactArgs(1),
		Run:  runWatch,
	}

	RootCmd.AddCommand(cmd)
}

func runWatch(cmd *cobra.Command, args []string) {
	dir := args[0]
	if err := os.MkdirAll(dir, 0o755); err != nil {
		exitErr("create inbox", err)
	}

	s, err := openStore()
	if err != nil {
		exitErr("open store", err)
	}
	defer s.Close()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := watchInbox(ctx, s, cfg.Playbook, dir); err != nil {
		s.Close()
		exitErr("watch", err)
	}
}

// watchInbox drains dir and then applies batches as they appear until ctx
// is done.
func watchInbox(ctx context.Context, s store.Store, name, dir string) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	if err := watcher.Add(dir); err != nil {
		return err
	}

	existing, err := filepath.Glob(filepath.Join(dir, "*.json"))
	if err != nil {
		return err
	}
	for _, path := range existing {
		processInbox(ctx, s, name, path)
	}

	log.WithFields(logrus.Fields{"dir": dir, "playbook": name}).Info("watching inbox")

	for {
		select {
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if event.Op&(fsnotify.Create|fsnotify.Write) == 0 || !strings.HasSuffix(event.Name, ".json") {
				continue
			}
			processInbox(ctx, s, name, event.Name)
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			log.WithError(err).Warn("watcher error")
		case <-ctx.Done():
			log.Info("watch stopped")
			return nil
		}
	}
}

// processInbox applies the batch in path and renames the file by outcome.
// It returns the new path, or "" when the file was left alone.
func processInbox(ctx context.Context, s store.Store, name, path string) string {
	entry := log.WithFields(logrus.Fields{"file": filepath.Base(path), "playbook": name})

	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return ""
	}
	if err != nil {
		entry.WithError(err).Warn("read batch")
		return ""
	}

	batch, err := delta.DecodeBatch(data)
	if err != nil {
		entry.WithError(err).Warn("batch does not parse, leaving in place")
		return ""
	}

	res, err := s.Apply(ctx, name, batch)
	dest := path + appliedSuffix
	switch {
	case err != nil && res == nil:
		entry.WithError(err).Error("apply batch")
		return ""
	case err != nil:
		dest = path + failedSuffix
		entry.WithError(err).WithFields(logrus.Fields{
			"delta":   res.Record.ID,
			"applied": res.Record.Applied,
			"ops":     res.Record.Total,
		}).Warn("batch partially applied")
	default:
		entry.WithFields(logrus.Fields{
			"delta": res.Record.ID,
			"ops":   res.Record.Total,
		}).Info("batch applied")
	}

	if err := os.Rename(path, dest); err != nil {
		entry.WithError(err).Error("rename batch")
		return ""
	}
	return dest
}
