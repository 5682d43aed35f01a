package logtail

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/fsnotify/fsnotify"
	"vawter.tech/stopper"
)

const followStopGrace = 100 * time.Millisecond

// Follow streams bytes appended to path into w until ctx is canceled.
// The watch starts at the current end of file. Cancellation is a clean
// return; the stream disappearing out from under us is an error.
func Follow(ctx context.Context, path string, w io.Writer) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	if _, err := f.Seek(0, io.SeekEnd); err != nil {
		_ = f.Close()
		return err
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		_ = f.Close()
		return err
	}
	if err := watcher.Add(path); err != nil {
		_ = watcher.Close()
		_ = f.Close()
		return err
	}

	sctx := stopper.WithContext(ctx)
	sctx.Defer(func() {
		_ = watcher.Close()
		_ = f.Close()
	})
	sctx.Go(func(sctx *stopper.Context) error {
		defer sctx.Stop(followStopGrace)
		// Catch up on anything appended between open and watch.
		if _, err := io.Copy(w, f); err != nil {
			return err
		}
		for {
			select {
			case <-sctx.Stopping():
				return nil
			case <-ctx.Done():
				return nil
			case ev, ok := <-watcher.Events:
				if !ok {
					return nil
				}
				if ev.Has(fsnotify.Write) {
					if _, err := io.Copy(w, f); err != nil {
						return err
					}
				}
				if ev.Has(fsnotify.Remove) || ev.Has(fsnotify.Rename) {
					return fmt.Errorf("log stream %s went away", path)
				}
			case err, ok := <-watcher.Errors:
				if !ok {
					return nil
				}
				if err != nil {
					return err
				}
			}
		}
	})

	err = sctx.Wait()
	if ctx.Err() != nil {
		return nil
	}
	return err
}
