// Package files provides the file system side of the dashboard.
//
// This package contains three components:
//
// Discovery: lists the spreadsheets in a directory and resolves a configured
// dataset path that points at a directory to its newest file.
//
// Watcher: watches the dataset file with fsnotify and calls a reload function
// once per debounced burst of writes.
//
// Manager: writes export files atomically under the exports directory.
//
// Example usage:
//
//	path, err := files.NewDiscovery(baseDir).ResolveDataset("data")
//
//	w, err := files.NewWatcher(path, 500*time.Millisecond, func(ctx context.Context) error {
//	    _, err := svc.Reload(ctx, events.TriggerWatcher)
//	    return err
//	}, logger)
//	if err := w.Start(ctx); err != nil {
//	    return err
//	}
//	defer w.Stop()
package files
