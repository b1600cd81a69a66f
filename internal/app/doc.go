// Package app wires the loan dashboard together and manages its lifecycle.
//
// NewApplication builds every component from a config.Config: the dataset
// source (a spreadsheet file or a Google Sheet), the memoizing cache, the
// dataset service, the WebSocket hub, the optional file watcher and the
// chi router. Nothing is loaded until Start, which performs the initial
// load, starts the hub and watcher, and begins serving. A failed initial
// load does not stop the server; dashboard routes answer 503 until a reload
// succeeds.
//
// The /ws route is registered ahead of the instrumented middleware group so
// the upgrade can hijack the connection.
//
// Usage:
//
//	app, err := app.New(ctx)
//	if err != nil {
//	    return err
//	}
//	return app.Run(ctx)
package app
