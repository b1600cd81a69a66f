// Package services implements the business logic layer of the dashboard.
// It sits between the HTTP handlers and the dataprocessing pipeline.
//
// # Services
//
//	- DatasetService: owns the table being served. Reload fetches the source
//	  through a dataprocessing.Cache and swaps the table atomically; Summary,
//	  Records, Options and Export evaluate filters against it.
//	- HealthService: liveness, readiness and version probes.
//
// # Reload Semantics
//
// A reload that fails leaves the previous table in service and broadcasts
// dataset:reload_failed. A reload of unchanged content is a no-op that
// reports changed=false. Only a new table triggers dataset:reloaded.
//
//	res, err := svc.Reload(ctx, events.TriggerAPI)
//	if errors.Is(err, services.ErrReloadFailed) {
//	    // still serving the previous table
//	}
//
// Until the first successful load every read returns an error wrapping
// ErrDatasetNotLoaded.
package services
