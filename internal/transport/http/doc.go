// Package http implements the HTTP handlers of the loan dashboard. Handlers
// stay thin: they parse filters from the query string or a JSON body, call
// the dataset service and render the result with go-chi/render.
//
// # Routes
//
//	GET  /api/dashboard/options       distinct values per filterable field
//	GET  /api/dashboard/summary       KPIs and groupings for ?field=value filters
//	POST /api/dashboard/summary       same, with {"filters": {...}}
//	GET  /api/dashboard/records       one page of the filtered view
//	GET  /api/dashboard/export.csv    filtered view as a CSV attachment
//	GET  /api/dashboard/export.xlsx   filtered view as an Excel attachment
//	GET  /api/dashboard/dataset       metadata of the served table
//	POST /api/dashboard/reload        reload the source
//	GET  /api/health[/ready|/live]    probes
//	GET  /api/version                 build information
//
// A filter key repeated in the query string selects several values. A key
// given with an empty value, or an empty JSON array, selects nothing.
//
// # Error Handling
//
// Errors are rendered as RFC 7807 problem details by errors.ErrorHandler:
//
//	{
//	    "type": "/errors/filter/unknown-field",
//	    "title": "Unknown Filter Field",
//	    "status": 400,
//	    "detail": "query parameter \"colour\": unknown filter field \"colour\"",
//	    "instance": "/api/dashboard/summary"
//	}
//
// An unknown filter field answers 400, a request served before the first
// load answers 503 and a failed reload answers 502 while the previous table
// stays in service.
package http
