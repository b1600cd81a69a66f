// Package websocket pushes dataset events to dashboard clients.
//
// A Hub owns the set of connected clients. It greets each new client with
// the dataset it will query and fans out dataset:reloaded and
// dataset:reload_failed events published through Broadcast. Slow clients
// whose send buffer fills up are disconnected rather than blocking the hub.
package websocket
