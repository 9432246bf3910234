package channel

import (
	"context"
	"net/http"

	"filerelay/pkg/bus"
)

// Handler runs the command in one inbound message and delivers its replies.
type Handler func(context.Context, bus.InboundMessage) error

// Adapter bridges one external transport (long polling, webhook) into the
// command dispatcher.
type Adapter interface {
	Name() string
	Run(context.Context, Handler) error
}

// HTTPAdapter is an adapter that receives its traffic through the gateway
// HTTP server.
type HTTPAdapter interface {
	Adapter
	http.Handler
	Pattern() string
}
