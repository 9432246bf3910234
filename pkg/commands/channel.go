package commands

import (
	"context"
	"fmt"

	"filerelay/pkg/bus"
	"filerelay/pkg/history"
	"filerelay/pkg/upstream"
)

func (d *Dispatcher) handleStart(msg bus.InboundMessage) bus.Result {
	return markdownReply(msg, msgWelcome)
}

func (d *Dispatcher) handleChannel(ctx context.Context, msg bus.InboundMessage, args []string) bus.Result {
	if len(args) == 0 {
		return reply(msg, msgChannelUsage)
	}

	typed := args[0]
	name := history.NormalizeChannel(typed)
	if name == "" {
		return reply(msg, msgChannelUsage)
	}

	if _, err := d.messenger.ChatInfo(ctx, name); err != nil {
		d.log.Info("Channel lookup failed", "channel", name, "error", err)
		return reply(msg, fmt.Sprintf(msgChannelNoAccess, typed))
	}

	if err := d.sessions.Put(ctx, msg.SenderID, name); err != nil {
		d.log.Error("Failed to store channel selection", "sender_id", msg.SenderID, "channel", name, "error", err)
		return reply(msg, fmt.Sprintf(msgChannelSaveFailed, upstream.Describe(err)))
	}

	return reply(msg, fmt.Sprintf(msgChannelSet, typed))
}

// selectedChannel returns the sender's channel, or a ready reply when there
// is none.
func (d *Dispatcher) selectedChannel(ctx context.Context, msg bus.InboundMessage) (string, *bus.Result) {
	channel, ok, err := d.sessions.Get(ctx, msg.SenderID)
	if err != nil {
		d.log.Error("Failed to read channel selection", "sender_id", msg.SenderID, "error", err)
		result := reply(msg, fmt.Sprintf(msgListFailed, upstream.Describe(err)))
		return "", &result
	}
	if !ok || channel == "" {
		result := reply(msg, msgNoChannel)
		return "", &result
	}

	return channel, nil
}
