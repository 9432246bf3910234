// Package commands routes chat commands to their handlers and builds the
// replies the transport sends back.
package commands

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"filerelay/pkg/bus"
	"filerelay/pkg/history"
	"filerelay/pkg/pager"
	"filerelay/pkg/session"
	"filerelay/pkg/storage"
)

// Command identifies one handler.
type Command string

const (
	CommandUnknown  Command = ""
	CommandStart    Command = "/start"
	CommandHelp     Command = "/help"
	CommandChannel  Command = "/channel"
	CommandDate     Command = "/date"
	CommandFiles    Command = "/files"
	CommandDownload Command = "/download"
	CommandSave     Command = "/save"
)

var knownCommands = map[string]Command{
	string(CommandStart):    CommandStart,
	string(CommandHelp):     CommandHelp,
	string(CommandChannel):  CommandChannel,
	string(CommandDate):     CommandDate,
	string(CommandFiles):    CommandFiles,
	string(CommandDownload): CommandDownload,
	string(CommandSave):     CommandSave,
}

// Route selects the command named by the first whitespace-delimited token of
// text. Only the token is lowercased; arguments keep their case.
func Route(text string) Command {
	fields := strings.Fields(text)
	if len(fields) == 0 {
		return CommandUnknown
	}

	return knownCommands[strings.ToLower(fields[0])]
}

// Messenger is the part of the messaging API the handlers need.
type Messenger interface {
	ChatInfo(ctx context.Context, channel string) (bus.ChatInfo, error)
	FileMeta(ctx context.Context, fileID string) (bus.FileMeta, error)
	FileURL(path string) string
	// Deliver sends or edits a message and returns the id of the message.
	Deliver(ctx context.Context, reply bus.Reply) (int, error)
}

// Backends resolves storage backends by the name a user typed.
type Backends interface {
	Lookup(name string) (storage.Uploader, bool)
	Names() []string
}

// Deps are the collaborators a Dispatcher works with.
type Deps struct {
	Messenger Messenger
	Sessions  session.Store
	History   history.Source
	Storage   Backends
	PageSize  int
	Log       *slog.Logger
}

// Dispatcher runs one command per inbound message.
type Dispatcher struct {
	messenger Messenger
	sessions  session.Store
	history   history.Source
	storage   Backends
	pageSize  int
	log       *slog.Logger
}

func New(deps Deps) (*Dispatcher, error) {
	if deps.Messenger == nil {
		return nil, errors.New("messenger is required")
	}
	if deps.Sessions == nil {
		return nil, errors.New("session store is required")
	}
	if deps.History == nil {
		return nil, errors.New("history source is required")
	}
	if deps.Storage == nil {
		return nil, errors.New("storage backends are required")
	}

	pageSize := deps.PageSize
	if pageSize <= 0 {
		pageSize = pager.DefaultPageSize
	}

	log := deps.Log
	if log == nil {
		log = slog.Default()
	}

	return &Dispatcher{
		messenger: deps.Messenger,
		sessions:  deps.Sessions,
		history:   deps.History,
		storage:   deps.Storage,
		pageSize:  pageSize,
		log:       log.With("component", "commands"),
	}, nil
}

// Handle runs the command in msg. It always yields a result; failures are
// rendered as chat replies.
func (d *Dispatcher) Handle(ctx context.Context, msg bus.InboundMessage) bus.Result {
	command := Route(msg.Text)
	args := arguments(msg.Text)

	d.log.Debug("Dispatching command", "command", string(command), "chat_id", msg.ChatID, "sender_id", msg.SenderID)

	switch command {
	case CommandStart, CommandHelp:
		return d.handleStart(msg)
	case CommandChannel:
		return d.handleChannel(ctx, msg, args)
	case CommandDate:
		return d.handleDate(ctx, msg, args)
	case CommandFiles:
		return d.handleFiles(ctx, msg, args)
	case CommandDownload:
		return d.handleDownload(ctx, msg, args)
	case CommandSave:
		return d.handleSave(ctx, msg, args)
	default:
		return reply(msg, msgUnknownCommand)
	}
}

func arguments(text string) []string {
	fields := strings.Fields(text)
	if len(fields) < 2 {
		return nil
	}

	return fields[1:]
}

func reply(msg bus.InboundMessage, text string) bus.Result {
	return bus.Send(bus.Reply{ChatID: msg.ChatID, Text: text})
}

func markdownReply(msg bus.InboundMessage, text string) bus.Result {
	return bus.Send(bus.Reply{ChatID: msg.ChatID, Text: text, ParseMode: ParseModeMarkdown})
}
