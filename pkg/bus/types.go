package bus

// InboundMessage is one chat message delivered to the bot.
type InboundMessage struct {
	UpdateID   int        `json:"update_id,omitempty"`
	MessageID  int        `json:"message_id,omitempty"`
	ChatID     int64      `json:"chat_id"`
	SenderID   int64      `json:"sender_id"`
	Text       string     `json:"text"`
	Date       int64      `json:"date"`
	Attachment Attachment `json:"-"`
}

// Reply is one outbound message. A non-zero EditMessageID edits that
// message in place instead of sending a new one.
type Reply struct {
	ChatID        int64  `json:"chat_id"`
	Text          string `json:"text"`
	ParseMode     string `json:"parse_mode,omitempty"`
	EditMessageID int    `json:"edit_message_id,omitempty"`
}

// ChatInfo describes a chat resolved through the messaging API.
type ChatInfo struct {
	ID       int64  `json:"id"`
	Type     string `json:"type"`
	Title    string `json:"title,omitempty"`
	Username string `json:"username,omitempty"`
}

// FileMeta is the messaging API view of a stored file.
type FileMeta struct {
	FileID string `json:"file_id"`
	Path   string `json:"file_path"`
	Size   int64  `json:"file_size"`
}

// Result is what a command handler hands back to the transport: either a
// reply to send, or a marker that the handler already sent everything.
type Result struct {
	reply   Reply
	handled bool
}

// Send wraps a reply the transport must deliver.
func Send(reply Reply) Result {
	return Result{reply: reply}
}

// AlreadyHandled tells the transport to skip its single-reply step.
func AlreadyHandled() Result {
	return Result{handled: true}
}

// Reply returns the reply to deliver and false when the handler already
// delivered its own messages.
func (r Result) Reply() (Reply, bool) {
	if r.handled {
		return Reply{}, false
	}
	return r.reply, true
}
