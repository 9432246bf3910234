package telegram

import (
	"strconv"

	"github.com/mymmrac/telego"

	"filerelay/pkg/bus"
	"filerelay/pkg/history"
)

// inboundFrom extracts the private or group message of an update.
func inboundFrom(update telego.Update) (bus.InboundMessage, bool) {
	message := update.Message
	if message == nil {
		return bus.InboundMessage{}, false
	}

	senderID := message.Chat.ID
	if message.From != nil {
		senderID = message.From.ID
	}

	return bus.InboundMessage{
		UpdateID:   update.UpdateID,
		MessageID:  message.MessageID,
		ChatID:     message.Chat.ID,
		SenderID:   senderID,
		Text:       message.Text,
		Date:       message.Date,
		Attachment: attachmentOf(message),
	}, true
}

// postFrom converts a channel post. Channels without a public username are
// identified by their numeric id.
func postFrom(message *telego.Message) history.Post {
	chat := message.Chat.Username
	if chat == "" {
		chat = strconv.FormatInt(message.Chat.ID, 10)
	}

	return history.Post{
		Chat:       chat,
		MessageID:  message.MessageID,
		Date:       message.Date,
		Attachment: attachmentOf(message),
	}
}

// attachmentOf picks the file a message carries. Photos use the largest
// size, which Telegram lists last.
func attachmentOf(message *telego.Message) bus.Attachment {
	switch {
	case message.Document != nil:
		return bus.Document{
			FileID:   message.Document.FileID,
			FileName: message.Document.FileName,
			MimeType: message.Document.MimeType,
			Size:     int64(message.Document.FileSize),
		}
	case len(message.Photo) > 0:
		largest := message.Photo[len(message.Photo)-1]
		return bus.Photo{FileID: largest.FileID, Width: largest.Width, Height: largest.Height}
	case message.Video != nil:
		return bus.Video{FileID: message.Video.FileID, FileName: message.Video.FileName}
	case message.Audio != nil:
		return bus.Audio{FileID: message.Audio.FileID, FileName: message.Audio.FileName}
	case message.Voice != nil:
		return bus.Voice{FileID: message.Voice.FileID}
	default:
		return nil
	}
}
