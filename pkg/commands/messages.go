package commands

// ParseModeMarkdown is the Bot API legacy Markdown mode.
const ParseModeMarkdown = "Markdown"

const (
	msgWelcome = "Welcome to the channel file bot!\n\n" +
		"Available commands:\n" +
		"/channel @name - choose the channel to browse\n" +
		"/date YYYY-MM-DD - list the files posted on a day\n" +
		"/files .pdf - list files with an extension\n" +
		"/download FILE_ID - get a download link\n" +
		"/save FILE_ID [alist|webdav] - save a file to a storage backend"

	msgUnknownCommand = "Unknown command. Use /help to see available commands."

	msgChannelUsage      = "Please specify a channel, for example: /channel @channelname"
	msgChannelNoAccess   = "Cannot access channel %s. Make sure the channel is public and the bot has access to it."
	msgChannelSet        = "Channel set: %s\n\nUse /date YYYY-MM-DD to list the files posted on a day."
	msgChannelSaveFailed = "Failed to remember the channel: %s"

	msgNoChannel = "Please choose a channel first with /channel"

	msgDateUsage    = "Please specify a date, for example: /date 2023-11-01"
	msgDateInvalid  = "Invalid date format, use YYYY-MM-DD"
	msgNoMessages   = "No messages found on %s"
	msgNoFiles      = "No files found on %s"
	msgDateHeader   = "Files from %s:\n\n"
	msgDateItem     = "%d. [%s] %s\nUse /download %s to download\n\n"
	msgDateItemLink = "%d. [%s] %s\nOpen %s to download\n\n"

	msgFilesUsage     = "Please specify a file extension, for example: /files .pdf"
	msgFilesBadSuffix = "The extension must start with a dot, for example: .pdf"
	msgFilesNone      = "No files found with extension %s"
	msgFilesHeader    = "Files with extension %s:\n\n"
	msgFilesDay       = "📅 %s\n"
	msgFilesItem      = "%d. %s\nUse /download %s to download\n\n"
	msgFilesItemLink  = "%d. %s\nOpen %s to download\n\n"
	msgFilesPage      = "[page %d/%d]\n\n%s"
	msgFilesDone      = "File list sent."

	msgListFailed = "Failed to fetch the file list: %s"

	msgDownloadUsage  = "Please specify a file ID, for example: /download FILE_ID"
	msgFileInfoFailed = "Cannot get file info: %s"
	msgLinkFailed     = "Failed to get the download link: %s"
	msgLinkLarge      = "⚠️ File size is %.2fMB, which exceeds the safe handling limit.\n\n" +
		"Download it directly with this link: [Download](%s)\n\n" + msgLinkExpiry
	msgLink       = "Download link: [Download](%s)\n\n" + msgLinkExpiry
	msgLinkExpiry = "Note: this link is only valid for a limited time, download it soon."

	msgSaveUsage       = "Please specify a file ID, for example: /save FILE_ID [alist|webdav]"
	msgSaveUnsupported = "Unsupported storage type: %s. Supported: %s"
	msgSaveProgress    = "Saving the file to the storage backend, please wait..."
	msgSaveDone        = "File saved to %s: %s"
	msgSaveFailed      = "Failed to save the file: %s"
	msgSaveError       = "Error while saving the file: %s"
)
