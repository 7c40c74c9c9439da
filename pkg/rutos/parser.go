package rutos

import (
	"strings"

	"rutosms/pkg/rutos/types"
)

// recordSeparator is the rule the router prints between sms_list records.
const recordSeparator = "------------------------------"

// parseMessageList parses the plaintext response of the sms_list endpoint.
// Records look like:
//
//	Index: 4
//	Date: Wed Dec 28 17:19:31 2022
//	Sender: Tarifinfo
//	Text: some message text
//	Status: read
//	------------------------------
//
// The Status line completes a record. Field values are kept verbatim,
// including the router's date format. Unknown lines are ignored so firmware
// variations don't break the whole list.
func parseMessageList(body string) []types.Message {
	var (
		messages []types.Message
		current  types.Message
	)

	for _, line := range strings.Split(body, "\n") {
		line = strings.TrimRight(line, "\r")

		switch {
		case strings.HasPrefix(line, "Index: "):
			current.Index = strings.TrimPrefix(line, "Index: ")
		case strings.HasPrefix(line, "Date: "):
			current.Date = strings.TrimPrefix(line, "Date: ")
		case strings.HasPrefix(line, "Sender: "):
			current.Sender = strings.TrimPrefix(line, "Sender: ")
		case strings.HasPrefix(line, "Text: "):
			current.Text = strings.TrimPrefix(line, "Text: ")
		case strings.HasPrefix(line, "Status: "):
			current.Status = strings.TrimPrefix(line, "Status: ")
			messages = append(messages, current)
			current = types.Message{}
		case line == recordSeparator:
			current = types.Message{}
		}
	}

	return messages
}
