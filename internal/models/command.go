package models

// CommandKind identifies the action requested on a command topic.
type CommandKind string

const (
	CommandSendSingle CommandKind = "send_single"
	CommandSendGroup  CommandKind = "send_group"
	CommandDelete     CommandKind = "delete"
)

// Command is a parsed bus command. Exactly one of Recipient, Group or Index
// is set depending on Kind. Immutable once parsed.
type Command struct {
	Kind      CommandKind
	Recipient string
	Group     string
	Index     string
	Body      string
}

// CommandResult is the payload published on a result topic after the router
// call for a command has returned. Response carries the router's raw reply
// verbatim; Error is set only on failure.
type CommandResult struct {
	ID       string `json:"id"`
	Index    string `json:"index,omitempty"`
	Success  bool   `json:"success"`
	Response string `json:"response,omitempty"`
	Error    string `json:"error,omitempty"`
}
