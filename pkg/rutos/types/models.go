package types

// Message is one SMS record as reported by the router's sms_list endpoint.
// Date and Status are router-defined strings and are passed through
// verbatim; no parsing or normalization happens anywhere in the system.
// The JSON tags define the wire shape of the bus "received" payload.
type Message struct {
	Index  string `json:"index"`
	Date   string `json:"date"`
	Sender string `json:"sender"`
	Text   string `json:"text"`
	Status string `json:"status"`
}

// SendResult is the outcome of an sms_send call. Raw is the router's
// response body verbatim.
type SendResult struct {
	Raw     string
	Success bool
}

// DeleteResult is the outcome of an sms_delete call.
type DeleteResult struct {
	Raw     string
	Success bool
}
