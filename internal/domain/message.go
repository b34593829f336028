package domain

// Message is the fully-resolved content for one recipient, ready for a
// transport. By the time a message reaches this struct, all recipient-data
// injection is complete; wire encoding (MIME, headers) is the transport's
// concern. Built per-recipient, never persisted.
type Message struct {
	Subject          string `json:"subject"`
	HTMLBody         string `json:"html_body"`
	TextBody         string `json:"text_body"`
	SenderName       string `json:"sender_name"`
	SenderAddress    string `json:"sender_address"`
	ReplyTo          string `json:"reply_to,omitempty"`
	RecipientAddress string `json:"recipient_address"`
}
