package types

// Message is a single stored message as it is delivered to clients.
// Thread starters have a nil ReplyTo; replies carry the id of their starter.
type Message struct {
	Id        int    `json:"id"`
	Content   string `json:"content"`
	ReplyTo   *int   `json:"reply_to"`
	Timestamp int64  `json:"timestamp"`
}

// Updates is the response to a poll: the messages the session has not yet
// received, and whether the client must drop its cached history first.
type Updates struct {
	CleanStored bool      `json:"clean_stored"`
	Messages    []Message `json:"messages"`
}
