package domain

// Command is a client intent decoded from a connection's event stream.
// Commands never carry a sender: the sender is always the identity
// authenticated at the handshake.
type Command interface {
	Receiver() string
}

// JoinCommand opens (or re-opens) the pairwise room with ReceiverID.
type JoinCommand struct {
	ReceiverID string `json:"receiverId"`
}

func (c JoinCommand) Receiver() string { return c.ReceiverID }

// SendMessageCommand posts a message into the pairwise room with ReceiverID.
type SendMessageCommand struct {
	ReceiverID string `json:"receiverId"`
	Body       string `json:"message"`
}

func (c SendMessageCommand) Receiver() string { return c.ReceiverID }
