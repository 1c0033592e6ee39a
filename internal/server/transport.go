package server

// Transport is the push channel to a single client. Implementations must not
// block in Send: the table fans out events while holding its lock, so a slow
// client has to be buffered or dropped by the transport itself.
type Transport interface {
	Send(msg *Message) error
	Close() error
}
