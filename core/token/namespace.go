package token

// Namespace is the protocol marker that tags every locking script and scopes
// every bridge query and notification.
type Namespace []byte

// DefaultNamespace is the marker shared by all participants of the protocol.
var DefaultNamespace = Namespace("todo-token")

// Topic is the bridge destination name for the namespace.
func (n Namespace) Topic() string {
	return "tm_" + string(n)
}

// Scope selects a derived key: a protocol identifier plus a key identifier.
type Scope struct {
	ProtocolID string
	KeyID      string
}

// DefaultScope is the key scope used for task payloads and locking keys.
var DefaultScope = Scope{ProtocolID: "todo list", KeyID: "1"}
