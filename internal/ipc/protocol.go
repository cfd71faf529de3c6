// Package ipc exposes the running viva session to other viva processes as a
// small gRPC control service on a unix socket.
package ipc

// Request is one control command for the running session.
type Request struct {
	Command string `json:"command"`
	Text    string `json:"text,omitempty"`
}

type Response struct {
	OK      bool   `json:"ok"`
	State   string `json:"state,omitempty"`
	Message string `json:"message,omitempty"`
	Error   string `json:"error,omitempty"`
}
