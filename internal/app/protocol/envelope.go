/*
Package protocol defines the envelope exchanged between chat clients and the server.

Every frame on a connection is one JSON-encoded Envelope. The Kind field selects which of
the remaining fields are meaningful; unused fields are omitted on the wire.
*/
package protocol

import (
	"encoding/json"
	"fmt"
)

// ServerSender is the sender name of envelopes authored by the server itself.
const ServerSender = "server"

// Kind identifies the type of an envelope.
type Kind string

const (
	// Account requests and their replies.
	KindLogin                 Kind = "LOGIN"
	KindRegister              Kind = "REGISTER"
	KindRegisterResponse      Kind = "REGISTER_RESPONSE"
	KindFindPassword          Kind = "FIND_PASSWORD"
	KindFindPasswordResponse  Kind = "FIND_PASSWORD_RESPONSE"
	KindResetPassword         Kind = "RESET_PASSWORD"
	KindResetPasswordResponse Kind = "RESET_PASSWORD_RESPONSE"

	// Chat payloads. Server notices reuse PRIVATE_CHAT and GROUP_CHAT.
	KindPrivateChat Kind = "PRIVATE_CHAT"
	KindGroupChat   Kind = "GROUP_CHAT"
	KindFilePrivate Kind = "FILE_PRIVATE"
	KindFileGroup   Kind = "FILE_GROUP"
	KindShake       Kind = "SHAKE"

	// Group management.
	KindCreateGroup  Kind = "CREATE_GROUP"
	KindSearchGroup  Kind = "SEARCH_GROUP"
	KindJoinGroup    Kind = "JOIN_GROUP"
	KindLeaveGroup   Kind = "LEAVE_GROUP"
	KindGetGroupList Kind = "GET_GROUP_LIST"
	KindGroupList    Kind = "GROUP_LIST"

	// Presence.
	KindGetOnlineUsers Kind = "GET_ONLINE_USERS"
	KindOnlineUsers    Kind = "ONLINE_USERS"
	KindOnlineNotify   Kind = "ONLINE_NOTIFY"
	KindOfflineNotify  Kind = "OFFLINE_NOTIFY"
)

// accountKinds are the only kinds accepted before a session has logged in.
var accountKinds = map[Kind]struct{}{
	KindLogin:         {},
	KindRegister:      {},
	KindFindPassword:  {},
	KindResetPassword: {},
}

// AllowedBeforeLogin reports whether k may be sent by an unauthenticated session.
func (k Kind) AllowedBeforeLogin() bool {
	_, ok := accountKinds[k]
	return ok
}

var requestKinds = map[Kind]struct{}{
	KindLogin:          {},
	KindRegister:       {},
	KindFindPassword:   {},
	KindResetPassword:  {},
	KindPrivateChat:    {},
	KindGroupChat:      {},
	KindFilePrivate:    {},
	KindFileGroup:      {},
	KindShake:          {},
	KindCreateGroup:    {},
	KindSearchGroup:    {},
	KindJoinGroup:      {},
	KindLeaveGroup:     {},
	KindGetGroupList:   {},
	KindGetOnlineUsers: {},
}

// IsRequest reports whether k is a kind clients may send to the server.
func (k Kind) IsRequest() bool {
	_, ok := requestKinds[k]
	return ok
}

// GroupInfo is the wire snapshot of one group.
type GroupInfo struct {
	ID      string   `json:"groupId"`
	Name    string   `json:"name"`
	Members []string `json:"members"`
}

// Envelope is one message on the wire.
type Envelope struct {
	Kind     Kind   `json:"kind"`
	Sender   string `json:"sender,omitempty"`
	Receiver string `json:"receiver,omitempty"`
	Content  string `json:"content,omitempty"`

	// Code is 0 on success replies and an errs code on failures. Omitted on relayed payloads.
	Code int `json:"code,omitempty"`

	// Password is reused by LOGIN, REGISTER and RESET_PASSWORD.
	Password string `json:"password,omitempty"`

	FileName string `json:"fileName,omitempty"`
	FileSize int64  `json:"fileSize,omitempty"`
	FileData []byte `json:"fileData,omitempty"`

	OnlineUsers []string    `json:"onlineUsers,omitempty"`
	GroupList   []GroupInfo `json:"groupList,omitempty"`
}

// IsFile reports whether the envelope carries a file payload.
func (e Envelope) IsFile() bool {
	return e.Kind == KindFilePrivate || e.Kind == KindFileGroup
}

// Notice builds a server-authored text envelope addressed to receiver.
func Notice(kind Kind, receiver, content string, code int) Envelope {
	return Envelope{
		Kind:     kind,
		Sender:   ServerSender,
		Receiver: receiver,
		Content:  content,
		Code:     code,
	}
}

// Encode serializes env into one frame.
func Encode(env Envelope) ([]byte, error) {
	frame, err := json.Marshal(env)
	if err != nil {
		return nil, fmt.Errorf("encode %s envelope: %w", env.Kind, err)
	}
	return frame, nil
}

// Decode parses one frame into an Envelope. A frame without a kind is rejected.
func Decode(frame []byte) (Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(frame, &env); err != nil {
		return Envelope{}, fmt.Errorf("decode envelope: %w", err)
	}

	if env.Kind == "" {
		return Envelope{}, fmt.Errorf("decode envelope: missing kind")
	}
	return env, nil
}
