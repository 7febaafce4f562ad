package server

import (
	"lan-chat/domain/event"
)

// wireEvent is the JSON envelope pushed over the WebSocket.
type wireEvent struct {
	Event string `json:"event"`
	Data  any    `json:"data"`
}

// inboundEvent is what a client sends. send_message is the only supported
// client event.
type inboundEvent struct {
	Event string `json:"event"`
	Data  struct {
		Message string `json:"message"`
	} `json:"data"`
}

type receiveMessagePayload struct {
	Username  string `json:"username"`
	Message   string `json:"message"`
	Timestamp string `json:"timestamp"`
}

type updatePresencePayload struct {
	OnlineUsers []string `json:"online_users"`
}

type userPresencePayload struct {
	Username string `json:"username"`
}

type fileUploadedPayload struct {
	Username string `json:"username"`
	Filename string `json:"filename"`
}

type errorMessagePayload struct {
	Error string `json:"error"`
}

// toWireEvent maps a fan-out event to its wire shape. Returns false for
// events with no wire representation.
func toWireEvent(e event.DomainEvent) (wireEvent, bool) {
	switch evt := e.(type) {
	case event.MessageBroadcast:
		return wireEvent{Event: "receive_message", Data: receiveMessagePayload{
			Username:  evt.Author,
			Message:   evt.Content,
			Timestamp: evt.At.Format("15:04:05"),
		}}, true
	case event.UserJoined:
		return wireEvent{Event: "user_joined", Data: userPresencePayload{
			Username: evt.Name,
		}}, true
	case event.UserLeft:
		return wireEvent{Event: "user_left", Data: userPresencePayload{
			Username: evt.Name,
		}}, true
	case event.PresenceUpdated:
		online := evt.Online
		if online == nil {
			online = []string{}
		}
		return wireEvent{Event: "update_presence", Data: updatePresencePayload{
			OnlineUsers: online,
		}}, true
	case event.FileShared:
		return wireEvent{Event: "file_uploaded", Data: fileUploadedPayload{
			Username: evt.Uploader,
			Filename: evt.Filename,
		}}, true
	case event.DeliveryError:
		return wireEvent{Event: "error_message", Data: errorMessagePayload{
			Error: evt.Reason,
		}}, true
	default:
		return wireEvent{}, false
	}
}
