package protocol

import (
	"bytes"
	"encoding/json"
	"errors"
	"sync"
)

// ErrUnknownMessageType is returned when DecodeClientMessage encounters a
// `type` with no registered payload shape, and by DecodeEnvelope when the
// `type` is empty.
var ErrUnknownMessageType = errors.New("protocol: unknown message type")

var bufferPool = sync.Pool{
	New: func() interface{} {
		return &bytes.Buffer{}
	},
}

// Encode wraps a typed payload in an Envelope and serializes it to JSON,
// one message per frame.
func Encode(msgType string, data any) ([]byte, error) {
	buf := bufferPool.Get().(*bytes.Buffer)
	buf.Reset()
	defer bufferPool.Put(buf)

	if err := json.NewEncoder(buf).Encode(Envelope{Type: msgType, Data: data}); err != nil {
		return nil, err
	}

	out := make([]byte, buf.Len())
	copy(out, buf.Bytes())
	return out, nil
}

// DecodeEnvelope reads only the envelope, leaving Data as raw JSON for the
// caller to dispatch on Type.
func DecodeEnvelope(raw []byte) (string, json.RawMessage, error) {
	var env struct {
		Type string          `json:"type"`
		Data json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(raw, &env); err != nil {
		return "", nil, err
	}
	if env.Type == "" {
		return "", nil, ErrUnknownMessageType
	}
	return env.Type, env.Data, nil
}

// DecodeClientMessage dispatches a client->server envelope's raw data into
// its typed payload, selected by the type-switch below — the same
// discriminated-union pattern the teacher used for msgpack, adapted to JSON.
func DecodeClientMessage(msgType string, data json.RawMessage) (any, error) {
	switch msgType {
	case TypeAction:
		var v ActionIn
		if err := json.Unmarshal(data, &v); err != nil {
			return nil, err
		}
		return &v, nil
	case TypeChatIn:
		var v ChatIn
		if err := json.Unmarshal(data, &v); err != nil {
			return nil, err
		}
		return &v, nil
	case TypePing:
		var v PingIn
		if err := json.Unmarshal(data, &v); err != nil {
			return nil, err
		}
		return &v, nil
	case TypeAnimationDone:
		var v AnimationDoneIn
		if err := json.Unmarshal(data, &v); err != nil {
			return nil, err
		}
		return &v, nil
	default:
		return nil, ErrUnknownMessageType
	}
}
