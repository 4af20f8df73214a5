package protocol_test

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dstrand/pokerserver/internal/protocol"
)

func TestEncode_RoundTripsThroughEnvelope(t *testing.T) {
	raw, err := protocol.Encode(protocol.TypeActionRequest, protocol.ActionRequest{
		HandID:     "hand-1",
		SeatID:     2,
		Options:    []string{"FOLD", "CALL", "RAISE"},
		CallAmount: 20,
		MinRaise:   20,
		MaxRaise:   1000,
		TimeLimit:  30,
	})
	require.NoError(t, err)

	msgType, data, err := protocol.DecodeEnvelope(raw)
	require.NoError(t, err)
	assert.Equal(t, protocol.TypeActionRequest, msgType)
	assert.Contains(t, string(data), `"hand_id":"hand-1"`)
}

func TestDecodeClientMessage_Action(t *testing.T) {
	raw, err := protocol.Encode(protocol.TypeAction, protocol.ActionIn{Action: "raise", Amount: 100})
	require.NoError(t, err)

	msgType, data, err := protocol.DecodeEnvelope(raw)
	require.NoError(t, err)

	decoded, err := protocol.DecodeClientMessage(msgType, data)
	require.NoError(t, err)

	action, ok := decoded.(*protocol.ActionIn)
	require.True(t, ok)
	assert.Equal(t, "raise", action.Action)
	assert.Equal(t, 100, action.Amount)
}

func TestDecodeClientMessage_AnimationDone(t *testing.T) {
	raw, err := protocol.Encode(protocol.TypeAnimationDone, protocol.AnimationDoneIn{StepType: protocol.TypeHandVisuallyConcluded})
	require.NoError(t, err)

	msgType, data, err := protocol.DecodeEnvelope(raw)
	require.NoError(t, err)

	decoded, err := protocol.DecodeClientMessage(msgType, data)
	require.NoError(t, err)

	done, ok := decoded.(*protocol.AnimationDoneIn)
	require.True(t, ok)
	assert.Equal(t, protocol.TypeHandVisuallyConcluded, done.StepType)
}

func TestDecodeClientMessage_UnknownType(t *testing.T) {
	_, err := protocol.DecodeClientMessage("not_a_type", nil)
	assert.ErrorIs(t, err, protocol.ErrUnknownMessageType)
}

func TestDecodeEnvelope_MissingType(t *testing.T) {
	_, _, err := protocol.DecodeEnvelope([]byte(`{"data":{}}`))
	assert.ErrorIs(t, err, protocol.ErrUnknownMessageType)
}

// TestEncodeConcurrent exercises the pooled buffer under contention — the
// pool must never hand out an aliased buffer to two encoders at once.
func TestEncodeConcurrent(t *testing.T) {
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				raw, err := protocol.Encode(protocol.TypePlayerAction, protocol.PlayerAction{
					SeatID: id, Action: "call", Amount: j,
				})
				assert.NoError(t, err)
				assert.Contains(t, string(raw), `"seat_id":`)
			}
		}(i)
	}
	wg.Wait()
}
