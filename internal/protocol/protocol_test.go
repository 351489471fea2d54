package protocol

import (
	"encoding/json"
	"testing"

	"github.com/manpreetbhatti/sketchrooms/internal/canvas"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeWrapsPayload(t *testing.T) {
	req := require.New(t)

	raw, err := Encode(EventRoomCreated, RoomCreated{RoomID: "ABC123"})
	req.NoError(err)

	var generic map[string]any
	req.NoError(json.Unmarshal(raw, &generic))
	req.Equal("room-created", generic["event"])
	req.Equal(map[string]any{"roomId": "ABC123"}, generic["data"])
}

func TestDecodeRejectsGarbage(t *testing.T) {
	_, err := Decode(nil)
	assert.ErrorIs(t, err, ErrEmptyMessage)

	_, err = Decode([]byte("not json"))
	assert.Error(t, err)

	_, err = Decode([]byte(`{"data":{}}`))
	assert.Error(t, err)
}

func TestDrawingPayload(t *testing.T) {
	raw := []byte(`{"event":"drawing-event","data":{"size":6,"color":"#FF0000","brush":"spray",` +
		`"prevPoint":{"x":1,"y":2},"currPoint":{"x":3,"y":4}}}`)

	env, err := Decode(raw)
	require.NoError(t, err)
	require.Equal(t, EventDrawing, env.Event)

	var d Drawing
	require.NoError(t, env.Payload(&d))

	s := d.Stroke("alice")
	assert.Equal(t, canvas.BrushSpray, s.Brush)
	assert.Equal(t, "alice", s.OwnerID)
	assert.Equal(t, canvas.Point{X: 3, Y: 4}, s.Curr)
	assert.Zero(t, s.ID)
}

func TestDrawingPayloadValidation(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{name: "unknown brush", data: `{"size":6,"color":"#000","brush":"laser"}`},
		{name: "zero size", data: `{"size":0,"color":"#000","brush":"normal"}`},
		{name: "huge size", data: `{"size":9000,"color":"#000","brush":"normal"}`},
		{name: "missing color", data: `{"size":3,"brush":"normal"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := Envelope{Event: EventDrawing, Data: json.RawMessage(tt.data)}
			var d Drawing
			assert.Error(t, env.Payload(&d))
		})
	}
}

func TestCreateRoomPayload(t *testing.T) {
	req := require.New(t)

	// Given no data, maxUsers stays unset
	var empty CreateRoom
	req.NoError(Envelope{Event: EventCreateRoom}.Payload(&empty))
	req.Nil(empty.MaxUsers)

	var ok CreateRoom
	req.NoError(Envelope{Event: EventCreateRoom, Data: json.RawMessage(`{"maxUsers":2}`)}.Payload(&ok))
	req.Equal(2, *ok.MaxUsers)

	var bad CreateRoom
	req.Error(Envelope{Event: EventCreateRoom, Data: json.RawMessage(`{"maxUsers":0}`)}.Payload(&bad))
}

func TestJoinRoomPayload(t *testing.T) {
	var join JoinRoom
	assert.Error(t, Envelope{Event: EventJoinRoom, Data: json.RawMessage(`{"roomId":""}`)}.Payload(&join))
	assert.Error(t, Envelope{Event: EventJoinRoom, Data: json.RawMessage(`{"roomId":"ab-12"}`)}.Payload(&join))
	assert.NoError(t, Envelope{Event: EventJoinRoom, Data: json.RawMessage(`{"roomId":"ab12CD"}`)}.Payload(&join))
}
