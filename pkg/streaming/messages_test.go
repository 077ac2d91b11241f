package streaming

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/potamap/potamap/pkg/core"
)

func TestMarkersMessage(t *testing.T) {
	data, err := MarkersMessage(core.MarkerSet{Seq: 3, Markers: []core.Marker{{Reference: "K-0001", Lat: 40, Lon: -105}}})
	require.NoError(t, err)

	var env Envelope
	require.NoError(t, json.Unmarshal(data, &env))
	assert.Equal(t, TypeMarkers, env.Type)
	assert.Contains(t, string(env.Payload), `"seq":3`)
	assert.Contains(t, string(env.Payload), `"reference":"K-0001"`)

	set, err := DecodeMarkers(data)
	require.NoError(t, err)
	assert.Equal(t, uint64(3), set.Seq)
	assert.Equal(t, 1, set.Len())
}

func TestDecodeMarkers_WrongType(t *testing.T) {
	_, err := DecodeMarkers([]byte(`{"type":"ack","payload":{}}`))
	assert.Error(t, err)
}

func TestDecodeMarkers_Garbage(t *testing.T) {
	_, err := DecodeMarkers([]byte(`not json`))
	assert.Error(t, err)
}

func TestEncode_Unmarshalable(t *testing.T) {
	_, err := Encode("bad", make(chan int))
	assert.Error(t, err)
}
