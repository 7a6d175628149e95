package events

import (
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/prtracker/prdemo/decode"
	"github.com/prtracker/prdemo/diag"
)

func records(t *testing.T, v any) []decode.Record {
	t.Helper()
	recs, ok := v.([]decode.Record)
	require.True(t, ok, "expected []decode.Record, got %T", v)
	return recs
}

func TestPlayerUpdateLayout(t *testing.T) {
	c := &diag.Collector{}
	// flags: team (0), health (3), teamkills (7, unreadable), position (13)
	payload := []byte{
		0x89, 0x20, // flag word, little endian
		0x05,       // playerId
		0x02,       // team
		0x50,       // health
		// position
		0x01, 0x00, 0x02, 0x00, 0x03, 0x00,
	}
	recs := records(t, PlayerUpdateLayout.Decode(payload, c))
	require.Len(t, recs, 1)
	assert.Equal(t,
		"{flags: [1001000100000100], playerId: 5, team: 2, health: 80, position: {x: 1, y: 2, z: 3}}",
		decode.Format(recs[0]))
	assert.Equal(t, 0, c.Len())

	flags, _ := recs[0].Get("flags")
	assert.True(t, flags.([]bool)[7], "unreadable flag is still recorded")
	_, exists := recs[0].Get("teamkills")
	assert.False(t, exists, "unreadable flag has no key")
	assert.Equal(t, []string{"flags", "playerId", "team", "health", "position"}, slices.Collect(recs[0].Keys()))
}

func TestPlayerUpdateLayout_unreadableOnly(t *testing.T) {
	c := &diag.Collector{}
	// teamkills (7) and placeholder (10), followed by a second record
	payload := []byte{
		0x80, 0x04, 0x03,
		0x01, 0x00, 0x04, 0x07,
	}
	recs := records(t, PlayerUpdateLayout.Decode(payload, c))
	require.Len(t, recs, 2)
	assert.Equal(t, 0, c.Len())

	flags, _ := recs[0].Get("flags")
	assert.True(t, flags.([]bool)[7])
	assert.True(t, flags.([]bool)[10])
	assert.Equal(t, []string{"flags", "playerId"}, slices.Collect(recs[0].Keys()))
	team, _ := recs[1].Get("team")
	assert.Equal(t, int8(7), team)
}

func TestPlayerUpdateLayout_multiple(t *testing.T) {
	c := &diag.Collector{}
	payload := []byte{
		// kit only
		0x00, 0x80, 0x01, 'k', 'i', 't', 0x00,
		// isAlive only
		0x00, 0x08, 0x02, 0x01,
	}
	recs := records(t, PlayerUpdateLayout.Decode(payload, c))
	require.Len(t, recs, 2)
	kit, _ := recs[0].Get("kit")
	assert.Equal(t, "kit", kit)
	alive, _ := recs[1].Get("isAlive")
	assert.Equal(t, true, alive)
	id, _ := recs[1].Get("playerId")
	assert.Equal(t, uint8(2), id)
}

func TestPlayerUpdateLayout_vehicleSeat(t *testing.T) {
	tests := []struct {
		name    string
		payload []byte
		expect  string
	}{
		{
			name:    "on foot",
			payload: []byte{0x04, 0x00, 0x01, 0xFF, 0xFF},
			expect:  "{flags: [0010000000000000], playerId: 1, vehicle: {vehicleId: -1}}",
		},
		{
			name:    "seated",
			payload: []byte{0x04, 0x00, 0x01, 0x03, 0x00, 'g', 0x00, 0x01},
			expect:  "{flags: [0010000000000000], playerId: 1, vehicle: {vehicleId: 3, seat: \"g\", slot: 1}}",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := &diag.Collector{}
			recs := records(t, PlayerUpdateLayout.Decode(tt.payload, c))
			require.Len(t, recs, 1)
			assert.Equal(t, tt.expect, decode.Format(recs[0]))
			assert.Equal(t, 0, c.Len())
		})
	}
}

func TestVehicleUpdateLayout_truncated(t *testing.T) {
	c := &diag.Collector{}
	payload := []byte{
		0x03,       // team and position
		0x07, 0x00, // vehicleId
		0x01,       // team
		0x0A, 0x00, // position cut after x
	}
	recs := records(t, VehicleUpdateLayout.Decode(payload, c))
	require.Len(t, recs, 1)
	assert.Equal(t, "{flags: [11000000], vehicleId: 7, team: 1, position: null}", decode.Format(recs[0]))

	ds := c.OfKind(diag.TruncatedRecord)
	require.Len(t, ds, 1)
	assert.Equal(t, "vehicleUpdate", ds[0].Type)
	assert.Equal(t, "position", ds[0].Key)
	assert.Equal(t, 4, ds[0].Offset)
}

func TestVehicleUpdateLayout_truncatedStopsPayload(t *testing.T) {
	c := &diag.Collector{}
	payload := []byte{
		0x0C,       // yaw and health
		0x01, 0x00, // vehicleId
		0x02,       // yaw cut short
	}
	recs := records(t, VehicleUpdateLayout.Decode(payload, c))
	require.Len(t, recs, 1)
	assert.Equal(t, "{flags: [00110000], vehicleId: 1, yaw: null, health: null}", decode.Format(recs[0]))
	assert.Equal(t, 1, c.Len())
}

func TestFlagLayout_truncatedFlags(t *testing.T) {
	c := &diag.Collector{}
	recs := records(t, PlayerUpdateLayout.Decode([]byte{0x01}, c))
	assert.Len(t, recs, 0)
	ds := c.OfKind(diag.TruncatedRecord)
	require.Len(t, ds, 1)
	assert.Equal(t, "flags", ds[0].Key)
}

func TestDefaultOverrides(t *testing.T) {
	o := DefaultOverrides()
	assert.Len(t, o, 2)
	assert.Contains(t, o, "playerUpdate")
	assert.Contains(t, o, "vehicleUpdate")
}
