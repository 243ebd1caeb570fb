package wire

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/encoding/protowire"
)

func TestResultRoundTrip(t *testing.T) {
	in := Result{Code: 7, Msg: "kv backend down"}

	data, err := in.MarshalWire()
	require.NoError(t, err)

	var out Result
	require.NoError(t, out.UnmarshalWire(data))
	assert.Equal(t, in, out)
}

func TestZeroResultRoundTripsExplicitly(t *testing.T) {
	// A success envelope must survive the trip even though every field is
	// at its zero value.
	in := &DelResponse{}

	data, err := in.MarshalWire()
	require.NoError(t, err)
	require.NotEmpty(t, data, "result field should always be emitted")

	var out DelResponse
	require.NoError(t, out.UnmarshalWire(data))
	assert.Equal(t, int32(0), out.Result.Code)
}

func TestSetResponseRoundTrip(t *testing.T) {
	in := &SetResponse{
		Result:  Result{Code: 2, Msg: "failed to save session"},
		Session: "6c6f6e6768657861646563696d616c21",
	}

	data, err := in.MarshalWire()
	require.NoError(t, err)

	var out SetResponse
	require.NoError(t, out.UnmarshalWire(data))
	assert.Equal(t, *in, out)
}

func TestGetResponseLargeUID(t *testing.T) {
	in := &GetResponse{UID: 1<<62 + 12345}

	data, err := in.MarshalWire()
	require.NoError(t, err)

	var out GetResponse
	require.NoError(t, out.UnmarshalWire(data))
	assert.Equal(t, in.UID, out.UID)
}

func TestUnknownFieldsSkipped(t *testing.T) {
	in := &GetResponse{UID: 42}
	data, err := in.MarshalWire()
	require.NoError(t, err)

	// A newer peer may append fields this revision has never heard of.
	data = protowire.AppendTag(data, 9, protowire.VarintType)
	data = protowire.AppendVarint(data, 1234)
	data = protowire.AppendTag(data, 10, protowire.BytesType)
	data = protowire.AppendString(data, "future payload")

	var out GetResponse
	require.NoError(t, out.UnmarshalWire(data))
	assert.Equal(t, int64(42), out.UID)
}

func TestTruncatedBufferFails(t *testing.T) {
	in := &SetResponse{Session: "abcdef0123456789"}
	data, err := in.MarshalWire()
	require.NoError(t, err)

	var out SetResponse
	assert.Error(t, out.UnmarshalWire(data[:len(data)-3]))
}

func TestCodecRejectsForeignTypes(t *testing.T) {
	var c Codec

	_, err := c.Marshal(struct{}{})
	assert.Error(t, err)

	assert.Error(t, c.Unmarshal(nil, &struct{}{}))
	assert.Equal(t, CodecName, c.Name())
}

func TestCodecRoundTrip(t *testing.T) {
	var c Codec

	data, err := c.Marshal(&SetRequest{UID: 777})
	require.NoError(t, err)

	var out SetRequest
	require.NoError(t, c.Unmarshal(data, &out))
	assert.Equal(t, int64(777), out.UID)
}
