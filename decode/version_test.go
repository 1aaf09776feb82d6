package decode

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func reader(data []byte) *bufio.Reader {
	return bufio.NewReader(bytes.NewReader(data))
}

// appendRecord writes one on-disk record for the given version.
func appendRecord(buf *bytes.Buffer, v Version, path string, eventID uint64, flagBits uint32, nodeID uint64, extraID uint32) {
	buf.WriteString(path)
	buf.WriteByte(0)
	_ = binary.Write(buf, binary.BigEndian, eventID)
	_ = binary.Write(buf, binary.BigEndian, flagBits)
	if v.hasNodeID() {
		_ = binary.Write(buf, binary.LittleEndian, nodeID)
	}
	if v.hasExtraID() {
		_ = binary.Write(buf, binary.NativeEndian, extraID)
	}
}

func TestReadVersionTags(t *testing.T) {
	cases := map[string]Version{
		"1SLD": V1,
		"2SLD": V2,
		"3SLD": V3,
	}
	for tag, want := range cases {
		v, err := readVersion(reader([]byte(tag)))
		require.NoError(t, err, tag)
		assert.Equal(t, want, v, tag)
	}
}

func TestReadVersionUnknownTag(t *testing.T) {
	for _, tag := range []string{"4SLD", "XXXX", "DLS1"} {
		_, err := readVersion(reader([]byte(tag)))
		require.ErrorIs(t, err, ErrUnsupportedVersion, tag)
	}
}

func TestReadVersionCleanEOF(t *testing.T) {
	_, err := readVersion(reader(nil))
	require.ErrorIs(t, err, io.EOF)
	require.NotErrorIs(t, err, io.ErrUnexpectedEOF)
}

func TestReadVersionTruncatedTag(t *testing.T) {
	_, err := readVersion(reader([]byte("1S")))
	require.ErrorIs(t, err, io.ErrUnexpectedEOF)
}

func TestDecodeRecordV1(t *testing.T) {
	var buf bytes.Buffer
	appendRecord(&buf, V1, "/test/path", 0x42, 0x1000_0000, 0, 0)

	n, rec, err := decodeRecord(reader(buf.Bytes()), V1)
	require.NoError(t, err)
	require.NotNil(t, rec)

	assert.Equal(t, len("/test/path")+1+8+4, n)
	assert.Equal(t, "/test/path", rec.Path)
	assert.Equal(t, uint64(0x42), rec.EventID)
	assert.Equal(t, uint32(0x1000_0000), rec.FlagBits)
	assert.Equal(t, "Modified", rec.Flags.Norm)
	assert.Nil(t, rec.NodeID)
	assert.Nil(t, rec.ExtraID)
}

func TestDecodeRecordV2(t *testing.T) {
	var buf bytes.Buffer
	appendRecord(&buf, V2, "/test/path", 0x42, 0x1000_0000, 0x1234, 0)

	n, rec, err := decodeRecord(reader(buf.Bytes()), V2)
	require.NoError(t, err)
	require.NotNil(t, rec)

	assert.Equal(t, len("/test/path")+1+8+4+8, n)
	require.NotNil(t, rec.NodeID)
	assert.Equal(t, uint64(0x1234), *rec.NodeID)
	assert.Nil(t, rec.ExtraID)
}

func TestDecodeRecordV3(t *testing.T) {
	var buf bytes.Buffer
	appendRecord(&buf, V3, "/x", 0x42, 0x1000_0000, 0x1234, 0x5678)

	n, rec, err := decodeRecord(reader(buf.Bytes()), V3)
	require.NoError(t, err)
	require.NotNil(t, rec)

	assert.Equal(t, len("/x")+1+8+4+8+4, n)
	require.NotNil(t, rec.NodeID)
	assert.Equal(t, uint64(0x1234), *rec.NodeID)
	require.NotNil(t, rec.ExtraID)
	assert.Equal(t, uint32(0x5678), *rec.ExtraID)
}

func TestDecodeRecordEmptyPath(t *testing.T) {
	var buf bytes.Buffer
	appendRecord(&buf, V1, "", 0x42, 0x1000_0000, 0, 0)

	_, rec, err := decodeRecord(reader(buf.Bytes()), V1)
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.Equal(t, "", rec.Path)
}

func TestDecodeRecordUnicodePath(t *testing.T) {
	path := "/test/üñíçödé/😀"
	var buf bytes.Buffer
	appendRecord(&buf, V1, path, 1, 0, 0, 0)

	_, rec, err := decodeRecord(reader(buf.Bytes()), V1)
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.Equal(t, path, rec.Path)
}

func TestDecodeRecordInvalidUTF8Path(t *testing.T) {
	var buf bytes.Buffer
	buf.Write([]byte{'/', 'a', 0xff, 0xfe})
	buf.WriteByte(0)
	_ = binary.Write(&buf, binary.BigEndian, uint64(1))
	_ = binary.Write(&buf, binary.BigEndian, uint32(0))

	n, rec, err := decodeRecord(reader(buf.Bytes()), V1)
	require.NoError(t, err)
	require.NotNil(t, rec)
	// Lossy decode replaces the bad bytes; the byte count is still on-disk size.
	assert.Contains(t, rec.Path, "�")
	assert.Equal(t, 4+1+8+4, n)
}

func TestDecodeRecordLongPath(t *testing.T) {
	path := strings.Repeat("/very/long/path", 50)
	var buf bytes.Buffer
	appendRecord(&buf, V1, path, 9, 0, 0, 0)

	n, rec, err := decodeRecord(reader(buf.Bytes()), V1)
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.Equal(t, path, rec.Path)
	assert.Equal(t, len(path)+1+8+4, n)
}

func TestDecodeRecordEndOfInput(t *testing.T) {
	n, rec, err := decodeRecord(reader(nil), V1)
	require.NoError(t, err)
	assert.Nil(t, rec)
	assert.Zero(t, n)
}

func TestDecodeRecordUnterminatedPath(t *testing.T) {
	// Bytes without a NUL terminator read as end of records.
	n, rec, err := decodeRecord(reader([]byte("/partial")), V1)
	require.NoError(t, err)
	assert.Nil(t, rec)
	assert.Zero(t, n)
}

func TestDecodeRecordTruncatedFixedFields(t *testing.T) {
	var buf bytes.Buffer
	buf.WriteString("/test")
	buf.WriteByte(0)
	buf.Write([]byte{1, 2, 3}) // not enough for event id + flags

	_, _, err := decodeRecord(reader(buf.Bytes()), V1)
	require.ErrorIs(t, err, io.ErrUnexpectedEOF)
}

func TestDecodeRecordTruncatedNodeID(t *testing.T) {
	var buf bytes.Buffer
	appendRecord(&buf, V1, "/test", 1, 0, 0, 0) // V1 layout, decoded as V2

	_, _, err := decodeRecord(reader(buf.Bytes()), V2)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "node id")
}
