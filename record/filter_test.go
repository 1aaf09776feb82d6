package record

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	bitFileEvent = 0x0000_8000
	bitModified  = 0x1000_0000
	bitRenamed   = 0x0800_0000
)

func rec(path string, bits uint32) *Record {
	return &Record{Path: path, FlagBits: bits}
}

func TestFilterZeroValueAcceptsAll(t *testing.T) {
	f := &Filter{}
	assert.True(t, f.Accepts(rec("/anything", 0)))
	assert.True(t, f.Accepts(rec("", bitModified)))
}

func TestFilterAnyFlags(t *testing.T) {
	f, err := NewFilter("", nil, []string{"Modified"}, nil)
	require.NoError(t, err)

	assert.True(t, f.Accepts(rec("/a", bitModified|bitRenamed)))
	assert.False(t, f.Accepts(rec("/a", bitRenamed)))
}

func TestFilterAllFlags(t *testing.T) {
	f, err := NewFilter("", nil, nil, []string{"Modified", "FileEvent"})
	require.NoError(t, err)

	assert.False(t, f.Accepts(rec("/a", bitModified)))
	assert.False(t, f.Accepts(rec("/a", bitFileEvent)))
	assert.True(t, f.Accepts(rec("/a", bitModified|bitFileEvent)))
	assert.True(t, f.Accepts(rec("/a", bitModified|bitFileEvent|bitRenamed)))
}

func TestFilterPathRegex(t *testing.T) {
	f, err := NewFilter(`\.(log|plist)$`, nil, nil, nil)
	require.NoError(t, err)

	assert.True(t, f.Accepts(rec("/var/log/system.log", 0)))
	assert.True(t, f.Accepts(rec("/Library/Preferences/loginwindow.plist", 0)))
	assert.False(t, f.Accepts(rec("/Users/me/file.txt", 0)))
}

func TestFilterPathGlobs(t *testing.T) {
	f, err := NewFilter("", []string{"/Users/*/Library/**", "/tmp/*"}, nil, nil)
	require.NoError(t, err)

	assert.True(t, f.Accepts(rec("/Users/me/Library/Caches/x", 0)))
	assert.True(t, f.Accepts(rec("/tmp/scratch", 0)))
	assert.False(t, f.Accepts(rec("/var/db/x", 0)))
}

func TestFilterCombined(t *testing.T) {
	f, err := NewFilter(`Library`, nil, []string{"Created", "Modified"}, nil)
	require.NoError(t, err)

	assert.True(t, f.Accepts(rec("/Users/me/Library/x", bitModified)))
	assert.False(t, f.Accepts(rec("/Users/me/Library/x", bitRenamed)))
	assert.False(t, f.Accepts(rec("/Users/me/Documents/x", bitModified)))
}

func TestFilterUnknownFlagName(t *testing.T) {
	_, err := NewFilter("", nil, []string{"Sprocket"}, nil)
	require.Error(t, err)

	_, err = NewFilter("", nil, nil, []string{"Sprocket"})
	require.Error(t, err)
}

func TestFilterBadPatterns(t *testing.T) {
	_, err := NewFilter("(", nil, nil, nil)
	require.Error(t, err)

	_, err = NewFilter("", []string{"[unterminated"}, nil, nil)
	require.Error(t, err)
}
