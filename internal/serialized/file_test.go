package serialized_test

import (
	"bytes"
	"encoding/binary"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/RailyW/manosaba-index-bg-replace/internal/serialized"
	"github.com/RailyW/manosaba-index-bg-replace/internal/unitytest"
)

func textureFile(t *testing.T, version uint32, bigEndian bool) unitytest.File {
	f := unitytest.File{
		Version:   version,
		BigEndian: bigEndian,
		Types:     []unitytest.Type{{ClassID: 28, ScriptTypeIndex: -1, Tree: unitytest.Texture2DTree()}},
		Externals: []string{"library/unity default resources"},
	}
	for i, name := range []string{"first", "second", "third"} {
		v := unitytest.Texture2D(name, 1, 1, 4, []byte{byte(i), 2, 3, 4})
		f.Objects = append(f.Objects, unitytest.Object{PathID: int64(100 + i), Data: f.Encode(t, 0, v)})
	}
	return f
}

func TestParseVersions(t *testing.T) {
	for _, tc := range []struct {
		version   uint32
		bigEndian bool
	}{{17, false}, {21, true}, {22, false}} {
		f, err := serialized.Parse("CAB-test", textureFile(t, tc.version, tc.bigEndian).Bytes())
		require.NoError(t, err, "version %d", tc.version)
		assert.Equal(t, tc.version, f.Version)
		assert.Equal(t, unitytest.UnityVersion, f.UnityVersion)
		assert.True(t, f.EnableTypeTree)
		if tc.bigEndian {
			assert.Equal(t, binary.BigEndian, f.ByteOrder())
		} else {
			assert.Equal(t, binary.LittleEndian, f.ByteOrder())
		}
		require.Len(t, f.Externals, 1)
		assert.Equal(t, "library/unity default resources", f.Externals[0].PathName)

		require.Len(t, f.Objects, 3)
		for i, o := range f.Objects {
			assert.Equal(t, int64(100+i), o.PathID)
			assert.Equal(t, int32(28), o.ClassID)
		}
		assert.Equal(t, "second", f.ObjectName(f.Object(101)))
		assert.Nil(t, f.Object(7))
	}
}

func TestRewriteGrowingObject(t *testing.T) {
	for _, version := range []uint32{19, 22} {
		f, err := serialized.Parse("CAB-test", textureFile(t, version, false).Bytes())
		require.NoError(t, err)
		assert.False(t, f.Dirty())

		o := f.Object(101)
		tree, err := f.Read(o)
		require.NoError(t, err)
		big := bytes.Repeat([]byte{0xAB}, 1001)
		tree["image data"] = big
		tree["m_Width"] = int32(500)
		require.NoError(t, f.Write(o, tree))
		assert.True(t, f.Dirty())

		out, err := f.Bytes()
		require.NoError(t, err)
		assert.False(t, f.Dirty())

		g, err := serialized.Parse("CAB-test", out)
		require.NoError(t, err, "version %d", version)
		require.Len(t, g.Objects, 3)
		for _, o := range g.Objects {
			assert.Zero(t, o.ByteStart%8, "object %d aligned", o.PathID)
		}
		tree, err = g.Read(g.Object(101))
		require.NoError(t, err)
		assert.Equal(t, big, tree["image data"])
		assert.Equal(t, int32(500), tree["m_Width"])

		tree, err = g.Read(g.Object(102))
		require.NoError(t, err)
		assert.Equal(t, "third", tree["m_Name"])
		assert.Equal(t, []byte{2, 2, 3, 4}, tree["image data"])
	}
}

func TestBytesUnchangedIsIdentity(t *testing.T) {
	raw := textureFile(t, 22, false).Bytes()
	f, err := serialized.Parse("CAB-test", raw)
	require.NoError(t, err)
	out, err := f.Bytes()
	require.NoError(t, err)
	assert.Equal(t, raw, out)
}

func TestManagedReferences(t *testing.T) {
	raw := unitytest.ScriptFile(t, unitytest.MonoBehaviour("flashback", "@back Stills/2_1"))
	f, err := serialized.Parse("CAB-script", raw)
	require.NoError(t, err)
	require.Len(t, f.RefTypes, 1)
	assert.Equal(t, unitytest.LineClass, f.RefTypes[0].ClassName)

	tree, err := f.Read(f.Object(2))
	require.NoError(t, err)
	refs := tree["references"].(map[string]any)["RefIds"].([]any)
	data := refs[0].(map[string]any)["data"].(map[string]any)
	assert.Equal(t, "@back Stills/2_1", data["lineText"])
}

func TestParseErrors(t *testing.T) {
	_, err := serialized.Parse("short", []byte{1, 2, 3})
	assert.Error(t, err)

	raw := textureFile(t, 22, false).Bytes()
	old := append([]byte{}, raw...)
	binary.BigEndian.PutUint32(old[8:], 9)
	_, err = serialized.Parse("old", old)
	assert.True(t, errors.Is(err, serialized.ErrUnsupported))

	_, err = serialized.Parse("truncated", raw[:len(raw)-6])
	assert.ErrorContains(t, err, "outside data")
}

func TestReadWithoutTypeTree(t *testing.T) {
	f, err := serialized.Parse("CAB-test", textureFile(t, 22, false).Bytes())
	require.NoError(t, err)
	o := f.Object(100)
	o.Type = nil
	_, err = f.Read(o)
	assert.True(t, errors.Is(err, serialized.ErrNoTypeTree))
	assert.Equal(t, "", f.ObjectName(o))
}
