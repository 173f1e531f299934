package state

import (
	"fmt"
	"testing"

	"github.com/golang/mock/gomock"
	"github.com/pkg/errors"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/storage"
	"golang.org/x/sync/errgroup"

	"github.com/openvp/affe/pkg/types"
)

func memoryDB(t *testing.T) *leveldb.DB {
	db, err := leveldb.Open(storage.NewMemStorage(), nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestScriptStateValue(t *testing.T) {
	host := types.NewClass("Host", nil)
	s := NewMemory()
	require.NoError(t, s.SetValue("f", float32(2.5)))
	require.NoError(t, s.SetValue("s", "text"))
	require.NoError(t, s.SetValue("n", nil))

	for _, test := range []struct {
		name     string
		typ      *types.Type
		expected any
	}{
		{"f", types.Typ[types.Float32], float32(2.5)},
		{"f", types.Typ[types.Int32], int32(2)},
		{"f", types.Typ[types.Float64], float64(2.5)},
		{"missing", types.Typ[types.Float32], float32(0)},
		{"missing", types.Typ[types.Bool], false},
		{"s", types.Typ[types.String], "text"},
		{"s", types.Typ[types.Object], "text"},
		{"s", types.Typ[types.Int32], int32(0)},
		{"s", host, nil},
		{"n", types.Typ[types.String], nil},
		{"n", types.Typ[types.Float32], float32(0)},
	} {
		v, err := s.Value(test.name, test.typ)
		require.NoError(t, err)
		assert.Equal(t, test.expected, v, "%s as %s", test.name, test.typ)
	}

	names, err := s.Names()
	require.NoError(t, err)
	assert.Equal(t, []string{"f", "n", "s"}, names)
	require.NoError(t, s.Clear())
	names, err = s.Names()
	require.NoError(t, err)
	assert.Empty(t, names)
}

func TestNilScriptState(t *testing.T) {
	var s *ScriptState
	v, err := s.Value("x", types.Typ[types.Int32])
	require.NoError(t, err)
	assert.Equal(t, int32(0), v)
	assert.NoError(t, s.SetValue("x", int32(1)))
	assert.NoError(t, s.Clear())
	assert.Nil(t, s.Store())
	assert.Equal(t, Type, s.AffeType())
}

func TestScriptStateStoreFailure(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	store := NewMockStore(ctrl)
	store.EXPECT().Get("x").Return(nil, false, errors.New("disk failure"))
	store.EXPECT().Put("x", int32(3)).Return(nil)

	s := New(store)
	_, err := s.Value("x", types.Typ[types.Int32])
	assert.EqualError(t, err, "disk failure")
	assert.NoError(t, s.SetValue("x", int32(3)))
}

func TestLevelDBStore(t *testing.T) {
	db := memoryDB(t)
	s := NewLevelDBStore(db, "script")
	other := NewLevelDBStore(db, "other")

	values := map[string]any{
		"b":   true,
		"i8":  int8(-3),
		"u8":  uint8(200),
		"i16": int16(-300),
		"u16": uint16(60000),
		"i32": int32(-70000),
		"u32": uint32(4000000000),
		"i64": int64(-1 << 40),
		"u64": uint64(1 << 63),
		"f":   float32(1.25),
		"d":   float64(-2.5e100),
		"s":   "hello",
		"nil": nil,
	}
	for k, v := range values {
		require.NoError(t, s.Put(k, v))
	}
	require.NoError(t, other.Put("b", false))

	for k, expected := range values {
		v, ok, err := s.Get(k)
		require.NoError(t, err)
		require.True(t, ok, k)
		assert.Equal(t, expected, v, k)
	}
	_, ok, err := s.Get("missing")
	require.NoError(t, err)
	assert.False(t, ok)

	keys, err := s.Keys()
	require.NoError(t, err)
	assert.Equal(t, []string{"b", "d", "f", "i16", "i32", "i64", "i8", "nil", "s", "u16", "u32", "u64", "u8"}, keys)

	err = s.Put("host", types.NewArray(types.Typ[types.Int32], 1))
	assert.EqualError(t, err, "failed to store 'host': value of type int32[] cannot be persisted")

	require.NoError(t, s.Delete("b"))
	_, ok, err = s.Get("b")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, s.Clear())
	keys, err = s.Keys()
	require.NoError(t, err)
	assert.Empty(t, keys)
	v, ok, err := other.Get("b")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, false, v)
}

func TestScriptStateOverLevelDB(t *testing.T) {
	s := New(NewLevelDBStore(memoryDB(t), "scope"))
	require.NoError(t, s.SetValue("count", int32(41)))
	v, err := s.Value("count", types.Typ[types.Int32])
	require.NoError(t, err)
	assert.Equal(t, int32(41), v)
	v, err = s.Value("count", types.Typ[types.Float32])
	require.NoError(t, err)
	assert.Equal(t, float32(41), v)
}

func TestSnapshot(t *testing.T) {
	fs := afero.NewMemMapFs()
	src := NewMemoryStore()
	require.NoError(t, src.Put("x", float32(3)))
	require.NoError(t, src.Put("name", "scope"))
	require.NoError(t, src.Put("arr", types.NewArray(types.Typ[types.Int32], 2)))
	require.NoError(t, SaveSnapshot(fs, "/state.cbor", src))

	dst := NewMemoryStore()
	require.NoError(t, LoadSnapshot(fs, "/state.cbor", dst))
	keys, err := dst.Keys()
	require.NoError(t, err)
	assert.Equal(t, []string{"name", "x"}, keys)
	v, _, err := dst.Get("x")
	require.NoError(t, err)
	assert.Equal(t, float32(3), v)

	err = LoadSnapshot(fs, "/missing.cbor", dst)
	assert.Error(t, err)
	require.NoError(t, afero.WriteFile(fs, "/bad.cbor", []byte{0xff}, 0o644))
	assert.Error(t, LoadSnapshot(fs, "/bad.cbor", dst))
}

func TestDumpJSON(t *testing.T) {
	s := NewMemoryStore()
	require.NoError(t, s.Put("b", true))
	require.NoError(t, s.Put("i", int32(7)))
	require.NoError(t, s.Put("s", "v"))
	require.NoError(t, s.Put("t", types.Typ[types.Int32]))
	out, err := DumpJSON(s)
	require.NoError(t, err)
	assert.JSONEq(t, `{"b":true,"i":7,"s":"v","t":"int32"}`, out)
}

func TestSynchronizedStore(t *testing.T) {
	s := Synchronized(NewMemoryStore())
	var g errgroup.Group
	for i := 0; i < 8; i++ {
		i := i
		g.Go(func() error {
			for j := 0; j < 100; j++ {
				if err := s.Put(fmt.Sprintf("k%d", i), int32(j)); err != nil {
					return err
				}
				if _, _, err := s.Get(fmt.Sprintf("k%d", i)); err != nil {
					return err
				}
			}
			return nil
		})
	}
	require.NoError(t, g.Wait())
	keys, err := s.Keys()
	require.NoError(t, err)
	assert.Len(t, keys, 8)
	require.NoError(t, s.Delete("k0"))
	require.NoError(t, s.Clear())
}
