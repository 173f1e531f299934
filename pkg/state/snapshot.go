package state

import (
	"github.com/fxamacker/cbor/v2"
	"github.com/pkg/errors"
	"github.com/spf13/afero"
	"github.com/tidwall/sjson"

	"github.com/openvp/affe/pkg/types"
)

const snapshotVersion = 1

type snapshot struct {
	Version int                        `cbor:"1,keyasint"`
	Values  map[string]cbor.RawMessage `cbor:"2,keyasint"`
}

// SaveSnapshot writes every value of store to path. Values that cannot be persisted are skipped.
func SaveSnapshot(fs afero.Fs, path string, store Store) error {
	keys, err := store.Keys()
	if err != nil {
		return err
	}
	snap := snapshot{Version: snapshotVersion, Values: make(map[string]cbor.RawMessage, len(keys))}
	for _, k := range keys {
		v, ok, err := store.Get(k)
		if err != nil {
			return err
		}
		if !ok || !Encodable(v) {
			continue
		}
		data, err := encodeValue(v)
		if err != nil {
			return errors.Wrapf(err, "failed to encode '%s'", k)
		}
		snap.Values[k] = data
	}
	data, err := cbor.Marshal(snap)
	if err != nil {
		return errors.Wrap(err, "failed to encode snapshot")
	}
	if err := afero.WriteFile(fs, path, data, 0o644); err != nil {
		return errors.Wrapf(err, "failed to write snapshot %q", path)
	}
	return nil
}

// LoadSnapshot puts the values saved at path into store.
func LoadSnapshot(fs afero.Fs, path string, store Store) error {
	data, err := afero.ReadFile(fs, path)
	if err != nil {
		return errors.Wrapf(err, "failed to read snapshot %q", path)
	}
	var snap snapshot
	if err := cbor.Unmarshal(data, &snap); err != nil {
		return errors.Wrapf(err, "failed to decode snapshot %q", path)
	}
	if snap.Version != snapshotVersion {
		return errors.Errorf("unsupported snapshot version %d", snap.Version)
	}
	for k, raw := range snap.Values {
		v, err := decodeValue(raw)
		if err != nil {
			return errors.Wrapf(err, "failed to decode '%s'", k)
		}
		if err := store.Put(k, v); err != nil {
			return err
		}
	}
	return nil
}

// DumpJSON renders the values of store as a JSON object. Host references are rendered as their string form.
func DumpJSON(store Store) (string, error) {
	keys, err := store.Keys()
	if err != nil {
		return "", err
	}
	out := "{}"
	for _, k := range keys {
		v, _, err := store.Get(k)
		if err != nil {
			return "", err
		}
		if !Encodable(v) {
			v = types.Format(v)
		}
		if out, err = sjson.Set(out, k, v); err != nil {
			return "", errors.Wrapf(err, "failed to render '%s'", k)
		}
	}
	return out, nil
}
