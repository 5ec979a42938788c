package snapshot

import (
	"encoding/hex"
	"fmt"
	"reflect"
	"time"

	"github.com/fxamacker/cbor/v2"
	"github.com/zeebo/blake3"
)

// Reasons recorded in manifests.
const (
	ReasonManual        = "manual"
	ReasonBeforeRewrite = "before_rewrite"
)

// Manifest describes one stored snapshot.
type Manifest struct {
	ID          string      `cbor:"id" json:"id"`
	Archive     string      `cbor:"archive" json:"archive"`
	Reason      string      `cbor:"reason" json:"reason"`
	CreatedAt   time.Time   `cbor:"created_at" json:"created_at"`
	Size        int64       `cbor:"size" json:"size"`
	StoredSize  int64       `cbor:"stored_size" json:"stored_size"`
	Compression Compression `cbor:"compression" json:"compression"`
	// Digest is the hex BLAKE3-256 of the uncompressed archive.
	Digest string `cbor:"digest" json:"digest"`
}

var (
	encMode cbor.EncMode
	decMode cbor.DecMode
)

func init() {
	var err error

	encOptions := cbor.CoreDetEncOptions()
	encOptions.Time = cbor.TimeRFC3339Nano
	encMode, err = encOptions.EncMode()
	if err != nil {
		panic("snapshot: CBOR encoder initialization failed: " + err.Error())
	}

	decMode, err = cbor.DecOptions{
		DefaultMapType: reflect.TypeOf(map[string]any(nil)),
	}.DecMode()
	if err != nil {
		panic("snapshot: CBOR decoder initialization failed: " + err.Error())
	}
}

func marshalManifest(m *Manifest) ([]byte, error) {
	return encMode.Marshal(m)
}

func unmarshalManifest(data []byte) (*Manifest, error) {
	var m Manifest
	if err := decMode.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("decoding manifest: %w", err)
	}
	if m.ID == "" {
		return nil, fmt.Errorf("decoding manifest: missing id")
	}
	return &m, nil
}

func digest(data []byte) string {
	sum := blake3.Sum256(data)
	return hex.EncodeToString(sum[:])
}
