// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package embeddings

import (
	"database/sql/driver"
	"encoding/binary"
	"fmt"
	"math"
)

// DefaultDimensions is the embedding width used when none is configured.
const DefaultDimensions = 1536

// Vector is an embedding stored as a little-endian float32 blob.
type Vector []float32

// GormDataType maps Vector to blob on sqlite and bytea on postgres.
func (Vector) GormDataType() string {
	return "bytes"
}

// Value implements driver.Valuer
func (v Vector) Value() (driver.Value, error) {
	return Float32SliceToBlob(v), nil
}

// Scan implements sql.Scanner
func (v *Vector) Scan(src any) error {
	switch data := src.(type) {
	case nil:
		*v = nil
		return nil
	case []byte:
		*v = BlobToFloat32Slice(data)
		return nil
	case string:
		*v = BlobToFloat32Slice([]byte(data))
		return nil
	default:
		return fmt.Errorf("cannot scan %T into Vector", src)
	}
}

// IsZero reports whether every component is zero. A zero vector has no
// direction and is never a valid similarity target.
func (v Vector) IsZero() bool {
	for _, x := range v {
		if x != 0 {
			return false
		}
	}
	return true
}

// Float32SliceToBlob converts a float32 slice to a byte slice for storage
func Float32SliceToBlob(vec []float32) []byte {
	buf := make([]byte, len(vec)*4)
	for i, v := range vec {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(v))
	}
	return buf
}

// BlobToFloat32Slice converts a byte slice back to a float32 slice
func BlobToFloat32Slice(blob []byte) []float32 {
	if len(blob) == 0 {
		return nil
	}
	vec := make([]float32, len(blob)/4)
	for i := range vec {
		vec[i] = math.Float32frombits(binary.LittleEndian.Uint32(blob[i*4:]))
	}
	return vec
}

// Zero returns a zero vector of the given width.
func Zero(dimensions int) Vector {
	return make(Vector, dimensions)
}
