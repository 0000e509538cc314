package choreo

import (
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// Decode reads a choreography document. Unknown joint names are skipped;
// ordering problems are left for Validate or Sanitize.
func Decode(r io.Reader) (Choreography, error) {
	var c Choreography
	dec := json.NewDecoder(r)
	if err := dec.Decode(&c); err != nil {
		return Choreography{}, fmt.Errorf("%w: %w", ErrDecode, err)
	}
	return c, nil
}

// Encode writes c as a choreography document.
func Encode(w io.Writer, c Choreography) error {
	if c.Frames == nil {
		c.Frames = []Frame{}
	}
	enc := json.NewEncoder(w)
	if err := enc.Encode(c); err != nil {
		return fmt.Errorf("encode choreography: %w", err)
	}
	return nil
}

// LoadFile decodes the choreography stored at path.
func LoadFile(path string) (Choreography, error) {
	f, err := os.Open(path)
	if err != nil {
		return Choreography{}, fmt.Errorf("open choreography: %w", err)
	}
	defer f.Close()
	return Decode(f)
}

// SaveFile writes c to path atomically via a temp file in the same directory.
func SaveFile(path string, c Choreography) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".choreo-*.json")
	if err != nil {
		return fmt.Errorf("save choreography: %w", err)
	}
	defer os.Remove(tmp.Name())

	if err := Encode(tmp, c); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("save choreography: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("save choreography: %w", err)
	}
	return nil
}

// SongID returns the hex MD5 of the audio content, the songMD5 identifier.
func SongID(r io.Reader) (string, error) {
	h := md5.New()
	if _, err := io.Copy(h, r); err != nil {
		return "", fmt.Errorf("hash song: %w", err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// SongIDFile hashes the audio file at path.
func SongIDFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("hash song: %w", err)
	}
	defer f.Close()
	return SongID(f)
}
