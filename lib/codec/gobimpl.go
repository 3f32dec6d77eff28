package codec

import (
	"bytes"
	"encoding/gob"
)

// NewGOBCodec creates a new codec using Go's binary gob format.
//
// Gob keeps the concrete type of interface values, but types stored behind an
// interface must be registered with gob.Register first. The encoding of maps is not
// deterministic, so gob should not be used for keys.
func NewGOBCodec() ICodec {
	return &gobCodecImpl{}
}

// gobCodecImpl implements the ICodec interface using gob encoding
type gobCodecImpl struct {
}

// --------------------------------------------------------------------------
// Interface Methods (docu see codec.ICodec)
// --------------------------------------------------------------------------

func (g gobCodecImpl) Marshal(v any) (data []byte, err error) {
	// gob panics on some unsupported values instead of returning an error
	defer func() {
		if r := recover(); r != nil {
			data, err = nil, gobPanic{r}
		}
	}()

	var buf bytes.Buffer
	enc := gob.NewEncoder(&buf)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (g gobCodecImpl) Unmarshal(data []byte, v any) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = gobPanic{r}
		}
	}()

	buf := bytes.NewBuffer(data)
	dec := gob.NewDecoder(buf)
	if err := dec.Decode(v); err != nil {
		return err
	}
	if buf.Len() > 0 {
		return errTrailingData
	}
	return nil
}

func (g gobCodecImpl) Name() string {
	return "gob"
}

// gobPanic wraps a recovered gob panic as error
type gobPanic struct {
	r any
}

func (p gobPanic) Error() string {
	return "gob: " + sprint(p.r)
}
