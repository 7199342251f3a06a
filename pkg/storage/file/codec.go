package file

import (
	"errors"
	"fmt"

	"github.com/fxamacker/cbor/v2"

	"github.com/sifterlab/sifter/pkg/containers"
)

// ErrBadRecord marks a segment record that cannot be decoded back into a
// registered container kind.
var ErrBadRecord = errors.New("file: bad segment record")

// encMode preserves sub-second timestamp precision; the default CBOR time
// encoding truncates to whole seconds, which is unacceptable for forensic
// timestamps.
var encMode, decMode = newCBORModes()

func newCBORModes() (cbor.EncMode, cbor.DecMode) {
	enc, err := cbor.EncOptions{Time: cbor.TimeRFC3339Nano}.EncMode()
	if err != nil {
		panic(err)
	}

	dec, err := cbor.DecOptions{}.DecMode()
	if err != nil {
		panic(err)
	}

	return enc, dec
}

// record is the segment envelope around one serialized container. The
// identifier lives here, not in the container payload, so the payload codec
// stays oblivious to store bookkeeping.
type record struct {
	Kind    string          `cbor:"kind"`
	ID      int64           `cbor:"id"`
	Payload cbor.RawMessage `cbor:"payload"`
}

// encodeRecord wraps a container into its segment record.
func encodeRecord(c containers.Container) (record, error) {
	payload, err := encMode.Marshal(c)
	if err != nil {
		return record{}, fmt.Errorf("marshal %s container: %w", c.ContainerKind(), err)
	}

	id, ok := c.Identifier()
	if !ok {
		return record{}, fmt.Errorf("%w: %s container has no identifier", ErrBadRecord, c.ContainerKind())
	}

	return record{
		Kind:    string(c.ContainerKind()),
		ID:      id,
		Payload: payload,
	}, nil
}

// decodeRecord reconstructs a container from its segment record, restoring
// type identity through the container registry.
func decodeRecord(rec record) (containers.Container, error) {
	c, err := containers.Create(containers.Kind(rec.Kind))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadRecord, err)
	}

	err = decMode.Unmarshal(rec.Payload, c)
	if err != nil {
		return nil, fmt.Errorf("%w: unmarshal %s payload: %v", ErrBadRecord, rec.Kind, err)
	}

	c.SetIdentifier(rec.ID)

	return c, nil
}

// cloneContainer deep-copies a container by a codec round-trip, so a merge
// never aliases state owned by the source store. The clone carries the
// source identifier until the destination reassigns it.
func cloneContainer(c containers.Container) (containers.Container, error) {
	clone, err := containers.Create(c.ContainerKind())
	if err != nil {
		return nil, err
	}

	payload, err := encMode.Marshal(c)
	if err != nil {
		return nil, fmt.Errorf("marshal %s container: %w", c.ContainerKind(), err)
	}

	err = decMode.Unmarshal(payload, clone)
	if err != nil {
		return nil, fmt.Errorf("unmarshal %s container: %w", c.ContainerKind(), err)
	}

	if id, ok := c.Identifier(); ok {
		clone.SetIdentifier(id)
	}

	return clone, nil
}
