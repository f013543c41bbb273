package formats

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
)

// PID format errors.
var (
	ErrInvalidPIDMagic       = errors.New("invalid PID magic: expected 'SPID'")
	ErrUnsupportedPIDVersion = errors.New("unsupported PID version")
	ErrTruncatedPIDData      = errors.New("truncated PID data")
	ErrCorruptPIDData        = errors.New("corrupt PID data")
)

// PIDMaxInfluences is the maximum number of probe influences per vertex.
const PIDMaxInfluences = 4

const pidMagic = "SPID"

// PIDVersion is the only PID version written and read.
var PIDVersion = Version{Major: 1, Minor: 0}

// PIDInfluence is one probe blended into a vertex.
type PIDInfluence struct {
	ProbeID uint32
	Weight  float32
}

// PIDVertex lists the probes influencing a vertex, strongest first.
type PIDVertex struct {
	Influences []PIDInfluence
}

// PIDPrimitive is the probe stream of one mesh primitive.
type PIDPrimitive struct {
	MeshIndex      uint32
	PrimitiveIndex uint32
	Vertices       []PIDVertex
}

// PID is the per-vertex probe-ID stream consumed by the renderer to blend
// probe lighting across surfaces.
type PID struct {
	Version    Version
	Primitives []PIDPrimitive
}

// VertexCount returns the total number of vertices across primitives.
func (p *PID) VertexCount() int {
	n := 0
	for _, prim := range p.Primitives {
		n += len(prim.Vertices)
	}
	return n
}

// Encode serializes the stream.
func (p *PID) Encode() []byte {
	buf := new(bytes.Buffer)
	buf.WriteString(pidMagic)
	buf.WriteByte(PIDVersion.Major)
	buf.WriteByte(PIDVersion.Minor)

	le := binary.LittleEndian
	binary.Write(buf, le, uint32(len(p.Primitives)))
	for _, prim := range p.Primitives {
		binary.Write(buf, le, prim.MeshIndex)
		binary.Write(buf, le, prim.PrimitiveIndex)
		binary.Write(buf, le, uint32(len(prim.Vertices)))
		for _, v := range prim.Vertices {
			n := min(len(v.Influences), PIDMaxInfluences)
			buf.WriteByte(uint8(n))
			for _, inf := range v.Influences[:n] {
				binary.Write(buf, le, inf)
			}
		}
	}
	return buf.Bytes()
}

// ParsePID parses a vertex probe-ID stream from raw bytes.
func ParsePID(data []byte) (*PID, error) {
	if len(data) < 10 {
		return nil, ErrTruncatedPIDData
	}
	if string(data[0:4]) != pidMagic {
		return nil, ErrInvalidPIDMagic
	}

	version := Version{Major: data[4], Minor: data[5]}
	if version != PIDVersion {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedPIDVersion, version)
	}

	r := bytes.NewReader(data[6:])

	var primCount uint32
	if err := binary.Read(r, binary.LittleEndian, &primCount); err != nil {
		return nil, fmt.Errorf("%w: reading primitive count", ErrTruncatedPIDData)
	}
	// Each primitive header takes 12 bytes.
	if uint64(primCount)*12 > uint64(r.Len()) {
		return nil, fmt.Errorf("%w: %d primitives in %d bytes", ErrTruncatedPIDData, primCount, r.Len())
	}

	pid := &PID{Version: version, Primitives: make([]PIDPrimitive, primCount)}
	for i := range pid.Primitives {
		prim := &pid.Primitives[i]
		var header [3]uint32
		if err := binary.Read(r, binary.LittleEndian, &header); err != nil {
			return nil, fmt.Errorf("%w: reading primitive %d", ErrTruncatedPIDData, i)
		}
		prim.MeshIndex, prim.PrimitiveIndex = header[0], header[1]
		if uint64(header[2]) > uint64(r.Len()) {
			return nil, fmt.Errorf("%w: %d vertices in %d bytes", ErrTruncatedPIDData, header[2], r.Len())
		}

		prim.Vertices = make([]PIDVertex, header[2])
		for v := range prim.Vertices {
			n, err := r.ReadByte()
			if err != nil {
				return nil, fmt.Errorf("%w: reading vertex %d influence count", ErrTruncatedPIDData, v)
			}
			if n > PIDMaxInfluences {
				return nil, fmt.Errorf("%w: vertex %d has %d influences", ErrCorruptPIDData, v, n)
			}
			if n == 0 {
				continue
			}
			prim.Vertices[v].Influences = make([]PIDInfluence, n)
			if err := binary.Read(r, binary.LittleEndian, prim.Vertices[v].Influences); err != nil {
				return nil, fmt.Errorf("%w: reading vertex %d influences", ErrTruncatedPIDData, v)
			}
		}
	}
	return pid, nil
}
