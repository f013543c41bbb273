package formats

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
)

// SHP format errors.
var (
	ErrInvalidSHPMagic       = errors.New("invalid SHP magic: expected 'SHPN'")
	ErrUnsupportedSHPVersion = errors.New("unsupported SHP version")
	ErrTruncatedSHPData      = errors.New("truncated SHP data")
	ErrCorruptSHPData        = errors.New("corrupt SHP data")
)

// SHP limits. Counts above these are rejected when parsing.
const (
	SHPMaxSamples          = 64
	SHPMaxEmissiveSurfaces = 64
	SHPMaxNeighbors        = 4
)

const shpMagic = "SHPN"

// SHPVersion is the only SHP version written and read.
var SHPVersion = Version{Major: 1, Minor: 0}

// Version is a Major.Minor file version.
type Version struct {
	Major uint8
	Minor uint8
}

// String returns the version as "Major.Minor".
func (v Version) String() string {
	return fmt.Sprintf("%d.%d", v.Major, v.Minor)
}

// SHPSample is a generic reflective surface seen by a probe.
type SHPSample struct {
	Position  [3]float32
	Normal    [3]float32
	Tangent   [3]float32 // Longest principal axis, scaled by its extent
	BiTangent [3]float32 // Shortest principal axis, scaled by its extent
	Radius    float32
	Albedo    [3]float32
	F0        [3]float32 // Fresnel coefficient
	SHFactor  float32    // Fraction of the probe's pixels covered by the sample
}

// SHPEmissiveSurface is an emissive surface seen by a probe. Materials are
// stored by ID and resolved on load.
type SHPEmissiveSurface struct {
	Position   [3]float32
	Normal     [3]float32
	Tangent    [3]float32
	BiTangent  [3]float32
	MaterialID uint32
	SH         [9]float32
}

// SHPNeighbor is a directional link from a probe to one of its neighbors.
type SHPNeighbor struct {
	ProbeID    uint32
	Distance   float32
	SolidAngle float32
	Direction  [3]float32
	SH         [9]float32 // Convolution kernel isolating the neighbor's contribution
}

// SHPProbe holds every static field of a probe.
type SHPProbe struct {
	ID       uint32
	Position [3]float32
	Radius   float32

	SHOcclusion      [9]float32
	SHStaticLighting [9][3]float32

	MeanDistance         float32
	MeanHarmonicDistance float32
	MinDistance          float32
	MaxDistance          float32
	BBoxMin              [3]float32
	BBoxMax              [3]float32

	Samples          []SHPSample
	EmissiveSurfaces []SHPEmissiveSurface

	NearestProbeDistance  float32
	FarthestProbeDistance float32
	Neighbors             []SHPNeighbor
}

// shpProbeStatic is the fixed-size head of a probe record.
type shpProbeStatic struct {
	ID                   uint32
	Position             [3]float32
	Radius               float32
	SHOcclusion          [9]float32
	SHStaticLighting     [9][3]float32
	MeanDistance         float32
	MeanHarmonicDistance float32
	MinDistance          float32
	MaxDistance          float32
	BBoxMin              [3]float32
	BBoxMax              [3]float32
}

// SHP is a persisted probe network: the probe array and its neighbor graph.
type SHP struct {
	Version Version
	Probes  []SHPProbe
}

// Encode serializes the network. Output is byte-identical for equal input.
func (s *SHP) Encode() []byte {
	buf := new(bytes.Buffer)
	buf.WriteString(shpMagic)
	buf.WriteByte(SHPVersion.Major)
	buf.WriteByte(SHPVersion.Minor)

	le := binary.LittleEndian
	binary.Write(buf, le, uint32(len(s.Probes)))
	for i := range s.Probes {
		p := &s.Probes[i]
		binary.Write(buf, le, shpProbeStatic{
			ID:                   p.ID,
			Position:             p.Position,
			Radius:               p.Radius,
			SHOcclusion:          p.SHOcclusion,
			SHStaticLighting:     p.SHStaticLighting,
			MeanDistance:         p.MeanDistance,
			MeanHarmonicDistance: p.MeanHarmonicDistance,
			MinDistance:          p.MinDistance,
			MaxDistance:          p.MaxDistance,
			BBoxMin:              p.BBoxMin,
			BBoxMax:              p.BBoxMax,
		})

		binary.Write(buf, le, uint32(len(p.Samples)))
		for _, sample := range p.Samples {
			binary.Write(buf, le, sample)
		}
		binary.Write(buf, le, uint32(len(p.EmissiveSurfaces)))
		for _, surface := range p.EmissiveSurfaces {
			binary.Write(buf, le, surface)
		}

		binary.Write(buf, le, p.NearestProbeDistance)
		binary.Write(buf, le, p.FarthestProbeDistance)
		binary.Write(buf, le, uint32(len(p.Neighbors)))
		for _, n := range p.Neighbors {
			binary.Write(buf, le, n)
		}
	}
	return buf.Bytes()
}

// ParseSHP parses a probe network file from raw bytes.
func ParseSHP(data []byte) (*SHP, error) {
	if len(data) < 10 {
		return nil, ErrTruncatedSHPData
	}
	if string(data[0:4]) != shpMagic {
		return nil, ErrInvalidSHPMagic
	}

	version := Version{Major: data[4], Minor: data[5]}
	if version != SHPVersion {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedSHPVersion, version)
	}

	r := bytes.NewReader(data[6:])
	read := func(v any, what string) error {
		if err := binary.Read(r, binary.LittleEndian, v); err != nil {
			return fmt.Errorf("%w: reading %s", ErrTruncatedSHPData, what)
		}
		return nil
	}

	var count uint32
	if err := read(&count, "probe count"); err != nil {
		return nil, err
	}
	// Every probe needs at least its fixed head; reject absurd counts early.
	if uint64(count)*uint64(binary.Size(shpProbeStatic{})) > uint64(r.Len()) {
		return nil, fmt.Errorf("%w: %d probes in %d bytes", ErrTruncatedSHPData, count, r.Len())
	}

	shp := &SHP{Version: version, Probes: make([]SHPProbe, count)}
	for i := range shp.Probes {
		p := &shp.Probes[i]

		var head shpProbeStatic
		if err := read(&head, fmt.Sprintf("probe %d", i)); err != nil {
			return nil, err
		}
		if head.ID != uint32(i) {
			return nil, fmt.Errorf("%w: probe %d has ID %d", ErrCorruptSHPData, i, head.ID)
		}
		*p = SHPProbe{
			ID:                   head.ID,
			Position:             head.Position,
			Radius:               head.Radius,
			SHOcclusion:          head.SHOcclusion,
			SHStaticLighting:     head.SHStaticLighting,
			MeanDistance:         head.MeanDistance,
			MeanHarmonicDistance: head.MeanHarmonicDistance,
			MinDistance:          head.MinDistance,
			MaxDistance:          head.MaxDistance,
			BBoxMin:              head.BBoxMin,
			BBoxMax:              head.BBoxMax,
		}

		var n uint32
		if err := read(&n, "sample count"); err != nil {
			return nil, err
		}
		if n > SHPMaxSamples {
			return nil, fmt.Errorf("%w: probe %d has %d samples", ErrCorruptSHPData, i, n)
		}
		if n > 0 {
			p.Samples = make([]SHPSample, n)
			if err := read(p.Samples, "samples"); err != nil {
				return nil, err
			}
		}

		if err := read(&n, "emissive surface count"); err != nil {
			return nil, err
		}
		if n > SHPMaxEmissiveSurfaces {
			return nil, fmt.Errorf("%w: probe %d has %d emissive surfaces", ErrCorruptSHPData, i, n)
		}
		if n > 0 {
			p.EmissiveSurfaces = make([]SHPEmissiveSurface, n)
			if err := read(p.EmissiveSurfaces, "emissive surfaces"); err != nil {
				return nil, err
			}
		}

		if err := read(&p.NearestProbeDistance, "nearest probe distance"); err != nil {
			return nil, err
		}
		if err := read(&p.FarthestProbeDistance, "farthest probe distance"); err != nil {
			return nil, err
		}

		if err := read(&n, "neighbor count"); err != nil {
			return nil, err
		}
		if n > SHPMaxNeighbors {
			return nil, fmt.Errorf("%w: probe %d has %d neighbors", ErrCorruptSHPData, i, n)
		}
		if n > 0 {
			p.Neighbors = make([]SHPNeighbor, n)
			if err := read(p.Neighbors, "neighbors"); err != nil {
				return nil, err
			}
		}
	}

	for i := range shp.Probes {
		for _, n := range shp.Probes[i].Neighbors {
			if n.ProbeID >= count || n.ProbeID == uint32(i) {
				return nil, fmt.Errorf("%w: probe %d links to %d", ErrCorruptSHPData, i, n.ProbeID)
			}
		}
	}

	if r.Len() != 0 {
		return nil, fmt.Errorf("%w: %d trailing bytes", ErrCorruptSHPData, r.Len())
	}
	return shp, nil
}
