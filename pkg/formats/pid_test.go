package formats

import (
	"errors"
	"testing"
)

func TestPIDRoundTrip(t *testing.T) {
	orig := &PID{Primitives: []PIDPrimitive{
		{
			MeshIndex:      0,
			PrimitiveIndex: 1,
			Vertices: []PIDVertex{
				{Influences: []PIDInfluence{{ProbeID: 3, Weight: 0.75}, {ProbeID: 7, Weight: 0.25}}},
				{},
				{Influences: []PIDInfluence{{ProbeID: 3, Weight: 1}}},
			},
		},
	}}

	pid, err := ParsePID(orig.Encode())
	if err != nil {
		t.Fatalf("ParsePID failed: %v", err)
	}

	if pid.VertexCount() != 3 {
		t.Fatalf("expected 3 vertices, got %d", pid.VertexCount())
	}
	prim := pid.Primitives[0]
	if prim.PrimitiveIndex != 1 {
		t.Errorf("expected primitive index 1, got %d", prim.PrimitiveIndex)
	}
	if len(prim.Vertices[0].Influences) != 2 || prim.Vertices[0].Influences[1] != (PIDInfluence{ProbeID: 7, Weight: 0.25}) {
		t.Errorf("vertex 0 influences mismatch: %+v", prim.Vertices[0].Influences)
	}
	if len(prim.Vertices[1].Influences) != 0 {
		t.Errorf("vertex 1 should have no influences, got %+v", prim.Vertices[1].Influences)
	}
}

func TestPIDEncodeCapsInfluences(t *testing.T) {
	v := PIDVertex{}
	for i := 0; i < 6; i++ {
		v.Influences = append(v.Influences, PIDInfluence{ProbeID: uint32(i), Weight: 1})
	}
	orig := &PID{Primitives: []PIDPrimitive{{Vertices: []PIDVertex{v}}}}

	pid, err := ParsePID(orig.Encode())
	if err != nil {
		t.Fatalf("ParsePID failed: %v", err)
	}
	if got := len(pid.Primitives[0].Vertices[0].Influences); got != PIDMaxInfluences {
		t.Errorf("expected %d influences, got %d", PIDMaxInfluences, got)
	}
}

func TestParsePID_Errors(t *testing.T) {
	data := (&PID{Primitives: []PIDPrimitive{{Vertices: make([]PIDVertex, 4)}}}).Encode()

	if _, err := ParsePID(data[:len(data)-2]); !errors.Is(err, ErrTruncatedPIDData) {
		t.Errorf("expected ErrTruncatedPIDData, got %v", err)
	}

	bad := append([]byte(nil), data...)
	copy(bad, "NOPE")
	if _, err := ParsePID(bad); !errors.Is(err, ErrInvalidPIDMagic) {
		t.Errorf("expected ErrInvalidPIDMagic, got %v", err)
	}
}
