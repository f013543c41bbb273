package probenet

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/Faultbox/probenet/internal/logger"
	"github.com/Faultbox/probenet/internal/scene"
	"github.com/Faultbox/probenet/pkg/formats"
	"github.com/Faultbox/probenet/pkg/math"
)

// File names inside a probe directory.
const (
	ProbesFile       = "probes.shp"
	VertexStreamFile = "probes.pid"
)

// SaveProbes writes the probe array with its neighbor graph, and the vertex
// stream when one exists, to dir.
func (n *Network) SaveProbes(dir string) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("creating probe directory: %w", err)
	}

	shp := &formats.SHP{Version: formats.SHPVersion, Probes: make([]formats.SHPProbe, len(n.probes))}
	for i := range n.probes {
		shp.Probes[i] = n.probes[i].SHPProbe
	}
	path := filepath.Join(dir, ProbesFile)
	if err := os.WriteFile(path, shp.Encode(), 0644); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}

	if n.vertexStream != nil {
		path = filepath.Join(dir, VertexStreamFile)
		if err := os.WriteFile(path, n.vertexStream.Encode(), 0644); err != nil {
			return fmt.Errorf("writing %s: %w", path, err)
		}
	}

	logger.Debug("probes saved", zap.String("dir", dir), zap.Int("probes", len(n.probes)))
	return nil
}

// LoadProbes replaces the network with the probes stored in dir and rebuilds
// the spatial index over [min, max]. Emissive materials are resolved through
// query; unresolved ones are left nil and reported with CodeMissingMaterial.
//
// A missing or corrupt file leaves the network empty with CodeIO.
func (n *Network) LoadProbes(dir string, query MaterialQuery, min, max math.Vec3) error {
	n.reset()
	n.errorCode = CodeOK

	shp, err := readSHP(filepath.Join(dir, ProbesFile))
	if err != nil {
		n.errorCode = CodeIO
		return err
	}
	stream, err := readPID(filepath.Join(dir, VertexStreamFile))
	if err != nil {
		n.errorCode = CodeIO
		return err
	}

	probes := make([]Probe, len(shp.Probes))
	missing := 0
	for i := range shp.Probes {
		p := &probes[i]
		p.SHPProbe = shp.Probes[i]
		p.Materials = make([]*scene.Material, len(p.EmissiveSurfaces))
		for j, es := range p.EmissiveSurfaces {
			var m *scene.Material
			if query != nil {
				m = query.QueryMaterial(es.MaterialID)
			}
			if m == nil {
				missing++
				logger.Warn("unresolved emissive material",
					zap.Int("probe", i),
					zap.Uint32("material", es.MaterialID),
					zap.Error(ErrMissingMaterial))
			}
			p.Materials[j] = m
		}
	}

	n.probes = probes
	n.capacity = len(probes)
	n.vertexStream = stream
	if missing > 0 {
		n.raise(CodeMissingMaterial)
	}
	n.BuildIndex(min, max)

	logger.Info("probes loaded",
		zap.String("dir", dir),
		zap.Int("probes", len(probes)),
		zap.Int("missing_materials", missing))
	return nil
}

func readSHP(path string) (*formats.SHP, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	shp, err := formats.ParseSHP(data)
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	return shp, nil
}

// readPID loads the vertex stream. The stream is optional.
func readPID(path string) (*formats.PID, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	pid, err := formats.ParsePID(data)
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	return pid, nil
}
