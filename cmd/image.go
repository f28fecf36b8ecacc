package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/kevmo314/offsetview/pkg/memory"
	"github.com/kevmo314/offsetview/pkg/pointer"
	"go.uber.org/zap"
)

type imageSpec struct {
	path string
	base pointer.Address
}

func parseImageSpec(s string) (imageSpec, error) {
	path, base, ok := strings.Cut(s, "@")
	if !ok {
		return imageSpec{path: s}, nil
	}
	addr, err := parseAddress(base)
	if err != nil {
		return imageSpec{}, fmt.Errorf("image %q: %w", s, err)
	}
	return imageSpec{path: path, base: addr}, nil
}

func isCompressed(path string) (bool, error) {
	f, err := os.Open(path)
	if err != nil {
		return false, err
	}
	defer f.Close()
	magic := make([]byte, memory.ZstdMagicSize)
	if _, err := io.ReadFull(f, magic); err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return false, nil
		}
		return false, err
	}
	return memory.IsCompressed(magic), nil
}

// checkWidth rejects images that reach past the addresses the pointer width
// can resolve to.
func checkWidth(path string, s *memory.Snapshot, w pointer.Width) error {
	last := s.Base
	if len(s.Data) > 0 {
		last = s.End() - 1
	}
	if !w.Fits(s.Base) || !w.Fits(last) || last < s.Base {
		return fmt.Errorf("%s: %s does not fit %d byte pointers", path, s, w)
	}
	return nil
}

// openImages memory maps a single raw image, and otherwise loads every
// image into one multi-region address space.
func openImages(specs []string, width pointer.Width, logger *zap.Logger) (memory.Reader, func() error, error) {
	if len(specs) == 0 {
		return nil, nil, errors.New("no memory image given")
	}
	parsed := make([]imageSpec, len(specs))
	for i, s := range specs {
		spec, err := parseImageSpec(s)
		if err != nil {
			return nil, nil, err
		}
		parsed[i] = spec
	}

	if len(parsed) == 1 {
		compressed, err := isCompressed(parsed[0].path)
		if err != nil {
			return nil, nil, err
		}
		if !compressed {
			m, err := memory.OpenMappedFile(parsed[0].path, parsed[0].base)
			if err != nil {
				return nil, nil, err
			}
			if err := checkWidth(parsed[0].path, m.Snapshot(), width); err != nil {
				return nil, nil, errors.Join(err, m.Close())
			}
			logger.Debug("mapped image",
				zap.String("path", parsed[0].path),
				zap.Stringer("snapshot", m.Snapshot()),
				zap.Uint64("fingerprint", m.Snapshot().Fingerprint()))
			return m, m.Close, nil
		}
	}

	regions := memory.NewRegions()
	for _, spec := range parsed {
		f, err := os.Open(spec.path)
		if err != nil {
			return nil, nil, err
		}
		s, err := memory.ReadSnapshot(f, spec.base)
		f.Close()
		if err != nil {
			return nil, nil, fmt.Errorf("%s: %w", spec.path, err)
		}
		if err := checkWidth(spec.path, s, width); err != nil {
			return nil, nil, err
		}
		if err := regions.Add(s); err != nil {
			return nil, nil, err
		}
		logger.Debug("loaded image",
			zap.String("path", spec.path),
			zap.Stringer("snapshot", s),
			zap.Uint64("fingerprint", s.Fingerprint()))
	}
	return regions, func() error { return nil }, nil
}
