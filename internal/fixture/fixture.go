// Package fixture generates the test container: a fixed catalog of feature
// classes covering coordinate systems, geometry types, Z and M, field
// types, domains and large record counts.
package fixture

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/miczat/fc-profiler/internal/fishnet"
	"github.com/miczat/fc-profiler/internal/gdb"
	"github.com/miczat/fc-profiler/internal/logger"
)

// ErrInstallFolder is returned when the install folder does not exist.
var ErrInstallFolder = errors.New("fixture: install folder does not exist")

// Size is the number of rows and columns of a grid.
type Size struct {
	Rows, Cols int
}

// ParseSize parses a size written as ROWSxCOLS, e.g. "2000x2500".
func ParseSize(s string) (Size, error) {
	r, c, ok := strings.Cut(strings.ToLower(strings.TrimSpace(s)), "x")
	if !ok {
		return Size{}, fmt.Errorf("grid size %q is not ROWSxCOLS", s)
	}
	rows, err := strconv.Atoi(r)
	if err != nil {
		return Size{}, fmt.Errorf("grid size %q: rows: %w", s, err)
	}
	cols, err := strconv.Atoi(c)
	if err != nil {
		return Size{}, fmt.Errorf("grid size %q: cols: %w", s, err)
	}
	if rows <= 0 || cols <= 0 {
		return Size{}, fmt.Errorf("grid size %q: %w", s, fishnet.ErrInvalidGrid)
	}
	return Size{Rows: rows, Cols: cols}, nil
}

func (s Size) String() string {
	return fmt.Sprintf("%dx%d", s.Rows, s.Cols)
}

func (s Size) grid() fishnet.Grid {
	return fishnet.Grid{
		Origin:     mgaOrigin,
		Rows:       s.Rows,
		Cols:       s.Cols,
		CellWidth:  cellSize,
		CellHeight: cellSize,
	}
}

// Options controls a generator run.
type Options struct {
	InstallFolder string
	Overwrite     bool // replace an existing container
	SmallGrid     Size // zero for SmallGrid
	LargeGrid     Size // zero for LargeGrid
}

func (o Options) sizes() (Size, Size) {
	small, large := o.SmallGrid, o.LargeGrid
	if small == (Size{}) {
		small = SmallGrid
	}
	if large == (Size{}) {
		large = LargeGrid
	}
	return small, large
}

// Path returns the container path for an install folder.
func Path(installFolder string) string {
	return filepath.Join(installFolder, ContainerName)
}

// Run (re)creates the test container and returns its path.
func Run(ctx context.Context, opts Options, log *logger.Logger) (string, error) {
	if log == nil {
		log = logger.Nop()
	}
	start := time.Now()

	info, err := os.Stat(opts.InstallFolder)
	if err != nil || !info.IsDir() {
		return "", fmt.Errorf("%w: %s", ErrInstallFolder, opts.InstallFolder)
	}

	path := Path(opts.InstallFolder)
	log.Infof("Creating %s", path)
	ws, err := gdb.Create(path, opts.Overwrite)
	if err != nil {
		return "", err
	}
	defer func() { _ = ws.Close() }()

	small, large := opts.sizes()
	p := &populator{ws: ws, log: log}
	steps := []func(context.Context) error{
		p.featureClasses(crsFeatureClasses),
		p.featureClasses(geometryFeatureClasses),
		p.featureClasses(zmFeatureClasses),
		p.featureClasses([]featureClass{allFieldTypes}),
		p.domains,
		p.grids(gridFeatureClasses(small, large)),
	}
	for _, step := range steps {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		if err := step(ctx); err != nil {
			return "", err
		}
	}

	log.Infof("Duration %s", time.Since(start).Round(time.Millisecond))
	return path, nil
}

type populator struct {
	ws  *gdb.Workspace
	log *logger.Logger
}

func (p *populator) featureClasses(fcs []featureClass) func(context.Context) error {
	return func(ctx context.Context) error {
		for _, fc := range fcs {
			if err := p.create(ctx, fc); err != nil {
				return err
			}
		}
		return nil
	}
}

// create creates fc and adds its fields one at a time.
func (p *populator) create(ctx context.Context, fc featureClass) error {
	def := gdb.FeatureClassDef{
		Name:     fc.name,
		Geometry: fc.geom,
		HasZ:     fc.hasZ,
		HasM:     fc.hasM,
	}
	if fc.wkid != 0 {
		sr, ok := gdb.SpatialReferenceByWKID(fc.wkid)
		if !ok {
			return fmt.Errorf("%w: wkid %d for %s", gdb.ErrNotFound, fc.wkid, fc.name)
		}
		def.SpatialReference = sr
	}

	p.log.Infof("Creating feature class %s", fc.name)
	if err := p.ws.CreateFeatureClass(def); err != nil {
		return fmt.Errorf("create %s: %w", fc.name, err)
	}
	for _, f := range fc.fields {
		p.log.Debugf("Adding field %s.%s", fc.name, f.Name)
		if err := p.ws.AddField(ctx, fc.name, f); err != nil {
			return fmt.Errorf("add field %s.%s: %w", fc.name, f.Name, err)
		}
	}
	return nil
}

// domains creates every domain, then assigns each to its own field.
func (p *populator) domains(ctx context.Context) error {
	for _, d := range domains {
		p.log.Infof("Creating domain %s", d.name)
		var err error
		if d.coded() {
			err = p.ws.CreateCodedDomain(ctx, d.name, d.desc, d.ft, d.codes)
		} else {
			err = p.ws.CreateRangeDomain(ctx, d.name, d.desc, d.ft, d.min, d.max)
		}
		if err != nil {
			return fmt.Errorf("create domain %s: %w", d.name, err)
		}
	}

	fc := domainFeatureClass
	for _, d := range domains {
		fc.fields = append(fc.fields, gdb.FieldDef{Name: d.field, Type: d.ft})
	}
	if err := p.create(ctx, fc); err != nil {
		return err
	}
	for _, d := range domains {
		p.log.Debugf("Assigning %s to %s.%s", d.name, fc.name, d.field)
		if err := p.ws.AssignDomain(ctx, fc.name, d.field, d.name); err != nil {
			return fmt.Errorf("assign domain %s: %w", d.name, err)
		}
	}
	return nil
}

func (p *populator) grids(gfcs []gridFeatureClass) func(context.Context) error {
	return func(ctx context.Context) error {
		for _, g := range gfcs {
			if err := p.create(ctx, g.featureClass); err != nil {
				return err
			}

			var src gdb.FeatureSource
			var err error
			if g.geom == gdb.Polygon {
				src, err = g.grid.Cells()
			} else {
				src, err = g.grid.Lines()
			}
			if err != nil {
				return fmt.Errorf("grid %s: %w", g.name, err)
			}

			p.log.Infof("Generating %d records in %s", src.Count(), g.name)
			if err := p.ws.Load(ctx, g.name, src); err != nil {
				return fmt.Errorf("load %s: %w", g.name, err)
			}
		}
		return nil
	}
}
