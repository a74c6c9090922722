// Package report renders session summary reports from canonical containers.
//
// The renderer performs no computation of its own: it reads session
// identity, dimensions, container size and stage attributes, and embeds the
// pre-rendered QA figures by reference.
package report

import (
	"embed"
	"fmt"
	"html/template"
	"os"
	"path/filepath"
	"strings"

	"github.com/drim2p/drim2p/internal/stage"
	"github.com/drim2p/drim2p/internal/store"
)

//go:embed templates/*.html
var templatesFS embed.FS

// Renderer renders reports from parsed templates. Construct one with
// NewRenderer and pass it around explicitly.
type Renderer struct {
	templates *template.Template
}

// NewRenderer parses the embedded report templates.
func NewRenderer() (*Renderer, error) {
	t, err := template.New("").Funcs(template.FuncMap{
		"hasSuffix": strings.HasSuffix,
	}).ParseFS(templatesFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("failed to parse report templates: %w", err)
	}
	return &Renderer{templates: t}, nil
}

// MotionReport is the data behind the motion-correction report page.
type MotionReport struct {
	Session      string
	FrameCount   int
	DurationMS   float64
	HasDuration  bool
	FileSizeMB   float64
	Corrected    bool
	Strategy     string
	MaxDisp      string
	ProcessTime  string
	FigureFiles  []string
}

// BuildMotionReport collects the report data for one container. Figure file
// paths are recorded relative to the report location so the generated page
// stays portable with its directory.
func BuildMotionReport(c *store.Container, figures []string) (*MotionReport, error) {
	r := &MotionReport{
		Session: strings.TrimSuffix(filepath.Base(c.Path()), store.Extension),
	}

	size, err := c.FileSize()
	if err != nil {
		return nil, err
	}
	r.FileSizeMB = float64(size) / (1024 * 1024)

	raw, err := c.Read(store.RawImagingPath)
	if err != nil {
		return nil, err
	}
	r.FrameCount = raw.FrameCount()

	if exists, err := c.Exists(store.TimestampsPath); err != nil {
		return nil, err
	} else if exists && r.FrameCount > 1 {
		stamps, err := c.Read(store.TimestampsPath)
		if err != nil {
			return nil, err
		}
		values, err := stamps.Float64s()
		if err != nil {
			return nil, err
		}
		if len(values) > 1 {
			// Timestamps are left edges, so the span extends one frame
			// interval past the last one.
			interval := values[1] - values[0]
			r.DurationMS = values[len(values)-1] + interval
			r.HasDuration = true
		}
	}

	corrected, err := c.Exists(store.CorrectedImagingPath)
	if err != nil {
		return nil, err
	}
	if corrected {
		r.Corrected = true
		attrs, err := c.Attributes(store.CorrectedImagingPath)
		if err != nil {
			return nil, err
		}
		if v, ok := attrs["STRATEGY"].(string); ok {
			r.Strategy = v
		}
		if v, ok := attrs["MAX_DISPLACEMENT"].([]any); ok {
			parts := make([]string, len(v))
			for i, d := range v {
				parts[i] = fmt.Sprintf("%v", d)
			}
			r.MaxDisp = strings.Join(parts, ", ")
		}
		if v, ok := attrs[stage.ProcessingTimeAttr].(string); ok {
			r.ProcessTime = v
		}
	}

	for _, figure := range figures {
		r.FigureFiles = append(r.FigureFiles, filepath.Base(figure))
	}
	return r, nil
}

// RenderMotion writes the motion-correction report page to path.
func (r *Renderer) RenderMotion(report *MotionReport, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create report %q: %w", path, err)
	}
	defer f.Close()

	if err := r.templates.ExecuteTemplate(f, "motion_report.html", report); err != nil {
		return fmt.Errorf("failed to render report %q: %w", path, err)
	}
	return nil
}
