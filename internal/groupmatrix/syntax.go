package groupmatrix

import (
	"context"
	"errors"
	"io"

	"github.com/EO-DataHub/eodhp-groupmatrix/internal/directive"
	"github.com/EO-DataHub/eodhp-groupmatrix/internal/matrix"
	"github.com/EO-DataHub/eodhp-groupmatrix/internal/render"
)

// ModeXHTML is the only render mode producing output.
const ModeXHTML = "xhtml"

// MissingGroupsMessage is shown to the page reader when a directive has no groups.
const MissingGroupsMessage = "Missing groups configuration"

// Warner receives messages meant for the person viewing the page.
type Warner interface {
	Warn(msg string)
}

// Syntax turns groupmatrix directives into tables.
type Syntax struct {
	Directory matrix.Directory
	// Class is added to the table's class list.
	Class string
}

// NewSyntax creates a Syntax reading memberships from dir.
func NewSyntax(dir matrix.Directory, class string) *Syntax {
	return &Syntax{
		Directory: dir,
		Class:     class,
	}
}

// Handle parses a matched directive and builds its matrix. A directive
// without groups produces a warning and an empty matrix. warn may be nil.
func (s *Syntax) Handle(ctx context.Context, match string, warn Warner) matrix.Matrix {
	cfg, err := directive.Parse(match)
	if errors.Is(err, directive.ErrMissingGroups) {
		if warn != nil {
			warn.Warn(MissingGroupsMessage)
		}
		return matrix.Matrix{}
	}

	return matrix.Build(ctx, s.Directory, cfg)
}

// Render appends the table for m to w. It reports false for modes other than
// xhtml and writes nothing in that case.
func (s *Syntax) Render(mode string, w io.Writer, m matrix.Matrix) (bool, error) {
	if mode != ModeXHTML {
		return false, nil
	}

	if err := render.Table(w, m, s.Class); err != nil {
		return false, err
	}
	return true, nil
}
