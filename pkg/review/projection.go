package review

import (
	"errors"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Column is one overview column of the review grid. Hidden columns are kept
// out of the rendered surface but still round-trip through the session base
// snapshot.
type Column struct {
	Name   string `yaml:"name" json:"name"`
	Label  string `yaml:"label" json:"label"`
	Hidden bool   `yaml:"hidden" json:"hidden"`
}

type Editable struct {
	Status  bool `yaml:"status" json:"status"`
	Comment bool `yaml:"comment" json:"comment"`
}

// Projection defines which columns the grid shows and which fields the
// reviewer may edit.
type Projection struct {
	Columns  []Column `yaml:"columns" json:"columns"`
	Editable Editable `yaml:"editable" json:"editable"`
}

func LoadProjection(path string) (Projection, error) {
	if path == "" {
		return DefaultProjection(), nil
	}

	content, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return Projection{}, err
	}

	var p Projection
	if err := yaml.Unmarshal(content, &p); err != nil {
		return Projection{}, err
	}

	if len(p.Columns) == 0 {
		return Projection{}, errors.New("projection has no columns")
	}

	return p, nil
}

func DefaultProjection() Projection {
	return Projection{
		Columns: []Column{
			{Name: "id", Label: "ID"},
			{Name: "bdid", Label: "BDID"},
			{Name: "product", Label: "Product"},
			{Name: "componentgroup", Label: "Component Group"},
			{Name: "ts_item", Label: "TS Item"},
			{Name: "bd_item", Label: "BD Item"},
			{Name: "match_status", Label: "Match Status"},
			{Name: "user_comment", Label: "Comment"},
			{Name: "comment_timestamp", Label: "Comment Updated"},
		},
		Editable: Editable{Status: true, Comment: true},
	}
}

// Visible filters out hidden columns for rendering.
func (p Projection) Visible() []Column {
	cols := make([]Column, 0, len(p.Columns))
	for _, c := range p.Columns {
		if !c.Hidden {
			cols = append(cols, c)
		}
	}
	return cols
}

// ColumnValue resolves a projection column against a row for rendering.
func ColumnValue(row MatchRow, name string) interface{} {
	switch name {
	case "id":
		return row.ID
	case "bdid":
		return row.BDID
	case "product":
		return row.Product
	case "componentgroup":
		return row.ComponentGroup
	case "ts_item":
		return row.TSItem
	case "bd_item":
		return row.BDItem
	case "match_status":
		return row.MatchStatus
	case "accept_reject":
		return string(row.AcceptReject)
	case "user_comment":
		if row.UserComment == nil {
			return ""
		}
		return *row.UserComment
	case "comment_timestamp":
		if row.CommentTimestamp == nil {
			return ""
		}
		return row.CommentTimestamp.Format("2006-01-02 15:04:05")
	default:
		return ""
	}
}
