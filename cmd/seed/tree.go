package main

import (
	"context"
	"fmt"
	"io"

	"gopkg.in/yaml.v3"

	"pkm/internal/domain/models"
	"pkm/internal/domain/repositories"
)

// seedFile is the YAML layout accepted by -file:
//
//	projects:
//	  - name: Research
//	    description: Reading notes
//	    children:
//	      - name: Papers
type seedFile struct {
	Projects []seedProject `yaml:"projects"`
}

type seedProject struct {
	Name        string        `yaml:"name"`
	Description string        `yaml:"description,omitempty"`
	Children    []seedProject `yaml:"children,omitempty"`
}

func parseSeedFile(r io.Reader) (*seedFile, error) {
	var f seedFile
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil {
		return nil, fmt.Errorf("parse seed file: %w", err)
	}
	if len(f.Projects) == 0 {
		return nil, fmt.Errorf("seed file has no projects")
	}
	return &f, nil
}

// count returns the number of projects in the forest
func (f *seedFile) count() int {
	var walk func([]seedProject) int
	walk = func(ps []seedProject) int {
		n := len(ps)
		for _, p := range ps {
			n += walk(p.Children)
		}
		return n
	}
	return walk(f.Projects)
}

// createForest inserts every project depth-first, parents before children,
// and reports each created project to onCreate.
func createForest(ctx context.Context, projects repositories.ProjectRepository, userID string, roots []seedProject, onCreate func(depth int, p *models.Project)) error {
	var create func(nodes []seedProject, parentID *string, depth int) error
	create = func(nodes []seedProject, parentID *string, depth int) error {
		for _, node := range nodes {
			in := &models.ProjectCreate{Name: node.Name, ParentProjectID: parentID}
			if node.Description != "" {
				desc := node.Description
				in.Description = &desc
			}

			p, err := projects.Create(ctx, userID, in)
			if err != nil {
				return fmt.Errorf("create %q: %w", node.Name, err)
			}
			if onCreate != nil {
				onCreate(depth, p)
			}

			id := p.ID
			if err := create(node.Children, &id, depth+1); err != nil {
				return err
			}
		}
		return nil
	}
	return create(roots, nil, 0)
}
