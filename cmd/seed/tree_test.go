package main

import (
	"context"
	"errors"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pkm/internal/domain/models"
	"pkm/internal/domain/repositories"
)

// recordingProjects embeds the interface; only Create is exercised
type recordingProjects struct {
	repositories.ProjectRepository
	created []models.Project
	failOn  string
}

func (r *recordingProjects) Create(_ context.Context, userID string, in *models.ProjectCreate) (*models.Project, error) {
	if in.Name == r.failOn {
		return nil, errors.New("insert failed")
	}
	p := models.Project{
		ID:              in.Name + "-id",
		UserID:          userID,
		Name:            in.Name,
		Description:     in.Description,
		ParentProjectID: in.ParentProjectID,
	}
	r.created = append(r.created, p)
	return &p, nil
}

const sample = `
projects:
  - name: Research
    description: Notes
    children:
      - name: Papers
        children:
          - name: Isolation
  - name: Inbox
`

func TestParseSeedFile(t *testing.T) {
	f, err := parseSeedFile(strings.NewReader(sample))
	require.NoError(t, err)
	assert.Equal(t, 4, f.count())
	require.Len(t, f.Projects, 2)
	assert.Equal(t, "Notes", f.Projects[0].Description)
	assert.Equal(t, "Isolation", f.Projects[0].Children[0].Children[0].Name)
}

func TestParseSeedFile_Rejects(t *testing.T) {
	_, err := parseSeedFile(strings.NewReader("projects: []\n"))
	assert.Error(t, err)

	_, err = parseSeedFile(strings.NewReader("projects:\n  - nme: typo\n"))
	assert.Error(t, err, "unknown fields are rejected")
}

func TestExampleFileParses(t *testing.T) {
	f, err := os.Open("tree.example.yaml")
	require.NoError(t, err)
	defer f.Close()

	forest, err := parseSeedFile(f)
	require.NoError(t, err)
	assert.Equal(t, 8, forest.count())
}

func TestCreateForest_ParentsBeforeChildren(t *testing.T) {
	f, err := parseSeedFile(strings.NewReader(sample))
	require.NoError(t, err)

	repo := &recordingProjects{}
	var depths []int
	err = createForest(context.Background(), repo, "user-1", f.Projects, func(depth int, _ *models.Project) {
		depths = append(depths, depth)
	})
	require.NoError(t, err)

	require.Len(t, repo.created, 4)
	assert.Equal(t, []int{0, 1, 2, 0}, depths)

	byName := map[string]models.Project{}
	for _, p := range repo.created {
		byName[p.Name] = p
		assert.Equal(t, "user-1", p.UserID)
	}
	assert.Nil(t, byName["Research"].ParentProjectID)
	assert.Equal(t, "Research-id", *byName["Papers"].ParentProjectID)
	assert.Equal(t, "Papers-id", *byName["Isolation"].ParentProjectID)
	assert.Nil(t, byName["Inbox"].ParentProjectID)
	require.NotNil(t, byName["Research"].Description)
	assert.Nil(t, byName["Papers"].Description)
}

func TestCreateForest_StopsOnError(t *testing.T) {
	f, err := parseSeedFile(strings.NewReader(sample))
	require.NoError(t, err)

	repo := &recordingProjects{failOn: "Papers"}
	err = createForest(context.Background(), repo, "user-1", f.Projects, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `"Papers"`)
	assert.Len(t, repo.created, 1)
}
