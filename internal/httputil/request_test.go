package httputil

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pkm/internal/domain/models"
)

func TestParsePage(t *testing.T) {
	tests := []struct {
		query   string
		want    models.Page
		wantErr bool
	}{
		{"", models.Page{Skip: 0, Limit: 100}, false},
		{"skip=20&limit=5", models.Page{Skip: 20, Limit: 5}, false},
		{"limit=5000", models.Page{Skip: 0, Limit: 1000}, false},
		{"skip=-1", models.Page{}, true},
		{"limit=0", models.Page{}, true},
		{"limit=abc", models.Page{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/api/projects?"+tt.query, nil)
			page, err := ParsePage(r)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, page)
		})
	}
}

func TestParseJSON_PatchPresence(t *testing.T) {
	body := `{"name":"Renamed","parent_project_id":null}`
	r := httptest.NewRequest(http.MethodPatch, "/api/projects/x", strings.NewReader(body))
	w := httptest.NewRecorder()

	var patch models.ProjectPatch
	require.NoError(t, ParseJSON(w, r, &patch))
	require.NotNil(t, patch.Name)
	assert.Equal(t, "Renamed", *patch.Name)
	assert.True(t, patch.ParentProjectID.Present)
	assert.Nil(t, patch.ParentProjectID.Value)
	assert.False(t, patch.Description.Present)
}

func TestParseJSON_RejectsUnknownFields(t *testing.T) {
	r := httptest.NewRequest(http.MethodPost, "/api/projects", strings.NewReader(`{"nme":"typo"}`))
	var in models.ProjectCreate
	assert.Error(t, ParseJSON(httptest.NewRecorder(), r, &in))
}
