package view

import (
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/verdantrx/verdantrx/internal/shared"
)

func TestNewEngine(t *testing.T) {
	engine, err := NewEngine()
	assert.NoError(t, err, "Templates should parse without error")
	assert.NotNil(t, engine)
}

func TestRenderFlash(t *testing.T) {
	engine, err := NewEngine()
	require.NoError(t, err)

	res := httptest.NewRecorder()
	err = engine.Render(res, "pages/home.html", TemplateData{
		Title: "Home",
		Flash: &shared.FlashMessage{Kind: "error", Message: "You do not have permission to view that page."},
	})
	require.NoError(t, err)
	require.True(t, strings.Contains(res.Body.String(), "You do not have permission"))
}
