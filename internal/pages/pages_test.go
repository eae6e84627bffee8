package pages

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRenderLanding(t *testing.T) {
	html, err := RenderLanding()
	require.NoError(t, err)

	body := string(html)
	assert.Contains(t, body, "<!DOCTYPE html>")
	assert.Contains(t, body, `href="/authorize"`)
	assert.Contains(t, body, "Conectar con Google Fit")
}

func TestRenderLanding_Deterministic(t *testing.T) {
	first, err := RenderLanding()
	require.NoError(t, err)
	second, err := RenderLanding()
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestRenderError(t *testing.T) {
	html, err := RenderError("Error de Conexión", "Fallo al obtener refresh_token.\n\nMensaje de Google: Bad code")
	require.NoError(t, err)

	body := string(html)
	assert.Contains(t, body, "<title>Error de Conexión</title>")
	assert.Contains(t, body, "¡Error de Conexión!")
	assert.Contains(t, body, "Mensaje de Google: Bad code")
	assert.Contains(t, body, "Fallo al obtener refresh_token.\n\nMensaje de Google")
	assert.Contains(t, body, `href="/"`)
}

func TestRenderError_EscapesDetail(t *testing.T) {
	html, err := RenderError("<b>Title</b>", `<script>alert("x")</script>`)
	require.NoError(t, err)

	body := string(html)
	assert.NotContains(t, body, "<script>")
	assert.NotContains(t, body, "<b>Title</b>")
	assert.Contains(t, body, "&lt;script&gt;")
}

func TestRenderError_Deterministic(t *testing.T) {
	first, err := RenderError("Error de Configuración", "detail")
	require.NoError(t, err)
	second, err := RenderError("Error de Configuración", "detail")
	require.NoError(t, err)

	assert.Equal(t, first, second)

	other, err := RenderError("Error de Configuración", "other detail")
	require.NoError(t, err)
	assert.NotEqual(t, first, other)
}
