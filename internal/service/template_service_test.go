package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTemplateService_Render(t *testing.T) {
	svc := NewTemplateService(ShopProfile{Name: "Fade Masters", Phone: "0700111222"})

	tests := []struct {
		name     string
		template string
		customer string
		want     string
	}{
		{"all placeholders", "Hi {customerName}, {shopName} on {phone}", "Wanjiru", "Hi Wanjiru, Fade Masters on 0700111222"},
		{"blank name", "Hi {customerName}", "  ", "Hi Valued Customer"},
		{"repeated", "{shopName}! {shopName}!", "", "Fade Masters! Fade Masters!"},
		{"unknown kept", "Hi {firstName}", "Wanjiru", "Hi {firstName}"},
		{"no placeholders", "See you soon", "Wanjiru", "See you soon"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := svc.Render(tt.template, tt.customer)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := svc.Render("", "Wanjiru")
	assert.Error(t, err)
}

func TestTemplateService_ValidateTemplate(t *testing.T) {
	svc := NewTemplateService(ShopProfile{})

	assert.NoError(t, svc.ValidateTemplate("Hi {customerName}"))
	assert.ErrorContains(t, svc.ValidateTemplate(""), "empty")
	assert.ErrorContains(t, svc.ValidateTemplate("Hi {customerName"), "unbalanced")
	assert.ErrorContains(t, svc.ValidateTemplate("Hi customerName}"), "unbalanced")
}

func TestTemplateService_Placeholders(t *testing.T) {
	svc := NewTemplateService(ShopProfile{})

	assert.Equal(t, []string{"{customerName}", "{offer}", "{shopName}"}, svc.GetPlaceholders("{customerName} {offer} {shopName}"))
	assert.Equal(t, []string{"{offer}"}, svc.UnknownPlaceholders("{customerName} {offer} {shopName}"))
	assert.Empty(t, svc.UnknownPlaceholders("plain text"))
}

func TestTemplateService_BuiltInTemplatesAreValid(t *testing.T) {
	svc := NewTemplateService(ShopProfile{Name: "Fade Masters", Phone: "0700111222"})

	templates := svc.Templates()
	require.Len(t, templates, 6)
	for _, tmpl := range templates {
		assert.True(t, tmpl.Type.Valid(), tmpl.Name)
		assert.NoError(t, svc.ValidateTemplate(tmpl.Message), tmpl.Name)
		assert.Empty(t, svc.UnknownPlaceholders(tmpl.Message), tmpl.Name)
	}

	templates[0].Message = "changed"
	assert.NotEqual(t, "changed", svc.Templates()[0].Message)
}
