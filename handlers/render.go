package handlers

import (
	"html/template"
	"path/filepath"

	"github.com/gin-contrib/multitemplate"

	"induction-portal/i18n"
	"induction-portal/navigation"
	"induction-portal/utils"
)

// Page templates rendered inside layout.html.
var pageTemplates = []string{
	"home",
	"category",
	"faq",
	"search",
	"not_found",
	"login",
	"admin_dashboard",
}

// TemplateFuncs are available to every page template.
var TemplateFuncs = template.FuncMap{
	"t":        i18n.T,
	"deeplink": navigation.DeepLink,
	"pagelink": navigation.PageLink,
	"truncate": utils.Truncate,
	"inc":      func(i int) int { return i + 1 },
}

// NewRenderer loads layout.html plus one file per page from dir.
func NewRenderer(dir string) multitemplate.Renderer {
	r := multitemplate.NewRenderer()
	layout := filepath.Join(dir, "layout.html")
	for _, name := range pageTemplates {
		r.AddFromFilesFuncs(name, TemplateFuncs, layout, filepath.Join(dir, name+".html"))
	}
	return r
}
