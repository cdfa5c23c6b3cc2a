package db

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"induction-portal/models"
)

// DefaultCategories is the menu created for a brand new document.
var DefaultCategories = []models.CategoryEntry{
	{Key: "mfa", Name: "🔐 1. MFA (Microsoft 2FA)"},
	{Key: "vpn", Name: "🛡️ 2. VPN Config"},
	{Key: "outlook", Name: "📧 3. Outlook & Email"},
	{Key: "mobile", Name: "📱 4. Mobile APN"},
	{Key: "software_center", Name: "💿 5. Software Center"},
	{Key: "other", Name: "📚 6. Other Tutorials"},
}

// DefaultHome is the landing page of a brand new document.
var DefaultHome = models.Home{Logo: "", Text: "# Welcome!\nSelect a guide from the left."}

// DefaultFAQ holds the seed help entries.
var DefaultFAQ = []models.FAQEntry{
	{Q: "I cannot login to Outlook.", A: "Please ensure you have reset your initial password on a Prysmian device first."},
	{Q: "VPN says 'Gateway Unreachable'.", A: "Check your internet connection and try switching from WiFi to Mobile Hotspot to test."},
}

// DefaultDocument returns the skeleton written on first access. Categories
// are declared but carry no content; migration synthesizes it.
func DefaultDocument() *models.Document {
	doc := &models.Document{
		Home:           DefaultHome,
		CategoriesList: models.NewCategoryList(DefaultCategories...),
		FAQ:            append([]models.FAQEntry{}, DefaultFAQ...),
		Analytics:      models.NewAnalytics(),
	}
	doc.Normalize()
	return doc
}

// SeedDefaults returns a DefaultDocument factory overridden by the YAML seed
// file at path. An empty path yields DefaultDocument.
func SeedDefaults(path string) (func() *models.Document, error) {
	if path == "" {
		return DefaultDocument, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read seed file %s: %w", path, err)
	}
	var seed models.SeedYAML
	if err := yaml.Unmarshal(data, &seed); err != nil {
		return nil, fmt.Errorf("failed to parse seed file %s: %w", path, err)
	}
	for i, c := range seed.Categories {
		if c.Key == "" || c.Name == "" {
			return nil, fmt.Errorf("seed file %s: category %d needs key and name", path, i+1)
		}
		if models.IsReservedKey(c.Key) {
			return nil, fmt.Errorf("seed file %s: category key %q is reserved", path, c.Key)
		}
	}

	return func() *models.Document {
		doc := DefaultDocument()
		if seed.Home != nil {
			doc.Home = *seed.Home
		}
		if seed.FAQ != nil {
			doc.FAQ = append([]models.FAQEntry{}, seed.FAQ...)
		}
		if len(seed.Categories) > 0 {
			doc.CategoriesList = models.NewCategoryList()
			for _, c := range seed.Categories {
				doc.CategoriesList.Set(c.Key, c.Name)
				doc.Categories[c.Key] = c.Content()
			}
		}
		return doc
	}, nil
}
