package services

import (
	"encoding/base64"
	"os"
	"path/filepath"

	"github.com/ruralpay/wallet/internal/models"
)

// PlaceholderGlyph is served for glyphs with no SVG on disk
const PlaceholderGlyph = `<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 24 24"><rect width="24" height="24" rx="6" fill="#f0f0f0"/><circle cx="12" cy="12" r="5" fill="none" stroke="#999" stroke-width="2"/></svg>`

// QuickAction is a dashboard shortcut into a flow
type QuickAction struct {
	Code    string         `json:"code"`
	Label   string         `json:"label"`
	Glyph   string         `json:"glyph"`
	Channel models.Channel `json:"channel,omitempty"`
}

var QuickActions = []QuickAction{
	{Code: "scan-qr", Label: "Scan QR", Glyph: "qr-code", Channel: models.ChannelQR},
	{Code: "send-money", Label: "Send Money", Glyph: "send", Channel: models.ChannelTransfer},
	{Code: "bill-payments", Label: "Pay Bills", Glyph: "receipt", Channel: models.ChannelBill},
	{Code: "add-money", Label: "Add Money", Glyph: models.GlyphPlus},
}

// Catalog lists the fixed choices a client renders
type Catalog struct {
	BillTypes        []BillType        `json:"billTypes"`
	FundingMethods   []FundingMethod   `json:"fundingMethods"`
	QuickActions     []QuickAction     `json:"quickActions"`
	BudgetCategories []CategoryBudget  `json:"budgetCategories"`
	Glyphs           map[string]string `json:"glyphs"` // glyph name to data URI
}

type CatalogService struct {
	glyphDir string
}

func NewCatalogService(glyphDir string) *CatalogService {
	return &CatalogService{glyphDir: glyphDir}
}

// Catalog returns copies of the fixed lists with every referenced glyph inlined
func (cs *CatalogService) Catalog() *Catalog {
	c := &Catalog{
		BillTypes:        append([]BillType(nil), BillTypes...),
		FundingMethods:   append([]FundingMethod(nil), FundingMethods...),
		QuickActions:     append([]QuickAction(nil), QuickActions...),
		BudgetCategories: append([]CategoryBudget(nil), DefaultCategoryBudgets...),
		Glyphs:           make(map[string]string),
	}

	names := []string{
		models.GlyphPlus, models.GlyphArrowDownLeft, models.GlyphArrowUpRight,
		models.GlyphZap, models.GlyphUtensils,
	}
	for _, bt := range c.BillTypes {
		names = append(names, bt.Glyph)
	}
	for _, fm := range c.FundingMethods {
		names = append(names, fm.Glyph)
	}
	for _, qa := range c.QuickActions {
		names = append(names, qa.Glyph)
	}
	for _, name := range names {
		if _, ok := c.Glyphs[name]; !ok {
			c.Glyphs[name] = cs.LoadGlyph(name)
		}
	}
	return c
}

// LoadGlyph returns the glyph SVG as a data URI, or the placeholder
func (cs *CatalogService) LoadGlyph(name string) string {
	path := filepath.Join(cs.glyphDir, filepath.Base(name)+".svg")
	if data, err := os.ReadFile(path); err == nil {
		return "data:image/svg+xml;base64," + base64.StdEncoding.EncodeToString(data)
	}
	return "data:image/svg+xml;base64," + base64.StdEncoding.EncodeToString([]byte(PlaceholderGlyph))
}
