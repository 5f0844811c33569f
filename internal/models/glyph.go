package models

// Glyph names are presentation lookups derived from the category tag.
// They are never stored on a transaction.
const (
	GlyphPlus          = "plus"
	GlyphArrowDownLeft = "arrow-down-left"
	GlyphArrowUpRight  = "arrow-up-right"
	GlyphZap           = "zap"
	GlyphUtensils      = "utensils"
)

// GlyphFor maps a transaction's direction and category to a display glyph
func GlyphFor(direction Direction, category Category) string {
	switch category {
	case CategoryMoneyAdded:
		return GlyphPlus
	case CategoryMoneyReceived:
		return GlyphArrowDownLeft
	case CategoryBillPayment:
		return GlyphZap
	case CategoryFoodDining:
		return GlyphUtensils
	case CategoryMoneySent, CategoryQRPayment:
		return GlyphArrowUpRight
	}
	if direction == Credit {
		return GlyphArrowDownLeft
	}
	return GlyphArrowUpRight
}
