package checkout

import (
	"encoding/json"
	"fmt"
	"regexp"

	"github.com/lumifin/reconciler/internal/models"
	"github.com/lumifin/reconciler/pkg/faults"
	"github.com/lumifin/reconciler/pkg/types"
)

// CartEntry is one manifest line: product id plus quantity. The manifest is
// a closed structure validated once at the boundary; unknown shapes are
// structural failures.
type CartEntry struct {
	ProductID string `json:"id"`
	Quantity  int64  `json:"quantity"`
}

// ParseCartManifest decodes and validates the cart manifest carried in the
// checkout metadata.
func ParseCartManifest(raw string) ([]CartEntry, error) {
	if raw == "" {
		return nil, faults.Structuralf("missing cart manifest")
	}
	var entries []CartEntry
	if err := json.Unmarshal([]byte(raw), &entries); err != nil {
		return nil, faults.Structuralf("unparseable cart manifest: %v", err)
	}
	if len(entries) == 0 {
		return nil, faults.Structuralf("empty cart manifest")
	}
	for i, e := range entries {
		if e.ProductID == "" {
			return nil, faults.Structuralf("cart entry %d has no product id", i)
		}
		if e.Quantity < 1 {
			return nil, faults.Structuralf("cart entry %d has invalid quantity %d", i, e.Quantity)
		}
	}
	return entries, nil
}

// UnitIntent is the purchase intent for exactly one unit: the output of the
// pure classify+price step, consumed by the persistence step.
type UnitIntent struct {
	ProductID      string
	ProductName    string
	Category       string
	Type           types.PaymentType
	UnitIndex      int
	Amount         int64
	Currency       string
	TransactionKey string
}

// GrantsEntitlement reports whether this unit's cart entry appears in the
// user's purchased-items view.
func (u UnitIntent) GrantsEntitlement() bool {
	return types.GrantsEntitlement(u.Category)
}

// Classifier resolves a cart entry to a payment type. Precedence is an
// ordered rule table evaluated top-down; the first match wins.
type Classifier struct {
	analysisProductID string
	bundleRe          *regexp.Regexp
}

func NewClassifier(analysisProductID, bundlePattern string) (*Classifier, error) {
	re, err := regexp.Compile(bundlePattern)
	if err != nil {
		return nil, fmt.Errorf("invalid bundle pattern %q: %w", bundlePattern, err)
	}
	return &Classifier{analysisProductID: analysisProductID, bundleRe: re}, nil
}

// IsPredefinedBundle reports whether the id matches the fixed bundle naming
// pattern; such ids never require a catalog lookup.
func (c *Classifier) IsPredefinedBundle(productID string) bool {
	return c.bundleRe.MatchString(productID)
}

type classificationRule struct {
	name   string
	match  func(entry CartEntry, p *models.Product) bool
	result types.PaymentType
}

func (c *Classifier) rules() []classificationRule {
	return []classificationRule{
		{"predefined-bundle", func(e CartEntry, _ *models.Product) bool {
			return c.IsPredefinedBundle(e.ProductID)
		}, types.PaymentTypeCapsule},
		{"analysis", func(e CartEntry, p *models.Product) bool {
			return e.ProductID == c.analysisProductID || (p != nil && p.Category == types.CategoryAnalysis)
		}, types.PaymentTypeAnalysis},
		{"pack", func(_ CartEntry, p *models.Product) bool {
			return p != nil && (p.IsPack || p.Category == types.CategoryPack)
		}, types.PaymentTypePack},
		{"ebook", func(_ CartEntry, p *models.Product) bool {
			return p != nil && p.Category == types.CategoryEbook
		}, types.PaymentTypeEbook},
		{"abonnement", func(_ CartEntry, p *models.Product) bool {
			return p != nil && p.Category == types.CategoryAbonnement
		}, types.PaymentTypeAbonnement},
		{"coaching", func(_ CartEntry, p *models.Product) bool {
			return p != nil && p.Category == types.CategoryCoaching
		}, types.PaymentTypeCoaching},
		{"masterclass", func(_ CartEntry, p *models.Product) bool {
			return p != nil && p.Category == types.CategoryMasterclass
		}, types.PaymentTypeMasterclass},
		{"capsules", func(_ CartEntry, p *models.Product) bool {
			return p != nil && p.Category == types.CategoryCapsules
		}, types.PaymentTypeCapsule},
	}
}

// Classify returns the payment type and the category used for entitlement
// exclusion. Unclassified entries fall back to capsule, the safe default.
func (c *Classifier) Classify(entry CartEntry, p *models.Product) (types.PaymentType, string) {
	typ := types.PaymentTypeCapsule
	for _, r := range c.rules() {
		if r.match(entry, p) {
			typ = r.result
			break
		}
	}

	category := ""
	if p != nil {
		category = p.Category
	}
	// The reserved analysis id and abonnement type are excluded from
	// entitlements even without a catalog row.
	switch typ {
	case types.PaymentTypeAnalysis:
		category = types.CategoryAnalysis
	case types.PaymentTypeAbonnement:
		category = types.CategoryAbonnement
	}
	return typ, category
}

// LineTotal is the processor-resolved total for one cart entry.
type LineTotal struct {
	Amount   int64
	Quantity int64
	Currency string
}

// PricingInput carries everything the pricing step needs besides the cart.
type PricingInput struct {
	CheckoutID string
	// Lines maps product id to the processor-resolved line totals.
	Lines map[string]LineTotal
	// Catalog maps product id to catalog rows for non-predefined ids.
	Catalog map[string]*models.Product
	// Total and Currency come from the checkout session itself.
	Total    int64
	Currency string
}

// BuildUnitIntents expands cart entries into per-unit purchase intents.
//
// Unit price precedence is deterministic: processor line-item total divided
// by quantity, then catalog price, then an even split of the checkout total
// across all units. Remainder cents always go to the lowest unit indexes.
func (c *Classifier) BuildUnitIntents(entries []CartEntry, in PricingInput) ([]UnitIntent, error) {
	if in.CheckoutID == "" {
		return nil, faults.Structuralf("missing checkout id")
	}

	var totalUnits int64
	for _, e := range entries {
		totalUnits += e.Quantity
	}

	evenBase := int64(0)
	evenRemainder := int64(0)
	if totalUnits > 0 {
		evenBase = in.Total / totalUnits
		evenRemainder = in.Total % totalUnits
	}

	intents := make([]UnitIntent, 0, totalUnits)
	overall := int64(0)
	for _, entry := range entries {
		product := in.Catalog[entry.ProductID]
		typ, category := c.Classify(entry, product)

		name := entry.ProductID
		if product != nil && product.Name != "" {
			name = product.Name
		}

		unitAmounts, currency := resolveUnitAmounts(entry, product, in, evenBase, evenRemainder, overall)

		for unit := int64(0); unit < entry.Quantity; unit++ {
			intents = append(intents, UnitIntent{
				ProductID:      entry.ProductID,
				ProductName:    name,
				Category:       category,
				Type:           typ,
				UnitIndex:      int(unit),
				Amount:         unitAmounts[unit],
				Currency:       currency,
				TransactionKey: fmt.Sprintf("%s:%s:%d", in.CheckoutID, entry.ProductID, unit),
			})
		}
		overall += entry.Quantity
	}
	return intents, nil
}

// resolveUnitAmounts prices every unit of one entry, applying the fallback
// chain and spreading division remainders over the first units.
func resolveUnitAmounts(entry CartEntry, product *models.Product, in PricingInput, evenBase, evenRemainder, firstOverallIndex int64) ([]int64, string) {
	amounts := make([]int64, entry.Quantity)
	currency := in.Currency

	if line, ok := in.Lines[entry.ProductID]; ok && line.Amount > 0 && line.Quantity > 0 {
		if line.Currency != "" {
			currency = line.Currency
		}
		base := line.Amount / line.Quantity
		rem := line.Amount % line.Quantity
		for i := range amounts {
			amounts[i] = base
			if int64(i) < rem {
				amounts[i]++
			}
		}
		return amounts, currency
	}

	if product != nil && product.Price > 0 {
		if product.Currency != "" {
			currency = product.Currency
		}
		for i := range amounts {
			amounts[i] = product.Price
		}
		return amounts, currency
	}

	for i := range amounts {
		amounts[i] = evenBase
		if firstOverallIndex+int64(i) < evenRemainder {
			amounts[i]++
		}
	}
	return amounts, currency
}
