package pipeline

// PartnerRuleSet is the single place partner-specific behavior lives. Each
// (company, order-type) pair maps to one declarative Rule; the builder
// consumes rules and never branches on a company code itself.

type QuantityMode string

const (
	// QuantitySDQ decodes store allocations from the line's SDQ node.
	QuantitySDQ QuantityMode = "sdq"
	// QuantityDirect reads a single quantity field off the line item; used
	// by partners whose orders carry exactly one destination and no SDQ.
	QuantityDirect QuantityMode = "direct"
)

type ValueSourceKind string

const (
	SourceField               ValueSourceKind = "field"
	SourceLiteral             ValueSourceKind = "literal"
	SourceBOMFirstComponent   ValueSourceKind = "bom_first_component"
	SourceCatalog             ValueSourceKind = "catalog"
	SourceSecondWord          ValueSourceKind = "second_word"
	SourceFirstLetterLastWord ValueSourceKind = "first_letter_last_word"
)

// ValueSource is one entry in an ordered resolution list: first source that
// yields a non-empty value wins.
type ValueSource struct {
	Kind  ValueSourceKind
	Field string // for field-backed kinds, including the text-parsing ones
	Value string // for SourceLiteral
}

func Field(name string) ValueSource  { return ValueSource{Kind: SourceField, Field: name} }
func Literal(v string) ValueSource   { return ValueSource{Kind: SourceLiteral, Value: v} }
func BOMFirstColor() ValueSource     { return ValueSource{Kind: SourceBOMFirstComponent} }
func Catalog() ValueSource           { return ValueSource{Kind: SourceCatalog} }
func SecondWordOf(f string) ValueSource {
	return ValueSource{Kind: SourceSecondWord, Field: f}
}
func FirstLetterLastWordOf(f string) ValueSource {
	return ValueSource{Kind: SourceFirstLetterLastWord, Field: f}
}

type Rule struct {
	StyleField       string
	UPCField         string
	SKUField         string
	UOMField         string
	UnitPriceField   string
	RetailPriceField string
	InnerPackField   string
	QtyPerInnerField string

	// Ordered resolution lists, BOM variants used when the line carries a
	// bill of materials.
	ColorSources    []ValueSource
	BOMColorSources []ValueSource
	SizeSources     []ValueSource
	BOMSizeSources  []ValueSource

	// StylePackSuffix appends " P<N>" to the parent style of a BOM line,
	// N being the sum of component quantities per pack.
	StylePackSuffix bool

	QuantityMode    QuantityMode
	QuantityField   string
	DecimalQuantity bool
}

type RuleSet struct {
	rules       map[string]Rule
	defaultRule Rule
}

func ruleKey(company, poType string) string {
	return company + "|" + poType
}

func NewRuleSet(defaultRule Rule) *RuleSet {
	return &RuleSet{rules: map[string]Rule{}, defaultRule: defaultRule}
}

func (rs *RuleSet) Register(company, poType string, rule Rule) {
	rs.rules[ruleKey(company, poType)] = rule
}

// Lookup falls back company-wide (any order type), then to the default.
func (rs *RuleSet) Lookup(company, poType string) Rule {
	if rule, ok := rs.rules[ruleKey(company, poType)]; ok {
		return rule
	}
	if rule, ok := rs.rules[ruleKey(company, "")]; ok {
		return rule
	}
	return rs.defaultRule
}

// DefaultRules is the production rule table. Field names follow the gateway
// JSON; resolution orders reproduce each partner's observed behavior.
func DefaultRules() *RuleSet {
	base := Rule{
		StyleField:       "VendorStyle",
		UPCField:         "GTIN",
		SKUField:         "VendorSKU",
		UOMField:         "UnitOfMeasure",
		UnitPriceField:   "UnitPrice",
		RetailPriceField: "RetailPrice",
		InnerPackField:   "InnerPack",
		QtyPerInnerField: "QtyPerInnerPack",
		ColorSources:     []ValueSource{Field("ColorDescription")},
		BOMColorSources:  []ValueSource{BOMFirstColor(), Field("ColorDescription")},
		SizeSources:      []ValueSource{Field("SizeDescription")},
		BOMSizeSources:   []ValueSource{Literal("PPK")},
		QuantityMode:     QuantitySDQ,
	}

	rs := NewRuleSet(base)

	// 044 ships mixed flat/prepack orders; prepack parents show total pack
	// units in the style and case-literal sizing.
	r044 := base
	r044.StylePackSuffix = true
	r044.BOMSizeSources = []ValueSource{Literal("CA")}
	rs.Register("044", "", r044)

	// 081 keys products by ProductId instead of GTIN and relies on the
	// catalog for color/size when the document omits them.
	r081 := base
	r081.UPCField = "ProductId"
	r081.ColorSources = []ValueSource{Field("ColorDescription"), Catalog()}
	r081.SizeSources = []ValueSource{Field("SizeDescription"), Catalog()}
	r081.BOMColorSources = []ValueSource{BOMFirstColor(), Field("ColorDescription"), Catalog()}
	rs.Register("081", "", r081)

	// 115 encodes the vendor size as the second word of a free-text size
	// description and the cut code as the first letter of its last word.
	r115 := base
	r115.SizeSources = []ValueSource{SecondWordOf("SizeDescription"), FirstLetterLastWordOf("SizeDescription")}
	rs.Register("115", "", r115)

	// 230 direct-ship orders carry exactly one destination, no SDQ, and a
	// decimal-formatted quantity string.
	r230 := base
	r230.QuantityMode = QuantityDirect
	r230.QuantityField = "QtyOrdered"
	r230.DecimalQuantity = true
	r230.StylePackSuffix = true
	rs.Register("230", "DS", r230)

	return rs
}
