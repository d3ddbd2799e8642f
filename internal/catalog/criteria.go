package catalog

// CategorySearchCriteria selects categories by name under a parent.
// OnlyRoot restricts the search to top-level categories of the catalog.
// Keyword matches the whole name, case-insensitively.
type CategorySearchCriteria struct {
	CatalogID string
	ParentID  string
	OnlyRoot  bool
	Keyword   string
	Skip      int
	Take      int
}

// PriceSearchCriteria selects prices of products, optionally per price list.
type PriceSearchCriteria struct {
	ProductIDs   []string
	PricelistIDs []string
	Skip         int
	Take         int
}

// DictionaryItemSearchCriteria selects dictionary items of properties.
type DictionaryItemSearchCriteria struct {
	PropertyIDs []string
	Skip        int
	Take        int
}

// FulfillmentCenterSearchCriteria pages through fulfillment centers.
type FulfillmentCenterSearchCriteria struct {
	Skip int
	Take int
}

// ProductCode is one row of a code to id lookup.
type ProductCode struct {
	ID   string
	Code string
}
