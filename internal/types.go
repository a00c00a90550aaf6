package internal

type RecordStatus string

const (
	StatusReceived  RecordStatus = "received"
	StatusProcessed RecordStatus = "processed"
	StatusRejected  RecordStatus = "rejected"
	StatusExported  RecordStatus = "exported"
)

// SourceRecord is one purchase-order transmission as delivered by the
// upstream EDI gateway. The raw JSON lives on disk; RawRef points at it.
type SourceRecord struct {
	ID                int
	CompanyCode       string
	PartnerOrderType  string
	Hash              string
	DownloadTimestamp string
	RawRef            string
	Status            RecordStatus
}

type CanonicalHeader struct {
	ID                int
	SourceRecordID    int
	Company           string
	CustomerPO        string
	POType            string
	DownloadDate      string
	DownloadTimestamp string
	Version           int
}

type CanonicalLineItem struct {
	Style           string
	Color           string
	Size            string
	UPC             string
	SKU             string
	UOM             string
	UnitPrice       *float64
	RetailPrice     *float64
	InnerPack       *int
	QtyPerInnerPack *int
	StoreNumber     string
	Qty             int
	IsBOMComponent  bool
	ParentLineKey   *string
}

// StoreAllocation is one raw (store, quantity) pair reconstructed from an
// SDQ segment. Quantity may still be zero or negative here; the builder
// applies the drop rule.
type StoreAllocation struct {
	StoreNumber string
	Qty         int
}

type BOMComponent struct {
	Style    string
	Color    string
	Size     string
	UPC      string
	SKU      string
	Quantity int
}

type BOMComposition struct {
	ParentLineKey string
	Components    []BOMComponent
	Signature     string
}

// FetchedDocument is a gateway payload pulled by a connector before it is
// stored and registered as a SourceRecord.
type FetchedDocument struct {
	Connector         string
	ExternalID        string
	CompanyCode       string
	PartnerOrderType  string
	DownloadTimestamp string
	Payload           []byte
}

type CatalogProduct struct {
	CompanyID string
	ProductID string
	Color     *string
	Size      *string
	RawJSON   string
}

type RunStats struct {
	Processed          int
	Rejected           int
	LineItems          int
	DroppedAllocations int
	DanglingStores     int
}
