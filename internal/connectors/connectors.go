package connectors

import "edicanon/internal"

// DocumentConnector pulls purchase-order JSON payloads from one delivery
// channel: the gateway drop directory, or a mailbox the gateway forwards
// transmissions to.
type DocumentConnector interface {
	FetchDocuments(label string, max int) ([]internal.FetchedDocument, error)
}
