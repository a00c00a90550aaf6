package storage

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"

	"edicanon/internal"
)

type DB struct {
	conn *sql.DB
}

func Open(path string) (*DB, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}

	if _, err := conn.Exec(`PRAGMA journal_mode = WAL;`); err != nil {
		_ = conn.Close()
		return nil, err
	}
	if _, err := conn.Exec(`PRAGMA foreign_keys = ON;`); err != nil {
		_ = conn.Close()
		return nil, err
	}

	db := &DB{conn: conn}
	if err := db.init(); err != nil {
		_ = conn.Close()
		return nil, err
	}

	return db, nil
}

func (d *DB) Close() error {
	return d.conn.Close()
}

func (d *DB) init() error {
	schema := `
CREATE TABLE IF NOT EXISTS source_records (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  companyCode TEXT NOT NULL,
  partnerOrderType TEXT NOT NULL DEFAULT '',
  hash TEXT NOT NULL UNIQUE,
  downloadTimestamp TEXT NOT NULL,
  rawRef TEXT NOT NULL,
  status TEXT NOT NULL DEFAULT 'received',
  createdAt TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP,
  updatedAt TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP
);
CREATE INDEX IF NOT EXISTS idx_source_records_status ON source_records(status);

CREATE TABLE IF NOT EXISTS canonical_headers (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  sourceRecordId INTEGER NOT NULL UNIQUE,
  company TEXT NOT NULL,
  customerPO TEXT NOT NULL,
  poType TEXT NOT NULL DEFAULT '',
  downloadDate TEXT NOT NULL,
  downloadTimestamp TEXT NOT NULL,
  version INTEGER NOT NULL,
  createdAt TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP,
  FOREIGN KEY(sourceRecordId) REFERENCES source_records(id)
);
CREATE INDEX IF NOT EXISTS idx_headers_group ON canonical_headers(company, customerPO);

CREATE TABLE IF NOT EXISTS canonical_line_items (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  headerId INTEGER NOT NULL,
  style TEXT NOT NULL,
  color TEXT NOT NULL DEFAULT '',
  size TEXT NOT NULL DEFAULT '',
  upc TEXT NOT NULL DEFAULT '',
  sku TEXT NOT NULL DEFAULT '',
  uom TEXT NOT NULL DEFAULT '',
  unitPrice REAL,
  retailPrice REAL,
  innerPack INTEGER,
  qtyPerInnerPack INTEGER,
  storeNumber TEXT NOT NULL DEFAULT '',
  qty INTEGER NOT NULL,
  isBOMComponent INTEGER NOT NULL DEFAULT 0,
  parentLineKey TEXT,
  FOREIGN KEY(headerId) REFERENCES canonical_headers(id)
);
CREATE INDEX IF NOT EXISTS idx_line_items_header ON canonical_line_items(headerId);

CREATE TABLE IF NOT EXISTS bom_compositions (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  headerId INTEGER NOT NULL,
  parentLineKey TEXT NOT NULL,
  signature TEXT NOT NULL,
  componentsJson TEXT NOT NULL,
  UNIQUE(headerId, signature),
  FOREIGN KEY(headerId) REFERENCES canonical_headers(id)
);

CREATE TABLE IF NOT EXISTS catalog_products (
  companyId TEXT NOT NULL,
  productId TEXT NOT NULL,
  color TEXT,
  size TEXT,
  raw_json TEXT NOT NULL,
  lastSeenAt TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP,
  PRIMARY KEY(companyId, productId)
);

CREATE TABLE IF NOT EXISTS runs (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  traceId TEXT NOT NULL,
  countsJson TEXT NOT NULL,
  timingsJson TEXT NOT NULL,
  createdAt TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS metadata (
  key TEXT PRIMARY KEY,
  value TEXT NOT NULL,
  updatedAt TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP
);
`

	_, err := d.conn.Exec(schema)
	return err
}

// UpsertSourceRecord registers one fetched transmission. Duplicate
// deliveries (same content hash) keep the existing row and its status.
func (d *DB) UpsertSourceRecord(companyCode, partnerOrderType, hash, downloadTimestamp, rawRef string) (internal.SourceRecord, error) {
	_, err := d.conn.Exec(`
INSERT INTO source_records (companyCode, partnerOrderType, hash, downloadTimestamp, rawRef, status)
VALUES (?, ?, ?, ?, ?, 'received')
ON CONFLICT(hash) DO UPDATE SET updatedAt = CURRENT_TIMESTAMP
`, companyCode, partnerOrderType, hash, downloadTimestamp, rawRef)
	if err != nil {
		return internal.SourceRecord{}, err
	}

	rec, err := d.GetSourceRecordByHash(hash)
	if err != nil {
		return internal.SourceRecord{}, err
	}
	if rec == nil {
		return internal.SourceRecord{}, errors.New("failed to upsert source record")
	}
	return *rec, nil
}

func (d *DB) GetSourceRecordByHash(hash string) (*internal.SourceRecord, error) {
	return d.getSourceRecord(`WHERE hash = ?`, hash)
}

func (d *DB) GetSourceRecordByID(id int) (*internal.SourceRecord, error) {
	return d.getSourceRecord(`WHERE id = ?`, id)
}

func (d *DB) getSourceRecord(where string, arg any) (*internal.SourceRecord, error) {
	var rec internal.SourceRecord
	var status string
	err := d.conn.QueryRow(`
SELECT id, companyCode, partnerOrderType, hash, downloadTimestamp, rawRef, status
FROM source_records `+where, arg).Scan(
		&rec.ID, &rec.CompanyCode, &rec.PartnerOrderType, &rec.Hash, &rec.DownloadTimestamp, &rec.RawRef, &status,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	rec.Status = internal.RecordStatus(status)
	return &rec, nil
}

func (d *DB) ListSourceRecordsByStatus(status internal.RecordStatus, limit int) ([]internal.SourceRecord, error) {
	rows, err := d.conn.Query(`
SELECT id, companyCode, partnerOrderType, hash, downloadTimestamp, rawRef, status
FROM source_records WHERE status = ? ORDER BY downloadTimestamp ASC, id ASC LIMIT ?
`, string(status), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []internal.SourceRecord
	for rows.Next() {
		var rec internal.SourceRecord
		var st string
		if err := rows.Scan(&rec.ID, &rec.CompanyCode, &rec.PartnerOrderType, &rec.Hash, &rec.DownloadTimestamp, &rec.RawRef, &st); err != nil {
			return nil, err
		}
		rec.Status = internal.RecordStatus(st)
		out = append(out, rec)
	}
	return out, rows.Err()
}

func (d *DB) UpdateSourceRecordStatus(id int, status internal.RecordStatus) error {
	_, err := d.conn.Exec(`UPDATE source_records SET status = ?, updatedAt = CURRENT_TIMESTAMP WHERE id = ?`, string(status), id)
	return err
}

// ClearRecordProcessing removes any canonical output for one source record
// so the record can be re-run safely.
func (d *DB) ClearRecordProcessing(sourceRecordID int) error {
	tx, err := d.conn.Begin()
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	var headerID int
	err = tx.QueryRow(`SELECT id FROM canonical_headers WHERE sourceRecordId = ?`, sourceRecordID).Scan(&headerID)
	if errors.Is(err, sql.ErrNoRows) {
		return tx.Commit()
	}
	if err != nil {
		return err
	}

	if _, err := tx.Exec(`DELETE FROM canonical_line_items WHERE headerId = ?`, headerID); err != nil {
		return err
	}
	if _, err := tx.Exec(`DELETE FROM bom_compositions WHERE headerId = ?`, headerID); err != nil {
		return err
	}
	if _, err := tx.Exec(`DELETE FROM canonical_headers WHERE id = ?`, headerID); err != nil {
		return err
	}

	return tx.Commit()
}

// PersistCanonical writes the header, its line items, and the deduplicated
// compositions in one transaction. The version is assigned inside the same
// transaction as 1 + count of headers for the group with a strictly earlier
// download timestamp.
func (d *DB) PersistCanonical(header internal.CanonicalHeader, items []internal.CanonicalLineItem, compositions []internal.BOMComposition) (internal.CanonicalHeader, error) {
	tx, err := d.conn.Begin()
	if err != nil {
		return internal.CanonicalHeader{}, err
	}
	defer func() { _ = tx.Rollback() }()

	var earlier int
	err = tx.QueryRow(`
SELECT COUNT(*) FROM canonical_headers
WHERE company = ? AND customerPO = ? AND downloadTimestamp < ?
`, header.Company, header.CustomerPO, header.DownloadTimestamp).Scan(&earlier)
	if err != nil {
		return internal.CanonicalHeader{}, err
	}
	header.Version = earlier + 1

	res, err := tx.Exec(`
INSERT INTO canonical_headers (sourceRecordId, company, customerPO, poType, downloadDate, downloadTimestamp, version)
VALUES (?, ?, ?, ?, ?, ?, ?)
`, header.SourceRecordID, header.Company, header.CustomerPO, header.POType, header.DownloadDate, header.DownloadTimestamp, header.Version)
	if err != nil {
		return internal.CanonicalHeader{}, err
	}
	headerID, err := res.LastInsertId()
	if err != nil {
		return internal.CanonicalHeader{}, err
	}
	header.ID = int(headerID)

	stmt, err := tx.Prepare(`
INSERT INTO canonical_line_items (
  headerId, style, color, size, upc, sku, uom,
  unitPrice, retailPrice, innerPack, qtyPerInnerPack,
  storeNumber, qty, isBOMComponent, parentLineKey
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
`)
	if err != nil {
		return internal.CanonicalHeader{}, err
	}
	defer stmt.Close()

	for _, item := range items {
		if _, err := stmt.Exec(
			header.ID, item.Style, item.Color, item.Size, item.UPC, item.SKU, item.UOM,
			item.UnitPrice, item.RetailPrice, item.InnerPack, item.QtyPerInnerPack,
			item.StoreNumber, item.Qty, boolToInt(item.IsBOMComponent), item.ParentLineKey,
		); err != nil {
			return internal.CanonicalHeader{}, err
		}
	}

	for _, comp := range compositions {
		componentsJSON, _ := json.Marshal(comp.Components)
		if _, err := tx.Exec(`
INSERT INTO bom_compositions (headerId, parentLineKey, signature, componentsJson)
VALUES (?, ?, ?, ?)
ON CONFLICT(headerId, signature) DO NOTHING
`, header.ID, comp.ParentLineKey, comp.Signature, string(componentsJSON)); err != nil {
			return internal.CanonicalHeader{}, err
		}
	}

	if err := tx.Commit(); err != nil {
		return internal.CanonicalHeader{}, err
	}
	return header, nil
}

func (d *DB) GetHeaderBySourceRecordID(sourceRecordID int) (*internal.CanonicalHeader, error) {
	var h internal.CanonicalHeader
	err := d.conn.QueryRow(`
SELECT id, sourceRecordId, company, customerPO, poType, downloadDate, downloadTimestamp, version
FROM canonical_headers WHERE sourceRecordId = ?
`, sourceRecordID).Scan(&h.ID, &h.SourceRecordID, &h.Company, &h.CustomerPO, &h.POType, &h.DownloadDate, &h.DownloadTimestamp, &h.Version)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &h, nil
}

type HeaderGroup struct {
	Company    string
	CustomerPO string
}

func (d *DB) ListHeaderGroups() ([]HeaderGroup, error) {
	rows, err := d.conn.Query(`SELECT DISTINCT company, customerPO FROM canonical_headers`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []HeaderGroup
	for rows.Next() {
		var g HeaderGroup
		if err := rows.Scan(&g.Company, &g.CustomerPO); err != nil {
			return nil, err
		}
		out = append(out, g)
	}
	return out, rows.Err()
}

// ListHeadersForGroup returns the group's headers in authoritative version
// order: downloadTimestamp ascending, ties broken by sourceRecordId.
func (d *DB) ListHeadersForGroup(company, customerPO string) ([]internal.CanonicalHeader, error) {
	rows, err := d.conn.Query(`
SELECT id, sourceRecordId, company, customerPO, poType, downloadDate, downloadTimestamp, version
FROM canonical_headers
WHERE company = ? AND customerPO = ?
ORDER BY downloadTimestamp ASC, sourceRecordId ASC
`, company, customerPO)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []internal.CanonicalHeader
	for rows.Next() {
		var h internal.CanonicalHeader
		if err := rows.Scan(&h.ID, &h.SourceRecordID, &h.Company, &h.CustomerPO, &h.POType, &h.DownloadDate, &h.DownloadTimestamp, &h.Version); err != nil {
			return nil, err
		}
		out = append(out, h)
	}
	return out, rows.Err()
}

func (d *DB) UpdateHeaderVersion(headerID, version int) error {
	_, err := d.conn.Exec(`UPDATE canonical_headers SET version = ? WHERE id = ?`, version, headerID)
	return err
}

func (d *DB) ListLineItems(headerID int) ([]internal.CanonicalLineItem, error) {
	rows, err := d.conn.Query(`
SELECT style, color, size, upc, sku, uom, unitPrice, retailPrice, innerPack, qtyPerInnerPack,
       storeNumber, qty, isBOMComponent, parentLineKey
FROM canonical_line_items WHERE headerId = ? ORDER BY id ASC
`, headerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []internal.CanonicalLineItem
	for rows.Next() {
		var item internal.CanonicalLineItem
		var isBOM int
		if err := rows.Scan(
			&item.Style, &item.Color, &item.Size, &item.UPC, &item.SKU, &item.UOM,
			&item.UnitPrice, &item.RetailPrice, &item.InnerPack, &item.QtyPerInnerPack,
			&item.StoreNumber, &item.Qty, &isBOM, &item.ParentLineKey,
		); err != nil {
			return nil, err
		}
		item.IsBOMComponent = isBOM != 0
		out = append(out, item)
	}
	return out, rows.Err()
}

func (d *DB) ListCompositions(headerID int) ([]internal.BOMComposition, error) {
	rows, err := d.conn.Query(`
SELECT parentLineKey, signature, componentsJson
FROM bom_compositions WHERE headerId = ? ORDER BY id ASC
`, headerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []internal.BOMComposition
	for rows.Next() {
		var comp internal.BOMComposition
		var componentsJSON string
		if err := rows.Scan(&comp.ParentLineKey, &comp.Signature, &componentsJSON); err != nil {
			return nil, err
		}
		_ = json.Unmarshal([]byte(componentsJSON), &comp.Components)
		out = append(out, comp)
	}
	return out, rows.Err()
}

func (d *DB) UpsertCatalogProducts(products []internal.CatalogProduct) error {
	tx, err := d.conn.Begin()
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.Prepare(`
INSERT INTO catalog_products (companyId, productId, color, size, raw_json, lastSeenAt)
VALUES (?, ?, ?, ?, ?, CURRENT_TIMESTAMP)
ON CONFLICT(companyId, productId) DO UPDATE SET
  color=excluded.color,
  size=excluded.size,
  raw_json=excluded.raw_json,
  lastSeenAt=CURRENT_TIMESTAMP
`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, p := range products {
		if _, err := stmt.Exec(p.CompanyID, p.ProductID, p.Color, p.Size, p.RawJSON); err != nil {
			return err
		}
	}

	return tx.Commit()
}

func (d *DB) GetCatalogProduct(companyID, productID string) (*internal.CatalogProduct, error) {
	var p internal.CatalogProduct
	err := d.conn.QueryRow(`
SELECT companyId, productId, color, size, raw_json
FROM catalog_products WHERE companyId = ? AND productId = ?
`, companyID, productID).Scan(&p.CompanyID, &p.ProductID, &p.Color, &p.Size, &p.RawJSON)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (d *DB) InsertRun(traceID string, stats internal.RunStats, timings map[string]float64) error {
	countsJSON, _ := json.Marshal(stats)
	timingsJSON, _ := json.Marshal(timings)
	_, err := d.conn.Exec(`INSERT INTO runs (traceId, countsJson, timingsJson) VALUES (?, ?, ?)`, traceID, string(countsJSON), string(timingsJSON))
	return err
}

func (d *DB) SetMetadata(key, value string) error {
	_, err := d.conn.Exec(`
INSERT INTO metadata (key, value) VALUES (?, ?)
ON CONFLICT(key) DO UPDATE SET value = excluded.value, updatedAt = CURRENT_TIMESTAMP
`, key, value)
	return err
}

func (d *DB) GetMetadata(key string) (*string, error) {
	var value string
	err := d.conn.QueryRow(`SELECT value FROM metadata WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &value, nil
}

func (d *DB) MustSourceRecordByID(id int) (internal.SourceRecord, error) {
	rec, err := d.GetSourceRecordByID(id)
	if err != nil {
		return internal.SourceRecord{}, err
	}
	if rec == nil {
		return internal.SourceRecord{}, fmt.Errorf("source record not found: id=%d", id)
	}
	return *rec, nil
}

func boolToInt(v bool) int {
	if v {
		return 1
	}
	return 0
}
