package ledger

import (
	"bufio"
	"encoding/json"
	"os"
	"strings"
	"time"

	"github.com/nzci/enrolbridge/app/models"
)

const (
	kindSale    = "sale"
	kindOutcome = "outcome"
)

// fileRecord is one newline-delimited JSON line. The file is strictly
// append-only: outcome changes are appended as separate lines, never edits.
type fileRecord struct {
	Kind       string    `json:"kind"`
	SaleID     string    `json:"sale_id"`
	Email      string    `json:"email,omitempty"`
	Name       string    `json:"name,omitempty"`
	Product    string    `json:"product,omitempty"`
	PriceCents int       `json:"price,omitempty"`
	Outcome    string    `json:"outcome"`
	Timestamp  time.Time `json:"timestamp"`
}

// FileStore keeps the ledger in a local newline-delimited JSON file. Each
// write opens the file for append and closes it again so a crash never holds
// the handle; appends are assumed atomic at line granularity and are not
// otherwise coordinated across concurrent writers.
type FileStore struct {
	path string
}

func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

func (s *FileStore) Append(record models.SaleRecord) error {
	return s.appendLine(fileRecord{
		Kind:       kindSale,
		SaleID:     record.SaleID,
		Email:      record.Email,
		Name:       record.Name,
		Product:    record.Product,
		PriceCents: record.PriceCents,
		Outcome:    models.SaleOutcomePending,
		Timestamp:  record.Timestamp,
	})
}

func (s *FileStore) RecordOutcome(saleID, outcome string) error {
	return s.appendLine(fileRecord{
		Kind:      kindOutcome,
		SaleID:    saleID,
		Outcome:   outcome,
		Timestamp: time.Now().UTC(),
	})
}

func (s *FileStore) ListPending() ([]models.SaleRecord, error) {
	f, err := os.Open(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	defer f.Close()

	var sales []models.SaleRecord
	latest := map[string]string{}

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		var rec fileRecord
		if err := json.Unmarshal([]byte(line), &rec); err != nil {
			// Skip unparseable lines rather than abandoning the scan.
			continue
		}
		switch rec.Kind {
		case kindSale:
			sales = append(sales, models.SaleRecord{
				SaleID:     rec.SaleID,
				Email:      rec.Email,
				Name:       rec.Name,
				Product:    rec.Product,
				PriceCents: rec.PriceCents,
				Outcome:    rec.Outcome,
				Timestamp:  rec.Timestamp,
			})
			latest[rec.SaleID] = rec.Outcome
		case kindOutcome:
			latest[rec.SaleID] = rec.Outcome
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}

	var pending []models.SaleRecord
	for _, sale := range sales {
		if latest[sale.SaleID] == models.SaleOutcomeEnrolled {
			continue
		}
		sale.Outcome = latest[sale.SaleID]
		pending = append(pending, sale)
	}
	return pending, nil
}

func (s *FileStore) appendLine(rec fileRecord) error {
	payload, err := json.Marshal(rec)
	if err != nil {
		return err
	}

	f, err := os.OpenFile(s.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()

	_, err = f.Write(append(payload, '\n'))
	return err
}
