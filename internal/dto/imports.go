package dto

// ImportRowError pinpoints a rejected CSV row.
type ImportRowError struct {
	Row     int    `json:"row"`
	Message string `json:"message"`
}

// ImportResult summarises a CSV bulk upload.
type ImportResult struct {
	BatchID  string           `json:"batch_id"`
	Imported int              `json:"imported"`
	Rejected int              `json:"rejected"`
	Errors   []ImportRowError `json:"errors,omitempty"`
}
