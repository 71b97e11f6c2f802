package domain

// Entry is a raw NOMAD search result. The API returns a projection of the
// archive metadata, so the shape depends on the requested include fields and
// is kept schema-less here.
type Entry map[string]any

// ID returns the unique entry identifier or "" when it is missing.
func (e Entry) ID() string {
	id, _ := e["entry_id"].(string)
	return id
}

// Field returns a top-level value by quantity name.
func (e Entry) Field(name string) any {
	return e[name]
}

// NestedField resolves a two-level path such as metadata.main_author.
func (e Entry) NestedField(outer, inner string) any {
	obj, ok := e[outer].(map[string]any)
	if !ok {
		return nil
	}
	return obj[inner]
}

// DatasetIDs extracts dataset identifiers from the datasets projection.
func (e Entry) DatasetIDs() []string {
	raw, ok := e["datasets"].([]any)
	if !ok {
		return nil
	}

	ids := make([]string, 0, len(raw))
	for _, item := range raw {
		obj, ok := item.(map[string]any)
		if !ok {
			continue
		}
		if id, ok := obj["dataset_id"].(string); ok && id != "" {
			ids = append(ids, id)
		}
	}
	return ids
}

// EntryQuery describes one paginated search against /entries/query.
type EntryQuery struct {
	Query         map[string]any
	PageSize      int
	IncludeFields []string
}

// PickedEntry is one collected record written to the per-code JSONL output.
// Scan mode adds the provenance fields; bulk mode leaves them empty.
type PickedEntry struct {
	EntryID          string  `json:"entry_id"`
	MainAuthor       string  `json:"main_author"`
	DatasetID        *string `json:"dataset_id"`
	Code             string  `json:"code,omitempty"`
	EntryPoint       string  `json:"entry_point,omitempty"`
	PickedBy         string  `json:"picked_by,omitempty"`
	BucketEntryCount int     `json:"bucket_entry_count,omitempty"`
}
