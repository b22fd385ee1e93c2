package retrieve

import (
	"context"

	"github.com/jlkeet/pacific-hansard-rag/internal/persistence/databases"
)

// AttachDocMetadata fills per-item DocID and DocumentMeta from the documents store
// when present in metadata. It uses the existing FullTextSearch GetByID to fetch
// the doc row and copies title/url fields from metadata if available.
func AttachDocMetadata(ctx context.Context, search databases.FullTextSearch, items []RetrievedItem) []RetrievedItem {
	for i := range items {
		// DocID may be derivable from the chunk ID and metadata
		items[i].DocID = deriveDocID(items[i].ID, items[i].Metadata)
		// Populate doc meta from available metadata aready on the chunk
		if items[i].Metadata != nil {
			if t, ok := items[i].Metadata["title"]; ok {
				items[i].Doc.Title = t
			}
			if u, ok := items[i].Metadata["url"]; ok {
				items[i].Doc.URL = u
			}
			if sp, ok := items[i].Metadata["speaker"]; ok {
				items[i].Doc.Speaker = sp
			}
			if d, ok := items[i].Metadata["date"]; ok {
				items[i].Doc.Date = d
			}
			if c, ok := items[i].Metadata["country"]; ok {
				items[i].Doc.Country = c
			}
			if ch, ok := items[i].Metadata["chamber"]; ok {
				items[i].Doc.Chamber = ch
			}
		}
		// If still empty, try to load the doc record
		if search != nil && (items[i].Doc.Title == "" && items[i].Doc.URL == "") {
			// If we have a separate doc_id different from chunk id, prefer that
			docID := items[i].DocID
			if docID != "" {
				if doc, ok, _ := search.GetByID(ctx, docID); ok {
					if doc.Metadata != nil {
						if t, ok := doc.Metadata["title"]; ok {
							items[i].Doc.Title = t
						}
						if u, ok := doc.Metadata["url"]; ok {
							items[i].Doc.URL = u
						}
						if sp, ok := doc.Metadata["speaker"]; ok && items[i].Doc.Speaker == "" {
							items[i].Doc.Speaker = sp
						}
						if d, ok := doc.Metadata["date"]; ok && items[i].Doc.Date == "" {
							items[i].Doc.Date = d
						}
						if c, ok := doc.Metadata["country"]; ok && items[i].Doc.Country == "" {
							items[i].Doc.Country = c
						}
						if ch, ok := doc.Metadata["chamber"]; ok && items[i].Doc.Chamber == "" {
							items[i].Doc.Chamber = ch
						}
					}
				}
			}
		}
	}
	return items
}

// FilterByDateRange drops items whose Doc.Date falls outside [from, to]
// (inclusive, ISO-8601 day strings compare correctly as plain strings).
// Items with no date are kept: the underlying index permits missing dates,
// and an unknown date cannot be excluded by a range it was never compared
// against. Empty from/to leave that side unbounded.
func FilterByDateRange(items []RetrievedItem, from, to string) []RetrievedItem {
	if from == "" && to == "" {
		return items
	}
	out := items[:0]
	for _, it := range items {
		d := it.Doc.Date
		if d != "" {
			if from != "" && d < from {
				continue
			}
			if to != "" && d > to {
				continue
			}
		}
		out = append(out, it)
	}
	return out
}
