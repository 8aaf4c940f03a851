package syncengine

// AggregateResults combines several vaults' SyncResults into one summary,
// the way the source tool's "_show_consolidated_summary" rolled up
// per-library Obsidian stats into a single report. The overall run is a
// failure iff any vault failed.
func AggregateResults(results []SyncResult) SyncResult {
	var total SyncResult
	total.Success = true

	for _, r := range results {
		total.DocsListed += r.DocsListed
		total.RemsListed += r.RemsListed
		total.LinksLive += r.LinksLive
		total.DocsCreated += r.DocsCreated
		total.RemsCreated += r.RemsCreated
		total.DocsUpdated += r.DocsUpdated
		total.RemsUpdated += r.RemsUpdated
		total.DocsDeleted += r.DocsDeleted
		total.RemsDeleted += r.RemsDeleted
		total.LinksCreated += r.LinksCreated
		total.LinksDeleted += r.LinksDeleted
		total.ConflictsResolved += r.ConflictsResolved
		total.RemsRerouted += r.RemsRerouted
		total.DocsSkippedNoBlockID += r.DocsSkippedNoBlockID
		total.DocsSkippedNotFound += r.DocsSkippedNotFound

		total.CreatedDocUUIDs = append(total.CreatedDocUUIDs, r.CreatedDocUUIDs...)
		total.CreatedRemUUIDs = append(total.CreatedRemUUIDs, r.CreatedRemUUIDs...)

		for tag, byList := range r.TagSummary {
			if total.TagSummary == nil {
				total.TagSummary = make(map[string]map[string]int)
			}
			if total.TagSummary[tag] == nil {
				total.TagSummary[tag] = make(map[string]int)
			}
			for list, count := range byList {
				total.TagSummary[tag][list] += count
			}
		}

		if !r.Success {
			total.Success = false
		}
		if len(r.Errors) > 0 {
			prefixed := make([]string, len(r.Errors))
			for i, e := range r.Errors {
				prefixed[i] = r.VaultID + ": " + e
			}
			total.Errors = append(total.Errors, prefixed...)
		}
	}

	return total
}
