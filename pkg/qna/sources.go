// Copyright (C) 2026 Enterprise RAG Contributors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package qna

// ConsolidateSources merges reranker fragments that refer to the same
// underlying document. The backend returns one fragment per retrieved
// chunk; fragments sharing a citation_id describe the same file or link.
//
// The first fragment seen for a citation_id becomes the canonical entry and
// keeps its metadata (scores, bucket/object, url). Every non-empty fragment
// text for that id, including the canonical's own, is appended to the
// canonical's Citations in arrival order. A lone fragment with no text
// keeps a nil Citations slice. The relative order of first appearance is
// preserved.
func ConsolidateSources(raw []Source) []Source {
	if len(raw) == 0 {
		return []Source{}
	}

	out := make([]Source, 0, len(raw))
	index := make(map[int]int, len(raw))

	for _, frag := range raw {
		if at, seen := index[frag.CitationID]; seen {
			if frag.Text != "" {
				out[at].Citations = append(out[at].Citations, frag.Text)
			}
			continue
		}

		entry := frag
		entry.Citations = nil
		if frag.Text != "" {
			entry.Citations = []string{frag.Text}
		}
		index[frag.CitationID] = len(out)
		out = append(out, entry)
	}

	return out
}
